package config

import "math"

const (
	// MinThreshold is the lowest confidence the slider allows.
	MinThreshold = 0.1
	// MaxThreshold is the highest confidence the slider allows.
	MaxThreshold = 1.0
	// ThresholdStep is the slider granularity.
	ThresholdStep = 0.05
	// DefaultThreshold is the slider's initial value.
	DefaultThreshold = 0.25

	// MaxVideoFrames caps how many frames of an uploaded video are annotated.
	MaxVideoFrames = 10
)

// AcceptedExtensions lists upload extensions offered by the file picker.
var AcceptedExtensions = []string{"jpg", "jpeg", "png", "mp4"}

// ClampThreshold forces v into [MinThreshold, MaxThreshold]; NaN maps to the default.
func ClampThreshold(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultThreshold
	}
	if v < MinThreshold {
		return MinThreshold
	}
	if v > MaxThreshold {
		return MaxThreshold
	}
	return v
}
