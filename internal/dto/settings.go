package dto

import (
	"yolodemo/internal/config"
	"yolodemo/internal/service"
)

// SelectionRequest is the body of PUT /api/selection. A missing threshold
// keeps the current one.
type SelectionRequest struct {
	Model     string   `json:"model"`
	Threshold *float64 `json:"threshold"`
}

// Settings describes the controls the UI renders.
type Settings struct {
	MinThreshold       float64           `json:"minThreshold"`
	MaxThreshold       float64           `json:"maxThreshold"`
	ThresholdStep      float64           `json:"thresholdStep"`
	DefaultThreshold   float64           `json:"defaultThreshold"`
	MaxVideoFrames     int               `json:"maxVideoFrames"`
	AcceptedExtensions []string          `json:"acceptedExtensions"`
	Models             []string          `json:"models"`
	Selection          service.Selection `json:"selection"`
}

func NewSettings(models []string, selection service.Selection) Settings {
	return Settings{
		MinThreshold:       config.MinThreshold,
		MaxThreshold:       config.MaxThreshold,
		ThresholdStep:      config.ThresholdStep,
		DefaultThreshold:   config.DefaultThreshold,
		MaxVideoFrames:     config.MaxVideoFrames,
		AcceptedExtensions: config.AcceptedExtensions,
		Models:             models,
		Selection:          selection,
	}
}
