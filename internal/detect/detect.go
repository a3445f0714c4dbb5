// Package detect defines the contracts between the orchestration code and
// the object-detection runtime, plus runtime independent helpers for
// decoding YOLO network output.
package detect

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrUnreadableImage is returned when an uploaded image cannot be decoded.
	ErrUnreadableImage = errors.New("unreadable image")
	// ErrVideoOpen is returned when an uploaded video cannot be opened as a stream.
	ErrVideoOpen = errors.New("cannot open video stream")
)

// Detection is a single object found by a detector.
type Detection struct {
	ClassID    int             `json:"class_id"`
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Box        image.Rectangle `json:"-"`
}

// Result is the output of one detection pass.
type Result struct {
	// Annotated is a JPEG of the input with boxes and labels burned in.
	Annotated  []byte
	Detections []Detection
}

// Frame is a decoded picture owned by the runtime.
type Frame interface {
	// Encode returns the frame as JPEG bytes.
	Encode() ([]byte, error)
	Close() error
}

// VideoStream yields decoded frames in order. Read returns io.EOF once the
// stream has no more frames.
type VideoStream interface {
	Read() (Frame, error)
	Close() error
}

// Detector runs a loaded model over frames.
type Detector interface {
	Detect(ctx context.Context, frame Frame, threshold float64) (*Result, error)
	Close() error
}

// Backend is the runtime that constructs detectors and decodes media.
type Backend interface {
	LoadDetector(path string) (Detector, error)
	ReadImage(path string) (Frame, error)
	OpenVideo(path string) (VideoStream, error)
}
