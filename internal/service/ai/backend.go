package ai

import (
	"fmt"
	"os"

	"gocv.io/x/gocv"

	"yolodemo/internal/detect"
	"yolodemo/internal/logger"
)

// Backend is the OpenCV implementation of detect.Backend.
type Backend struct {
	inputSize int
	logger    *logger.Logger
}

// NewBackend creates a backend feeding networks square inputs of inputSize pixels.
func NewBackend(inputSize int, logger *logger.Logger) *Backend {
	return &Backend{
		inputSize: inputSize,
		logger:    logger,
	}
}

// LoadDetector reads an ONNX model and prepares it for CPU inference.
func (b *Backend) LoadDetector(path string) (detect.Detector, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file not found: %s", path)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", path)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	b.logger.Info("Detection network initialized from %s", path)
	return &Detector{
		net:       net,
		inputSize: b.inputSize,
		logger:    b.logger,
	}, nil
}

// ReadImage decodes an image file as colour.
func (b *Backend) ReadImage(path string) (detect.Frame, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: %s", detect.ErrUnreadableImage, path)
	}
	return &Frame{mat: mat}, nil
}

// OpenVideo opens a video file for sequential decoding.
func (b *Backend) OpenVideo(path string) (detect.VideoStream, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detect.ErrVideoOpen, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: %s", detect.ErrVideoOpen, path)
	}
	return &videoStream{capture: capture, path: path}, nil
}
