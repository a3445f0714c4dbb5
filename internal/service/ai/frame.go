package ai

import (
	"fmt"
	"io"

	"gocv.io/x/gocv"

	"yolodemo/internal/detect"
)

// Frame wraps a decoded BGR Mat.
type Frame struct {
	mat gocv.Mat
}

// Encode re-encodes the frame as JPEG.
func (f *Frame) Encode() ([]byte, error) {
	return encodeJPEG(f.mat)
}

// Close releases the Mat.
func (f *Frame) Close() error {
	return f.mat.Close()
}

// videoStream reads frames from a gocv capture.
type videoStream struct {
	capture *gocv.VideoCapture
	path    string
}

// Read decodes the next frame or returns io.EOF when the capture is exhausted.
func (v *videoStream) Read() (detect.Frame, error) {
	mat := gocv.NewMat()
	if ok := v.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, io.EOF
	}
	return &Frame{mat: mat}, nil
}

// Close releases the capture.
func (v *videoStream) Close() error {
	if err := v.capture.Close(); err != nil {
		return fmt.Errorf("failed to release video %s: %w", v.path, err)
	}
	return nil
}

func encodeJPEG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
