package ai

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"yolodemo/internal/detect"
	"yolodemo/internal/logger"
)

// NMSThreshold is the IoU above which overlapping boxes are suppressed.
const NMSThreshold = 0.45

// Detector runs a YOLOv8/YOLO11 ONNX network. The underlying net is not safe
// for concurrent use, so passes are serialized.
type Detector struct {
	net       gocv.Net
	inputSize int
	logger    *logger.Logger
	mu        sync.Mutex
}

// Detect runs one pass over frame and returns the annotated JPEG with every
// detection at or above threshold.
func (d *Detector) Detect(ctx context.Context, frame detect.Frame, threshold float64) (*detect.Result, error) {
	f, ok := frame.(*Frame)
	if !ok {
		return nil, fmt.Errorf("unsupported frame type %T", frame)
	}
	if f.mat.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detections, err := d.infer(f.mat, float32(threshold))
	if err != nil {
		return nil, err
	}

	annotated := f.mat.Clone()
	defer annotated.Close()

	if err := drawDetections(&annotated, detections); err != nil {
		return nil, err
	}

	data, err := encodeJPEG(annotated)
	if err != nil {
		return nil, err
	}

	return &detect.Result{Annotated: data, Detections: detections}, nil
}

// letterbox pads mat with black to a square so the network sees the
// original aspect ratio. The frame sits in the top left corner.
func letterbox(mat gocv.Mat) (gocv.Mat, error) {
	height, width := mat.Rows(), mat.Cols()
	maxDim := max(height, width)

	square := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), maxDim, maxDim, gocv.MatTypeCV8UC3)
	roi := square.Region(image.Rect(0, 0, width, height))
	err := mat.CopyTo(&roi)
	roi.Close()
	if err != nil {
		square.Close()
		return gocv.NewMat(), fmt.Errorf("failed to letterbox frame: %w", err)
	}
	return square, nil
}

// infer letterboxes the frame, runs the network and applies NMS.
func (d *Detector) infer(mat gocv.Mat, threshold float32) ([]detect.Detection, error) {
	square, err := letterbox(mat)
	if err != nil {
		return nil, err
	}
	defer square.Close()
	maxDim := square.Rows()

	scale := float32(maxDim) / float32(d.inputSize)

	blob := gocv.BlobFromImage(square, 1.0/255.0, image.Pt(d.inputSize, d.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	d.mu.Unlock()
	defer output.Close()

	// Output: [1, 4+classes, anchors]
	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected network output dims %v", dims)
	}
	attributes, anchors := dims[1], dims[2]

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}

	candidates, err := detect.DecodeYOLO(data, attributes, anchors, threshold, scale)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	boxes := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		boxes[i] = c.Box
		scores[i] = c.Confidence
	}
	indices := gocv.NMSBoxes(boxes, scores, threshold, NMSThreshold)

	numClasses := attributes - 4
	results := make([]detect.Detection, 0, len(indices))
	for _, idx := range indices {
		c := candidates[idx]
		results = append(results, detect.Detection{
			ClassID:    c.ClassID,
			Label:      detect.ClassLabel(c.ClassID, numClasses),
			Confidence: float64(c.Confidence),
			Box:        c.Box.Intersect(image.Rect(0, 0, mat.Cols(), mat.Rows())),
		})
	}

	d.logger.Info("Detected %d objects (%d candidates)", len(results), len(candidates))
	return results, nil
}

// Close releases the network.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
