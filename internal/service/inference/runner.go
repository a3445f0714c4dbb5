// Package inference feeds uploaded media through a detector and hands each
// annotated result to a sink as soon as it exists.
package inference

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/multierr"

	"yolodemo/internal/config"
	"yolodemo/internal/detect"
	"yolodemo/internal/logger"
	"yolodemo/internal/service/storage"
)

// Summary describes a finished run.
type Summary struct {
	Kind      storage.Kind `json:"kind"`
	Passes    int          `json:"passes"`
	Threshold float64      `json:"threshold"`
}

// Runner executes the image and video display paths.
type Runner struct {
	backend   detect.Backend
	maxFrames int
	logger    *logger.Logger
}

// NewRunner creates a runner annotating at most config.MaxVideoFrames frames per video.
func NewRunner(backend detect.Backend, logger *logger.Logger) *Runner {
	return &Runner{
		backend:   backend,
		maxFrames: config.MaxVideoFrames,
		logger:    logger,
	}
}

// Run dispatches upload to the image or video path at the clamped threshold.
func (r *Runner) Run(ctx context.Context, detector detect.Detector, upload *storage.Upload, threshold float64, sink Sink) (*Summary, error) {
	threshold = config.ClampThreshold(threshold)
	summary := &Summary{Kind: upload.Kind, Threshold: threshold}

	var err error
	if upload.Kind == storage.KindVideo {
		summary.Passes, err = r.RunVideo(ctx, detector, upload.Path, threshold, sink)
	} else {
		summary.Passes, err = r.RunImage(ctx, detector, upload.Path, threshold, sink)
	}
	if err != nil {
		return summary, err
	}

	r.logger.Info("Finished %s run: %d detection pass(es) at threshold %.2f", upload.Kind, summary.Passes, threshold)
	return summary, nil
}

// RunImage shows the uploaded image and its annotated version after one pass.
func (r *Runner) RunImage(ctx context.Context, detector detect.Detector, path string, threshold float64, sink Sink) (int, error) {
	frame, err := r.backend.ReadImage(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read image: %w", err)
	}
	defer frame.Close()

	original, err := frame.Encode()
	if err != nil {
		return 0, err
	}
	if err := sink.Emit(ctx, Output{Kind: OutputImage, Caption: "Uploaded Image", Image: original}); err != nil {
		return 0, err
	}

	result, err := detector.Detect(ctx, frame, config.ClampThreshold(threshold))
	if err != nil {
		return 1, fmt.Errorf("detection failed: %w", err)
	}

	err = sink.Emit(ctx, Output{
		Kind:       OutputImage,
		Caption:    "Detected",
		Image:      result.Annotated,
		Detections: result.Detections,
	})
	return 1, err
}

// RunVideo annotates the first maxFrames decodable frames in order, emitting
// each one immediately. The stream is closed on every return path.
func (r *Runner) RunVideo(ctx context.Context, detector detect.Detector, path string, threshold float64, sink Sink) (passes int, err error) {
	stream, err := r.backend.OpenVideo(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open video: %w", err)
	}
	defer func() {
		err = multierr.Append(err, stream.Close())
	}()

	notice := fmt.Sprintf("Processing video (showing %d annotated frames)...", r.maxFrames)
	if err := sink.Emit(ctx, Output{Kind: OutputNotice, Caption: notice}); err != nil {
		return 0, err
	}

	threshold = config.ClampThreshold(threshold)
	for passes < r.maxFrames {
		frame, readErr := stream.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return passes, fmt.Errorf("failed to decode frame %d: %w", passes+1, readErr)
		}

		result, detectErr := detector.Detect(ctx, frame, threshold)
		frame.Close()
		if detectErr != nil {
			return passes, fmt.Errorf("detection failed on frame %d: %w", passes+1, detectErr)
		}
		passes++

		out := Output{
			Kind:       OutputImage,
			Caption:    fmt.Sprintf("Frame %d", passes),
			Frame:      passes,
			Image:      result.Annotated,
			Detections: result.Detections,
		}
		if err := sink.Emit(ctx, out); err != nil {
			return passes, err
		}
	}

	if passes < r.maxFrames {
		r.logger.Info("Video %s ended after %d frame(s)", path, passes)
	}
	return passes, nil
}
