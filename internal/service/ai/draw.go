package ai

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"yolodemo/internal/detect"
)

var palette = []color.RGBA{
	{R: 255, G: 56, B: 56, A: 0},
	{R: 255, G: 157, B: 151, A: 0},
	{R: 255, G: 112, B: 31, A: 0},
	{R: 255, G: 178, B: 29, A: 0},
	{R: 207, G: 210, B: 49, A: 0},
	{R: 72, G: 249, B: 10, A: 0},
	{R: 26, G: 147, B: 52, A: 0},
	{R: 0, G: 212, B: 187, A: 0},
	{R: 0, G: 194, B: 255, A: 0},
	{R: 52, G: 69, B: 147, A: 0},
	{R: 132, G: 56, B: 255, A: 0},
	{R: 255, G: 55, B: 199, A: 0},
}

// classColor picks a stable colour per class.
func classColor(classID int) color.RGBA {
	return palette[((classID%len(palette))+len(palette))%len(palette)]
}

// drawDetections burns boxes and "label (conf)" captions into mat.
func drawDetections(mat *gocv.Mat, detections []detect.Detection) error {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 0}

	for _, detection := range detections {
		c := classColor(detection.ClassID)
		if err := gocv.Rectangle(mat, detection.Box, c, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s (%.2f)", detection.Label, detection.Confidence)
		size := gocv.GetTextSize(label, gocv.FontHersheySimplex, 0.5, 1)

		top := detection.Box.Min.Y - size.Y - 6
		if top < 0 {
			top = detection.Box.Min.Y
		}
		background := image.Rect(detection.Box.Min.X, top, detection.Box.Min.X+size.X+4, top+size.Y+6)
		if err := gocv.Rectangle(mat, background, c, -1); err != nil {
			return fmt.Errorf("failed to draw label background: %w", err)
		}

		pt := image.Pt(detection.Box.Min.X+2, top+size.Y+2)
		if err := gocv.PutText(mat, label, pt, gocv.FontHersheySimplex, 0.5, white, 1); err != nil {
			return fmt.Errorf("failed to draw text: %w", err)
		}
	}

	return nil
}
