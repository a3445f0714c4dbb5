package detect

import (
	"fmt"
	"image"
)

// Candidate is a raw box from the network before non-max suppression.
// Coordinates are in network input pixels.
type Candidate struct {
	ClassID    int
	Confidence float32
	Box        image.Rectangle
}

// DecodeYOLO reads the [1, 4+classes, anchors] output of a YOLOv8/YOLO11
// export laid out row-major in data. Each anchor contributes its best class
// when that score reaches threshold. Box coordinates are multiplied by scale
// to map them back onto the source image.
func DecodeYOLO(data []float32, attributes, anchors int, threshold, scale float32) ([]Candidate, error) {
	if attributes <= 4 || anchors <= 0 {
		return nil, fmt.Errorf("unexpected output shape [%d, %d]", attributes, anchors)
	}
	if len(data) < attributes*anchors {
		return nil, fmt.Errorf("output has %d values, shape needs %d", len(data), attributes*anchors)
	}

	var candidates []Candidate
	for a := 0; a < anchors; a++ {
		classID, best := -1, float32(0)
		for c := 4; c < attributes; c++ {
			if score := data[c*anchors+a]; score > best {
				best = score
				classID = c - 4
			}
		}
		if classID < 0 || best < threshold {
			continue
		}

		cx := data[a]
		cy := data[anchors+a]
		w := data[2*anchors+a]
		h := data[3*anchors+a]

		candidates = append(candidates, Candidate{
			ClassID:    classID,
			Confidence: best,
			Box: image.Rect(
				int((cx-w/2)*scale),
				int((cy-h/2)*scale),
				int((cx+w/2)*scale),
				int((cy+h/2)*scale),
			),
		})
	}

	return candidates, nil
}
