package ai

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestLetterbox(t *testing.T) {
	tests := []struct {
		name          string
		rows, cols    int
		expectedSide  int
		paddedPixel   [2]int
		originalPixel [2]int
	}{
		{"wide", 2, 4, 4, [2]int{3, 0}, [2]int{1, 3}},
		{"tall", 5, 3, 5, [2]int{0, 4}, [2]int{4, 2}},
		{"square", 3, 3, 3, [2]int{-1, -1}, [2]int{2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 100, 50, 0), tt.rows, tt.cols, gocv.MatTypeCV8UC3)
			defer frame.Close()

			square, err := letterbox(frame)
			if err != nil {
				t.Fatalf("letterbox failed: %v", err)
			}
			defer square.Close()

			if square.Rows() != tt.expectedSide || square.Cols() != tt.expectedSide {
				t.Fatalf("Expected %dx%d, got %dx%d", tt.expectedSide, tt.expectedSide, square.Rows(), square.Cols())
			}
			if v := square.GetVecbAt(tt.originalPixel[0], tt.originalPixel[1]); v[0] != 200 || v[1] != 100 || v[2] != 50 {
				t.Errorf("Frame pixel not copied, got %v", v)
			}
			if tt.paddedPixel[0] >= 0 {
				if v := square.GetVecbAt(tt.paddedPixel[0], tt.paddedPixel[1]); v[0] != 0 || v[1] != 0 || v[2] != 0 {
					t.Errorf("Padding should be black, got %v", v)
				}
			}
		})
	}
}
