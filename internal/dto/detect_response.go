package dto

import (
	"encoding/base64"

	"yolodemo/internal/detect"
	"yolodemo/internal/service"
	"yolodemo/internal/service/inference"
)

// OutputData is one rendered item; Image holds a base64 JPEG.
type OutputData struct {
	Kind       string             `json:"kind"`
	Caption    string             `json:"caption"`
	Frame      int                `json:"frame,omitempty"`
	Image      string             `json:"image,omitempty"`
	Detections []detect.Detection `json:"detections,omitempty"`
}

type DetectResponse struct {
	Model     string       `json:"model"`
	Kind      string       `json:"kind"`
	Threshold float64      `json:"threshold"`
	Passes    int          `json:"passes"`
	Outputs   []OutputData `json:"outputs"`
}

func NewDetectResponse(result *service.DetectResult) DetectResponse {
	outputs := make([]OutputData, 0, len(result.Outputs))
	for _, out := range result.Outputs {
		data := OutputData{
			Kind:       string(out.Kind),
			Caption:    out.Caption,
			Frame:      out.Frame,
			Detections: out.Detections,
		}
		if out.Kind == inference.OutputImage {
			data.Image = base64.StdEncoding.EncodeToString(out.Image)
		}
		outputs = append(outputs, data)
	}

	return DetectResponse{
		Model:     result.Model,
		Kind:      string(result.Summary.Kind),
		Threshold: result.Summary.Threshold,
		Passes:    result.Summary.Passes,
		Outputs:   outputs,
	}
}
