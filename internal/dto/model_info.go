package dto

import (
	"encoding/json"
	"time"

	"yolodemo/internal/service"
)

// ModelInfo represents one catalog entry and its cache state.
type ModelInfo struct {
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	FileName     string    `json:"file"`
	Cached       bool      `json:"cached"`
	Loaded       bool      `json:"loaded"`
	Selected     bool      `json:"selected"`
	FileSize     int64     `json:"size,omitempty"`
	DownloadedAt time.Time `json:"downloadedAt"`
	LastLoadedAt time.Time `json:"lastLoadedAt"`
}

// MarshalJSON renders timestamps as RFC 3339 and omits the ones never set.
func (m ModelInfo) MarshalJSON() ([]byte, error) {
	type Alias ModelInfo
	return json.Marshal(&struct {
		DownloadedAt string `json:"downloadedAt,omitempty"`
		LastLoadedAt string `json:"lastLoadedAt,omitempty"`
		Alias
	}{
		DownloadedAt: formatTime(m.DownloadedAt),
		LastLoadedAt: formatTime(m.LastLoadedAt),
		Alias:        (Alias)(m),
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// NewModelInfos converts manager statuses, keeping catalog order.
func NewModelInfos(statuses []service.ModelStatus) []ModelInfo {
	infos := make([]ModelInfo, 0, len(statuses))
	for _, s := range statuses {
		infos = append(infos, ModelInfo{
			Name:         s.Entry.Name,
			URL:          s.Entry.URL,
			FileName:     s.FileName,
			Cached:       s.Cached,
			Loaded:       s.Loaded,
			Selected:     s.Selected,
			FileSize:     s.FileSize,
			DownloadedAt: s.DownloadedAt,
			LastLoadedAt: s.LastLoadedAt,
		})
	}
	return infos
}
