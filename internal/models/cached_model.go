package models

import "time"

// CachedModel records a model file held in the local cache.
type CachedModel struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	FilePath     string    `json:"filepath"`
	FileSize     int64     `json:"filesize"`
	DownloadedAt time.Time `json:"downloaded_at"`
	LastLoadedAt time.Time `json:"last_loaded_at"`
}
