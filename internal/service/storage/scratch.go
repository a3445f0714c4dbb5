package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"yolodemo/internal/logger"
)

// Kind is the media class of an upload.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Upload is an ingested file waiting for inference.
type Upload struct {
	Path        string
	Kind        Kind
	ContentType string
	Size        int64
}

// ScratchService writes uploads verbatim into temp files. Files are never
// removed by the service; the OS owns cleanup of the scratch directory.
type ScratchService struct {
	dir    string
	mu     sync.Mutex
	count  int
	logger *logger.Logger
}

// NewScratchService creates a service writing into dir (the OS temp dir when empty).
func NewScratchService(dir string, logger *logger.Logger) *ScratchService {
	return &ScratchService{
		dir:    dir,
		logger: logger,
	}
}

// ClassifyContentType returns KindVideo when the declared type starts with "video".
func ClassifyContentType(contentType string) Kind {
	if strings.HasPrefix(contentType, "video") {
		return KindVideo
	}
	return KindImage
}

// Save copies r into a new temp file and classifies it by contentType.
// filename only contributes its extension to the temp file name.
func (s *ScratchService) Save(r io.Reader, filename, contentType string) (*Upload, error) {
	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create scratch directory: %w", err)
		}
	}

	file, err := os.CreateTemp(s.dir, "upload-*"+sanitizeExt(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer file.Close()

	size, err := io.Copy(file, r)
	if err != nil {
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	upload := &Upload{
		Path:        file.Name(),
		Kind:        ClassifyContentType(contentType),
		ContentType: contentType,
		Size:        size,
	}

	s.mu.Lock()
	s.count++
	count := s.count
	s.mu.Unlock()

	s.logger.Info("Stored upload #%d (%s, %s, %d bytes) at %s", count, upload.Kind, contentType, size, upload.Path)
	return upload, nil
}

// Count returns how many uploads have been stored since start.
func (s *ScratchService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	for _, r := range ext[min(1, len(ext)):] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
