// Package modelcache downloads model weights into a local directory once and
// keeps one constructed detector per catalog entry for the process lifetime.
package modelcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"yolodemo/internal/catalog"
	"yolodemo/internal/detect"
	"yolodemo/internal/logger"
	"yolodemo/internal/models"
	"yolodemo/internal/repository"
)

var (
	// ErrAcquisition marks failures to fetch or store model weights.
	ErrAcquisition = errors.New("model acquisition failed")
	// ErrConstruction marks failures to build a detector from a cached file.
	ErrConstruction = errors.New("model construction failed")
)

// Notify receives user facing progress notices.
type Notify func(message string)

// Model is a memoized, ready to use detector shared by every caller that
// selects the same catalog entry.
type Model struct {
	Entry    catalog.Entry
	Path     string
	Detector detect.Detector
}

// Cache resolves catalog entries to detectors.
type Cache struct {
	dir     string
	fetcher Fetcher
	backend detect.Backend
	repo    repository.ModelRepository
	logger  *logger.Logger

	mu     sync.Mutex
	models map[string]*Model
	group  singleflight.Group
	now    func() time.Time
}

// NewCache creates a cache rooted at dir. repo may be nil.
func NewCache(dir string, fetcher Fetcher, backend detect.Backend, repo repository.ModelRepository, logger *logger.Logger) *Cache {
	return &Cache{
		dir:     dir,
		fetcher: fetcher,
		backend: backend,
		repo:    repo,
		logger:  logger,
		models:  make(map[string]*Model),
		now:     time.Now,
	}
}

// Path returns the deterministic local file for a display name.
func (c *Cache) Path(name string) string {
	return filepath.Join(c.dir, catalog.FileName(name))
}

// IsCached reports whether the weights for name are present on disk.
func (c *Cache) IsCached(name string) bool {
	_, err := os.Stat(c.Path(name))
	return err == nil
}

// IsLoaded reports whether a detector for entry has been constructed.
func (c *Cache) IsLoaded(entry catalog.Entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.models[key(entry)]
	return ok
}

// Manifest returns the recorded download/load history, or nil without a
// repository. Rows whose file has been removed from disk are dropped.
func (c *Cache) Manifest() ([]models.CachedModel, error) {
	if c.repo == nil {
		return nil, nil
	}

	rows, err := c.repo.GetAll()
	if err != nil {
		return nil, err
	}

	kept := rows[:0]
	for _, row := range rows {
		if _, err := os.Stat(row.FilePath); os.IsNotExist(err) {
			if err := c.repo.DeleteByName(row.Name); err != nil {
				c.logger.Warning("Could not drop stale manifest row %s: %v", row.Name, err)
			} else {
				c.logger.Info("Dropped manifest row for %s, %s is gone", row.Name, row.FilePath)
			}
			continue
		}
		kept = append(kept, row)
	}
	return kept, nil
}

// Get returns the detector for entry, downloading and constructing it on
// first use. Concurrent first calls for the same entry share one
// acquisition, which keeps running when the caller that started it goes
// away; a cancelled caller only stops waiting. Failures are not memoized.
func (c *Cache) Get(ctx context.Context, entry catalog.Entry, notify Notify) (*Model, error) {
	k := key(entry)

	if m := c.lookup(k); m != nil {
		return m, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(k, func() (interface{}, error) {
		if m := c.lookup(k); m != nil {
			return m, nil
		}

		m, err := c.acquire(shared, entry, notify)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.models[k] = m
		c.mu.Unlock()
		return m, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Model), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fetch makes sure the weights for entry are on disk without constructing a detector.
func (c *Cache) Fetch(ctx context.Context, entry catalog.Entry, notify Notify) (string, bool, error) {
	path := c.Path(entry.Name)
	downloaded, err := c.ensureFile(ctx, entry, path, notify)
	return path, downloaded, err
}

func (c *Cache) lookup(k string) *Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.models[k]
}

func (c *Cache) acquire(ctx context.Context, entry catalog.Entry, notify Notify) (*Model, error) {
	path := c.Path(entry.Name)

	if _, err := c.ensureFile(ctx, entry, path, notify); err != nil {
		return nil, err
	}

	detector, err := c.backend.LoadDetector(path)
	if err != nil {
		c.logger.Error("Failed to construct %s from %s: %v", entry.Name, path, err)
		return nil, fmt.Errorf("%w: %s: %w", ErrConstruction, entry.Name, err)
	}

	c.recordLoad(entry, path)
	c.logger.Info("Model %s ready", entry.Name)

	return &Model{Entry: entry, Path: path, Detector: detector}, nil
}

// ensureFile downloads entry into path unless a file is already there. An
// existing file is trusted as is.
func (c *Cache) ensureFile(ctx context.Context, entry catalog.Entry, path string, notify Notify) (bool, error) {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return false, fmt.Errorf("%w: failed to create model directory: %w", ErrAcquisition, err)
	}

	info, err := os.Stat(path)
	if err == nil {
		c.adopt(entry, path, info)
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, fmt.Errorf("%w: %s: %w", ErrAcquisition, entry.Name, err)
	}

	msg := fmt.Sprintf("Downloading %s model...", entry.Name)
	c.logger.Info("%s (%s)", msg, entry.URL)
	if notify != nil {
		notify(msg)
	}

	partial := path + ".part"
	size, err := c.fetcher.Fetch(ctx, entry.URL, partial)
	if err != nil {
		os.Remove(partial)
		c.logger.Error("Download of %s failed: %v", entry.Name, err)
		return false, fmt.Errorf("%w: %s: %w", ErrAcquisition, entry.Name, err)
	}

	if err := os.Rename(partial, path); err != nil {
		os.Remove(partial)
		return false, fmt.Errorf("%w: failed to move %s into place: %w", ErrAcquisition, partial, err)
	}

	c.logger.Info("Downloaded %s (%d bytes) to %s", entry.Name, size, path)
	if c.repo != nil {
		err := c.repo.RecordDownload(&models.CachedModel{
			Name:         entry.Name,
			URL:          entry.URL,
			FilePath:     path,
			FileSize:     size,
			DownloadedAt: c.now(),
		})
		if err != nil {
			c.logger.Warning("Could not record download of %s: %v", entry.Name, err)
		}
	}

	return true, nil
}

// adopt records a cache file placed on disk outside of a download, using
// its modification time as the download time.
func (c *Cache) adopt(entry catalog.Entry, path string, info os.FileInfo) {
	if c.repo == nil {
		return
	}

	existing, err := c.repo.GetByName(entry.Name)
	if err != nil {
		c.logger.Warning("Could not read manifest for %s: %v", entry.Name, err)
		return
	}
	if existing != nil && !existing.DownloadedAt.IsZero() {
		return
	}

	err = c.repo.RecordDownload(&models.CachedModel{
		Name:         entry.Name,
		URL:          entry.URL,
		FilePath:     path,
		FileSize:     info.Size(),
		DownloadedAt: info.ModTime(),
	})
	if err != nil {
		c.logger.Warning("Could not record cached file for %s: %v", entry.Name, err)
	}
}

func (c *Cache) recordLoad(entry catalog.Entry, path string) {
	if c.repo == nil {
		return
	}

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	err := c.repo.RecordLoad(&models.CachedModel{
		Name:         entry.Name,
		URL:          entry.URL,
		FilePath:     path,
		FileSize:     size,
		LastLoadedAt: c.now(),
	})
	if err != nil {
		c.logger.Warning("Could not record load of %s: %v", entry.Name, err)
	}
}

// Close releases every constructed detector.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	for k, m := range c.models {
		err = multierr.Append(err, m.Detector.Close())
		delete(c.models, k)
	}
	return err
}

func key(entry catalog.Entry) string {
	return entry.URL + "\x00" + entry.Name
}
