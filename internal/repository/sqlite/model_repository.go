package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"yolodemo/internal/models"
)

// ModelRepository implements repository.ModelRepository for SQLite.
type ModelRepository struct {
	db *DB
}

// NewModelRepository creates a new SQLite model manifest repository.
func NewModelRepository(db *DB) *ModelRepository {
	return &ModelRepository{db: db}
}

// RecordDownload inserts or refreshes the manifest row after a model file was fetched.
func (r *ModelRepository) RecordDownload(m *models.CachedModel) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO cached_models (name, url, filepath, filesize, downloaded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			url = excluded.url,
			filepath = excluded.filepath,
			filesize = excluded.filesize,
			downloaded_at = excluded.downloaded_at
	`, m.Name, m.URL, m.FilePath, m.FileSize, m.DownloadedAt)
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

// RecordLoad stamps the time a detector was constructed from the cached file.
// Rows for files that were placed in the cache by hand are created here.
func (r *ModelRepository) RecordLoad(m *models.CachedModel) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO cached_models (name, url, filepath, filesize, last_loaded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			url = excluded.url,
			filepath = excluded.filepath,
			filesize = excluded.filesize,
			last_loaded_at = excluded.last_loaded_at
	`, m.Name, m.URL, m.FilePath, m.FileSize, m.LastLoadedAt)
	if err != nil {
		return fmt.Errorf("failed to record load: %w", err)
	}
	return nil
}

// GetByName retrieves the manifest row for a display name.
func (r *ModelRepository) GetByName(name string) (*models.CachedModel, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`
		SELECT id, name, url, filepath, filesize, downloaded_at, last_loaded_at
		FROM cached_models WHERE name = ?
	`, name)

	m, err := scanModel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached model: %w", err)
	}
	return m, nil
}

// GetAll retrieves every manifest row ordered by name.
func (r *ModelRepository) GetAll() ([]models.CachedModel, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, name, url, filepath, filesize, downloaded_at, last_loaded_at
		FROM cached_models ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached models: %w", err)
	}
	defer rows.Close()

	var result []models.CachedModel
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cached model: %w", err)
		}
		result = append(result, *m)
	}

	return result, rows.Err()
}

// DeleteByName removes the manifest row for a display name.
func (r *ModelRepository) DeleteByName(name string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM cached_models WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete cached model: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanModel(s scanner) (*models.CachedModel, error) {
	var m models.CachedModel
	var downloadedAt, loadedAt sql.NullTime

	if err := s.Scan(&m.ID, &m.Name, &m.URL, &m.FilePath, &m.FileSize, &downloadedAt, &loadedAt); err != nil {
		return nil, err
	}

	m.DownloadedAt = nullTime(downloadedAt)
	m.LastLoadedAt = nullTime(loadedAt)
	return &m, nil
}

func nullTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}
