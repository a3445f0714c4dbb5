// Package service wires the catalog, model cache, upload storage, inference
// runner and viewer hub into the operations exposed over HTTP and the CLI.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/multierr"

	"yolodemo/internal/catalog"
	"yolodemo/internal/config"
	"yolodemo/internal/logger"
	"yolodemo/internal/service/inference"
	"yolodemo/internal/service/modelcache"
	"yolodemo/internal/service/storage"
	"yolodemo/internal/service/websocket"
)

// ErrUnknownModel is returned for names missing from the catalog.
var ErrUnknownModel = errors.New("unknown model")

// Selection is the model and confidence threshold used when a request does
// not override them.
type Selection struct {
	Model     string  `json:"model"`
	Threshold float64 `json:"threshold"`
}

// DetectRequest is one uploaded file plus optional per-request overrides.
type DetectRequest struct {
	Body        io.Reader
	Filename    string
	ContentType string
	Model       string
	Threshold   *float64
	Client      string // viewer id for streamed frames, empty for none
}

// DetectResult is everything shown for one upload.
type DetectResult struct {
	Model   string
	Summary *inference.Summary
	Outputs []inference.Output
}

// ModelStatus is a catalog entry with its local cache state.
type ModelStatus struct {
	Entry        catalog.Entry
	FileName     string
	Cached       bool
	Loaded       bool
	Selected     bool
	FileSize     int64
	DownloadedAt time.Time
	LastLoadedAt time.Time
}

// Health is a point in time view of the server's activity.
type Health struct {
	Viewers int `json:"viewers"`
	Uploads int `json:"uploads"`
}

// FetchReport describes one pre-populated cache entry.
type FetchReport struct {
	Name       string
	Path       string
	Downloaded bool
	Err        error
}

type Manager struct {
	catalog *catalog.Catalog
	cache   *modelcache.Cache
	scratch *storage.ScratchService
	runner  *inference.Runner
	hub     *websocket.HubService
	logger  *logger.Logger

	mu        sync.RWMutex
	selection Selection
}

// NewManager starts with the first catalog entry at the default threshold.
// hub may be nil when no viewers are served.
func NewManager(cat *catalog.Catalog, cache *modelcache.Cache, scratch *storage.ScratchService, runner *inference.Runner, hub *websocket.HubService, logger *logger.Logger) *Manager {
	return &Manager{
		catalog: cat,
		cache:   cache,
		scratch: scratch,
		runner:  runner,
		hub:     hub,
		logger:  logger,
		selection: Selection{
			Model:     cat.First().Name,
			Threshold: config.DefaultThreshold,
		},
	}
}

func (m *Manager) Catalog() *catalog.Catalog {
	return m.catalog
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.hub
}

// Selection returns the current selection.
func (m *Manager) Selection() Selection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selection
}

// Select resolves name to a ready detector and makes it the active model.
// The selection is left untouched when resolution fails.
func (m *Manager) Select(ctx context.Context, name string, threshold float64, notify modelcache.Notify) (Selection, error) {
	entry, ok := m.catalog.Lookup(name)
	if !ok {
		return m.Selection(), fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}

	if _, err := m.cache.Get(ctx, entry, notify); err != nil {
		return m.Selection(), err
	}

	m.mu.Lock()
	m.selection = Selection{Model: entry.Name, Threshold: config.ClampThreshold(threshold)}
	sel := m.selection
	m.mu.Unlock()

	m.logger.Info("Selected %s at threshold %.2f", sel.Model, sel.Threshold)
	return sel, nil
}

// Detect stores the upload, resolves the model and runs the image or video
// path. Outputs are also streamed to req.Client when it is a connected viewer.
func (m *Manager) Detect(ctx context.Context, req DetectRequest) (*DetectResult, error) {
	sel := m.Selection()
	name := sel.Model
	if req.Model != "" {
		name = req.Model
	}
	threshold := sel.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	threshold = config.ClampThreshold(threshold)

	entry, ok := m.catalog.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}

	upload, err := m.scratch.Save(req.Body, req.Filename, req.ContentType)
	if err != nil {
		return nil, err
	}

	client := m.viewer(req.Client)
	collector := &inference.Collector{}
	sink := inference.MultiSink{collector, m.streamSink(client)}
	notify := func(msg string) {
		sink.Emit(ctx, inference.Output{Kind: inference.OutputNotice, Caption: msg})
	}

	model, err := m.cache.Get(ctx, entry, notify)
	if err != nil {
		m.sendError(client, err)
		return nil, err
	}

	summary, err := m.runner.Run(ctx, model.Detector, upload, threshold, sink)
	if err != nil {
		m.logger.Error("Detection on %s with %s failed: %v", upload.Path, entry.Name, err)
		m.sendError(client, err)
		return nil, err
	}

	if client != "" {
		m.hub.SendTo(client, websocket.Message{Type: websocket.MessageDone, Passes: summary.Passes})
	}

	return &DetectResult{
		Model:   entry.Name,
		Summary: summary,
		Outputs: collector.Outputs(),
	}, nil
}

// Models lists the catalog in order with cache and manifest state.
func (m *Manager) Models() ([]ModelStatus, error) {
	manifest, err := m.cache.Manifest()
	if err != nil {
		return nil, fmt.Errorf("failed to read model manifest: %w", err)
	}
	recorded := make(map[string]int, len(manifest))
	for i, cm := range manifest {
		recorded[cm.Name] = i
	}

	selected := m.Selection().Model
	statuses := make([]ModelStatus, 0, len(m.catalog.Entries()))
	for _, entry := range m.catalog.Entries() {
		status := ModelStatus{
			Entry:    entry,
			FileName: catalog.FileName(entry.Name),
			Cached:   m.cache.IsCached(entry.Name),
			Loaded:   m.cache.IsLoaded(entry),
			Selected: entry.Name == selected,
		}
		if i, ok := recorded[entry.Name]; ok {
			status.FileSize = manifest[i].FileSize
			status.DownloadedAt = manifest[i].DownloadedAt
			status.LastLoadedAt = manifest[i].LastLoadedAt
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Fetch downloads the named models, or the whole catalog when names is
// empty, without constructing detectors.
func (m *Manager) Fetch(ctx context.Context, names []string, notify modelcache.Notify) ([]FetchReport, error) {
	entries := m.catalog.Entries()
	if len(names) > 0 {
		entries = make([]catalog.Entry, 0, len(names))
		for _, name := range names {
			entry, ok := m.catalog.Lookup(name)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
			}
			entries = append(entries, entry)
		}
	}

	var errs error
	reports := make([]FetchReport, 0, len(entries))
	for _, entry := range entries {
		path, downloaded, err := m.cache.Fetch(ctx, entry, notify)
		reports = append(reports, FetchReport{Name: entry.Name, Path: path, Downloaded: downloaded, Err: err})
		errs = multierr.Append(errs, err)
	}
	return reports, errs
}

// Health counts connected viewers and uploads stored since start.
func (m *Manager) Health() Health {
	h := Health{Uploads: m.scratch.Count()}
	if m.hub != nil {
		h.Viewers = m.hub.GetClientCount()
	}
	return h
}

// Close releases every loaded detector.
func (m *Manager) Close() error {
	return m.cache.Close()
}

// viewer returns client when it is a registered viewer, or "" so the
// request runs without streaming.
func (m *Manager) viewer(client string) string {
	if m.hub == nil || client == "" {
		return ""
	}
	if !m.hub.HasClient(client) {
		m.logger.Warning("Viewer %s is not connected, results are returned in the response only", client)
		return ""
	}
	return client
}

// streamSink pushes outputs to one viewer. Delivery is best effort: a
// vanished viewer never fails the request.
func (m *Manager) streamSink(client string) inference.Sink {
	if m.hub == nil || client == "" {
		return nil
	}
	return inference.SinkFunc(func(ctx context.Context, out inference.Output) error {
		msg := websocket.Message{Caption: out.Caption, Frame: out.Frame}
		switch out.Kind {
		case inference.OutputNotice:
			msg.Type = websocket.MessageNotice
		default:
			msg.Type = websocket.MessageFrame
			msg.Image = base64.StdEncoding.EncodeToString(out.Image)
			if len(out.Detections) > 0 {
				msg.Detections = out.Detections
			}
		}
		if !m.hub.SendTo(client, msg) {
			m.logger.Warning("Viewer %s did not receive %q", client, out.Caption)
		}
		return nil
	})
}

func (m *Manager) sendError(client string, err error) {
	if m.hub == nil || client == "" {
		return
	}
	m.hub.SendTo(client, websocket.Message{Type: websocket.MessageError, Error: err.Error()})
}
