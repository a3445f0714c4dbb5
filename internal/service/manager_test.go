package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"yolodemo/internal/catalog"
	"yolodemo/internal/detect"
	"yolodemo/internal/logger"
	"yolodemo/internal/repository/sqlite"
	"yolodemo/internal/service/inference"
	"yolodemo/internal/service/modelcache"
	"yolodemo/internal/service/storage"
	"yolodemo/internal/service/websocket"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls map[string]int
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL, dest string) (int64, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[rawURL]++
	f.mu.Unlock()
	return 7, os.WriteFile(dest, []byte("weights"), 0644)
}

func (f *fakeFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type fakeFrame struct{ id int }

func (f *fakeFrame) Encode() ([]byte, error) { return []byte(fmt.Sprintf("raw-%d", f.id)), nil }
func (f *fakeFrame) Close() error           { return nil }

type fakeStream struct {
	frames int
	reads  int
	closed bool
}

func (s *fakeStream) Read() (detect.Frame, error) {
	s.reads++
	if s.reads > s.frames {
		return nil, io.EOF
	}
	return &fakeFrame{id: s.reads}, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

type fakeDetector struct {
	mu         sync.Mutex
	passes     int
	thresholds []float64
}

func (d *fakeDetector) Detect(ctx context.Context, frame detect.Frame, threshold float64) (*detect.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.passes++
	d.thresholds = append(d.thresholds, threshold)
	return &detect.Result{Annotated: []byte("boxes")}, nil
}

func (d *fakeDetector) Close() error { return nil }

type fakeBackend struct {
	mu        sync.Mutex
	loads     int
	detectors map[string]*fakeDetector
	stream    *fakeStream
}

func (b *fakeBackend) LoadDetector(path string) (detect.Detector, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loads++
	if b.detectors == nil {
		b.detectors = make(map[string]*fakeDetector)
	}
	d := &fakeDetector{}
	b.detectors[filepath.Base(path)] = d
	return d, nil
}

// ReadImage treats files starting with "PNG" as decodable.
func (b *fakeBackend) ReadImage(path string) (detect.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(string(data), "PNG") {
		return nil, fmt.Errorf("%w: %s", detect.ErrUnreadableImage, path)
	}
	return &fakeFrame{}, nil
}

func (b *fakeBackend) OpenVideo(path string) (detect.VideoStream, error) {
	return b.stream, nil
}

func (b *fakeBackend) detector(name string) *fakeDetector {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.detectors[catalog.FileName(name)]
}

type fixture struct {
	manager *Manager
	fetcher *fakeFetcher
	backend *fakeBackend
}

func newFixture(t *testing.T, frames int) *fixture {
	t.Helper()
	dir := t.TempDir()
	log := logger.NewDiscard()

	db, err := sqlite.New(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fetcher := &fakeFetcher{}
	backend := &fakeBackend{stream: &fakeStream{frames: frames}}
	cache := modelcache.NewCache(filepath.Join(dir, "models"), fetcher, backend, sqlite.NewModelRepository(db), log)
	scratch := storage.NewScratchService(filepath.Join(dir, "scratch"), log)
	runner := inference.NewRunner(backend, log)

	return &fixture{
		manager: NewManager(catalog.Default(), cache, scratch, runner, nil, log),
		fetcher: fetcher,
		backend: backend,
	}
}

func TestManager_DefaultSelection(t *testing.T) {
	f := newFixture(t, 0)

	sel := f.manager.Selection()
	if sel.Model != catalog.Default().First().Name {
		t.Errorf("Expected first catalog entry, got %q", sel.Model)
	}
	if sel.Threshold != 0.25 {
		t.Errorf("Expected default threshold 0.25, got %v", sel.Threshold)
	}
}

func TestManager_SelectSameModelTwice(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	var notices []string
	notify := func(msg string) { notices = append(notices, msg) }

	for i := 0; i < 2; i++ {
		if _, err := f.manager.Select(ctx, "Yolo 11 Extra", 0.4, notify); err != nil {
			t.Fatalf("Select failed: %v", err)
		}
	}

	if f.fetcher.total() != 1 || f.backend.loads != 1 {
		t.Errorf("Expected one acquisition and one construction, got %d and %d", f.fetcher.total(), f.backend.loads)
	}
	if len(notices) != 1 || notices[0] != "Downloading Yolo 11 Extra model..." {
		t.Errorf("Unexpected notices %v", notices)
	}
	if sel := f.manager.Selection(); sel.Model != "Yolo 11 Extra" || sel.Threshold != 0.4 {
		t.Errorf("Unexpected selection %+v", sel)
	}
}

func TestManager_SelectUnknownModel(t *testing.T) {
	f := newFixture(t, 0)
	before := f.manager.Selection()

	_, err := f.manager.Select(context.Background(), "Yolo 99", 0.5, nil)
	if !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Expected ErrUnknownModel, got %v", err)
	}
	if f.manager.Selection() != before {
		t.Error("Selection must not change on failure")
	}
	if f.fetcher.total() != 0 {
		t.Error("Unknown models must not be fetched")
	}
}

func TestManager_SelectClampsThreshold(t *testing.T) {
	f := newFixture(t, 0)

	sel, err := f.manager.Select(context.Background(), "Yolo 8 Nano", 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sel.Threshold != 1.0 {
		t.Errorf("Expected clamped 1.0, got %v", sel.Threshold)
	}
}

func TestManager_DetectVideoScenario(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	if _, err := f.manager.Select(ctx, "Yolo 8 Nano", 0.5, nil); err != nil {
		t.Fatal(err)
	}

	result, err := f.manager.Detect(ctx, DetectRequest{
		Body:        strings.NewReader("mp4 bytes"),
		Filename:    "clip.mp4",
		ContentType: "video/mp4",
	})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if result.Model != "Yolo 8 Nano" || result.Summary.Kind != storage.KindVideo || result.Summary.Passes != 3 {
		t.Errorf("Unexpected result %+v / %+v", result, result.Summary)
	}
	if !f.backend.stream.closed {
		t.Error("Stream must be closed")
	}
	d := f.backend.detector("Yolo 8 Nano")
	if d == nil || d.passes != 3 {
		t.Fatalf("Expected 3 passes on Yolo 8 Nano")
	}
	for _, th := range d.thresholds {
		if th != 0.5 {
			t.Errorf("Expected threshold 0.5, got %v", th)
		}
	}
	if len(result.Outputs) != 4 {
		t.Errorf("Expected notice and 3 frames, got %d outputs", len(result.Outputs))
	}
}

func TestManager_DetectImageWithOverrides(t *testing.T) {
	f := newFixture(t, 0)
	threshold := 0.01

	result, err := f.manager.Detect(context.Background(), DetectRequest{
		Body:        strings.NewReader("PNG data"),
		Filename:    "cows.png",
		ContentType: "image/png",
		Model:       "Yolo 11 Nano",
		Threshold:   &threshold,
	})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if result.Model != "Yolo 11 Nano" || result.Summary.Passes != 1 || result.Summary.Threshold != 0.1 {
		t.Errorf("Unexpected summary %+v", result.Summary)
	}
	// First download notice, then the original and the annotated image.
	if len(result.Outputs) != 3 || result.Outputs[0].Kind != inference.OutputNotice {
		t.Errorf("Unexpected outputs %+v", result.Outputs)
	}
	if f.manager.Selection().Model == "Yolo 11 Nano" {
		t.Error("Per-request overrides must not change the selection")
	}
}

func TestManager_DetectCorruptImage(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.manager.Detect(context.Background(), DetectRequest{
		Body:        strings.NewReader("garbage"),
		Filename:    "broken.png",
		ContentType: "image/png",
	})
	if !errors.Is(err, detect.ErrUnreadableImage) {
		t.Errorf("Expected ErrUnreadableImage, got %v", err)
	}
	if d := f.backend.detector(f.manager.Selection().Model); d == nil || d.passes != 0 {
		t.Error("Expected zero detection passes")
	}
}

func TestManager_DetectUnknownModel(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.manager.Detect(context.Background(), DetectRequest{
		Body:        strings.NewReader("PNG"),
		Filename:    "a.png",
		ContentType: "image/png",
		Model:       "nope",
	})
	if !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Expected ErrUnknownModel, got %v", err)
	}
}

func TestManager_ModelsAndFetch(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	reports, err := f.manager.Fetch(ctx, []string{"Yolo 8 Extra"}, nil)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(reports) != 1 || !reports[0].Downloaded {
		t.Errorf("Unexpected reports %+v", reports)
	}

	reports, err = f.manager.Fetch(ctx, []string{"Yolo 8 Extra"}, nil)
	if err != nil || reports[0].Downloaded {
		t.Errorf("Second fetch should be a cache hit: %+v, %v", reports, err)
	}
	if f.backend.loads != 0 {
		t.Error("Fetch must not construct detectors")
	}

	if _, err := f.manager.Fetch(ctx, []string{"missing"}, nil); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Expected ErrUnknownModel, got %v", err)
	}

	statuses, err := f.manager.Models()
	if err != nil {
		t.Fatalf("Models failed: %v", err)
	}
	names := catalog.Default().Names()
	if len(statuses) != len(names) {
		t.Fatalf("Expected %d statuses, got %d", len(names), len(statuses))
	}
	for i, s := range statuses {
		if s.Entry.Name != names[i] {
			t.Errorf("Status %d is %q, catalog order must be kept", i, s.Entry.Name)
		}
		extra := s.Entry.Name == "Yolo 8 Extra"
		if s.Cached != extra {
			t.Errorf("%q cached = %v", s.Entry.Name, s.Cached)
		}
		if extra && (s.FileSize != 7 || s.DownloadedAt.IsZero()) {
			t.Errorf("Manifest data missing for %q: %+v", s.Entry.Name, s)
		}
		if s.Selected != (i == 0) || s.Loaded {
			t.Errorf("Unexpected state for %q: %+v", s.Entry.Name, s)
		}
	}
}

func TestManager_DetectForDisconnectedViewer(t *testing.T) {
	f := newFixture(t, 0)
	f.manager.hub = websocket.NewHubService(logger.NewDiscard())

	if h := f.manager.Health(); h.Viewers != 0 || h.Uploads != 0 {
		t.Errorf("Unexpected initial health %+v", h)
	}

	// The hub is not running; a registered viewer would block SendTo.
	result, err := f.manager.Detect(context.Background(), DetectRequest{
		Body:        strings.NewReader("PNG data"),
		Filename:    "cat.png",
		ContentType: "image/png",
		Client:      "gone",
	})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(result.Outputs) == 0 {
		t.Error("Outputs must still be returned in the response")
	}

	if h := f.manager.Health(); h.Viewers != 0 || h.Uploads != 1 {
		t.Errorf("Expected 0 viewers and 1 upload, got %+v", h)
	}
}
