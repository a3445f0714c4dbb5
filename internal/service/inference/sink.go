package inference

import (
	"context"
	"sync"

	"go.uber.org/multierr"

	"yolodemo/internal/detect"
)

// OutputKind distinguishes progress notices from rendered images.
type OutputKind string

const (
	OutputNotice OutputKind = "notice"
	OutputImage  OutputKind = "image"
)

// Output is one item shown to the user.
type Output struct {
	Kind       OutputKind
	Caption    string
	Frame      int // 1-based video frame number, 0 for stills
	Image      []byte
	Detections []detect.Detection
}

// Sink displays outputs as they are produced.
type Sink interface {
	Emit(ctx context.Context, out Output) error
}

// Collector keeps every output in memory.
type Collector struct {
	mu      sync.Mutex
	outputs []Output
}

// Emit appends out.
func (c *Collector) Emit(ctx context.Context, out Output) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs = append(c.outputs, out)
	return nil
}

// Outputs returns what was collected, in emission order.
func (c *Collector) Outputs() []Output {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Output, len(c.outputs))
	copy(out, c.outputs)
	return out
}

// MultiSink emits to every sink and combines their errors.
type MultiSink []Sink

// Emit forwards out to each sink.
func (m MultiSink) Emit(ctx context.Context, out Output) error {
	var err error
	for _, s := range m {
		if s == nil {
			continue
		}
		err = multierr.Append(err, s.Emit(ctx, out))
	}
	return err
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, out Output) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, out Output) error {
	return f(ctx, out)
}
