package pdfimg

import (
	"context"
	"sync"
	"time"

	"resumind/internal/shared/metrics"
	"resumind/internal/shared/telemetry"
)

// LoadFunc performs the expensive engine load.
type LoadFunc func(ctx context.Context) (Engine, error)

// Loader loads the engine on first use and shares it afterwards. Concurrent
// callers wait on the same in-flight load. A failed load is not kept, so
// the next caller tries again.
type Loader struct {
	load LoadFunc

	mu       sync.Mutex
	engine   Engine
	inflight *loadCall
	loads    int
}

type loadCall struct {
	done   chan struct{}
	engine Engine
	err    error
}

// NewLoader wraps load.
func NewLoader(load LoadFunc) *Loader {
	return &Loader{load: load}
}

// Get returns the engine, loading it if needed. A caller whose ctx ends
// stops waiting; the load itself keeps going for the next caller.
func (l *Loader) Get(ctx context.Context) (Engine, error) {
	l.mu.Lock()
	if l.engine != nil {
		e := l.engine
		l.mu.Unlock()
		return e, nil
	}
	call := l.inflight
	if call == nil {
		call = &loadCall{done: make(chan struct{})}
		l.inflight = call
		l.loads++
		go l.run(call)
	}
	l.mu.Unlock()

	select {
	case <-call.done:
		return call.engine, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loader) run(call *loadCall) {
	start := time.Now()
	engine, err := l.load(context.Background())

	l.mu.Lock()
	if err == nil {
		l.engine = engine
	}
	l.inflight = nil
	l.mu.Unlock()

	call.engine, call.err = engine, err
	close(call.done)

	metrics.IncEngineLoad()
	fields := map[string]any{"duration_ms": time.Since(start).Milliseconds()}
	if err != nil {
		fields["error"] = err
		telemetry.Error("pdfimg.engine.load_failed", fields)
		return
	}
	telemetry.Info("pdfimg.engine.loaded", fields)
}

// Loads reports how many loads have started.
func (l *Loader) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

// Close releases a loaded engine. A later Get loads again.
func (l *Loader) Close() error {
	l.mu.Lock()
	e := l.engine
	l.engine = nil
	l.mu.Unlock()
	if e == nil {
		return nil
	}
	return e.Close()
}
