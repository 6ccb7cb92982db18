package platform

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"resumind/internal/host"
)

type manualTimer struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (m *manualTimer) C() <-chan time.Time { return m.ch }
func (m *manualTimer) Stop()               { m.stopped.Store(true) }

// manualClock hands out one ticker and one timer whose channels the test drives.
type manualClock struct {
	ticker  *manualTimer
	timer   *manualTimer
	tickers atomic.Int32
}

func newManualClock() *manualClock {
	return &manualClock{
		ticker: &manualTimer{ch: make(chan time.Time)},
		timer:  &manualTimer{ch: make(chan time.Time)},
	}
}

func (c *manualClock) NewTicker(time.Duration) Timer {
	c.tickers.Add(1)
	return c.ticker
}

func (c *manualClock) NewTimer(time.Duration) Timer { return c.timer }

// tick delivers one interval tick, or returns false once done is closed.
func (c *manualClock) tick(done <-chan struct{}) bool {
	select {
	case c.ticker.ch <- time.Now():
		return true
	case <-done:
		return false
	}
}

func (c *manualClock) expire(done <-chan struct{}) {
	select {
	case c.timer.ch <- time.Now():
	case <-done:
	}
}

// countingResolver starts resolving on call number readyAt (1-based); zero never resolves.
type countingResolver struct {
	calls   atomic.Int32
	readyAt int32
	h       host.Host
}

func (r *countingResolver) Resolve() (host.Host, bool) {
	n := r.calls.Add(1)
	if r.readyAt > 0 && n >= r.readyAt {
		return r.h, true
	}
	return nil, false
}

type fakeAuth struct {
	mu          sync.Mutex
	signedIn    bool
	user        host.Identity
	statusErr   error
	userErr     error
	signInErr   error
	signOutErr  error
	statusCalls int
}

func (a *fakeAuth) IsSignedIn(context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.statusCalls++
	return a.signedIn, a.statusErr
}

func (a *fakeAuth) GetUser(context.Context) (host.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user, a.userErr
}

func (a *fakeAuth) SignIn(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.signInErr != nil {
		return a.signInErr
	}
	a.signedIn = true
	return nil
}

func (a *fakeAuth) SignOut(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signedIn = false
	return a.signOutErr
}

func (a *fakeAuth) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statusCalls
}

type fakeFS struct {
	files   map[string][]byte
	readErr error
	panics  bool
}

func (f *fakeFS) Write(_ context.Context, path string, data []byte) (host.FSItem, error) {
	f.files[path] = data
	return host.FSItem{Name: path, Path: path, Size: int64(len(data))}, nil
}

func (f *fakeFS) Read(_ context.Context, path string) (host.Blob, error) {
	if f.panics {
		panic("boom")
	}
	if f.readErr != nil {
		return host.Blob{}, f.readErr
	}
	data, ok := f.files[path]
	if !ok {
		return host.Blob{}, host.ErrNotFound
	}
	return host.Blob{Data: data, Type: "application/octet-stream"}, nil
}

func (f *fakeFS) ReadDir(context.Context, string) ([]host.FSItem, error) {
	var out []host.FSItem
	for p := range f.files {
		out = append(out, host.FSItem{Name: p, Path: p})
	}
	return out, nil
}

func (f *fakeFS) Upload(_ context.Context, files []host.UploadFile) (host.FSItem, error) {
	var last host.FSItem
	for _, file := range files {
		f.files["/"+file.Name] = file.Data
		last = host.FSItem{Name: file.Name, Path: "/" + file.Name, Size: int64(len(file.Data))}
	}
	return last, nil
}

func (f *fakeFS) Delete(_ context.Context, path string) error {
	delete(f.files, path)
	return nil
}

type fakeKV struct {
	values map[string]string
	err    error
}

func (k *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	if k.err != nil {
		return "", false, k.err
	}
	v, ok := k.values[key]
	return v, ok, nil
}

func (k *fakeKV) Set(_ context.Context, key, value string) (bool, error) {
	if k.err != nil {
		return false, k.err
	}
	k.values[key] = value
	return true, nil
}

func (k *fakeKV) Delete(_ context.Context, key string) (bool, error) {
	_, ok := k.values[key]
	delete(k.values, key)
	return ok, k.err
}

func (k *fakeKV) List(_ context.Context, _ string, withValues bool) ([]host.KVItem, error) {
	var out []host.KVItem
	for key, v := range k.values {
		item := host.KVItem{Key: key}
		if withValues {
			item.Value = v
		}
		out = append(out, item)
	}
	return out, k.err
}

func (k *fakeKV) Flush(context.Context) (bool, error) {
	k.values = map[string]string{}
	return true, k.err
}

type fakeAI struct {
	last  []host.ChatMessage
	opts  host.ChatOptions
	reply string
	err   error
}

func (a *fakeAI) Chat(_ context.Context, messages []host.ChatMessage, opts host.ChatOptions) (host.ChatResponse, error) {
	a.last = messages
	a.opts = opts
	if a.err != nil {
		return host.ChatResponse{}, a.err
	}
	return host.ChatResponse{Message: host.ChatMessage{Role: "assistant", Text: a.reply}}, nil
}

func (a *fakeAI) Img2Txt(context.Context, host.Blob) (string, error) {
	return "transcribed", a.err
}

type fakeHost struct {
	auth *fakeAuth
	fs   *fakeFS
	kv   *fakeKV
	ai   *fakeAI
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		auth: &fakeAuth{user: host.Identity{ID: "u1", Username: "dev"}},
		fs:   &fakeFS{files: map[string][]byte{}},
		kv:   &fakeKV{values: map[string]string{}},
		ai:   &fakeAI{reply: `{"overallScore":80}`},
	}
}

func (h *fakeHost) Auth() host.Auth { return h.auth }
func (h *fakeHost) FS() host.FS     { return h.fs }
func (h *fakeHost) KV() host.KV     { return h.kv }
func (h *fakeHost) AI() host.AI     { return h.ai }

// readyStore returns a started store bound to h with bootstrap finished.
func readyStore(t *testing.T, h host.Host) *Store {
	t.Helper()
	var slot host.Slot
	slot.Inject(h)
	s := New(&slot, Options{Clock: newManualClock()})
	s.Start(context.Background())
	waitDone(t, s.Bootstrap())
	return s
}

func waitDone(t *testing.T, c *Controller) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("bootstrap did not finish, state=%s", c.State())
	}
}
