package local

import (
	"context"
	"sync"

	"resumind/internal/host"
)

// Host is an in-process host.Host. It holds one session token, issued on
// SignIn for the backend's configured identity.
type Host struct {
	backend *Backend

	mu    sync.RWMutex
	token string
}

// NewHost returns a signed-out host over b.
func NewHost(b *Backend) *Host {
	return &Host{backend: b}
}

func (h *Host) Auth() host.Auth { return (*session)(h) }
func (h *Host) FS() host.FS     { return sessionFS{h} }
func (h *Host) KV() host.KV     { return sessionKV{h} }
func (h *Host) AI() host.AI     { return sessionAI{h} }

// Token returns the current session token, empty when signed out.
func (h *Host) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// SetToken resumes a session issued earlier by the same backend.
func (h *Host) SetToken(token string) {
	h.mu.Lock()
	h.token = token
	h.mu.Unlock()
}

func (h *Host) identity() (host.Identity, error) {
	h.mu.RLock()
	token := h.token
	h.mu.RUnlock()
	return h.backend.Identify(token)
}

type session Host

func (s *session) IsSignedIn(context.Context) (bool, error) {
	_, err := (*Host)(s).identity()
	return err == nil, nil
}

func (s *session) GetUser(context.Context) (host.Identity, error) {
	return (*Host)(s).identity()
}

func (s *session) SignIn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	token, err := s.backend.IssueToken()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *session) SignOut(context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}

type sessionFS struct{ h *Host }

func (f sessionFS) user() (host.FS, error) {
	id, err := f.h.identity()
	if err != nil {
		return nil, err
	}
	return f.h.backend.Files(id.ID), nil
}

func (f sessionFS) Write(ctx context.Context, path string, data []byte) (host.FSItem, error) {
	fs, err := f.user()
	if err != nil {
		return host.FSItem{}, err
	}
	return fs.Write(ctx, path, data)
}

func (f sessionFS) Read(ctx context.Context, path string) (host.Blob, error) {
	fs, err := f.user()
	if err != nil {
		return host.Blob{}, err
	}
	return fs.Read(ctx, path)
}

func (f sessionFS) ReadDir(ctx context.Context, path string) ([]host.FSItem, error) {
	fs, err := f.user()
	if err != nil {
		return nil, err
	}
	return fs.ReadDir(ctx, path)
}

func (f sessionFS) Upload(ctx context.Context, files []host.UploadFile) (host.FSItem, error) {
	fs, err := f.user()
	if err != nil {
		return host.FSItem{}, err
	}
	return fs.Upload(ctx, files)
}

func (f sessionFS) Delete(ctx context.Context, path string) error {
	fs, err := f.user()
	if err != nil {
		return err
	}
	return fs.Delete(ctx, path)
}

type sessionKV struct{ h *Host }

func (k sessionKV) user() (host.KV, error) {
	id, err := k.h.identity()
	if err != nil {
		return nil, err
	}
	return k.h.backend.Values(id.ID), nil
}

func (k sessionKV) Get(ctx context.Context, key string) (string, bool, error) {
	kv, err := k.user()
	if err != nil {
		return "", false, err
	}
	return kv.Get(ctx, key)
}

func (k sessionKV) Set(ctx context.Context, key, value string) (bool, error) {
	kv, err := k.user()
	if err != nil {
		return false, err
	}
	return kv.Set(ctx, key, value)
}

func (k sessionKV) Delete(ctx context.Context, key string) (bool, error) {
	kv, err := k.user()
	if err != nil {
		return false, err
	}
	return kv.Delete(ctx, key)
}

func (k sessionKV) List(ctx context.Context, pattern string, withValues bool) ([]host.KVItem, error) {
	kv, err := k.user()
	if err != nil {
		return nil, err
	}
	return kv.List(ctx, pattern, withValues)
}

func (k sessionKV) Flush(ctx context.Context) (bool, error) {
	kv, err := k.user()
	if err != nil {
		return false, err
	}
	return kv.Flush(ctx)
}

type sessionAI struct{ h *Host }

func (a sessionAI) user() (host.AI, error) {
	id, err := a.h.identity()
	if err != nil {
		return nil, err
	}
	return a.h.backend.Inference(id.ID), nil
}

func (a sessionAI) Chat(ctx context.Context, messages []host.ChatMessage, opts host.ChatOptions) (host.ChatResponse, error) {
	ai, err := a.user()
	if err != nil {
		return host.ChatResponse{}, err
	}
	return ai.Chat(ctx, messages, opts)
}

func (a sessionAI) Img2Txt(ctx context.Context, image host.Blob) (string, error) {
	ai, err := a.user()
	if err != nil {
		return "", err
	}
	return ai.Img2Txt(ctx, image)
}

var _ host.Host = (*Host)(nil)
