package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"resumind/internal/host"
	"resumind/internal/host/local"
	"resumind/internal/host/remote"
	"resumind/internal/pdfimg"
	"resumind/internal/platform"
	"resumind/internal/shared/telemetry"
)

// tokenHolder is implemented by both host kinds.
type tokenHolder interface {
	Token() string
	SetToken(token string)
}

// session is one booted access layer.
type session struct {
	rt     *Runtime
	store  *platform.Store
	tokens tokenHolder
	close  func()
}

// connect binds a host, starts the store and waits for it to settle. A
// store that does not reach Ready yields the error it recorded.
func (rt *Runtime) connect(ctx context.Context) (*session, error) {
	slot := &host.Slot{}
	ctx, cancel := context.WithCancel(ctx)
	s := &session{rt: rt}
	closers := []func(){cancel}

	if rt.Config.HostURL != "" {
		client := remote.New(rt.Config.HostURL, nil)
		client.SetToken(rt.readToken())
		go func() {
			if err := remote.Inject(ctx, slot, client, rt.Config.BootstrapInterval); err != nil && !errors.Is(err, context.Canceled) {
				telemetry.Debug("cli.host.inject_stopped", map[string]any{"error": err})
			}
		}()
		s.tokens = client
	} else {
		app, err := rt.Build(ctx, rt.Config)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("start development host: %w", err)
		}
		closers = append(closers, func() { _ = app.Close() })
		h := local.NewHost(app.Backend)
		h.SetToken(rt.readToken())
		slot.Inject(h)
		s.tokens = h
	}

	s.store = platform.New(slot, platform.Options{
		PollInterval: rt.Config.BootstrapInterval,
		PollTimeout:  rt.Config.BootstrapTimeout,
	})
	closers = append(closers, s.store.Stop)
	s.close = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	s.store.Start(ctx)
	state, err := s.store.Wait(ctx)
	if err != nil {
		s.close()
		return nil, err
	}
	if state != platform.Ready {
		s.close()
		if e := s.store.Err(); e != nil {
			return nil, e
		}
		return nil, fmt.Errorf("host not ready (%s)", state)
	}
	return s, nil
}

// Close releases the host and stops the store.
func (s *session) Close() { s.close() }

// requireUser fails unless the store holds an authenticated session.
func (s *session) requireUser() (host.Identity, error) {
	user, ok := s.store.Auth().User()
	if !s.store.Auth().IsAuthenticated() || !ok {
		return host.Identity{}, errors.New("not signed in; run `resumind signin`")
	}
	return user, nil
}

// saveToken persists the host's current token, removing the file when the
// session ended.
func (s *session) saveToken() error {
	path := s.rt.TokenFile
	if path == "" {
		return nil
	}
	token := s.tokens.Token()
	if token == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token+"\n"), 0o600)
}

func (rt *Runtime) readToken() string {
	if rt.Config.SessionToken != "" {
		return rt.Config.SessionToken
	}
	if rt.TokenFile == "" {
		return ""
	}
	data, err := os.ReadFile(rt.TokenFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// pipeline builds a renderer whose engine is released by the returned func.
func (rt *Runtime) pipeline() (*pdfimg.Pipeline, func()) {
	loader := pdfimg.NewLoader(rt.LoadEngine)
	return pdfimg.NewPipeline(loader, pdfimg.NewBlobStore()), func() { _ = loader.Close() }
}

func readPDF(path string) (*pdfimg.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &pdfimg.File{
		Name:    filepath.Base(path),
		Type:    "application/pdf",
		Data:    data,
		ModTime: info.ModTime(),
	}, nil
}
