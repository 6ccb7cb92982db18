package local

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"resumind/internal/host"
	"resumind/internal/llm"
	"resumind/internal/shared/auth"
	"resumind/internal/shared/storage/kv/memory"
	objectlocal "resumind/internal/shared/storage/object/local"
)

type captureLLM struct {
	reqs  []llm.Request
	reply string
}

func (c *captureLLM) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	c.reqs = append(c.reqs, req)
	return llm.Response{Model: req.Model, Content: c.reply}, nil
}

func newBackend(t *testing.T, model llm.Client) *Backend {
	t.Helper()
	tokens, err := auth.NewIssuer("test-secret", "dev", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	return &Backend{
		Objects:  objectlocal.New(t.TempDir()),
		KV:       memory.New(),
		LLM:      model,
		Tokens:   tokens,
		Identity: host.Identity{ID: "local:dev", Username: "dev", Name: "Dev", Email: "dev@localhost"},
	}
}

func TestHostRequiresSignIn(t *testing.T) {
	ctx := context.Background()
	h := NewHost(newBackend(t, &captureLLM{}))

	if ok, _ := h.Auth().IsSignedIn(ctx); ok {
		t.Fatalf("expected signed out host")
	}
	if _, err := h.FS().ReadDir(ctx, "/"); !errors.Is(err, host.ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
	if _, _, err := h.KV().Get(ctx, "k"); !errors.Is(err, host.ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}

	if err := h.Auth().SignIn(ctx); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	user, err := h.Auth().GetUser(ctx)
	if err != nil || user.Username != "dev" || user.ID != "local:dev" {
		t.Fatalf("unexpected user %+v, %v", user, err)
	}

	if err := h.Auth().SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if _, err := h.Auth().GetUser(ctx); !errors.Is(err, host.ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn after sign out, got %v", err)
	}
}

func TestFilesRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := newBackend(t, &captureLLM{}).Files("u1")

	item, err := fs.Write(ctx, "/notes/a.txt", []byte("hello"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if item.Path != "/notes/a.txt" || item.Name != "a.txt" || item.Size != 5 {
		t.Fatalf("unexpected item %+v", item)
	}

	blob, err := fs.Read(ctx, "notes/a.txt")
	if err != nil || string(blob.Data) != "hello" || !strings.HasPrefix(blob.Type, "text/plain") {
		t.Fatalf("unexpected blob %+v, %v", blob, err)
	}

	uploaded, err := fs.Upload(ctx, []host.UploadFile{{Name: "cv.pdf", Data: []byte("%PDF-1.4")}})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasSuffix(uploaded.Path, "_cv.pdf") || strings.Count(uploaded.Path, "/") != 1 {
		t.Fatalf("expected root upload path, got %q", uploaded.Path)
	}

	root, err := fs.ReadDir(ctx, "/")
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(root) != 2 {
		t.Fatalf("expected 2 root entries, got %+v", root)
	}
	for _, e := range root {
		if e.Name == "notes" && (!e.IsDir || e.Path != "/notes") {
			t.Fatalf("unexpected dir entry %+v", e)
		}
	}

	if err := fs.Delete(ctx, "/notes"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := fs.Read(ctx, "/notes/a.txt"); !errors.Is(err, host.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := fs.Delete(ctx, "/missing"); !errors.Is(err, host.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing path, got %v", err)
	}
	if _, err := fs.Read(ctx, "/../escape"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
}

func TestFilesAreIsolatedPerUser(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, &captureLLM{})
	if _, err := b.Files("alice").Write(ctx, "/x.txt", []byte("a")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := b.Files("bob").Read(ctx, "/x.txt"); !errors.Is(err, host.ErrNotFound) {
		t.Fatalf("expected bob not to see alice's file, got %v", err)
	}
}

func TestValues(t *testing.T) {
	ctx := context.Background()
	kv := newBackend(t, &captureLLM{}).Values("u1")

	if ok, err := kv.Set(ctx, "resume:1", `{"id":"1"}`); !ok || err != nil {
		t.Fatalf("set: %v", err)
	}
	_, _ = kv.Set(ctx, "resume:2", `{"id":"2"}`)
	_, _ = kv.Set(ctx, "other", "x")

	items, err := kv.List(ctx, "resume:*", true)
	if err != nil || len(items) != 2 || items[0].Value != `{"id":"1"}` {
		t.Fatalf("unexpected list %+v, %v", items, err)
	}
	keys, _ := kv.List(ctx, "resume:*", false)
	if keys[0].Value != "" {
		t.Fatalf("expected keys only")
	}
	if ok, _ := kv.Flush(ctx); !ok {
		t.Fatalf("expected flush")
	}
	if _, found, _ := kv.Get(ctx, "other"); found {
		t.Fatalf("expected flushed store")
	}
}

func TestChatResolvesAttachments(t *testing.T) {
	ctx := context.Background()
	model := &captureLLM{reply: "solid resume"}
	b := newBackend(t, model)
	b.Model = "gpt-4o-mini"
	fs := b.Files("u1")
	if _, err := fs.Write(ctx, "/cv.txt", []byte("Jane Doe\nSite Reliability Engineer")); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if _, err := fs.Write(ctx, "/cv.png", []byte("\x89PNG\r\n\x1a\n")); err != nil {
		t.Fatalf("write png: %v", err)
	}

	resp, err := b.Inference("u1").Chat(ctx, []host.ChatMessage{{
		Role: "user",
		Parts: []host.ContentPart{
			{Type: host.PartFile, Path: "/cv.txt"},
			{Type: host.PartFile, Path: "/cv.png"},
			{Type: host.PartText, Text: "review"},
		},
	}}, host.ChatOptions{Model: "claude-3-7-sonnet"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Message.ContentText() != "solid resume" || resp.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected response %+v", resp)
	}

	parts := model.reqs[0].Messages[0].Parts
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	if !strings.Contains(parts[0].Text, "Jane Doe") {
		t.Fatalf("expected extracted document text, got %q", parts[0].Text)
	}
	if !strings.HasPrefix(parts[1].ImageURL, "data:image/png;base64,") {
		t.Fatalf("expected inlined image, got %q", parts[1].ImageURL)
	}
}

func TestChatRejectsMissingAttachment(t *testing.T) {
	b := newBackend(t, &captureLLM{})
	_, err := b.Inference("u1").Chat(context.Background(), []host.ChatMessage{{
		Role:  "user",
		Parts: []host.ContentPart{{Type: host.PartFile, Path: "/nope.pdf"}},
	}}, host.ChatOptions{})
	if !errors.Is(err, host.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestImg2Txt(t *testing.T) {
	model := &captureLLM{reply: "JANE DOE"}
	b := newBackend(t, model)
	text, err := b.Inference("u1").Img2Txt(context.Background(), host.Blob{Data: []byte("img"), Type: "image/png"})
	if err != nil || text != "JANE DOE" {
		t.Fatalf("unexpected img2txt %q, %v", text, err)
	}
	if model.reqs[0].Messages[0].Parts[1].Type != llm.PartImageURL {
		t.Fatalf("expected image part")
	}
}
