package resumes

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"
	"sync"
	"testing"

	"resumind/internal/host"
	"resumind/internal/pdfimg"
	"resumind/internal/platform"
)

type memHost struct {
	mu       sync.Mutex
	signedIn bool
	files    map[string][]byte
	values   map[string]string
	reply    string
	lastChat []host.ChatMessage
	lastOpts host.ChatOptions
	failDel  map[string]bool
	seq      int
}

func newMemHost() *memHost {
	return &memHost{
		signedIn: true,
		files:    map[string][]byte{},
		values:   map[string]string{},
		failDel:  map[string]bool{},
		reply:    `{"overallScore":82,"action_items":["a"]}`,
	}
}

func (h *memHost) Auth() host.Auth { return memAuth{h} }
func (h *memHost) FS() host.FS     { return memFS{h} }
func (h *memHost) KV() host.KV     { return memKV{h} }
func (h *memHost) AI() host.AI     { return memAI{h} }

type memAuth struct{ h *memHost }

func (a memAuth) IsSignedIn(context.Context) (bool, error) { return a.h.signedIn, nil }
func (a memAuth) GetUser(context.Context) (host.Identity, error) {
	return host.Identity{ID: "u1", Username: "dev"}, nil
}
func (a memAuth) SignIn(context.Context) error  { a.h.signedIn = true; return nil }
func (a memAuth) SignOut(context.Context) error { a.h.signedIn = false; return nil }

type memFS struct{ h *memHost }

func (f memFS) Write(_ context.Context, path string, data []byte) (host.FSItem, error) {
	f.h.mu.Lock()
	defer f.h.mu.Unlock()
	f.h.files[path] = data
	return host.FSItem{Path: path, Size: int64(len(data))}, nil
}

func (f memFS) Read(_ context.Context, path string) (host.Blob, error) {
	f.h.mu.Lock()
	defer f.h.mu.Unlock()
	data, ok := f.h.files[path]
	if !ok {
		return host.Blob{}, host.ErrNotFound
	}
	typ := "application/pdf"
	if strings.HasSuffix(path, ".png") {
		typ = "image/png"
	}
	return host.Blob{Data: data, Type: typ}, nil
}

func (f memFS) ReadDir(context.Context, string) ([]host.FSItem, error) {
	f.h.mu.Lock()
	defer f.h.mu.Unlock()
	var items []host.FSItem
	for p := range f.h.files {
		items = append(items, host.FSItem{Path: p})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return items, nil
}

func (f memFS) Upload(_ context.Context, files []host.UploadFile) (host.FSItem, error) {
	f.h.mu.Lock()
	defer f.h.mu.Unlock()
	var item host.FSItem
	for _, u := range files {
		f.h.seq++
		p := fmt.Sprintf("/%d_%s", f.h.seq, u.Name)
		f.h.files[p] = u.Data
		item = host.FSItem{Name: u.Name, Path: p, Size: int64(len(u.Data))}
	}
	return item, nil
}

func (f memFS) Delete(_ context.Context, path string) error {
	f.h.mu.Lock()
	defer f.h.mu.Unlock()
	if f.h.failDel[path] {
		return errors.New("locked")
	}
	delete(f.h.files, path)
	return nil
}

type memKV struct{ h *memHost }

func (k memKV) Get(_ context.Context, key string) (string, bool, error) {
	k.h.mu.Lock()
	defer k.h.mu.Unlock()
	v, ok := k.h.values[key]
	return v, ok, nil
}

func (k memKV) Set(_ context.Context, key, value string) (bool, error) {
	k.h.mu.Lock()
	defer k.h.mu.Unlock()
	k.h.values[key] = value
	return true, nil
}

func (k memKV) Delete(_ context.Context, key string) (bool, error) {
	k.h.mu.Lock()
	defer k.h.mu.Unlock()
	_, ok := k.h.values[key]
	delete(k.h.values, key)
	return ok, nil
}

func (k memKV) List(_ context.Context, pattern string, _ bool) ([]host.KVItem, error) {
	k.h.mu.Lock()
	defer k.h.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var items []host.KVItem
	for key, v := range k.h.values {
		if strings.HasPrefix(key, prefix) {
			items = append(items, host.KVItem{Key: key, Value: v})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items, nil
}

func (k memKV) Flush(context.Context) (bool, error) {
	k.h.mu.Lock()
	defer k.h.mu.Unlock()
	k.h.values = map[string]string{}
	return true, nil
}

type memAI struct{ h *memHost }

func (a memAI) Chat(_ context.Context, messages []host.ChatMessage, opts host.ChatOptions) (host.ChatResponse, error) {
	a.h.lastChat = messages
	a.h.lastOpts = opts
	return host.ChatResponse{Message: host.ChatMessage{Role: "assistant", Text: a.h.reply}}, nil
}

func (a memAI) Img2Txt(context.Context, host.Blob) (string, error) { return "", nil }

type stubEngine struct{}

func (stubEngine) Open(context.Context, []byte) (pdfimg.Document, error) { return stubDoc{}, nil }
func (stubEngine) Close() error                                          { return nil }

type stubDoc struct{}

func (stubDoc) PageCount() (int, error)                { return 1, nil }
func (stubDoc) PageSize(int) (float64, float64, error) { return 10, 20, nil }
func (stubDoc) RenderPage(int, *image.RGBA) error      { return nil }
func (stubDoc) Close() error                           { return nil }

func newTestService(t *testing.T, h *memHost) *Service {
	t.Helper()
	var slot host.Slot
	slot.Inject(h)
	store := platform.New(&slot, platform.Options{})
	ctx := context.Background()
	store.Start(ctx)
	t.Cleanup(store.Stop)
	if state, err := store.Wait(ctx); err != nil || state != platform.Ready {
		t.Fatalf("store not ready: %v %v", state, err)
	}

	loader := pdfimg.NewLoader(func(context.Context) (pdfimg.Engine, error) { return stubEngine{}, nil })
	svc := NewService(store, pdfimg.NewPipeline(loader, pdfimg.NewBlobStore()))
	n := 0
	svc.newID = func() string { n++; return fmt.Sprintf("id-%d", n) }
	return svc
}

func resumeFile() *pdfimg.File {
	return &pdfimg.File{Name: "cv.pdf", Type: "application/pdf", Data: []byte("%PDF-1.4")}
}

func TestAnalyzeStoresRecordWithFeedback(t *testing.T) {
	h := newMemHost()
	h.reply = "```json\n{\"overallScore\":82}\n```"
	svc := newTestService(t, h)

	var steps []string
	rec, err := svc.Analyze(context.Background(), AnalyzeInput{
		File:        resumeFile(),
		CompanyName: " Acme ",
		JobTitle:    "Backend Engineer",
		Progress:    func(s string) { steps = append(steps, s) },
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rec.ID != "id-1" || rec.CompanyName != "Acme" || rec.ResumePath != "/1_cv.pdf" || rec.ImagePath != "/2_cv.png" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if string(rec.Feedback) != `{"overallScore":82}` {
		t.Fatalf("unexpected feedback %s", rec.Feedback)
	}
	if len(steps) != 6 {
		t.Fatalf("expected 6 progress steps, got %v", steps)
	}

	if h.lastOpts.Model != platform.FeedbackModel {
		t.Fatalf("expected feedback model, got %q", h.lastOpts.Model)
	}
	parts := h.lastChat[0].Parts
	if parts[0].Path != "/1_cv.pdf" || !strings.Contains(parts[1].Text, "Backend Engineer") {
		t.Fatalf("unexpected feedback request %+v", parts)
	}
	if svc.Pipeline.Blobs().Len() != 0 {
		t.Fatalf("expected preview url revoked")
	}
	if !strings.Contains(h.values[Key("id-1")], `"feedback":{"overallScore":82}`) {
		t.Fatalf("expected persisted feedback, got %s", h.values[Key("id-1")])
	}
}

func TestAnalyzeRejectsInvalidFeedback(t *testing.T) {
	h := newMemHost()
	h.reply = "I think it is fine"
	svc := newTestService(t, h)

	rec, err := svc.Analyze(context.Background(), AnalyzeInput{File: resumeFile(), JobTitle: "x"})
	if !errors.Is(err, errInvalidFeedback) {
		t.Fatalf("expected invalid feedback error, got %v", err)
	}
	if _, ok := h.values[Key(rec.ID)]; !ok {
		t.Fatalf("expected record saved before analysis")
	}
}

func TestFlowsRequireSignIn(t *testing.T) {
	h := newMemHost()
	h.signedIn = false
	svc := newTestService(t, h)
	ctx := context.Background()

	if _, err := svc.Analyze(ctx, AnalyzeInput{File: resumeFile()}); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("analyze: expected ErrNotSignedIn, got %v", err)
	}
	if _, err := svc.Get(ctx, "x"); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("get: expected ErrNotSignedIn, got %v", err)
	}
	if _, err := svc.List(ctx); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("list: expected ErrNotSignedIn, got %v", err)
	}
	if _, err := svc.Wipe(ctx); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("wipe: expected ErrNotSignedIn, got %v", err)
	}
}

func TestGetExposesFilesUntilReleased(t *testing.T) {
	h := newMemHost()
	svc := newTestService(t, h)
	ctx := context.Background()
	rec, err := svc.Analyze(ctx, AnalyzeInput{File: resumeFile(), JobTitle: "x"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	review, err := svc.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if review.ResumeURL == "" || review.ImageURL == "" {
		t.Fatalf("expected both urls, got %+v", review)
	}
	if data, ok := review.Content(review.ResumeURL); !ok || string(data) != "%PDF-1.4" {
		t.Fatalf("unexpected resume content %q", data)
	}
	if string(review.Record.Feedback) != `{"overallScore":82,"action_items":["a"]}` {
		t.Fatalf("unexpected feedback %s", review.Record.Feedback)
	}

	review.Release()
	review.Release()
	if svc.Pipeline.Blobs().Len() != 0 {
		t.Fatalf("expected urls revoked")
	}

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSkipsCorruptRecords(t *testing.T) {
	h := newMemHost()
	svc := newTestService(t, h)
	h.values[Key("a")] = `{"id":"a","companyName":"Acme"}`
	h.values[Key("b")] = `not json`
	h.values["other"] = `{"id":"zzz"}`

	recs, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 || recs[0].CompanyName != "Acme" {
		t.Fatalf("unexpected records %+v", recs)
	}
}

func TestWipeContinuesPastFailures(t *testing.T) {
	h := newMemHost()
	svc := newTestService(t, h)
	h.files["/a.pdf"] = []byte("a")
	h.files["/b.png"] = []byte("b")
	h.files["/c.pdf"] = []byte("c")
	h.failDel["/b.png"] = true
	h.values[Key("a")] = "{}"

	res, err := svc.Wipe(context.Background())
	if err != nil {
		t.Fatalf("wipe: %v", err)
	}
	if res.Deleted != 2 || res.Failed != 1 || !res.Flushed {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(h.values) != 0 {
		t.Fatalf("expected kv flushed")
	}
	if svc.Store.Err() == nil || svc.Store.Err().Kind != platform.StorageFailure {
		t.Fatalf("expected the failed delete to be recorded, got %+v", svc.Store.Err())
	}
}

func TestParseFeedback(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{`{"a":1}`, `{"a":1}`, true},
		{"  ```json\n{\"a\":1}\n```  ", `{"a":1}`, true},
		{"```\n[1]\n```", `[1]`, true},
		{"", "", false},
		{"nope", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFeedback(tt.in)
		if (err == nil) != tt.ok || string(got) != tt.want {
			t.Fatalf("ParseFeedback(%q) = %s, %v", tt.in, got, err)
		}
	}
}

func TestInstructionsFillsPlaceholders(t *testing.T) {
	got := Instructions("Engineer", "")
	if !strings.Contains(got, "Job Title: Engineer") || !strings.Contains(got, "Job Description: N/A") {
		t.Fatalf("unexpected instructions %q", got)
	}
	if strings.Contains(got, "{{") {
		t.Fatalf("unreplaced placeholder in %q", got)
	}
}
