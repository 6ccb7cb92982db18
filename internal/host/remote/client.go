// Package remote implements host.Host against a running host daemon.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"resumind/internal/host"
	"resumind/internal/shared/telemetry"
)

const apiPrefix = "/api/v1"

// Client talks to the host daemon. It keeps the session token returned by
// sign-in and sends it on every request.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// New returns a client for the daemon at baseURL. A nil httpClient gets a
// client with a two minute timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *Client) Auth() host.Auth { return authAPI{c} }
func (c *Client) FS() host.FS     { return fsAPI{c} }
func (c *Client) KV() host.KV     { return kvAPI{c} }
func (c *Client) AI() host.AI     { return aiAPI{c} }

// Token returns the current session token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken installs a session token, e.g. one persisted by a previous run.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Ping checks that the daemon answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil, nil, "", nil)
	return err
}

type response struct {
	header http.Header
	body   []byte
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do sends a request and decodes a JSON reply into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) (response, error) {
	target := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return response{}, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("host %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, fmt.Errorf("host %s %s: read: %w", method, path, err)
	}
	if resp.StatusCode >= 400 {
		return response{}, statusError(resp.StatusCode, raw)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return response{}, fmt.Errorf("host %s %s: decode: %w", method, path, err)
		}
	}
	return response{header: resp.Header, body: raw}, nil
}

func statusError(status int, raw []byte) error {
	msg := strings.TrimSpace(string(raw))
	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		msg = parsed.Error.Message
	}
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", host.ErrNotSignedIn, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", host.ErrNotFound, msg)
	default:
		return fmt.Errorf("host http status %d: %s", status, msg)
	}
}

func jsonBody(v any) (io.Reader, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(payload), nil
}

type authAPI struct{ c *Client }

func (a authAPI) IsSignedIn(ctx context.Context) (bool, error) {
	var out struct {
		SignedIn bool `json:"signed_in"`
	}
	if _, err := a.c.do(ctx, http.MethodGet, "/auth/status", nil, nil, "", &out); err != nil {
		return false, err
	}
	return out.SignedIn, nil
}

func (a authAPI) GetUser(ctx context.Context) (host.Identity, error) {
	var user host.Identity
	_, err := a.c.do(ctx, http.MethodGet, "/auth/user", nil, nil, "", &user)
	return user, err
}

func (a authAPI) SignIn(ctx context.Context) error {
	var out struct {
		Token string `json:"token"`
	}
	if _, err := a.c.do(ctx, http.MethodPost, "/auth/sign-in", nil, nil, "", &out); err != nil {
		return err
	}
	if out.Token == "" {
		return errors.New("host sign-in returned no token")
	}
	a.c.SetToken(out.Token)
	return nil
}

// SignOut drops the local token even when the daemon call fails.
func (a authAPI) SignOut(ctx context.Context) error {
	_, err := a.c.do(ctx, http.MethodPost, "/auth/sign-out", nil, nil, "", nil)
	a.c.SetToken("")
	return err
}

type fsAPI struct{ c *Client }

func pathQuery(p string) url.Values { return url.Values{"path": {p}} }

func (f fsAPI) Write(ctx context.Context, path string, data []byte) (host.FSItem, error) {
	var item host.FSItem
	_, err := f.c.do(ctx, http.MethodPut, "/fs/file", pathQuery(path), bytes.NewReader(data), "application/octet-stream", &item)
	return item, err
}

func (f fsAPI) Read(ctx context.Context, path string) (host.Blob, error) {
	resp, err := f.c.do(ctx, http.MethodGet, "/fs/file", pathQuery(path), nil, "", nil)
	if err != nil {
		return host.Blob{}, err
	}
	return host.Blob{Data: resp.body, Type: resp.header.Get("Content-Type")}, nil
}

func (f fsAPI) ReadDir(ctx context.Context, path string) ([]host.FSItem, error) {
	var out struct {
		Items []host.FSItem `json:"items"`
	}
	_, err := f.c.do(ctx, http.MethodGet, "/fs/dir", pathQuery(path), nil, "", &out)
	return out.Items, err
}

func (f fsAPI) Upload(ctx context.Context, files []host.UploadFile) (host.FSItem, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, file := range files {
		part, err := mw.CreateFormFile("file", file.Name)
		if err != nil {
			return host.FSItem{}, err
		}
		if _, err := part.Write(file.Data); err != nil {
			return host.FSItem{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return host.FSItem{}, err
	}
	var item host.FSItem
	_, err := f.c.do(ctx, http.MethodPost, "/fs/upload", nil, &body, mw.FormDataContentType(), &item)
	return item, err
}

func (f fsAPI) Delete(ctx context.Context, path string) error {
	_, err := f.c.do(ctx, http.MethodDelete, "/fs/file", pathQuery(path), nil, "", nil)
	return err
}

type kvAPI struct{ c *Client }

func keyQuery(key string) url.Values { return url.Values{"key": {key}} }

func (k kvAPI) Get(ctx context.Context, key string) (string, bool, error) {
	var item host.KVItem
	_, err := k.c.do(ctx, http.MethodGet, "/kv/item", keyQuery(key), nil, "", &item)
	if errors.Is(err, host.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return item.Value, true, nil
}

func (k kvAPI) Set(ctx context.Context, key, value string) (bool, error) {
	body, err := jsonBody(map[string]string{"value": value})
	if err != nil {
		return false, err
	}
	var out struct {
		OK bool `json:"ok"`
	}
	_, err = k.c.do(ctx, http.MethodPut, "/kv/item", keyQuery(key), body, "application/json", &out)
	return out.OK, err
}

func (k kvAPI) Delete(ctx context.Context, key string) (bool, error) {
	var out struct {
		Deleted bool `json:"deleted"`
	}
	_, err := k.c.do(ctx, http.MethodDelete, "/kv/item", keyQuery(key), nil, "", &out)
	return out.Deleted, err
}

func (k kvAPI) List(ctx context.Context, pattern string, withValues bool) ([]host.KVItem, error) {
	q := url.Values{"pattern": {pattern}, "values": {strconv.FormatBool(withValues)}}
	var out struct {
		Items []host.KVItem `json:"items"`
	}
	_, err := k.c.do(ctx, http.MethodGet, "/kv/items", q, nil, "", &out)
	return out.Items, err
}

func (k kvAPI) Flush(ctx context.Context) (bool, error) {
	var out struct {
		OK bool `json:"ok"`
	}
	_, err := k.c.do(ctx, http.MethodDelete, "/kv/items", nil, nil, "", &out)
	return out.OK, err
}

type aiAPI struct{ c *Client }

func (a aiAPI) Chat(ctx context.Context, messages []host.ChatMessage, opts host.ChatOptions) (host.ChatResponse, error) {
	body, err := jsonBody(struct {
		Messages []host.ChatMessage `json:"messages"`
		Model    string             `json:"model,omitempty"`
	}{messages, opts.Model})
	if err != nil {
		return host.ChatResponse{}, err
	}
	var resp host.ChatResponse
	_, err = a.c.do(ctx, http.MethodPost, "/ai/chat", nil, body, "application/json", &resp)
	return resp, err
}

func (a aiAPI) Img2Txt(ctx context.Context, image host.Blob) (string, error) {
	contentType := image.Type
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	var out struct {
		Text string `json:"text"`
	}
	_, err := a.c.do(ctx, http.MethodPost, "/ai/img2txt", nil, bytes.NewReader(image.Data), contentType, &out)
	return out.Text, err
}

// Inject probes the daemon every interval and publishes c into slot once it
// answers. It returns ctx.Err() if ctx ends first.
func Inject(ctx context.Context, slot *host.Slot, c *Client, interval time.Duration) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	attempts := 0
	for {
		attempts++
		if err := c.Ping(ctx); err == nil {
			slot.Inject(c)
			telemetry.Info("host.remote.injected", map[string]any{"url": c.baseURL, "attempts": attempts})
			return nil
		} else if attempts == 1 {
			telemetry.Debug("host.remote.unreachable", map[string]any{"url": c.baseURL, "error": err})
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

var _ host.Host = (*Client)(nil)
