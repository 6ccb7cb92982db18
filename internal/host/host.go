// Package host defines the capability contract of the host runtime the
// client binds to: identity, a per-user filesystem, a per-user key-value
// store and AI inference.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotSignedIn is returned by host capabilities that need a session.
var ErrNotSignedIn = errors.New("not signed in")

// ErrNotFound is returned when a path does not exist.
var ErrNotFound = errors.New("not found")

// Identity is the signed-in account as reported by the host.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// FSItem describes a file or directory in the user's filesystem.
type FSItem struct {
	ID       string    `json:"id,omitempty"`
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	IsDir    bool      `json:"is_dir"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified,omitempty"`
}

// Blob is file content with its media type.
type Blob struct {
	Data []byte
	Type string
}

// UploadFile is one file handed to FS.Upload.
type UploadFile struct {
	Name string
	Type string
	Data []byte
}

// KVItem is a listed key and, when requested, its value.
type KVItem struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// Content part types.
const (
	PartText = "text"
	PartFile = "file"
)

// ContentPart is one element of a multi-part chat message.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	// Path is a host filesystem path for file parts.
	Path string `json:"path,omitempty"`
}

// ChatMessage carries either plain text or content parts.
type ChatMessage struct {
	Role  string        `json:"role"`
	Text  string        `json:"-"`
	Parts []ContentPart `json:"-"`
}

type chatMessageWire struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// MarshalJSON encodes Content as a string or an array of parts.
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	var content []byte
	var err error
	if len(m.Parts) > 0 {
		content, err = json.Marshal(m.Parts)
	} else {
		content, err = json.Marshal(m.Text)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(chatMessageWire{Role: m.Role, Content: content})
}

// UnmarshalJSON accepts either content form.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var wire chatMessageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	m.Role = wire.Role
	m.Text = ""
	m.Parts = nil
	if len(wire.Content) == 0 || string(wire.Content) == "null" {
		return nil
	}
	if wire.Content[0] == '"' {
		return json.Unmarshal(wire.Content, &m.Text)
	}
	return json.Unmarshal(wire.Content, &m.Parts)
}

// ContentText flattens the message to its text.
func (m ChatMessage) ContentText() string {
	if len(m.Parts) == 0 {
		return m.Text
	}
	var out string
	for _, p := range m.Parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}

// ChatOptions tune a chat request.
type ChatOptions struct {
	Model string `json:"model,omitempty"`
}

// ChatResponse is the assistant reply.
type ChatResponse struct {
	Index   int         `json:"index"`
	Message ChatMessage `json:"message"`
	Model   string      `json:"model,omitempty"`
}

// Auth is the identity capability.
type Auth interface {
	IsSignedIn(ctx context.Context) (bool, error)
	GetUser(ctx context.Context) (Identity, error)
	SignIn(ctx context.Context) error
	SignOut(ctx context.Context) error
}

// FS is the per-user filesystem capability. Paths are "/"-rooted.
type FS interface {
	Write(ctx context.Context, path string, data []byte) (FSItem, error)
	Read(ctx context.Context, path string) (Blob, error)
	ReadDir(ctx context.Context, path string) ([]FSItem, error)
	// Upload stores each file at the root under a unique name and returns the last one.
	Upload(ctx context.Context, files []UploadFile) (FSItem, error)
	Delete(ctx context.Context, path string) error
}

// KV is the per-user key-value capability.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) (bool, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, pattern string, withValues bool) ([]KVItem, error)
	Flush(ctx context.Context) (bool, error)
}

// AI is the inference capability.
type AI interface {
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (ChatResponse, error)
	Img2Txt(ctx context.Context, image Blob) (string, error)
}

// Host bundles the four capabilities.
type Host interface {
	Auth() Auth
	FS() FS
	KV() KV
	AI() AI
}
