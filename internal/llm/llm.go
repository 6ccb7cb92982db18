package llm

import (
	"context"
	"errors"
)

// Part types of a multi-part message.
const (
	PartText     = "text"
	PartImageURL = "image_url"
)

// Part is one piece of a multi-part message. ImageURL may be a data URL.
type Part struct {
	Type     string
	Text     string
	ImageURL string
}

// Message is one chat turn. When Parts is set it takes precedence over Content.
type Message struct {
	Role    string
	Content string
	Parts   []Part
}

// Request is a chat completion request. An empty Model means the provider default.
type Request struct {
	Model    string
	Messages []Message
	// JSON asks the provider for a JSON object response.
	JSON bool
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the first choice of a completion.
type Response struct {
	Model   string
	Content string
	Usage   *Usage
}

// Client abstracts LLM providers.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient stands in when no provider is configured.
type PlaceholderClient struct{}

// Complete returns ErrNotImplemented.
func (PlaceholderClient) Complete(ctx context.Context, req Request) (Response, error) {
	_ = ctx
	_ = req
	return Response{}, ErrNotImplemented
}
