package platform

import (
	"context"

	"resumind/internal/host"
)

// FeedbackModel is the model used for résumé feedback.
const FeedbackModel = "claude-3-7-sonnet"

// InferenceGateway delegates to the host AI capability.
type InferenceGateway struct {
	s *Store
}

func (g *InferenceGateway) Chat(ctx context.Context, messages []host.ChatMessage, opts host.ChatOptions) (host.ChatResponse, bool) {
	return delegate(g.s, InferenceFailure, "ai.chat", func(h host.Host) (host.ChatResponse, error) {
		return h.AI().Chat(ctx, messages, opts)
	})
}

func (g *InferenceGateway) Img2Txt(ctx context.Context, image host.Blob) (string, bool) {
	return delegate(g.s, InferenceFailure, "ai.img2txt", func(h host.Host) (string, error) {
		return h.AI().Img2Txt(ctx, image)
	})
}

// Feedback asks the model to review the file at path following message.
func (g *InferenceGateway) Feedback(ctx context.Context, path, message string) (host.ChatResponse, bool) {
	return g.Chat(ctx, FeedbackMessages(path, message), host.ChatOptions{Model: FeedbackModel})
}

// FeedbackMessages builds the single user message sent for feedback.
func FeedbackMessages(path, message string) []host.ChatMessage {
	return []host.ChatMessage{{
		Role: "user",
		Parts: []host.ContentPart{
			{Type: host.PartFile, Path: path},
			{Type: host.PartText, Text: message},
		},
	}}
}
