package local

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"

	"resumind/internal/extract"
	"resumind/internal/host"
	"resumind/internal/llm"
	"resumind/internal/shared/metrics"
)

const img2txtPrompt = "Transcribe all text visible in this image. Reply with the text only."

type inference struct {
	client llm.Client
	model  string
	files  *files
}

func (a *inference) Chat(ctx context.Context, messages []host.ChatMessage, opts host.ChatOptions) (host.ChatResponse, error) {
	if len(messages) == 0 {
		return host.ChatResponse{}, errors.New("no messages")
	}
	req := llm.Request{Model: opts.Model, Messages: make([]llm.Message, 0, len(messages))}
	if a.model != "" {
		req.Model = a.model
	}
	for _, m := range messages {
		msg, err := a.convert(ctx, m)
		if err != nil {
			return host.ChatResponse{}, err
		}
		req.Messages = append(req.Messages, msg)
	}

	metrics.IncHostAICall()
	resp, err := a.client.Complete(ctx, req)
	if err != nil {
		return host.ChatResponse{}, err
	}
	return host.ChatResponse{
		Message: host.ChatMessage{Role: "assistant", Text: resp.Content},
		Model:   resp.Model,
	}, nil
}

func (a *inference) Img2Txt(ctx context.Context, image host.Blob) (string, error) {
	if len(image.Data) == 0 {
		return "", errors.New("empty image")
	}
	metrics.IncHostAICall()
	resp, err := a.client.Complete(ctx, llm.Request{
		Model: a.model,
		Messages: []llm.Message{{
			Role: "user",
			Parts: []llm.Part{
				{Type: llm.PartText, Text: img2txtPrompt},
				{Type: llm.PartImageURL, ImageURL: dataURL(image)},
			},
		}},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (a *inference) convert(ctx context.Context, m host.ChatMessage) (llm.Message, error) {
	if len(m.Parts) == 0 {
		return llm.Message{Role: m.Role, Content: m.Text}, nil
	}
	out := llm.Message{Role: m.Role, Parts: make([]llm.Part, 0, len(m.Parts))}
	for _, p := range m.Parts {
		switch p.Type {
		case host.PartText:
			out.Parts = append(out.Parts, llm.Part{Type: llm.PartText, Text: p.Text})
		case host.PartFile:
			part, err := a.attachment(ctx, p.Path)
			if err != nil {
				return llm.Message{}, err
			}
			out.Parts = append(out.Parts, part)
		default:
			return llm.Message{}, fmt.Errorf("unsupported content part %q", p.Type)
		}
	}
	return out, nil
}

// attachment inlines images and converts documents to text.
func (a *inference) attachment(ctx context.Context, p string) (llm.Part, error) {
	blob, err := a.files.Read(ctx, p)
	if err != nil {
		return llm.Part{}, fmt.Errorf("attachment %s: %w", p, err)
	}
	if strings.HasPrefix(blob.Type, "image/") {
		return llm.Part{Type: llm.PartImageURL, ImageURL: dataURL(blob)}, nil
	}
	name := path.Base(p)
	if !extract.Supported(blob.Type, name, blob.Data) {
		return llm.Part{}, fmt.Errorf("attachment %s: unsupported type %s", p, blob.Type)
	}
	key, _, err := a.files.key(p)
	if err != nil {
		return llm.Part{}, err
	}
	text, err := extract.Cached(ctx, a.files.store, key, blob.Type, name)
	if err != nil {
		return llm.Part{}, fmt.Errorf("attachment %s: %w", p, err)
	}
	return llm.Part{Type: llm.PartText, Text: fmt.Sprintf("Attached file %s:\n%s", name, text)}, nil
}

func dataURL(b host.Blob) string {
	typ := b.Type
	if typ == "" {
		typ = "application/octet-stream"
	}
	return "data:" + typ + ";base64," + base64.StdEncoding.EncodeToString(b.Data)
}
