// Package extract turns stored attachments into prompt text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"resumind/internal/shared/storage/object"
)

// CacheSuffix names the sibling object that holds a file's extracted text.
const CacheSuffix = ".extracted.txt"

var (
	ErrUnsupported = errors.New("unsupported attachment type")
	ErrNoText      = errors.New("document has no extractable text")
)

type kind int

const (
	kindUnknown kind = iota
	kindPDF
	kindText
)

// Cached returns the text of a stored file. The first call extracts and
// saves it under fileKey+CacheSuffix; later calls read that copy.
func Cached(ctx context.Context, store object.ObjectStore, fileKey, mimeType, fileName string) (string, error) {
	cacheKey := fileKey + CacheSuffix
	if text, err := readAll(ctx, store, cacheKey); err == nil {
		return string(text), nil
	} else if !errors.Is(err, object.ErrNotFound) {
		return "", fmt.Errorf("read %s: %w", cacheKey, err)
	}

	raw, err := readAll(ctx, store, fileKey)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", fileKey, err)
	}
	text, err := Text(ctx, raw, mimeType, fileName)
	if err != nil {
		return "", err
	}
	if _, err := store.SaveWithKey(ctx, cacheKey, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		return "", fmt.Errorf("save %s: %w", cacheKey, err)
	}
	return text, nil
}

// Text extracts the text of a PDF, or returns a UTF-8 text file as is.
func Text(ctx context.Context, data []byte, mimeType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch detect(mimeType, fileName, data) {
	case kindPDF:
		return pdfText(data)
	case kindText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s: not valid UTF-8", fileName)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
	}
}

// Supported reports whether Text can handle the payload.
func Supported(mimeType, fileName string, data []byte) bool {
	return detect(mimeType, fileName, data) != kindUnknown
}

func detect(mimeType, fileName string, data []byte) kind {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return kindPDF
	}
	mt := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch {
	case mt == "application/pdf":
		return kindPDF
	case strings.HasPrefix(mt, "text/"):
		return kindText
	case mt != "" && mt != "application/octet-stream":
		return kindUnknown
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return kindPDF
	case ".txt", ".md":
		return kindText
	}
	return kindUnknown
}

// pdfText joins the plain text of every page, separated by blank lines.
func pdfText(data []byte) (text string, err error) {
	// The parser panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if s = strings.TrimSpace(s); s != "" {
			pages = append(pages, s)
		}
	}
	if len(pages) == 0 {
		return "", ErrNoText
	}
	return strings.Join(pages, "\n\n"), nil
}

func readAll(ctx context.Context, store object.ObjectStore, key string) ([]byte, error) {
	body, err := store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}
