package pdfimg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"math"
	"path"
	"strings"
	"time"

	"resumind/internal/shared/metrics"
	"resumind/internal/shared/telemetry"
)

// DefaultScale is the render scale applied to the page's natural size.
const DefaultScale = 2.0

// Render surface limits. Page sizes come from the document itself.
const (
	MaxSidePx = 16384
	MaxPixels = 100_000_000
)

var errEmptyImage = errors.New("failed to create image")

// File is an in-memory file handed to or produced by the pipeline.
type File struct {
	Name    string
	Type    string
	Data    []byte
	ModTime time.Time
}

// Size reports the content length in bytes.
func (f *File) Size() int64 { return int64(len(f.Data)) }

// RenderResult is the outcome of one conversion. On success PreviewURL and
// PreviewFile are set and Error is empty. On failure only Error is set.
type RenderResult struct {
	PreviewURL  string
	PreviewFile *File
	Error       string
}

// Pipeline renders the first page of a PDF into a PNG preview.
type Pipeline struct {
	loader *Loader
	blobs  *BlobStore
	scale  float64
	encode func(io.Writer, image.Image) error
	now    func() time.Time
}

// NewPipeline builds a pipeline that loads its engine through loader and
// registers previews in blobs.
func NewPipeline(loader *Loader, blobs *BlobStore) *Pipeline {
	return &Pipeline{
		loader: loader,
		blobs:  blobs,
		scale:  DefaultScale,
		encode: png.Encode,
		now:    time.Now,
	}
}

// Blobs exposes the store holding preview URLs.
func (p *Pipeline) Blobs() *BlobStore { return p.blobs }

// Convert never returns an error value; failures are reported in the result.
func (p *Pipeline) Convert(ctx context.Context, file *File) RenderResult {
	start := p.now()
	out, err := p.safeRender(ctx, file)
	elapsed := p.now().Sub(start)
	if err != nil {
		metrics.IncRenderFailed()
		msg := "PDF conversion failed: " + err.Error()
		if errors.Is(err, errEmptyImage) {
			msg = errEmptyImage.Error()
		}
		telemetry.Warn("pdfimg.convert.failed", map[string]any{
			"file":  fileName(file),
			"error": err,
		})
		return RenderResult{Error: msg}
	}

	url := p.blobs.Create(out.Data, out.Type)
	metrics.IncRenderCompleted()
	metrics.ObserveRenderDurationMs(float64(elapsed.Milliseconds()))
	telemetry.Info("pdfimg.convert.complete", map[string]any{
		"file":        file.Name,
		"preview":     out.Name,
		"bytes":       len(out.Data),
		"duration_ms": elapsed.Milliseconds(),
	})
	return RenderResult{PreviewURL: url, PreviewFile: out}
}

// safeRender turns a panic anywhere in rendering into an error.
func (p *Pipeline) safeRender(ctx context.Context, file *File) (out *File, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("render panic: %v", rec)
		}
	}()
	return p.render(ctx, file)
}

func (p *Pipeline) render(ctx context.Context, file *File) (*File, error) {
	if file == nil || len(file.Data) == 0 {
		return nil, errors.New("empty file")
	}
	engine, err := p.loader.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load engine: %w", err)
	}
	doc, err := engine.Open(ctx, file.Data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	pages, err := doc.PageCount()
	if err != nil {
		return nil, err
	}
	if pages < 1 {
		return nil, errors.New("document has no pages")
	}
	width, height, err := doc.PageSize(0)
	if err != nil {
		return nil, err
	}
	w, h, err := checkedViewport(width, height, p.scale)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	surface := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(surface, surface.Bounds(), image.White, image.Point{}, draw.Src)
	if err := doc.RenderPage(0, surface); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := p.encode(&buf, surface); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	if buf.Len() == 0 {
		return nil, errEmptyImage
	}
	return &File{
		Name:    PreviewName(file.Name),
		Type:    "image/png",
		Data:    buf.Bytes(),
		ModTime: p.now(),
	}, nil
}

// Viewport scales a page size in points to whole pixels, rounding up.
func Viewport(width, height, scale float64) (int, int) {
	return int(math.Ceil(width * scale)), int(math.Ceil(height * scale))
}

// checkedViewport is Viewport bounded by MaxSidePx and MaxPixels.
func checkedViewport(width, height, scale float64) (int, int, error) {
	fw, fh := math.Ceil(width*scale), math.Ceil(height*scale)
	if !(fw >= 1 && fh >= 1) {
		return 0, 0, fmt.Errorf("invalid page size %.1fx%.1f", width, height)
	}
	if fw > MaxSidePx || fh > MaxSidePx || fw*fh > MaxPixels {
		return 0, 0, fmt.Errorf("page too large %.0fx%.0f", fw, fh)
	}
	return int(fw), int(fh), nil
}

// PreviewName replaces the file's extension with .png.
func PreviewName(name string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + ".png"
}

func fileName(f *File) string {
	if f == nil {
		return ""
	}
	return f.Name
}
