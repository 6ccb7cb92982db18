package pdfimg

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// PDFiumConfig sizes the WebAssembly instance pool.
type PDFiumConfig struct {
	Instances       int
	InstanceTimeout time.Duration
}

type pdfiumEngine struct {
	pool    pdfium.Pool
	timeout time.Duration
}

// LoadPDFium starts the PDFium WebAssembly runtime. It compiles the module,
// which takes a noticeable amount of time, so callers go through a Loader.
func LoadPDFium(ctx context.Context, cfg PDFiumConfig) (Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := max(1, cfg.Instances)
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  n,
		MaxTotal: n,
	})
	if err != nil {
		return nil, fmt.Errorf("init pdfium: %w", err)
	}
	timeout := cfg.InstanceTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &pdfiumEngine{pool: pool, timeout: timeout}, nil
}

func (e *pdfiumEngine) Open(ctx context.Context, data []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	instance, err := e.pool.GetInstance(e.timeout)
	if err != nil {
		return nil, fmt.Errorf("pdfium instance: %w", err)
	}
	doc, err := instance.OpenDocument(&requests.OpenDocument{File: &data})
	if err != nil {
		_ = instance.Close()
		return nil, fmt.Errorf("open document: %w", err)
	}
	return &pdfiumDocument{instance: instance, doc: doc.Document}, nil
}

func (e *pdfiumEngine) Close() error {
	return e.pool.Close()
}

type pdfiumDocument struct {
	instance pdfium.Pdfium
	doc      references.FPDF_DOCUMENT
}

func (d *pdfiumDocument) page(index int) requests.Page {
	return requests.Page{ByIndex: &requests.PageByIndex{Document: d.doc, Index: index}}
}

func (d *pdfiumDocument) PageCount() (int, error) {
	res, err := d.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{Document: d.doc})
	if err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	return res.PageCount, nil
}

func (d *pdfiumDocument) PageSize(index int) (float64, float64, error) {
	res, err := d.instance.GetPageSize(&requests.GetPageSize{Page: d.page(index)})
	if err != nil {
		return 0, 0, fmt.Errorf("page size: %w", err)
	}
	return res.Width, res.Height, nil
}

func (d *pdfiumDocument) RenderPage(index int, dst *image.RGBA) error {
	b := dst.Bounds()
	res, err := d.instance.RenderPageInPixels(&requests.RenderPageInPixels{
		Page:   d.page(index),
		Width:  b.Dx(),
		Height: b.Dy(),
	})
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	defer res.Cleanup()
	draw.Draw(dst, b, res.Result.Image, res.Result.Image.Bounds().Min, draw.Over)
	return nil
}

func (d *pdfiumDocument) Close() error {
	_, closeErr := d.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: d.doc})
	if err := d.instance.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	return closeErr
}
