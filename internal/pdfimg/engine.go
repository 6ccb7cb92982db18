// Package pdfimg turns the first page of a PDF into a PNG preview.
package pdfimg

import (
	"context"
	"image"
)

// Engine opens PDF documents. Loading one is expensive, see Loader.
type Engine interface {
	Open(ctx context.Context, data []byte) (Document, error)
	Close() error
}

// Document is an open PDF. Page indexes start at zero.
type Document interface {
	PageCount() (int, error)
	// PageSize reports the page size in PDF points.
	PageSize(index int) (width, height float64, err error)
	// RenderPage draws the page scaled to fill dst.
	RenderPage(index int, dst *image.RGBA) error
	Close() error
}
