package pdfimg

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"testing"
	"time"
)

// minimalPDF builds a one-page document with a correct xref table.
func minimalPDF(width, height int) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] >>", width, height),
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestPDFiumRendersMinimalDocument(t *testing.T) {
	if testing.Short() {
		t.Skip("compiles the pdfium runtime")
	}
	loader := NewLoader(func(ctx context.Context) (Engine, error) {
		return LoadPDFium(ctx, PDFiumConfig{Instances: 1, InstanceTimeout: time.Minute})
	})
	defer loader.Close()
	p := NewPipeline(loader, NewBlobStore())

	res := p.Convert(context.Background(), &File{Name: "one.pdf", Data: minimalPDF(200, 100)})
	if res.Error != "" {
		t.Fatalf("convert: %s", res.Error)
	}
	img, err := png.Decode(bytes.NewReader(res.PreviewFile.Data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 200 {
		t.Fatalf("expected 400x200, got %dx%d", b.Dx(), b.Dy())
	}
}
