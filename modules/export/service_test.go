package export

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"aigen-server/modules/common/compositor"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 90, G: 140, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestExportMatchingRatioRestoresProfileSize(t *testing.T) {
	svc := NewService(4096)

	out, mimeType, err := svc.Export(pngBytes(t, 640, 360), "landscape", FormatPNG)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if mimeType != "image/png" {
		t.Fatalf("mime = %q", mimeType)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != 1280 || img.Bounds().Dy() != 720 {
		t.Fatalf("size = %dx%d, want 1280x720", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestExportDefaultFormatIsPNG(t *testing.T) {
	svc := NewService(4096)

	_, mimeType, err := svc.Export(pngBytes(t, 100, 100), "", "")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if mimeType != "image/png" {
		t.Fatalf("mime = %q, want image/png", mimeType)
	}
}

func TestExportRejectsGarbage(t *testing.T) {
	svc := NewService(4096)

	_, _, err := svc.Export([]byte("not an image"), "", FormatPNG)
	if !errors.Is(err, compositor.ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := NewService(4096)

	_, _, err := svc.Export(pngBytes(t, 100, 100), "", "tiff")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
