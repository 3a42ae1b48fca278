package analyze

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"aigen-server/modules/common/compositor"
	"aigen-server/modules/common/gemini"
)

type stubText struct {
	calls  int
	images []gemini.Image
	text   string
	err    error
}

func (s *stubText) GenerateText(ctx context.Context, prompt string, images []gemini.Image) (string, error) {
	s.calls++
	s.images = images
	return s.text, s.err
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.NRGBA{R: 10, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestDescribeDeltaSendsBothImages(t *testing.T) {
	stub := &stubText{text: "add a red scarf around the neck"}
	svc := NewService(stub, compositor.New(1024))

	got := svc.DescribeDelta(context.Background(), samplePNG(t), []byte{1, 2, 3}, "image/png")
	if got != "add a red scarf around the neck" {
		t.Fatalf("instruction = %q", got)
	}
	if len(stub.images) != 2 {
		t.Fatalf("images sent = %d, want 2 (original, edited)", len(stub.images))
	}
}

func TestDescribeDeltaSoftFailsOnError(t *testing.T) {
	stub := &stubText{err: fmt.Errorf("service unavailable")}
	svc := NewService(stub, compositor.New(1024))

	if got := svc.DescribeDelta(context.Background(), samplePNG(t), []byte{1}, "image/png"); got != "" {
		t.Fatalf("instruction = %q, want empty on failure", got)
	}
}

func TestDescribeDeltaSoftFailsOnBadOriginal(t *testing.T) {
	stub := &stubText{text: "should not be reached"}
	svc := NewService(stub, compositor.New(1024))

	if got := svc.DescribeDelta(context.Background(), []byte("garbage"), []byte{1}, "image/png"); got != "" {
		t.Fatalf("instruction = %q, want empty", got)
	}
	if stub.calls != 0 {
		t.Fatal("generator should not be called when original is undecodable")
	}
}
