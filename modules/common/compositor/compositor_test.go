package compositor

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"aigen-server/modules/common/model"
	"aigen-server/modules/common/ratio"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func mustProfile(t *testing.T, id string) *ratio.Profile {
	t.Helper()
	p, err := ratio.Lookup(id)
	if err != nil {
		t.Fatalf("lookup profile %q: %v", id, err)
	}
	return p
}

func TestComposeVoidFillSmallSource(t *testing.T) {
	c := New(1280)
	data := encodePNG(t, solid(100, 100, color.NRGBA{R: 255, A: 255}))

	payload, err := c.Compose(data, mustProfile(t, "landscape"), model.TaskCreation)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if payload.Width != 1280 || payload.Height != 720 {
		t.Fatalf("canvas = %dx%d, want 1280x720", payload.Width, payload.Height)
	}
	if payload.MIMEType != "image/png" {
		t.Fatalf("mime = %q, want image/png", payload.MIMEType)
	}

	out, _, err := image.Decode(bytes.NewReader(payload.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}

	// 작은 원본은 확대하지 않고 중앙 배치, 바깥은 흰색
	r, g, b, _ := out.At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Fatalf("corner = %d,%d,%d, want white", r>>8, g>>8, b>>8)
	}
	cr, cg, cb, _ := out.At(640, 360).RGBA()
	if cr>>8 < 200 || cg>>8 > 60 || cb>>8 > 60 {
		t.Fatalf("center = %d,%d,%d, want red source", cr>>8, cg>>8, cb>>8)
	}
}

func TestComposeVoidFillDownscalesLargeSource(t *testing.T) {
	c := New(1280)
	data := encodeJPEG(t, solid(3000, 3000, color.NRGBA{G: 255, A: 255}))

	payload, err := c.Compose(data, mustProfile(t, "landscape"), model.TaskCreation)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if payload.Width != 1280 || payload.Height != 720 {
		t.Fatalf("canvas = %dx%d, want 1280x720", payload.Width, payload.Height)
	}
	if payload.MIMEType != "image/jpeg" {
		t.Fatalf("mime = %q, want image/jpeg", payload.MIMEType)
	}
}

func TestComposeBlurredExtendDims(t *testing.T) {
	c := New(4096)
	data := encodePNG(t, solid(400, 400, color.NRGBA{B: 255, A: 255}))

	payload, err := c.Compose(data, mustProfile(t, "portrait"), model.TaskEdit)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if payload.Width != 720 || payload.Height != 1280 {
		t.Fatalf("canvas = %dx%d, want 720x1280", payload.Width, payload.Height)
	}

	// 배경은 blur+darken이므로 완전한 흰색이 아니어야 함
	out, _, err := image.Decode(bytes.NewReader(payload.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	r, g, b, _ := out.At(0, 0).RGBA()
	if r>>8 == 255 && g>>8 == 255 && b>>8 == 255 {
		t.Fatal("background is plain white, want blurred source fill")
	}
}

func TestComposeStretchIgnoresProfileFloor(t *testing.T) {
	c := New(4096)
	data := encodePNG(t, solid(100, 100, color.NRGBA{R: 255, A: 255}))

	payload, err := c.Compose(data, mustProfile(t, "landscape"), model.TaskBatchExecute)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	// stretch는 표준 크기 하한 없이 원본 기준 확장 크기만 사용
	if payload.Width >= 1280 {
		t.Fatalf("width = %d, want source-derived size below profile standard", payload.Width)
	}
	got := float64(payload.Width) / float64(payload.Height)
	want := 16.0 / 9.0
	if got < want-0.02 || got > want+0.02 {
		t.Fatalf("ratio = %.3f, want %.3f", got, want)
	}
}

func TestComposeNilProfilePassthrough(t *testing.T) {
	c := New(512)
	data := encodeJPEG(t, solid(1000, 500, color.NRGBA{R: 128, G: 128, B: 128, A: 255}))

	payload, err := c.Compose(data, nil, model.TaskEdit)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if payload.Width != 512 || payload.Height != 256 {
		t.Fatalf("canvas = %dx%d, want 512x256", payload.Width, payload.Height)
	}
}

func TestComposeRejectsGarbage(t *testing.T) {
	c := New(0)
	_, err := c.Compose([]byte("not an image"), mustProfile(t, "square"), model.TaskCreation)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
}

func TestPayloadBase64RoundTrip(t *testing.T) {
	p := &Payload{Data: []byte{0x89, 0x50, 0x4E, 0x47}}
	if p.Base64() != "iVBORw==" {
		t.Fatalf("base64 = %q", p.Base64())
	}
}
