package compositor

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log"

	"github.com/disintegration/imaging"
	_ "github.com/kolesa-team/go-webp/decoder" // WebP 디코더 등록

	"aigen-server/modules/common/model"
	"aigen-server/modules/common/ratio"
)

// ErrDecode - 입력 바이트가 이미지로 디코딩되지 않음
var ErrDecode = errors.New("input is not a decodable image")

const (
	// DefaultMaxEdge - 한 변 최대 픽셀 (리샘플링 상한)
	DefaultMaxEdge = 4096

	// 배경 채움에 쓰는 blur/darken 강도 (edit 아웃페인팅용)
	backgroundBlurSigma     = 40.0
	backgroundBrightnessPct = -20.0

	// void-fill에서 작은 입력의 확대 상한 (원본보다 키우지 않음)
	containUpscaleCap = 1.0
)

// Payload - 합성 결과물. 요청 단위로 생성되며 저장되지 않음
type Payload struct {
	Data     []byte
	Width    int
	Height   int
	MIMEType string
}

// Base64 - 전송용 base64 인코딩
func (p *Payload) Base64() string {
	return base64.StdEncoding.EncodeToString(p.Data)
}

// Compositor - 입력 이미지를 전송용 고정 정책 payload로 변환
type Compositor struct {
	maxEdge int
}

// New - Compositor 생성. maxEdge가 0 이하면 기본값 사용
func New(maxEdge int) *Compositor {
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	return &Compositor{maxEdge: maxEdge}
}

// Compose - 이미지 바이트를 정책에 맞게 합성/재인코딩
// profile이 nil이면 비율 변경 없이 상한 내로만 축소
func (c *Compositor) Compose(data []byte, profile *ratio.Profile, task model.TaskType) (*Payload, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	// 출력 포맷: PNG 입력은 PNG 유지, 나머지는 JPEG
	outMIME := "image/jpeg"
	if format == "png" {
		outMIME = "image/png"
	}

	if profile == nil {
		return c.passthrough(src, outMIME)
	}

	canvasW, canvasH := c.canvasSize(src, profile, task)

	var canvas *image.NRGBA
	switch {
	case task.IsBatch():
		// stretch: 원본 비율을 버리고 목적지 비율로 직접 채움
		canvas = imaging.Resize(src, canvasW, canvasH, imaging.Lanczos)
	case task == model.TaskEdit:
		canvas = blurredExtend(src, canvasW, canvasH)
	default:
		// creation / sketch / face: 흰색 void-fill
		canvas = voidFill(src, canvasW, canvasH)
	}

	out, err := encode(canvas, outMIME)
	if err != nil {
		return nil, err
	}

	log.Printf("🖼️  Composited %dx%d -> %dx%d (%s, task=%s)",
		src.Bounds().Dx(), src.Bounds().Dy(), canvasW, canvasH, outMIME, task)

	return &Payload{Data: out, Width: canvasW, Height: canvasH, MIMEType: outMIME}, nil
}

// passthrough - 비율 변경 없이 상한 내로 축소 후 재인코딩
func (c *Compositor) passthrough(src image.Image, outMIME string) (*Payload, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	var result image.Image = src
	if w > c.maxEdge || h > c.maxEdge {
		result = imaging.Fit(src, c.maxEdge, c.maxEdge, imaging.Lanczos)
		rb := result.Bounds()
		w, h = rb.Dx(), rb.Dy()
	}

	out, err := encode(result, outMIME)
	if err != nil {
		return nil, err
	}
	return &Payload{Data: out, Width: w, Height: h, MIMEType: outMIME}, nil
}

// canvasSize - 목적지 캔버스 크기 결정
// 원본을 목표 비율로 확장했을 때의 크기와 프로필 표준 크기 중 큰 쪽을 쓰되,
// 긴 변이 maxEdge를 넘지 않도록 clamp. 배치(stretch)는 표준 크기 하한을 두지 않음
func (c *Compositor) canvasSize(src image.Image, profile *ratio.Profile, task model.TaskType) (int, int) {
	b := src.Bounds()
	srcW, srcH := float64(b.Dx()), float64(b.Dy())
	target := profile.Ratio()

	// 원본을 목표 비율까지 확장한 크기
	var extW, extH float64
	if srcW/srcH > target {
		extW = srcW
		extH = srcW / target
	} else {
		extH = srcH
		extW = srcH * target
	}

	longEdge := extW
	if extH > longEdge {
		longEdge = extH
	}

	if !task.IsBatch() {
		profileLong := float64(profile.Width)
		if profile.Height > profile.Width {
			profileLong = float64(profile.Height)
		}
		if profileLong > longEdge {
			longEdge = profileLong
		}
	}

	if longEdge > float64(c.maxEdge) {
		longEdge = float64(c.maxEdge)
	}

	// 긴 변 기준으로 목표 비율 크기 산출
	if target >= 1 {
		w := int(longEdge + 0.5)
		h := int(longEdge/target + 0.5)
		return w, h
	}
	h := int(longEdge + 0.5)
	w := int(longEdge*target + 0.5)
	return w, h
}

// voidFill - 흰색 배경 위에 contain-fit 중앙 배치 (확대 상한 적용)
func voidFill(src image.Image, canvasW, canvasH int) *image.NRGBA {
	canvas := imaging.New(canvasW, canvasH, color.White)
	return imaging.PasteCenter(canvas, containScaled(src, canvasW, canvasH))
}

// blurredExtend - blur+darken한 cover-fit 배경 위에 원본 contain-fit 중앙 배치
func blurredExtend(src image.Image, canvasW, canvasH int) *image.NRGBA {
	background := imaging.Fill(src, canvasW, canvasH, imaging.Center, imaging.Lanczos)
	background = imaging.Blur(background, backgroundBlurSigma)
	background = imaging.AdjustBrightness(background, backgroundBrightnessPct)
	return imaging.PasteCenter(background, containScaled(src, canvasW, canvasH))
}

// containScaled - contain-fit 크기로 리샘플링 (확대는 cap까지만)
func containScaled(src image.Image, canvasW, canvasH int) image.Image {
	b := src.Bounds()
	srcW, srcH := float64(b.Dx()), float64(b.Dy())

	scale := float64(canvasW) / srcW
	if s := float64(canvasH) / srcH; s < scale {
		scale = s
	}
	if scale > containUpscaleCap {
		scale = containUpscaleCap
	}
	if scale == 1.0 {
		return src
	}
	return imaging.Resize(src, int(srcW*scale+0.5), int(srcH*scale+0.5), imaging.Lanczos)
}

// encode - MIME 타입에 맞게 인코딩
func encode(img image.Image, mimeType string) ([]byte, error) {
	var buf bytes.Buffer
	switch mimeType {
	case "image/png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode PNG: %w", err)
		}
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}); err != nil {
			return nil, fmt.Errorf("failed to encode JPEG: %w", err)
		}
	}
	return buf.Bytes(), nil
}
