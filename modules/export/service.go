package export

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG 디코더 등록
	"image/png"
	"log"

	_ "github.com/kolesa-team/go-webp/decoder" // WebP 디코더 등록
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	"aigen-server/modules/common/compositor"
	"aigen-server/modules/common/ratio"
	"aigen-server/modules/common/sharpen"
)

// 포맷 상수
const (
	FormatPNG  = "png"
	FormatWebP = "webp"

	webpQuality = 90.0
)

type Service struct {
	maxEdge int
}

func NewService(maxEdge int) *Service {
	return &Service{maxEdge: maxEdge}
}

// Export - 다운로드용 처리: 업스케일 + 샤프닝 후 재인코딩
// 원본이 프로필 비율과 일치하면 표준 크기로, 아니면 2배로 확대
func (s *Service) Export(data []byte, ratioID, format string) ([]byte, string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", compositor.ErrDecode, err)
	}

	var profile *ratio.Profile
	if ratioID != "" {
		p, lookupErr := ratio.Lookup(ratioID)
		if lookupErr != nil {
			return nil, "", lookupErr
		}
		profile = p
	}

	sharpened, err := sharpen.Upscale(src, profile, s.maxEdge)
	if err != nil {
		return nil, "", fmt.Errorf("failed to upscale for export: %w", err)
	}

	var buf bytes.Buffer
	switch format {
	case FormatWebP:
		options, optErr := encoder.NewLossyEncoderOptions(encoder.PresetDefault, webpQuality)
		if optErr != nil {
			return nil, "", fmt.Errorf("failed to create WebP encoder options: %w", optErr)
		}
		if err := webp.Encode(&buf, sharpened, options); err != nil {
			return nil, "", fmt.Errorf("failed to encode WebP: %w", err)
		}
		log.Printf("📦 Exported %dx%d as WebP (%d bytes)",
			sharpened.Bounds().Dx(), sharpened.Bounds().Dy(), buf.Len())
		return buf.Bytes(), "image/webp", nil

	case FormatPNG, "":
		if err := png.Encode(&buf, sharpened); err != nil {
			return nil, "", fmt.Errorf("failed to encode PNG: %w", err)
		}
		log.Printf("📦 Exported %dx%d as PNG (%d bytes)",
			sharpened.Bounds().Dx(), sharpened.Bounds().Dy(), buf.Len())
		return buf.Bytes(), "image/png", nil

	default:
		return nil, "", fmt.Errorf("unsupported export format: %s", format)
	}
}
