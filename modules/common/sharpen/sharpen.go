package sharpen

import (
	"errors"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"aigen-server/modules/common/ratio"
)

// ErrTooSmall - 3x3 미만 이미지는 이웃 픽셀이 없어 필터 적용 불가
var ErrTooSmall = errors.New("image smaller than 3x3")

const (
	// DownloadAmount - 다운로드/내보내기 경로의 고정 샤프닝 강도
	DownloadAmount = 0.7

	// 비율 일치 판정 허용 오차
	ratioTolerance = 0.05
)

// Sharpen - 4방향 라플라시안 기반 엣지 강조
// 스냅샷에서 읽고 새 버퍼에 쓰므로 처리 순서에 따른 픽셀 오염이 없음.
// 1픽셀 테두리는 원본 유지, 알파 채널은 건드리지 않음
func Sharpen(src image.Image, amount float64) (*image.NRGBA, error) {
	in := imaging.Clone(src)
	b := in.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return nil, ErrTooSmall
	}

	out := imaging.Clone(in)
	strength := amount * 0.5

	for y := 1; y < h-1; y++ {
		row := y * in.Stride
		for x := 1; x < w-1; x++ {
			idx := row + x*4
			up := idx - in.Stride
			down := idx + in.Stride
			left := idx - 4
			right := idx + 4

			for ch := 0; ch < 3; ch++ {
				center := float64(in.Pix[idx+ch])
				edge := 4*center - float64(in.Pix[up+ch]) - float64(in.Pix[down+ch]) -
					float64(in.Pix[left+ch]) - float64(in.Pix[right+ch])
				out.Pix[idx+ch] = clampByte(center + edge*strength)
			}
		}
	}
	return out, nil
}

// Upscale - 다운로드용 업스케일 후 고정 강도 샤프닝
// 원본이 프로필 비율과 일치하면서 더 작으면 프로필 표준 크기로,
// 그 외에는 2배로 확대. 확대 후 한 변이 maxEdge를 넘으면 상한으로 축소
func Upscale(src image.Image, profile *ratio.Profile, maxEdge int) (*image.NRGBA, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	targetW, targetH := w*2, h*2
	if profile != nil {
		srcRatio := float64(w) / float64(h)
		if math.Abs(srcRatio-profile.Ratio()) < ratioTolerance &&
			w < profile.Width && h < profile.Height {
			targetW, targetH = profile.Width, profile.Height
		}
	}

	if maxEdge > 0 && (targetW > maxEdge || targetH > maxEdge) {
		scale := float64(maxEdge) / float64(targetW)
		if s := float64(maxEdge) / float64(targetH); s < scale {
			scale = s
		}
		targetW = int(float64(targetW)*scale + 0.5)
		targetH = int(float64(targetH)*scale + 0.5)
	}

	resized := imaging.Resize(src, targetW, targetH, imaging.Lanczos)
	return Sharpen(resized, DownloadAmount)
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
