package analyze

import (
	"context"
	"log"

	"aigen-server/modules/common/compositor"
	"aigen-server/modules/common/gemini"
)

// TextGenerator - 텍스트 응답 전용 클라이언트 (테스트에서 스텁으로 대체)
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, images []gemini.Image) (string, error)
}

type Service struct {
	generator TextGenerator
	comp      *compositor.Compositor
}

func NewService(generator TextGenerator, comp *compositor.Compositor) *Service {
	return &Service{generator: generator, comp: comp}
}

// DescribeDelta - (원본, 수정본) 쌍의 시각적 차이를 편집 지시문으로 요약
// 어떤 실패든 빈 문자열을 반환하고 에러를 올리지 않음.
// 호출자는 빈 문자열이면 사용자 프롬프트로 폴백함
func (s *Service) DescribeDelta(ctx context.Context, original []byte, edited []byte, editedMIME string) string {
	// 원본은 페이로드 크기를 줄이기 위해 비율 변경 없이 압축
	payload, err := s.comp.Compose(original, nil, "")
	if err != nil {
		log.Printf("⚠️  Delta analysis skipped (original not decodable): %v", err)
		return ""
	}

	if editedMIME == "" {
		editedMIME = "image/png"
	}

	text, err := s.generator.GenerateText(ctx, deltaPrompt, []gemini.Image{
		{Data: payload.Data, MIMEType: payload.MIMEType},
		{Data: edited, MIMEType: editedMIME},
	})
	if err != nil {
		// soft-fail: 분석 실패는 배치를 멈추지 않음
		log.Printf("⚠️  Delta analysis failed, caller will fall back to user prompt: %v", err)
		return ""
	}

	log.Printf("🔍 Delta instruction derived (%d chars)", len(text))
	return text
}
