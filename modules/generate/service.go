package generate

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"aigen-server/modules/common/compositor"
	"aigen-server/modules/common/gemini"
	"aigen-server/modules/common/model"
	"aigen-server/modules/common/ratio"
	"aigen-server/modules/history"
)

// MaxInputImages - 요청당 입력 이미지 상한
const MaxInputImages = 3

// ImageGenerator - 이미지 생성 클라이언트 (테스트에서 스텁으로 대체)
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, images []gemini.Image, aspectRatio string) (*gemini.Result, error)
}

// Archiver - 결과 아카이브 (선택 기능)
type Archiver interface {
	Archive(ctx context.Context, sessionID string, data []byte, mimeType string) error
}

type Service struct {
	generator ImageGenerator
	comp      *compositor.Compositor
	history   *history.Store
	archive   Archiver // nil이면 비활성
}

func NewService(generator ImageGenerator, comp *compositor.Compositor, hist *history.Store, archive Archiver) *Service {
	return &Service{
		generator: generator,
		comp:      comp,
		history:   hist,
		archive:   archive,
	}
}

// Generate - 단일 생성 플로우 (creation/edit/sketch/face)
// 에러는 해당 요청의 종료 상태로 그대로 반환되며 재시도하지 않음
func (s *Service) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	task := model.TaskType(req.Task)
	if !task.Valid() || task.IsBatch() {
		return nil, fmt.Errorf("invalid task type: %s", req.Task)
	}

	var profile *ratio.Profile
	if req.RatioID != "" {
		p, err := ratio.Lookup(req.RatioID)
		if err != nil {
			return nil, err
		}
		profile = p
	}

	var result *gemini.Result
	var err error

	if task == model.TaskCreation {
		// 텍스트 전용 생성: 프롬프트를 그대로 전달
		if req.Prompt == "" {
			return nil, fmt.Errorf("prompt is required for creation")
		}
		aspect := ""
		if profile != nil {
			aspect = profile.APIValue
		}
		result, err = s.generator.GenerateImage(ctx, req.Prompt, nil, aspect)
	} else {
		if len(req.Images) == 0 {
			return nil, fmt.Errorf("at least one input image is required for %s", task)
		}

		inputs := req.Images
		if len(inputs) > MaxInputImages {
			log.Printf("⚠️  Dropping %d extra input images (max %d)", len(inputs)-MaxInputImages, MaxInputImages)
			inputs = inputs[:MaxInputImages]
		}

		parts := make([]gemini.Image, 0, len(inputs))
		for i, in := range inputs {
			raw, decErr := base64.StdEncoding.DecodeString(in.Data)
			if decErr != nil {
				return nil, fmt.Errorf("%w: image #%d is not valid base64", compositor.ErrDecode, i+1)
			}
			payload, compErr := s.comp.Compose(raw, profile, task)
			if compErr != nil {
				return nil, compErr
			}
			parts = append(parts, gemini.Image{Data: payload.Data, MIMEType: payload.MIMEType})
		}

		aspect := ""
		if profile != nil {
			aspect = profile.APIValue
		}
		result, err = s.generator.GenerateImage(ctx, BuildPrompt(task, profile, req.Prompt), parts, aspect)
	}

	if err != nil {
		log.Printf("❌ Generation failed (task=%s): %v", task, err)
		return nil, err
	}

	entry := s.history.Append(req.SessionID, string(task), &history.Entry{
		Prompt: req.Prompt,
		Images: []history.Image{{
			Data:     base64.StdEncoding.EncodeToString(result.Data),
			MIMEType: result.MIMEType,
		}},
	})

	if s.archive != nil {
		go func(data []byte, mimeType string) {
			if archErr := s.archive.Archive(context.Background(), req.SessionID, data, mimeType); archErr != nil {
				log.Printf("⚠️  Failed to archive result (generation succeeded): %v", archErr)
			}
		}(result.Data, result.MIMEType)
	}

	return &GenerateResponse{
		Success:  true,
		Image:    base64.StdEncoding.EncodeToString(result.Data),
		MIMEType: result.MIMEType,
		EntryID:  entry.ID,
	}, nil
}
