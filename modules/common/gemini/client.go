package gemini

import (
	"context"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"
)

// Image - API로 보내는 인라인 이미지
type Image struct {
	Data     []byte
	MIMEType string
}

// Result - 생성된 이미지 응답
type Result struct {
	Data     []byte
	MIMEType string
}

// Client - Gemini API 래퍼
// 생성 시점에 주입된 키만 사용하고, 이후 키를 바꾸지 않음
type Client struct {
	genaiClient *genai.Client
	imageModel  string
	textModel   string
}

// NewClient - Genai 클라이언트 초기화
func NewClient(ctx context.Context, apiKey, imageModel, textModel string) (*Client, error) {
	if apiKey == "" {
		return nil, &AuthError{Message: "missing API key"}
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	log.Printf("✅ Genai client initialized (image: %s, text: %s)", imageModel, textModel)
	return &Client{
		genaiClient: genaiClient,
		imageModel:  imageModel,
		textModel:   textModel,
	}, nil
}

// GenerateImage - 프롬프트(+선택적 입력 이미지)로 이미지 1장 생성
// 실패 시 호출자가 재시도하지 않음. 에러는 분류해서 그대로 반환
func (c *Client) GenerateImage(ctx context.Context, prompt string, images []Image, aspectRatio string) (*Result, error) {
	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: img.MIMEType,
				Data:     img.Data,
			},
		})
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	content := &genai.Content{Parts: parts}

	genConfig := &genai.GenerateContentConfig{}
	if aspectRatio != "" {
		genConfig.ImageConfig = &genai.ImageConfig{AspectRatio: aspectRatio}
	}

	log.Printf("📤 Sending request to Gemini API (%d image parts, aspect: %s)", len(images), aspectRatio)
	result, err := c.genaiClient.Models.GenerateContent(
		ctx,
		c.imageModel,
		[]*genai.Content{content},
		genConfig,
	)
	if err != nil {
		return nil, classify(err)
	}

	out, err := ExtractImage(result)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Received image from Gemini: %d bytes", len(out.Data))
	return out, nil
}

// textGenConfig - 차이 분석은 텍스트 응답만 요구하므로 모달리티 고정
func textGenConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT"},
	}
}

// GenerateText - 이미지 입력을 받아 텍스트 응답만 생성 (차이 분석용)
func (c *Client) GenerateText(ctx context.Context, prompt string, images []Image) (string, error) {
	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: img.MIMEType,
				Data:     img.Data,
			},
		})
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	result, err := c.genaiClient.Models.GenerateContent(
		ctx,
		c.textModel,
		[]*genai.Content{{Parts: parts}},
		textGenConfig(),
	)
	if err != nil {
		return "", classify(err)
	}

	text := ExtractText(result)
	if text == "" {
		return "", fmt.Errorf("empty text response")
	}
	return text, nil
}

// ExtractImage - 응답에서 첫 번째 이미지 파트 추출
// 이미지가 없으면 텍스트 파트를 에러 메시지로 사용
func ExtractImage(result *genai.GenerateContentResponse) (*Result, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, &NoImageError{}
	}

	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = "image/png"
				}
				return &Result{Data: part.InlineData.Data, MIMEType: mimeType}, nil
			}
		}
	}

	// 이미지 파트 없음 - 모델이 보낸 텍스트(거절 사유 등)를 그대로 에러로
	return nil, &NoImageError{Text: ExtractText(result)}
}

// ExtractText - 응답의 텍스트 파트를 이어붙여 반환
func ExtractText(result *genai.GenerateContentResponse) string {
	if result == nil {
		return ""
	}
	var sb strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
	}
	return strings.TrimSpace(sb.String())
}
