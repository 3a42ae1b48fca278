package gemini

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// AuthError - API 키가 유효하지 않음. 키를 바꾸기 전에는 재시도 의미 없음
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// APIError - 서버가 거부한 요청. 원본 메시지를 그대로 보존해서 클라이언트에 전달
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("api error (%d): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api error: %s", e.Message)
}

// NoImageError - 응답은 성공했지만 이미지 파트가 없음
// 모델이 거절 사유를 텍스트로 보낸 경우 그 텍스트가 에러 메시지가 됨
type NoImageError struct {
	Text string
}

func (e *NoImageError) Error() string {
	if e.Text != "" {
		return e.Text
	}
	return "model returned no image"
}

// classify - genai 에러를 인증/일반 API 에러로 분류
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 401 || apiErr.Code == 403 {
			return &AuthError{Message: apiErr.Message}
		}
		return &APIError{Code: apiErr.Code, Message: apiErr.Message}
	}

	// SDK가 구조화된 에러를 못 주는 경우 문자열 패턴으로 판별
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "api key not valid") {
		return &AuthError{Message: msg}
	}
	return &APIError{Message: msg}
}
