package generate

// InputImage - 요청에 실려오는 입력 이미지 (base64)
type InputImage struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// GenerateRequest - HTTP API 요청 구조체
type GenerateRequest struct {
	SessionID string       `json:"sessionId"`
	Task      string       `json:"task"`    // creation, edit, sketch, face
	Prompt    string       `json:"prompt"`
	RatioID   string       `json:"ratioId"` // square, landscape, portrait, standard (빈 값 허용)
	Images    []InputImage `json:"images"`
}

// GenerateResponse - HTTP API 응답 구조체
type GenerateResponse struct {
	Success  bool   `json:"success"`
	Image    string `json:"image,omitempty"` // base64
	MIMEType string `json:"mimeType,omitempty"`
	EntryID  string `json:"entryId,omitempty"`
	Error    string `json:"error,omitempty"`
}
