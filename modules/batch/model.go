package batch

import (
	"sync"
	"time"
)

// InputImage - 요청에 실려오는 입력 이미지 (base64)
type InputImage struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// Item - 런 내 이미지 1장의 처리 슬롯
// 인덱스 0이 레퍼런스, 나머지가 팔로워
type Item struct {
	Index    int    `json:"index"`
	Status   string `json:"status"` // pending, processing, done, error
	Result   string `json:"result,omitempty"` // base64
	MIMEType string `json:"mimeType,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Run - 배치 런. 레퍼런스 결과와 지시문은 1단계 완료 후에만 채워짐
type Run struct {
	mu sync.Mutex

	RunID       string    `json:"runId"`
	SessionID   string    `json:"sessionId"`
	Seq         int64     `json:"seq"`
	Prompt      string    `json:"prompt"`
	RatioID     string    `json:"ratioId"`
	Status      string    `json:"status"`
	Instruction string    `json:"instruction,omitempty"`
	Items       []Item    `json:"items"`
	CreatedAt   time.Time `json:"createdAt"`

	// 원본 입력과 레퍼런스 결과 (응답에는 싣지 않음)
	sources       [][]byte
	referenceData []byte
	referenceMIME string
}

// Snapshot - 락을 잡고 직렬화 가능한 사본 반환
func (r *Run) Snapshot() *Run {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]Item, len(r.Items))
	copy(items, r.Items)
	return &Run{
		RunID:       r.RunID,
		SessionID:   r.SessionID,
		Seq:         r.Seq,
		Prompt:      r.Prompt,
		RatioID:     r.RatioID,
		Status:      r.Status,
		Instruction: r.Instruction,
		Items:       items,
		CreatedAt:   r.CreatedAt,
	}
}

// SubmitRequest - HTTP API 요청 구조체
type SubmitRequest struct {
	SessionID string       `json:"sessionId"`
	Prompt    string       `json:"prompt"`
	RatioID   string       `json:"ratioId"`
	Images    []InputImage `json:"images"`
}

// SubmitResponse - HTTP API 응답 구조체
type SubmitResponse struct {
	Success bool   `json:"success"`
	RunID   string `json:"runId,omitempty"`
	Total   int    `json:"total,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RegenerateRequest - 단일 인덱스 재생성 요청
type RegenerateRequest struct {
	RunID string `json:"runId"`
	Index int    `json:"index"`
}
