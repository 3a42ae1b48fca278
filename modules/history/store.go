package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxEntries - 탭당 보관하는 최대 히스토리 개수
const MaxEntries = 5

// Image - 히스토리에 저장되는 결과 이미지 (base64)
type Image struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// Entry - 히스토리 항목. 단일 결과 1장 또는 배치 결과 폴더
type Entry struct {
	ID        string    `json:"id"`
	Folder    bool      `json:"folder"`
	RunID     string    `json:"runId,omitempty"`
	Images    []Image   `json:"images"`
	Prompt    string    `json:"prompt,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store - 세션별/탭별 히스토리 링. 메모리 전용, 최신순, 탭당 최대 5개
type Store struct {
	mu      sync.Mutex
	entries map[string]map[string][]*Entry // sessionID -> tab -> ring
}

func NewStore() *Store {
	return &Store{
		entries: make(map[string]map[string][]*Entry),
	}
}

// Append - 새 항목을 맨 앞에 추가, 초과분은 뒤에서 버림
func (s *Store) Append(sessionID, tab string, e *Entry) *Entry {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tabs, ok := s.entries[sessionID]
	if !ok {
		tabs = make(map[string][]*Entry)
		s.entries[sessionID] = tabs
	}

	ring := append([]*Entry{e}, tabs[tab]...)
	if len(ring) > MaxEntries {
		ring = ring[:MaxEntries]
	}
	tabs[tab] = ring
	return e
}

// List - 탭의 히스토리 최신순 반환
func (s *Store) List(sessionID, tab string) []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	ring := s.entries[sessionID][tab]
	out := make([]*Entry, len(ring))
	copy(out, ring)
	return out
}

// Delete - 항목 삭제. 없으면 false
func (s *Store) Delete(sessionID, tab, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ring := s.entries[sessionID][tab]
	for i, e := range ring {
		if e.ID == id {
			s.entries[sessionID][tab] = append(ring[:i], ring[i+1:]...)
			return true
		}
	}
	return false
}
