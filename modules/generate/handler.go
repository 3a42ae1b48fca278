package generate

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"aigen-server/modules/common/compositor"
	"aigen-server/modules/common/gemini"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes - 라우터에 Generate 엔드포인트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/generate/submit", h.SubmitGeneration).Methods("POST", "OPTIONS")
	log.Println("✅ Generate routes registered: /api/generate/submit")
}

// SubmitGeneration - 단일 생성 요청 (동기 처리)
func (h *Handler) SubmitGeneration(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Failed to parse request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(GenerateResponse{Error: "Invalid request format"})
		return
	}

	if req.SessionID == "" || req.Task == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(GenerateResponse{Error: "Missing required fields: sessionId, task"})
		return
	}

	log.Printf("🎨 Generation request: task=%s, ratio=%s, images=%d", req.Task, req.RatioID, len(req.Images))

	resp, err := h.service.Generate(r.Context(), &req)
	if err != nil {
		w.WriteHeader(statusFor(err))
		json.NewEncoder(w).Encode(GenerateResponse{Error: err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// statusFor - 에러 분류를 HTTP 상태 코드로 변환
func statusFor(err error) int {
	var authErr *gemini.AuthError
	var noImg *gemini.NoImageError
	var apiErr *gemini.APIError

	switch {
	case errors.Is(err, compositor.ErrDecode):
		return http.StatusBadRequest
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.As(err, &noImg):
		return http.StatusUnprocessableEntity
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
