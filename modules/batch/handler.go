package batch

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
)

type Handler struct {
	service *Service
	rdb     *redis.Client
}

func NewHandler(service *Service, rdb *redis.Client) *Handler {
	return &Handler{service: service, rdb: rdb}
}

// RegisterRoutes - 라우터에 Batch 엔드포인트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/batch/submit", h.SubmitRun).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/batch/status/{runId}", h.GetRunStatus).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/batch/regenerate", h.RegenerateItem).Methods("POST", "OPTIONS")
	log.Println("✅ Batch routes registered: /api/batch/submit, /api/batch/status/{runId}, /api/batch/regenerate")
}

// SubmitRun - 배치 런 제출 (Redis Queue에 추가)
func (h *Handler) SubmitRun(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Failed to parse request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(SubmitResponse{Error: "Invalid request format"})
		return
	}

	if req.SessionID == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(SubmitResponse{Error: "Missing required field: sessionId"})
		return
	}

	run, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(SubmitResponse{Error: err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(SubmitResponse{
		Success: true,
		RunID:   run.RunID,
		Total:   len(run.Items),
	})
}

// GetRunStatus - 런 상태 조회
func (h *Handler) GetRunStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	run, err := h.service.Status(vars["runId"])
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(run)
}

// RegenerateItem - 단일 인덱스 재생성 (큐 경유)
func (h *Handler) RegenerateItem(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req RegenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Invalid request format"})
		return
	}

	run, err := h.service.Status(req.RunID)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	if req.Index < 0 || req.Index >= len(run.Items) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Index out of range"})
		return
	}

	if err := EnqueueRegen(r.Context(), h.rdb, req.RunID, req.Index); err != nil {
		log.Printf("❌ Failed to enqueue regen: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "Failed to enqueue regeneration"})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
