package export

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"aigen-server/modules/common/compositor"
)

// ExportRequest - HTTP API 요청 구조체
type ExportRequest struct {
	Data    string `json:"data"` // base64
	RatioID string `json:"ratioId"`
	Format  string `json:"format"` // png (기본) 또는 webp
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes - 라우터에 Export 엔드포인트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/export", h.ExportImage).Methods("POST", "OPTIONS")
	log.Println("✅ Export routes registered: /api/export")
}

// ExportImage - 결과 이미지를 다운로드용으로 변환해 바이너리로 반환
func (h *Handler) ExportImage(w http.ResponseWriter, r *http.Request) {
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	raw, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "data is not valid base64")
		return
	}

	out, mimeType, err := h.service.Export(raw, req.RatioID, req.Format)
	if err != nil {
		log.Printf("❌ Export failed: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, compositor.ErrDecode) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	ext := "png"
	if mimeType == "image/webp" {
		ext = "webp"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="aigen-result.%s"`, ext))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
