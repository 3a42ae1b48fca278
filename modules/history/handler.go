package history

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes - 라우터에 History 엔드포인트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/history", h.ListHistory).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/history/{entryId}", h.DeleteEntry).Methods("DELETE", "OPTIONS")
	log.Println("✅ History routes registered: /api/history, /api/history/{entryId}")
}

// ListHistory - 세션/탭의 히스토리 조회
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	tab := r.URL.Query().Get("tab")
	if sessionID == "" || tab == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "sessionId and tab are required",
		})
		return
	}

	entries := h.store.List(sessionID, tab)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"entries": entries,
	})
}

// DeleteEntry - 히스토리 항목 삭제
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	entryID := vars["entryId"]
	sessionID := r.URL.Query().Get("sessionId")
	tab := r.URL.Query().Get("tab")

	if !h.store.Delete(sessionID, tab, entryID) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "Entry not found",
		})
		return
	}

	log.Printf("🗑️  History entry deleted: %s", entryID)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
