package batch

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"aigen-server/modules/common/compositor"
	"aigen-server/modules/history"
)

func TestRegenerateRejectsOutOfRangeIndex(t *testing.T) {
	svc := NewService(&stubGen{}, &stubAnalyzer{}, compositor.New(1280), history.NewStore(), nil, nil)
	run := submitRun(t, svc, 3)

	router := mux.NewRouter()
	NewHandler(svc, nil).RegisterRoutes(router)

	for _, body := range []string{
		`{"runId":"` + run.RunID + `","index":3}`,
		`{"runId":"` + run.RunID + `","index":-1}`,
	} {
		req := httptest.NewRequest("POST", "/api/batch/regenerate", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400 (body %s)", rec.Code, body)
		}
	}
}

func TestRegenerateUnknownRunReturns404(t *testing.T) {
	svc := NewService(&stubGen{}, &stubAnalyzer{}, compositor.New(1280), history.NewStore(), nil, nil)

	router := mux.NewRouter()
	NewHandler(svc, nil).RegisterRoutes(router)

	req := httptest.NewRequest("POST", "/api/batch/regenerate", strings.NewReader(`{"runId":"missing","index":0}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
