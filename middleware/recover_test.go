// ABOUTME: Tests for panic recovery and body limit middleware
// ABOUTME: Verifies panics become 500s, abort panics propagate and large bodies are cut off

package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRecover_PanicBecomes500(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantJSON bool
	}{
		{"page", "/art/a1", false},
		{"api", "/api/v1/session", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Recover(func(w http.ResponseWriter, r *http.Request) {
				panic("boom")
			})

			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != http.StatusInternalServerError {
				t.Errorf("Status = %d, want 500", rec.Code)
			}
			isJSON := strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json")
			if isJSON != tt.wantJSON {
				t.Errorf("JSON body = %v, want %v", isJSON, tt.wantJSON)
			}
			if strings.Contains(rec.Body.String(), "boom") {
				t.Error("panic value leaked into the response")
			}
		})
	}
}

func TestRecover_PassesThrough(t *testing.T) {
	handler := Recover(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if rec.Code != http.StatusCreated {
		t.Errorf("Status = %d, want 201", rec.Code)
	}
}

func TestRecover_RepanicsAbortHandler(t *testing.T) {
	handler := Recover(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()
	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestMaxBody(t *testing.T) {
	var readErr error
	handler := MaxBody(10)(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 100))))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("declared oversize: Status = %d, want 413", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 100)))
	req.ContentLength = -1
	handler(httptest.NewRecorder(), req)
	if readErr == nil {
		t.Error("undeclared oversize body read without error")
	}
}
