package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"memorybook/internal/gate"
	"memorybook/internal/guestbook"
	"memorybook/internal/lookup"
	"memorybook/internal/rowstore"
)

func newTestRouter(t *testing.T, store *rowstore.Memory) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	page := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(page, []byte("<html>Memory of SWC 2568</html>"), 0o644); err != nil {
		t.Fatalf("write page: %v", err)
	}

	gb := guestbook.New(store, nil, gate.NewInMemory(time.Second), "Guestbook", time.UTC)
	lk := lookup.New(store, []string{"6_1", "6_3"})
	h := New(lk, gb, page, nil, nil)

	r := gin.New()
	r.GET("/", h.Root)
	r.POST("/", h.SubmitEntry)
	r.GET("/api/student", h.Student)
	r.GET("/healthz", h.Healthz)
	return r
}

func TestHealthzReportsCollaborators(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name      string
		store     HealthFunc
		redis     HealthFunc
		wantCode  int
		wantStore bool
		wantRedis bool
	}{
		{"all healthy", healthFunc(true), healthFunc(true), http.StatusOK, true, true},
		{"unchecked collaborators pass", nil, nil, http.StatusOK, true, true},
		{"store down", healthFunc(false), healthFunc(true), http.StatusServiceUnavailable, false, true},
		{"redis down", healthFunc(true), healthFunc(false), http.StatusServiceUnavailable, true, false},
	}
	for _, tc := range cases {
		h := New(nil, nil, "", tc.store, tc.redis)
		r := gin.New()
		r.GET("/healthz", h.Healthz)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if w.Code != tc.wantCode {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.wantCode, w.Code)
		}
		var body struct {
			Store bool `json:"store"`
			Redis bool `json:"redis"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if body.Store != tc.wantStore || body.Redis != tc.wantRedis {
			t.Fatalf("%s: expected store=%v redis=%v, got %s", tc.name, tc.wantStore, tc.wantRedis, w.Body.String())
		}
	}
}

func healthFunc(ok bool) HealthFunc {
	return func(ctx context.Context) bool { return ok }
}

func TestRootServesPage(t *testing.T) {
	r := newTestRouter(t, rowstore.NewMemory())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Memory of SWC 2568") {
		t.Fatalf("page not served: %s", w.Body.String())
	}
}

func TestGuestbookRoundTrip(t *testing.T) {
	r := newTestRouter(t, rowstore.NewMemory())

	body := `{"name":"Somchai","role":"alumni","message":"Congrats!"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var submitResp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &submitResp); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if submitResp["result"] != "success" {
		t.Fatalf("expected success result, got %v", submitResp)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?action=getGuestbook", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("feed: expected 200, got %d", w.Code)
	}
	var entries []guestbook.Entry
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Name != "Somchai" || entries[0].Role != "alumni" {
		t.Fatalf("wrong entry: %+v", entries[0])
	}
}

func TestSubmitRejectsBadInput(t *testing.T) {
	r := newTestRouter(t, rowstore.NewMemory())

	cases := map[string]string{
		"empty name":     `{"name":"","message":"hi"}`,
		"profanity":      `{"name":"A","message":"fuck this"}`,
		"malformed body": `{"name":`,
	}
	for label, body := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", label, w.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: decode: %v", label, err)
		}
		if resp["result"] != "error" || resp["error"] == "" {
			t.Fatalf("%s: expected tagged error result, got %v", label, resp)
		}
	}
}

func TestStudentLookupEndpoint(t *testing.T) {
	store := rowstore.NewMemory()
	store.Seed("6_3", []string{"ID", "Name", "Class", "VideoLink", "LetterText"},
		[]string{"12345", "Somsri", "6/3", "https://vtr/3", "letter three"},
	)
	r := newTestRouter(t, store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/student?id=12345", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var res struct {
		Status string `json:"status"`
		Data   *struct {
			Name           string `json:"name"`
			Class          string `json:"class"`
			TeacherVTRLink string `json:"teacherVtrLink"`
			Letter         string `json:"privateLetterText"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != "success" || res.Data == nil || res.Data.TeacherVTRLink != "https://vtr/3" {
		t.Fatalf("unexpected lookup response: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/student?id=00000", nil))
	var missing struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &missing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if missing.Status != "not_found" {
		t.Fatalf("expected not_found, got %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/student", nil))
	var empty struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &empty); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if empty.Status != "error" {
		t.Fatalf("expected error for missing id, got %s", w.Body.String())
	}
}
