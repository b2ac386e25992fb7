package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/main", "/api/main"},
		{"/api/movie/42", "/api/movie/{id}"},
		{"/api/update/7", "/api/update/{id}"},
		{"/api/delete/1", "/api/delete/{id}"},
		{"/api/files/download/3f2b.png", "/api/files/download/{name}"},
		{"/api/movie/", "other"},
		{"/health/ready", "/health/ready"},
		{"/random/path", "other"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, ожидалось %q", tt.path, got, tt.want)
		}
	}
}

func TestRequestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte("abc"))
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/main", nil))

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("лог не в формате JSON: %v (%s)", err, buf.String())
		}
		if entry["level"] != tt.level {
			t.Errorf("статус %d: уровень %v, ожидался %s", tt.status, entry["level"], tt.level)
		}
		if entry["bytes"] != float64(3) || entry["component"] != "http" {
			t.Errorf("лог = %v", entry)
		}
	}
}

func TestCORS_Restricted(t *testing.T) {
	h := CORS("http://localhost:3000")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/main", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("разрешённый origin: Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/main", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("чужой origin: Access-Control-Allow-Origin = %q, ожидалось пусто", got)
	}
}

func TestCORS_HealthOpen(t *testing.T) {
	h := CORS("http://localhost:3000")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://anything.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("/api/health должен быть доступен с любого origin")
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS("http://localhost:3000")(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/add", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost) {
		t.Errorf("Access-Control-Allow-Methods = %q, ожидался POST", rec.Header().Get("Access-Control-Allow-Methods"))
	}
}

// TestCORS_PreflightHead — HEAD к GET-маршрутам разрешён для настроенного origin.
func TestCORS_PreflightHead(t *testing.T) {
	h := CORS("http://localhost:3000")(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/files/download/photo.png", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodHead)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), http.MethodHead) {
		t.Errorf("Access-Control-Allow-Methods = %q, ожидался HEAD", rec.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2)(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/main", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("запрос #%d: статус %d, ожидался 200", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/main", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("статус %d, ожидался 429", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "RATE_LIMITED") {
		t.Errorf("тело = %s, ожидался код RATE_LIMITED", rec.Body.String())
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	h := RateLimit(0)(okHandler())
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/main", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("запрос #%d: статус %d при выключенном лимите", i+1, rec.Code)
		}
	}
}
