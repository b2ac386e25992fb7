// metrics.go — Prometheus HTTP метрики Movie Catalog.
// Регистрирует метрики: mc_http_requests_total, mc_http_request_duration_seconds.
// Нормализация путей предотвращает взрывной рост кардинальности.
package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mc_http_requests_total",
			Help: "Общее количество HTTP-запросов к Movie Catalog",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mc_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Movie Catalog в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			status := strconv.Itoa(wrapped.statusCode)
			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *metricsResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("ResponseWriter не поддерживает Hijack")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// dynamicPrefixes — маршруты с параметром в последнем сегменте.
var dynamicPrefixes = []struct {
	prefix  string
	pattern string
}{
	{"/api/movie/", "/api/movie/{id}"},
	{"/api/update/", "/api/update/{id}"},
	{"/api/delete/", "/api/delete/{id}"},
	{"/api/files/download/", "/api/files/download/{name}"},
}

// normalizePath заменяет ID фильмов и имена файлов на шаблон маршрута.
// /api/movie/42 → /api/movie/{id}
// Неизвестные пути сводятся к "other".
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics", "/ws",
		"/api/health", "/api/main", "/api/movies", "/api/movies/filter",
		"/api/movies/sort", "/api/add", "/api/files/upload", "/api/files/list",
		"/api/openapi.yaml":
		return path
	}

	for _, d := range dynamicPrefixes {
		if strings.HasPrefix(path, d.prefix) && len(path) > len(d.prefix) {
			return d.pattern
		}
	}

	return "other"
}
