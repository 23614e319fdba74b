// metrics.go — Prometheus HTTP метрики Price Portal.
// Регистрирует метрики: pp_http_requests_total, pp_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pp_http_requests_total",
			Help: "Общее количество HTTP-запросов к Price Portal",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pp_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Price Portal в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем UUID на {id} для предотвращения кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
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

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет UUID-сегменты пути на {id} для предотвращения
// взрывного роста кардинальности метрик.
// /api/price-groups/a1b2c3d4-... → /api/price-groups/{id}
func normalizePath(path string) string {
	// Раздача файлов: пути произвольные, сворачиваем целиком
	if strings.HasPrefix(path, "/files/") {
		return "/files/*"
	}

	// Статические пути — возвращаем как есть
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/auth/login",
		"/api/branches",
		"/api/announcements",
		"/api/price-groups",
		"/api/user-access",
		"/api/user-logs",
		"/api/access-requests",
		"/api/access-requests/me",
		"/api/telegram/send-image",
		"/api/admin/users",
		"/api/admin/price-groups",
		"/api/admin/announcements",
		"/api/admin/upload",
		"/api/admin/dashboard-stats":
		return path
	}

	// Динамические пути с UUID
	prefixes := []struct {
		prefix string
		result string
	}{
		{"/api/access-requests/", "/api/access-requests/{id}"},
		{"/api/price-groups/", "/api/price-groups/{id}"},
		{"/api/admin/users/", "/api/admin/users/{id}"},
		{"/api/admin/price-groups/", "/api/admin/price-groups/{id}"},
		{"/api/admin/price-group-images/", "/api/admin/price-group-images/{id}"},
		{"/api/admin/announcements/", "/api/admin/announcements/{id}"},
	}

	for _, p := range prefixes {
		if len(path) > len(p.prefix) && path[:len(p.prefix)] == p.prefix {
			suffix := ""
			// Проверяем суффиксы после UUID (36 символов)
			if len(path) > len(p.prefix)+36 {
				suffix = path[len(p.prefix)+36:]
			}
			switch suffix {
			case "/approve":
				return p.result + "/approve"
			case "/reject":
				return p.result + "/reject"
			case "/images":
				return p.result + "/images"
			case "/images/clear":
				return p.result + "/images/clear"
			case "/branches":
				return p.result + "/branches"
			case "/groups":
				return p.result + "/groups"
			default:
				return p.result
			}
		}
	}

	return path
}
