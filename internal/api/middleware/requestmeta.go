// requestmeta.go — извлечение IP и User-Agent источника запроса
// для записи в журнал действий.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

const (
	// ContextKeyClientIP — IP источника запроса в контексте.
	ContextKeyClientIP contextKey = "client_ip"
	// ContextKeyUserAgent — User-Agent источника запроса в контексте.
	ContextKeyUserAgent contextKey = "user_agent"
)

// RequestMeta возвращает middleware, помещающий IP и User-Agent
// источника запроса в контекст. Должен стоять до JWT middleware,
// чтобы метаданные были доступны всем handlers.
func RequestMeta() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), ContextKeyClientIP, clientIP(r))
			ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientIP возвращает IP источника запроса.
// Приоритет: X-Forwarded-For (левый IP) → X-Real-Ip → RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		// Формат XFF: client, proxy1, proxy2
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if xrip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); xrip != "" {
		return xrip
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if addr := strings.TrimSpace(r.RemoteAddr); addr != "" {
		return addr
	}
	return "unknown"
}

// userAgent возвращает User-Agent запроса или "unknown".
func userAgent(r *http.Request) string {
	if ua := r.Header.Get("User-Agent"); ua != "" {
		return ua
	}
	return "unknown"
}

// ClientIPFromContext извлекает IP источника из контекста.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(ContextKeyClientIP).(string)
	if ip == "" {
		return "unknown"
	}
	return ip
}

// UserAgentFromContext извлекает User-Agent источника из контекста.
func UserAgentFromContext(ctx context.Context) string {
	ua, _ := ctx.Value(ContextKeyUserAgent).(string)
	if ua == "" {
		return "unknown"
	}
	return ua
}
