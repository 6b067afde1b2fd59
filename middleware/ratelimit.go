package middleware

import (
	"fmt"
	"net"
	"net/http"

	"github.com/Dosada05/league-system/resilience"
)

// RateLimit оборачивает группу маршрутов в лимитер реестра: ключом
// выступает (операция, клиентский IP). Брейкеры остаются в сервисном
// слое, где вызов можно безопасно ограничить по времени.
func RateLimit(registry *resilience.Registry, op resilience.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dec := registry.Allow(r.Context(), op, clientIP(r))
			if !dec.Allowed {
				if dec.RetryAfter > 0 {
					w.Header().Set("Retry-After", fmt.Sprintf("%.0f", dec.RetryAfter.Seconds()))
				}
				http.Error(w, "rate limit exceeded for "+op.String(), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
