package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/coffeeworth/coffeeworth-backend/api/responses"
	"github.com/coffeeworth/coffeeworth-backend/pkg/config"
	pkgerrors "github.com/coffeeworth/coffeeworth-backend/pkg/errors"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
)

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy describes one fixed window limit keyed by scope and client IP.
type RateLimitPolicy struct {
	Scope  string
	Limit  int64
	Window time.Duration
}

// SupportCreatePolicy limits anonymous support creation per client IP.
func SupportCreatePolicy(cfg config.RateLimitConfig) RateLimitPolicy {
	return RateLimitPolicy{Scope: "support_create", Limit: int64(cfg.SupportIPLimit), Window: cfg.SupportWindow}
}

// PaymentConfirmPolicy limits payment confirmation attempts per client IP.
func PaymentConfirmPolicy(cfg config.RateLimitConfig) RateLimitPolicy {
	return RateLimitPolicy{Scope: "payment_confirm", Limit: int64(cfg.ConfirmIPLimit), Window: cfg.ConfirmWindow}
}

// RateLimit enforces the supplied per-IP policy. A nil store or a Redis
// failure lets the request through; availability wins over strictness here.
func RateLimit(store rateLimiterStore, logg *logger.Logger, policy RateLimitPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if store == nil || policy.Limit <= 0 || policy.Window <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			scope := fmt.Sprintf("%s:%s", policy.Scope, clientIP(r))
			allowed, count, err := store.FixedWindowAllow(ctx, scope, policy.Limit, policy.Window)
			if err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "rate_limit.store_unavailable")
				}
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				err := pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests").
					WithDetails(map[string]any{"retry_after_seconds": int(policy.Window.Seconds())})
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"scope": policy.Scope,
						"count": count,
					}), "rate_limit.exceeded")
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(policy.Window.Seconds())))
				responses.WriteError(ctx, logg, w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
