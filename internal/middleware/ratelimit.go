package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/ammarkhassawneh/mlops-accidents/internal/limiter"
	"github.com/ammarkhassawneh/mlops-accidents/internal/reliability"
)

// RateLimiter is satisfied by *limiter.TokenBucketLimiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, int, error)
	Ceiling() int
}

// RateLimit guards the authentication endpoints per client address. An
// exceeded ceiling answers 429 before any business logic or storage
// write; the attempt still reaches the metrics counter because the
// Observer wraps this middleware.
func RateLimit(l RateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ratelimit:auth:" + clientIP(r)

			allowed, remaining, err := l.Allow(r.Context(), key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.Ceiling()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if err != nil && !errors.Is(err, limiter.ErrRateLimitExceeded) {
				// Limiter store is down; fail open rather than locking
				// everyone out of login.
				if reliability.ShouldAllow(reliability.FailOpen, err) {
					log.Printf("rate limiter unavailable (fail open): %v", err)
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			if !allowed {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
