package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wixandwax/storefront-backend/api/responses"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
	"github.com/wixandwax/storefront-backend/pkg/logger"
)

// RateLimitStore counts hits in fixed windows.
type RateLimitStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy throttles one traffic surface by client IP and, for bodies
// carrying an email, by a hash of that email. A zero limit disables that
// counter.
type RateLimitPolicy struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func NewRateLimitPolicy(name string, window time.Duration, perIP, perEmail int) RateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "public"
	}
	return RateLimitPolicy{Name: name, Window: window, PerIP: perIP, PerEmail: perEmail}
}

type rateCounter struct {
	dimension string
	subject   string
	limit     int
}

// RateLimit answers 429 with Retry-After once any counter passes its limit.
// A store failure lets the request through; throttling is not worth an
// outage at checkout.
func RateLimit(policy RateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || policy.Window <= 0 || (policy.PerIP <= 0 && policy.PerEmail <= 0) {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			counters, err := policy.counters(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			for _, c := range counters {
				scope := policy.Name + ":" + c.dimension + ":" + c.subject
				allowed, hits, err := store.FixedWindowAllow(ctx, scope, int64(c.limit), policy.Window)
				if err != nil {
					if logg != nil {
						logg.Warn(logg.WithField(ctx, "error", err.Error()), "http.rate_limit.store_unavailable")
					}
					break
				}
				if !allowed {
					policy.reject(ctx, logg, w, c, hits)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// counters reads the body only when an email counter is configured and puts
// it back for the handler.
func (p RateLimitPolicy) counters(r *http.Request) ([]rateCounter, error) {
	var out []rateCounter
	if ip := clientIP(r); p.PerIP > 0 && ip != "" {
		out = append(out, rateCounter{dimension: "ip", subject: ip, limit: p.PerIP})
	}
	if p.PerEmail <= 0 || r.Body == nil {
		return out, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRateLimitPeek))
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))

	var probe struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &probe) == nil {
		if email := strings.ToLower(strings.TrimSpace(probe.Email)); email != "" {
			sum := sha256.Sum256([]byte(email))
			out = append(out, rateCounter{dimension: "email", subject: hex.EncodeToString(sum[:8]), limit: p.PerEmail})
		}
	}
	return out, nil
}

const maxRateLimitPeek = 1 << 20

func (p RateLimitPolicy) reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, c rateCounter, hits int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":    p.Name,
			"dimension": c.dimension,
			"subject":   c.subject,
			"hits":      hits,
			"limit":     c.limit,
		}), "http.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(p.Window.Round(time.Second).Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "Too many requests, slow down"))
}

// clientIP trusts the first X-Forwarded-For hop; the API only runs behind the
// load balancer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
