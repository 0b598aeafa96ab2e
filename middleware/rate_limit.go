package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"payments-authorizenet/logger"
	"payments-authorizenet/utils"
)

type RateLimiter struct {
	client *redis.Client
	log    *slog.Logger
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Message  string
}

var (
	// Card submissions are throttled hard to slow down card testing.
	paymentSubmitLimit = RateLimitConfig{
		Requests: 5,
		Window:   10 * time.Minute,
		Message:  "Too many payment attempts. Please wait a few minutes and try again.",
	}
	internalLimit = RateLimitConfig{
		Requests: 200,
		Window:   time.Minute,
		Message:  "Internal API rate limit exceeded.",
	}
	defaultLimit = RateLimitConfig{
		Requests: 60,
		Window:   time.Minute,
		Message:  "Rate limit exceeded. Please slow down your requests.",
	}
)

// NewRateLimiter shares client with the job queue.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client, log: logger.WithComponent("ratelimit")}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			config := configForRequest(r)
			key := rateLimitKey(r)

			allowed, remaining, resetTime, err := rl.checkRateLimit(r.Context(), key, config)
			if err != nil {
				// Redis trouble must not block checkouts.
				rl.log.Error("rate limit check failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.Requests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !allowed {
				rl.log.Warn("rate limit exceeded", "key", key, "path", r.URL.Path)
				w.Header().Set("Retry-After", strconv.FormatInt(int64(time.Until(resetTime).Seconds()), 10))
				utils.SendErrorResponse(w, http.StatusTooManyRequests, config.Message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func configForRequest(r *http.Request) RateLimitConfig {
	switch {
	case isPaymentSubmit(r):
		return paymentSubmitLimit
	case strings.HasPrefix(r.URL.Path, "/internal/"):
		return internalLimit
	default:
		return defaultLimit
	}
}

func rateLimitKey(r *http.Request) string {
	ip := ClientIP(r)
	if isPaymentSubmit(r) {
		return fmt.Sprintf("rate_limit:payment:%s", ip)
	}
	return fmt.Sprintf("rate_limit:default:%s:%s", ip, r.URL.Path)
}

// isPaymentSubmit matches a card form POST to /payments/{token}. Sub-paths
// such as the relay callback fall under the default limit.
func isPaymentSubmit(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	token, ok := strings.CutPrefix(r.URL.Path, "/payments/")
	return ok && token != "" && !strings.Contains(token, "/")
}

// ClientIP prefers proxy headers over RemoteAddr.
func ClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		ips := strings.Split(ip, ",")
		return strings.TrimSpace(ips[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

const rateLimitScript = `
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local now = ARGV[3]
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, 0, window_start - 1)

local current = redis.call('ZCARD', key)
if current < limit then
    redis.call('ZADD', key, now, now)
    redis.call('EXPIRE', key, ttl)
    return {1, limit - current - 1}
end
return {0, 0}
`

func (rl *RateLimiter) checkRateLimit(ctx context.Context, key string, config RateLimitConfig) (bool, int, time.Time, error) {
	// Scores and the window start are both in nanoseconds.
	now := time.Now()
	windowStart := now.Truncate(config.Window)
	windowEnd := windowStart.Add(config.Window)

	result, err := rl.client.Eval(ctx, rateLimitScript, []string{key},
		windowStart.UnixNano(), config.Requests, now.UnixNano(), int(config.Window.Seconds())).Result()
	if err != nil {
		return false, 0, time.Time{}, err
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, time.Time{}, fmt.Errorf("unexpected redis result format")
	}
	allowed, ok1 := values[0].(int64)
	remaining, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return false, 0, time.Time{}, fmt.Errorf("failed to parse redis result")
	}

	return allowed == 1, int(remaining), windowEnd, nil
}
