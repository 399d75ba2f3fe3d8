// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pamojakenya/backend/internal/core"
)

// KeyFunc names the bucket a request draws from.
type KeyFunc func(*http.Request) string

// RateLimiter enforces a GCRA limit in Redis and falls back to an
// in-process token bucket while Redis is unreachable.
type RateLimiter struct {
	name       string
	rdb        *core.Redis
	remote     *redis_rate.Limiter
	local      *localLimiter
	limit      redis_rate.Limit
	key        KeyFunc
	skip       func(*http.Request) bool
	failClosed bool
}

type LimiterOption func(*RateLimiter)

func WithKey(fn KeyFunc) LimiterOption {
	return func(rl *RateLimiter) { rl.key = fn }
}

func WithSkip(fn func(*http.Request) bool) LimiterOption {
	return func(rl *RateLimiter) { rl.skip = fn }
}

// FailClosed answers 503 when neither Redis nor the local fallback can
// decide. The default is to let the request through.
func FailClosed() LimiterOption {
	return func(rl *RateLimiter) { rl.failClosed = true }
}

func NewRateLimiter(
	name string,
	rdb *core.Redis,
	limit redis_rate.Limit,
	opts ...LimiterOption,
) *RateLimiter {
	rl := &RateLimiter{
		name:   name,
		rdb:    rdb,
		remote: redis_rate.NewLimiter(rdb.Client),
		local:  &localLimiter{},
		limit:  limit,
		key:    ClientIP,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.skip != nil && rl.skip(r) {
			next.ServeHTTP(w, r)
			return
		}

		key := rl.rdb.Key("ratelimit", rl.name, rl.key(r))
		res, err := rl.allow(r.Context(), key)
		if err != nil {
			if rl.failClosed {
				core.JSON(w, http.StatusServiceUnavailable, core.Response{
					Error: &core.ErrorBody{
						Code:    "RATE_LIMITER_UNAVAILABLE",
						Message: "rate limiter unavailable",
					},
				})
				return
			}
			LoggerFrom(r.Context()).Warn("rate limiter failing open", "limiter", rl.name, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		writeLimitHeaders(w, res)
		if res.Allowed == 0 {
			writeLimited(w, res)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ctx context.Context, key string) (*redis_rate.Result, error) {
	res, err := rl.remote.Allow(ctx, key, rl.limit)
	if err == nil {
		return res, nil
	}
	return rl.local.allow(key, rl.limit)
}

// GlobalLimiter caps every request per client address.
func GlobalLimiter(rdb *core.Redis, limit redis_rate.Limit) func(http.Handler) http.Handler {
	return NewRateLimiter("global", rdb, limit).Handler
}

// CredentialLimiter slows password guessing on login and register. It keys
// on client address and endpoint because the caller is not signed in yet.
func CredentialLimiter(rdb *core.Redis, limit redis_rate.Limit) func(http.Handler) http.Handler {
	return NewRateLimiter("credentials", rdb, limit,
		WithKey(func(r *http.Request) string {
			return ClientIP(r) + ":" + normalizeEndpoint(r.URL.Path)
		}),
		FailClosed(),
	).Handler
}

// SubmissionLimiter throttles payment, share, claim and application
// submissions per member so one account cannot flood the review queue. It
// must run after Authenticator. Reads and admins are never throttled.
func SubmissionLimiter(rdb *core.Redis, limit redis_rate.Limit) func(http.Handler) http.Handler {
	return NewRateLimiter("submissions", rdb, limit,
		WithKey(MemberEndpoint),
		WithSkip(func(r *http.Request) bool {
			return r.Method == http.MethodGet || IsAdmin(r.Context())
		}),
	).Handler
}

// ClientIP takes the nearest proxy-reported address, then the socket peer.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return "ip:" + strings.TrimSpace(hops[len(hops)-1])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return "ip:" + xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func MemberEndpoint(r *http.Request) string {
	who := ClientIP(r)
	if id := MemberID(r.Context()); id != "" {
		who = "member:" + id
	}
	return who + ":" + normalizeEndpoint(r.URL.Path)
}

// normalizeEndpoint folds record ids so /entries/<uuid>/approve shares one
// bucket across entries.
func normalizeEndpoint(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if isRecordID(seg) {
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

func isRecordID(seg string) bool {
	if len(seg) == 36 {
		if _, err := uuid.Parse(seg); err == nil {
			return true
		}
	}
	_, err := strconv.ParseUint(seg, 10, 64)
	return err == nil
}

func writeLimitHeaders(w http.ResponseWriter, res *redis_rate.Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))
	h.Set("RateLimit-Policy", fmt.Sprintf("%d;w=%d", res.Limit.Rate, int(res.Limit.Period.Seconds())))
}

func writeLimited(w http.ResponseWriter, res *redis_rate.Result) {
	wait := max(int(res.RetryAfter.Seconds()), 1)

	w.Header().Set("Retry-After", strconv.Itoa(wait))
	core.JSON(w, http.StatusTooManyRequests, core.Response{
		Error: &core.ErrorBody{
			Code:    "RATE_LIMITED",
			Message: fmt.Sprintf("too many requests, retry in %ds", wait),
		},
	})
}

const bucketIdle = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localLimiter is the per-process fallback. Idle buckets are swept
// opportunistically on access.
type localLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	if limit.Period <= 0 || limit.Rate <= 0 {
		return nil, fmt.Errorf("local limiter: invalid limit %+v", limit)
	}
	perSecond := float64(limit.Rate) / limit.Period.Seconds()
	interval := time.Duration(float64(time.Second) / perSecond)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if l.buckets == nil {
		l.buckets = make(map[string]*bucket)
		l.lastSweep = now
	}
	if now.Sub(l.lastSweep) > bucketIdle {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > bucketIdle {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(perSecond), limit.Burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	res := &redis_rate.Result{
		Limit:      limit,
		RetryAfter: -1,
		ResetAfter: interval,
	}
	if b.limiter.AllowN(now, 1) {
		res.Allowed = 1
	} else {
		res.RetryAfter = interval
	}
	res.Remaining = max(int(b.limiter.TokensAt(now)), 0)

	return res, nil
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: time.Minute}
}

func PerHour(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: time.Hour}
}

func PerWindow(rate, burst int, window time.Duration) redis_rate.Limit {
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: window}
}
