package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	// maxTrackedClients 이 수를 넘으면 idleClientTTL 동안 요청이 없던 클라이언트를 정리합니다.
	maxTrackedClients = 1024
	idleClientTTL     = 10 * time.Minute
)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientBuckets 클라이언트 IP별 Token Bucket 목록입니다.
type clientBuckets struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

func newClientBuckets(requestsPerSecond float64, burst int) *clientBuckets {
	return &clientBuckets{
		buckets: make(map[string]*clientBucket),
		limit:   rate.Limit(requestsPerSecond),
		burst:   burst,
		now:     time.Now,
	}
}

// reserve ip의 토큰을 하나 사용합니다. 토큰이 없으면 false와 다음 토큰까지의 대기 시간을 반환합니다.
func (b *clientBuckets) reserve(ip string) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()

	bucket, ok := b.buckets[ip]
	if !ok {
		if len(b.buckets) >= maxTrackedClients {
			b.evictIdle(now)
		}
		bucket = &clientBucket{limiter: rate.NewLimiter(b.limit, b.burst)}
		b.buckets[ip] = bucket
	}
	bucket.lastSeen = now

	r := bucket.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (b *clientBuckets) evictIdle(now time.Time) {
	for ip, bucket := range b.buckets {
		if now.Sub(bucket.lastSeen) > idleClientTTL {
			delete(b.buckets, ip)
		}
	}
}

func (b *clientBuckets) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buckets)
}

// RateLimiting IP별 요청 제한 미들웨어를 반환합니다.
// 제한을 넘은 요청에는 다음 토큰까지 남은 시간(초, 올림)을 Retry-After 헤더에 담아 429로 응답합니다.
//
// requestsPerSecond 또는 burst가 0 이하이면 panic이 발생합니다.
func RateLimiting(requestsPerSecond float64, burst int) echo.MiddlewareFunc {
	if requestsPerSecond <= 0 {
		panic("[RateLimiting] requestsPerSecond는 양수여야 합니다")
	}
	if burst <= 0 {
		panic("[RateLimiting] burst는 양수여야 합니다")
	}

	buckets := newClientBuckets(requestsPerSecond, burst)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			allowed, wait := buckets.reserve(ip)
			if !allowed {
				retryAfter := int(math.Ceil(wait.Seconds()))

				applog.WithComponentAndFields(component, applog.Fields{
					"remote_ip":   ip,
					"method":      c.Request().Method,
					"retry_after": retryAfter,
				}).Warn("요청 제한을 초과했습니다")

				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return echo.NewHTTPError(http.StatusTooManyRequests, "요청이 너무 많습니다. 잠시 후 다시 시도해주세요")
			}

			return next(c)
		}
	}
}
