package aliexpress

import (
	"errors"
	"net/http"
	"time"

	"github.com/darkkaiser/aliexpress-link-bot/internal/pkg/fetcher"
	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	"github.com/sony/gobreaker"
)

// BreakerConfig 서킷 브레이커 설정입니다.
type BreakerConfig struct {
	Enabled      bool
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// breaker 제공자 장애 중 요청을 즉시 실패시킵니다. 재시도는 하지 않습니다.
type breaker struct {
	cb *gobreaker.CircuitBreaker
}

func newBreaker(name string, cfg BreakerConfig, metrics *Metrics) *breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		IsSuccessful: isProviderReachable,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.setBreakerState(name, to)

			applog.WithComponentAndFields(component, applog.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("서킷 브레이커 상태가 변경되었습니다")
		},
	}

	cb := gobreaker.NewCircuitBreaker(settings)
	metrics.setBreakerState(name, cb.State())

	return &breaker{cb: cb}
}

// execute fn을 브레이커 보호 하에 실행합니다. b가 nil이면 fn을 그대로 실행합니다.
func (b *breaker) execute(fn func() ([]byte, error)) ([]byte, error) {
	if b == nil {
		return fn()
	}

	out, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

// isProviderReachable 브레이커의 실패 집계 대상인지 판단합니다.
// 5xx와 429를 제외한 HTTP 상태 에러는 제공자가 살아 있는 것이므로 실패로 세지 않습니다.
func isProviderReachable(err error) bool {
	if err == nil {
		return true
	}

	var statusErr *fetcher.HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode < http.StatusInternalServerError && statusErr.StatusCode != http.StatusTooManyRequests
	}

	return false
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
