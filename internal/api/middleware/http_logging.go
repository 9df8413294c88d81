package middleware

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	"github.com/darkkaiser/aliexpress-link-bot/pkg/strutil"
	"github.com/labstack/echo/v4"
)

// botTokenSegment 웹훅 경로에 포함된 봇 토큰 형태의 경로 조각입니다. (예: 123456:ABC-DEF...)
var botTokenSegment = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// sensitiveQueryParams 로그에 기록할 때 값을 마스킹하는 쿼리 파라미터입니다.
var sensitiveQueryParams = []string{"token", "app_key", "secret", "sign"}

// HTTPLogger HTTP 요청/응답을 구조화된 로그로 기록하는 미들웨어를 반환합니다.
//
// 웹훅 경로의 봇 토큰과 민감한 쿼리 파라미터는 마스킹하여 기록합니다.
func HTTPLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			// 패닉이 발생해도 기록되도록 defer로 처리합니다.
			defer func() {
				latency := time.Since(start)

				applog.WithComponentAndFields("api.http", applog.Fields{
					"method":        req.Method,
					"uri":           maskRequestURI(req.RequestURI),
					"remote_ip":     c.RealIP(),
					"user_agent":    req.UserAgent(),
					"status":        res.Status,
					"bytes_in":      req.ContentLength,
					"bytes_out":     res.Size,
					"latency_us":    latency.Microseconds(),
					"latency_human": latency.String(),
					"request_id":    res.Header().Get(echo.HeaderXRequestID),
				}).Info("HTTP 요청")
			}()

			if err := next(c); err != nil {
				c.Error(err)
			}

			return nil
		}
	}
}

// maskRequestURI 경로의 봇 토큰과 민감한 쿼리 파라미터 값을 마스킹합니다. 파싱에 실패하면 원본을 반환합니다.
//
//	"/123456:ABCdef?x=1" -> "/1234***Cdef?x=1"
func maskRequestURI(uri string) string {
	u, err := url.ParseRequestURI(uri)
	if err != nil {
		return uri
	}

	segments := strings.Split(u.Path, "/")
	for i, seg := range segments {
		if botTokenSegment.MatchString(seg) {
			segments[i] = strutil.Mask(seg)
		}
	}
	masked := strings.Join(segments, "/")

	if u.RawQuery == "" {
		return masked
	}

	q := u.Query()
	for _, param := range sensitiveQueryParams {
		if q.Has(param) {
			q.Set(param, strutil.Mask(q.Get(param)))
		}
	}

	return masked + "?" + q.Encode()
}
