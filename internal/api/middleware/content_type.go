package middleware

import (
	"mime"
	"net/http"
	"strings"

	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	"github.com/labstack/echo/v4"
)

// RequireContentType 요청의 Content-Type이 expected가 아니면 403 Forbidden으로 거부하는 미들웨어를 반환합니다.
//
// 파라미터(charset 등)는 무시하고 MIME 타입만 비교합니다. 본문이 없는 요청도 검사합니다.
func RequireContentType(expected string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actual := c.Request().Header.Get(echo.HeaderContentType)

			mediaType, _, err := mime.ParseMediaType(actual)
			if err != nil || !strings.EqualFold(mediaType, expected) {
				applog.WithComponentAndFields(component, applog.Fields{
					"method":     c.Request().Method,
					"expected":   expected,
					"actual":     actual,
					"remote_ip":  c.RealIP(),
					"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
				}).Warn("허용되지 않은 Content-Type 요청을 거부했습니다")

				return echo.NewHTTPError(http.StatusForbidden, http.StatusText(http.StatusForbidden))
			}

			return next(c)
		}
	}
}
