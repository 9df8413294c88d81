package middleware

import (
	"fmt"
	"runtime"

	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	"github.com/labstack/echo/v4"
)

// stackBufferSize panic 스택 트레이스 버퍼 크기 (4KB)
const stackBufferSize = 4 << 10

// PanicRecovery 핸들러의 panic을 복구하여 스택 트레이스와 함께 기록하고 500으로 응답하는 미들웨어를 반환합니다.
func PanicRecovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				recovered, ok := r.(error)
				if !ok {
					recovered = apperrors.New(apperrors.Internal, fmt.Sprintf("%v", r))
				}

				stack := make([]byte, stackBufferSize)
				n := runtime.Stack(stack, false)

				applog.WithComponentAndFields(component, applog.Fields{
					"error":      recovered,
					"stack":      string(stack[:n]),
					"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
				}).Error("PANIC RECOVERED")

				c.Error(recovered)
				err = nil
			}()

			return next(c)
		}
	}
}
