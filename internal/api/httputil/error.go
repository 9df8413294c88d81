// Package httputil 웹훅 서버의 공통 HTTP 응답 처리를 제공합니다.
package httputil

import (
	"errors"
	"net/http"

	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	"github.com/labstack/echo/v4"
)

const component = "api.error_handler"

// ErrorResponse API 오류 응답
type ErrorResponse struct {
	// ResultCode HTTP 상태 코드
	ResultCode int `json:"result_code" example:"404"`

	// Message 에러 메시지
	Message string `json:"message" example:"요청한 리소스를 찾을 수 없습니다"`
}

var statusByType = map[apperrors.ErrorType]int{
	apperrors.InvalidInput:    http.StatusBadRequest,
	apperrors.Unauthorized:    http.StatusUnauthorized,
	apperrors.Forbidden:       http.StatusForbidden,
	apperrors.NotFound:        http.StatusNotFound,
	apperrors.Timeout:         http.StatusGatewayTimeout,
	apperrors.Unavailable:     http.StatusServiceUnavailable,
	apperrors.ExecutionFailed: http.StatusBadGateway,
}

// StatusCode 에러에 대응하는 HTTP 상태 코드와 응답 메시지를 반환합니다.
//
// echo.HTTPError는 그대로 사용하고, AppError는 ErrorType으로 상태 코드를 정합니다.
// 5xx 응답에는 내부 에러 내용을 담지 않습니다.
func StatusCode(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if code, ok := statusByType[appErr.Type()]; ok {
			if code >= http.StatusInternalServerError {
				return code, http.StatusText(code)
			}
			return code, appErr.Message()
		}
	}

	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

// ErrorHandler Echo 전역 에러 핸들러입니다. 모든 에러를 ErrorResponse JSON으로 응답합니다.
func ErrorHandler(err error, c echo.Context) {
	code, message := StatusCode(err)

	if code == http.StatusNotFound {
		message = "요청한 리소스를 찾을 수 없습니다"
	}

	entry := applog.WithComponentAndFields(component, applog.Fields{
		"path":        c.Request().URL.Path,
		"method":      c.Request().Method,
		"status_code": code,
		"error":       err,
		"remote_ip":   c.RealIP(),
		"request_id":  c.Response().Header().Get(echo.HeaderXRequestID),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("HTTP 5xx 서버 오류")
	} else {
		entry.Warn("HTTP 4xx 클라이언트 오류")
	}

	if c.Response().Committed {
		return
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}

	_ = c.JSON(code, ErrorResponse{ResultCode: code, Message: message})
}
