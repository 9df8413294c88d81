package aliexpress

import (
	"fmt"

	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
)

// ErrMissingCredentials 서명에 필요한 AppKey 또는 AppSecret이 없어 호출을 보내지 않았습니다.
var ErrMissingCredentials = apperrors.New(apperrors.Unauthorized, "AliExpress 인증 정보(app_key, app_secret)가 설정되지 않았습니다")

// Reason 게이트웨이 실패 원인의 분류입니다.
type Reason string

const (
	ReasonMissingCredentials Reason = "missing_credentials"

	// ReasonUnreachable 전송 계층 실패, 타임아웃, 서킷 브레이커 차단으로 제공자에 도달하지 못했습니다.
	ReasonUnreachable Reason = "unreachable"

	ReasonHTTPStatus Reason = "http_status"
	ReasonMalformed  Reason = "malformed_response"

	// ReasonProvider 제공자가 error_response 또는 200이 아닌 resp_code로 응답했습니다.
	ReasonProvider Reason = "provider_error"

	// ReasonEmpty 제공자에는 도달했으나 결과 목록이 비어 있습니다.
	ReasonEmpty Reason = "empty_result"
)

// GatewayError 제휴 API 호출 실패입니다.
type GatewayError struct {
	Op     string
	Method string
	Reason Reason

	StatusCode int

	// Code, Message 제공자가 보낸 에러 코드와 메시지입니다.
	Code    string
	Message string

	Err error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("AliExpress %s 호출이 실패했습니다 (method=%s, reason=%s", e.Op, e.Method, e.Reason)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(", status=%d", e.StatusCode)
	}
	if e.Code != "" {
		msg += fmt.Sprintf(", code=%s", e.Code)
	}
	if e.Message != "" {
		msg += fmt.Sprintf(", message=%s", e.Message)
	}
	msg += ")"

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
