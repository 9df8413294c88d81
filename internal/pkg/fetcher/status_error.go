package fetcher

import (
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"unicode/utf8"

	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
)

const maxBodySnippetBytes = 1024

// HTTPStatusError 허용되지 않은 HTTP 상태 코드를 받았을 때 반환됩니다.
type HTTPStatusError struct {
	StatusCode  int
	Status      string
	URL         string // 민감 정보가 마스킹된 URL
	BodySnippet string
	Cause       error
}

func (e *HTTPStatusError) Error() string {
	msg := fmt.Sprintf("HTTP %d (%s)", e.StatusCode, e.Status)
	if e.URL != "" {
		msg += " URL: " + e.URL
	}
	if e.BodySnippet != "" {
		msg += ", Body: " + e.BodySnippet
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *HTTPStatusError) Unwrap() error {
	return e.Cause
}

// CheckResponseStatus 응답 상태 코드가 허용 목록(기본: 2xx)에 없으면 *HTTPStatusError를 반환합니다.
//
// 5xx와 429는 Unavailable, 그 밖의 코드는 ExecutionFailed로 분류됩니다.
// 에러를 반환할 때 Body의 앞부분을 읽어 BodySnippet에 담으므로 호출자는 Body를 닫기만 하면 됩니다.
func CheckResponseStatus(resp *http.Response, allowed ...int) error {
	if len(allowed) == 0 {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
	} else if slices.Contains(allowed, resp.StatusCode) {
		return nil
	}

	errType := apperrors.ExecutionFailed
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		errType = apperrors.Unavailable
	}

	var redacted string
	if resp.Request != nil {
		redacted = RedactURL(resp.Request.URL)
	}

	return &HTTPStatusError{
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		URL:         redacted,
		BodySnippet: readSnippet(resp.Body),
		Cause:       apperrors.New(errType, fmt.Sprintf("HTTP 요청이 실패했습니다. 상태 코드: %s", resp.Status)),
	}
}

func readSnippet(body io.Reader) string {
	if body == nil {
		return ""
	}

	b, _ := io.ReadAll(io.LimitReader(body, maxBodySnippetBytes))
	s := strings.TrimSpace(string(b))
	for !utf8.ValidString(s) && len(s) > 0 {
		s = s[:len(s)-1]
	}

	return s
}
