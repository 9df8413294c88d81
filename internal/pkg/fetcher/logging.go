package fetcher

import (
	"net/http"
	"time"

	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
)

// LoggingFetcher 요청 메서드, 마스킹된 URL, 소요 시간, 응답 상태를 기록합니다.
type LoggingFetcher struct {
	delegate Fetcher
	name     string
}

var _ Fetcher = (*LoggingFetcher)(nil)

// NewLoggingFetcher name은 로그의 client 필드로 기록되어 호출 주체(resolver, gateway 등)를 구분합니다.
func NewLoggingFetcher(delegate Fetcher, name string) *LoggingFetcher {
	return &LoggingFetcher{delegate: delegate, name: name}
}

func (f *LoggingFetcher) Do(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := f.delegate.Do(req)

	fields := applog.Fields{
		"client":   f.name,
		"method":   req.Method,
		"url":      RedactURL(req.URL),
		"duration": time.Since(start).String(),
	}
	if resp != nil {
		fields["status_code"] = resp.StatusCode
		if resp.Request != nil && resp.Request.URL.String() != req.URL.String() {
			fields["final_url"] = RedactURL(resp.Request.URL)
		}
	}

	if err != nil {
		fields["error"] = err.Error()
		applog.WithComponentAndFields(component, fields).Warn("HTTP 요청 실패")
		return resp, err
	}

	applog.WithComponentAndFields(component, fields).Debug("HTTP 요청 완료")

	return resp, nil
}
