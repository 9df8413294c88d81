package fetcher

import "time"

// Config 체인 구성을 위한 설정입니다.
type Config struct {
	// Name 로그에 기록되는 호출 주체 이름입니다.
	Name string

	Timeout      time.Duration
	MaxRedirects int
	MaxBytes     int64

	// UserAgents 비어 있으면 기본 브라우저 User-Agent 목록을 사용합니다.
	EnableUserAgent bool
	UserAgents      []string

	// CheckStatus true이면 AllowedStatusCodes(기본: 2xx) 외의 응답을 에러로 처리합니다.
	CheckStatus        bool
	AllowedStatusCodes []int

	DisableLogging bool
}

// New Config에 따라 체인을 조립합니다.
//
//	HTTPFetcher → MaxBytes → StatusCode → UserAgent → Logging
//
// Logging이 가장 바깥에 위치하여 체인 전체의 소요 시간과 최종 결과를 기록합니다.
func New(cfg Config) Fetcher {
	var f Fetcher = NewHTTPFetcher(cfg.Timeout, cfg.MaxRedirects)

	f = NewMaxBytesFetcher(f, cfg.MaxBytes)

	if cfg.CheckStatus {
		f = NewStatusCodeFetcher(f, cfg.AllowedStatusCodes...)
	}
	if cfg.EnableUserAgent {
		f = NewUserAgentFetcher(f, cfg.UserAgents)
	}
	if !cfg.DisableLogging {
		f = NewLoggingFetcher(f, cfg.Name)
	}

	return f
}
