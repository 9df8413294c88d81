package fetcher

import (
	"math/rand/v2"
	"net/http"
)

// defaultUserAgents 단축 URL 서비스가 봇 요청을 차단하지 않도록 사용하는 브라우저 User-Agent 목록입니다.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

// UserAgentFetcher 요청에 User-Agent가 없으면 목록에서 무작위로 골라 주입합니다.
type UserAgentFetcher struct {
	delegate   Fetcher
	userAgents []string
}

var _ Fetcher = (*UserAgentFetcher)(nil)

func NewUserAgentFetcher(delegate Fetcher, userAgents []string) *UserAgentFetcher {
	if len(userAgents) == 0 {
		userAgents = defaultUserAgents
	}
	return &UserAgentFetcher{delegate: delegate, userAgents: userAgents}
}

// Do 원본 요청은 수정하지 않고 복제본에 User-Agent를 설정합니다.
func (f *UserAgentFetcher) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return f.delegate.Do(req)
	}

	cloned := req.Clone(req.Context())
	cloned.Header.Set("User-Agent", f.userAgents[rand.IntN(len(f.userAgents))])

	return f.delegate.Do(cloned)
}
