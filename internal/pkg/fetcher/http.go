package fetcher

import (
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxRedirects = 10
)

// HTTPFetcher net/http 클라이언트를 감싼 체인의 가장 안쪽 구현체입니다.
type HTTPFetcher struct {
	client *http.Client
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher 타임아웃과 리다이렉트 제한이 적용된 HTTPFetcher를 생성합니다.
// maxRedirects가 0이면 리다이렉트를 따라가지 않고 3xx 응답을 그대로 반환합니다.
func NewHTTPFetcher(timeout time.Duration, maxRedirects int) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		ForceAttemptHTTP2:     true,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:       timeout,
			Transport:     transport,
			CheckRedirect: checkRedirect(maxRedirects),
		},
	}
}

func checkRedirect(maxRedirects int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if maxRedirects == 0 {
			return http.ErrUseLastResponse
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("리다이렉트 횟수 제한(%d회)을 초과했습니다", maxRedirects)
		}
		return nil
	}
}

func (h *HTTPFetcher) Do(req *http.Request) (*http.Response, error) {
	return h.client.Do(req)
}
