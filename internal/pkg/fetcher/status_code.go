package fetcher

import "net/http"

// StatusCodeFetcher 허용된 상태 코드만 성공으로 처리합니다.
// allowed가 비어 있으면 2xx를 모두 허용합니다.
type StatusCodeFetcher struct {
	delegate Fetcher
	allowed  []int
}

var _ Fetcher = (*StatusCodeFetcher)(nil)

func NewStatusCodeFetcher(delegate Fetcher, allowed ...int) *StatusCodeFetcher {
	return &StatusCodeFetcher{delegate: delegate, allowed: allowed}
}

// Do 검증에 실패하면 Body를 정리하고 nil 응답과 *HTTPStatusError를 반환합니다.
func (f *StatusCodeFetcher) Do(req *http.Request) (*http.Response, error) {
	resp, err := f.delegate.Do(req)
	if err != nil {
		if resp != nil {
			drainAndCloseBody(resp.Body)
		}
		return nil, err
	}

	if statusErr := CheckResponseStatus(resp, f.allowed...); statusErr != nil {
		drainAndCloseBody(resp.Body)
		return nil, statusErr
	}

	return resp, nil
}
