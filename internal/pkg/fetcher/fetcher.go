// Package fetcher 외부 HTTP 호출에 공통으로 쓰이는 데코레이터 체인을 제공합니다.
//
// 링크 리졸버(단축 URL 추적)와 AliExpress 게이트웨이가 같은 체인을 서로 다른 설정으로 조립하여 사용합니다.
// 재시도 데코레이터는 제공하지 않습니다. 모든 외부 호출은 단 한 번만 시도합니다.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"sync"
)

const component = "fetcher"

// Fetcher HTTP 요청을 수행합니다.
//
// 성공 시 반환된 응답의 Body는 호출자가 닫아야 합니다.
// 에러를 반환하는 경우 응답 Body는 구현체가 정리합니다.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// Get ctx가 적용된 GET 요청을 전송합니다.
func Get(ctx context.Context, f Fetcher, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.Do(req)
	if err != nil {
		if resp != nil {
			drainAndCloseBody(resp.Body)
		}
		return nil, err
	}

	return resp, nil
}

const maxDrainBytes = 64 * 1024

var drainBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 32*1024)
		return &b
	},
}

// drainAndCloseBody 커넥션 재사용을 위해 Body를 최대 64KB까지 읽어서 버린 뒤 닫습니다.
func drainAndCloseBody(body io.ReadCloser) {
	if body == nil {
		return
	}
	defer body.Close()

	bufPtr := drainBufPool.Get().(*[]byte)
	defer drainBufPool.Put(bufPtr)

	_, _ = io.CopyBuffer(io.Discard, io.LimitReader(body, maxDrainBytes), *bufPtr)
}
