package fetcher

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
)

const (
	defaultMaxBytes = 10 * 1024 * 1024

	// NoLimit 응답 본문 크기를 제한하지 않습니다.
	NoLimit = -1
)

// ErrResponseBodyTooLarge 응답 본문이 허용 크기를 초과했습니다.
var ErrResponseBodyTooLarge = errors.New("응답 본문이 허용 크기를 초과했습니다")

type maxBytesReader struct {
	rc    io.ReadCloser
	limit int64
}

func (r *maxBytesReader) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return n, apperrors.Wrap(ErrResponseBodyTooLarge, apperrors.ExecutionFailed, fmt.Sprintf("응답 본문 크기 제한(%d bytes) 초과", r.limit))
		}
	}
	return n, err
}

func (r *maxBytesReader) Close() error {
	return r.rc.Close()
}

// MaxBytesFetcher 응답 본문의 크기를 제한합니다.
// Content-Length로 먼저 차단하고, 헤더가 없거나 조작된 경우는 읽는 시점에 차단합니다.
type MaxBytesFetcher struct {
	delegate Fetcher
	limit    int64
}

// NewMaxBytesFetcher limit이 NoLimit이면 delegate를 그대로 반환하고, 0 이하이면 10MB를 적용합니다.
func NewMaxBytesFetcher(delegate Fetcher, limit int64) Fetcher {
	if limit == NoLimit {
		return delegate
	}
	if limit <= 0 {
		limit = defaultMaxBytes
	}
	return &MaxBytesFetcher{delegate: delegate, limit: limit}
}

func (f *MaxBytesFetcher) Do(req *http.Request) (*http.Response, error) {
	resp, err := f.delegate.Do(req)
	if err != nil {
		if resp != nil {
			drainAndCloseBody(resp.Body)
		}
		return nil, err
	}

	if resp.ContentLength > f.limit {
		drainAndCloseBody(resp.Body)
		return nil, apperrors.Wrap(ErrResponseBodyTooLarge, apperrors.ExecutionFailed, fmt.Sprintf("Content-Length(%d)가 제한(%d bytes)을 초과했습니다", resp.ContentLength, f.limit))
	}

	resp.Body = &maxBytesReader{
		rc:    http.MaxBytesReader(nil, resp.Body, f.limit),
		limit: f.limit,
	}

	return resp, nil
}
