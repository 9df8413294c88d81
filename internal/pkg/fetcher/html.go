package fetcher

import (
	"net/http"

	"github.com/PuerkitoBio/goquery"
	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	"golang.org/x/net/html/charset"
)

// ParseHTML 응답 본문을 goquery 문서로 파싱합니다.
// Content-Type 헤더와 메타 태그를 참고하여 UTF-8이 아닌 페이지도 변환합니다. Body는 닫지 않습니다.
func ParseHTML(resp *http.Response) (*goquery.Document, error) {
	utf8Reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ParsingFailed, "페이지 인코딩 변환에 실패했습니다")
	}

	doc, err := goquery.NewDocumentFromReader(utf8Reader)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ParsingFailed, "HTML 문서 파싱에 실패했습니다")
	}

	return doc, nil
}
