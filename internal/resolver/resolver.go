// Package resolver 채팅 메시지에서 AliExpress 링크를 찾아 숫자 상품 ID로 해석합니다.
//
// 단축 링크 도메인의 URL은 리다이렉트를 따라가 최종 도착 URL에서 ID를 추출합니다.
// 리다이렉트 추적 실패는 치명적이지 않으며, 원래 URL로 대체하여 추출을 계속합니다.
package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	"github.com/darkkaiser/aliexpress-link-bot/internal/pkg/fetcher"
	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
)

const component = "resolver"

var (
	// ErrNoLinkFound 메시지에 AliExpress 링크(또는 상품 ID)가 없습니다.
	ErrNoLinkFound = apperrors.New(apperrors.InvalidInput, "메시지에서 AliExpress 링크를 찾을 수 없습니다")

	// ErrProductIDNotFound 링크는 있으나 상품 ID를 추출할 수 없습니다.
	ErrProductIDNotFound = apperrors.New(apperrors.NotFound, "링크에서 상품 ID를 추출할 수 없습니다")
)

// DefaultShortenerDomains 리다이렉트를 추적하는 단축 링크 도메인의 기본 목록입니다.
var DefaultShortenerDomains = []string{
	"s.click.aliexpress.com",
	"a.aliexpress.com",
	"click.aliexpress.com",
	"star.aliexpress.com",
}

const defaultTimeout = 10 * time.Second

// Resolution 링크 해석 결과입니다.
type Resolution struct {
	ProductID string

	// SourceURL 메시지에서 찾은 URL입니다. 상품 ID만 입력된 경우 비어 있습니다.
	SourceURL string

	// TargetURL ID 추출에 사용된 URL입니다. 리다이렉트를 따라간 경우 최종 도착 URL입니다.
	TargetURL string

	Redirected bool

	// RedirectErr 리다이렉트 추적이 실패하여 SourceURL로 대체한 경우의 원인입니다.
	RedirectErr error
}

// Config Resolver 생성 설정입니다.
type Config struct {
	Timeout          time.Duration
	MaxRedirects     int
	MaxBodyBytes     int64
	ShortenerDomains []string
	UserAgents       []string
}

// Resolver 메시지 텍스트를 상품 ID로 해석합니다.
type Resolver struct {
	fetcher    fetcher.Fetcher
	shorteners map[string]struct{}
	timeout    time.Duration
}

// New 브라우저 User-Agent를 사용하는 전용 fetcher 체인으로 Resolver를 생성합니다.
// 최종 URL은 응답 상태와 무관하게 사용하므로 상태 코드 검사는 체인에 포함하지 않습니다.
func New(cfg Config) *Resolver {
	f := fetcher.New(fetcher.Config{
		Name:            component,
		Timeout:         cfg.Timeout,
		MaxRedirects:    cfg.MaxRedirects,
		MaxBytes:        cfg.MaxBodyBytes,
		EnableUserAgent: true,
		UserAgents:      cfg.UserAgents,
	})

	return NewWithFetcher(f, cfg.ShortenerDomains, cfg.Timeout)
}

// NewWithFetcher 주어진 fetcher로 Resolver를 생성합니다.
func NewWithFetcher(f fetcher.Fetcher, shortenerDomains []string, timeout time.Duration) *Resolver {
	if len(shortenerDomains) == 0 {
		shortenerDomains = DefaultShortenerDomains
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	shorteners := make(map[string]struct{}, len(shortenerDomains))
	for _, d := range shortenerDomains {
		shorteners[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}

	return &Resolver{
		fetcher:    f,
		shorteners: shorteners,
		timeout:    timeout,
	}
}

// Resolve 텍스트에서 상품 ID를 해석합니다.
//
// 실패 시 ErrNoLinkFound 또는 ErrProductIDNotFound를 반환합니다.
// 리다이렉트 추적 실패는 에러로 반환하지 않고 Resolution.RedirectErr에 기록합니다.
func (r *Resolver) Resolve(ctx context.Context, text string) (Resolution, error) {
	text = strings.TrimSpace(text)

	if isBareProductID(text) {
		return Resolution{ProductID: text}, nil
	}

	link := FindLink(text)
	if link == "" {
		return Resolution{}, ErrNoLinkFound
	}

	res := Resolution{SourceURL: link, TargetURL: link}

	if id, ok := ExtractProductID(link); ok {
		res.ProductID = id
		return res, nil
	}

	if !r.isShortener(link) {
		return res, ErrProductIDNotFound
	}

	final, id, err := r.follow(ctx, link)
	if err != nil {
		res.RedirectErr = err

		applog.WithComponentAndFields(component, applog.Fields{
			"url":   fetcher.RedactRawURL(link),
			"error": err,
		}).Warn("단축 링크 추적에 실패하여 원래 URL로 대체합니다")

		return res, ErrProductIDNotFound
	}

	res.TargetURL = final
	res.Redirected = true

	if id == "" {
		applog.WithComponentAndFields(component, applog.Fields{
			"url":       fetcher.RedactRawURL(link),
			"final_url": fetcher.RedactRawURL(final),
		}).Info("최종 도착 URL에서 상품 ID를 찾지 못했습니다")

		return res, ErrProductIDNotFound
	}

	res.ProductID = id
	return res, nil
}

func (r *Resolver) isShortener(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, ok := r.shorteners[strings.ToLower(u.Hostname())]
	return ok
}

// follow 리다이렉트를 따라가 최종 도착 URL을 구합니다.
// URL에 ID가 없으면 HTML 문서의 canonical 링크와 og:url 메타 태그에서 한 번 더 찾습니다.
func (r *Resolver) follow(ctx context.Context, link string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := fetcher.Get(ctx, r.fetcher, link)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", "", apperrors.Wrap(err, apperrors.Timeout, "단축 링크 추적 시간이 초과되었습니다")
		}
		return "", "", apperrors.Wrap(err, apperrors.Unavailable, "단축 링크 추적 요청에 실패했습니다")
	}
	defer resp.Body.Close()

	final := link
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}

	if id, ok := ExtractProductID(final); ok {
		return final, id, nil
	}

	if !isHTML(resp) {
		return final, "", nil
	}

	doc, err := fetcher.ParseHTML(resp)
	if err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"final_url": fetcher.RedactRawURL(final),
			"error":     err,
		}).Debug("도착 페이지 파싱에 실패했습니다")

		return final, "", nil
	}

	return final, productIDFromDocument(doc), nil
}

func isHTML(resp *http.Response) bool {
	ct := resp.Header.Get("Content-Type")
	return ct == "" || strings.Contains(strings.ToLower(ct), "html")
}

// productIDFromDocument 문서의 canonical 링크와 og:url에서 상품 ID를 찾습니다.
func productIDFromDocument(doc *goquery.Document) string {
	candidates := []string{
		doc.Find(`link[rel="canonical"]`).AttrOr("href", ""),
		doc.Find(`meta[property="og:url"]`).AttrOr("content", ""),
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		if id, ok := ExtractProductID(c); ok {
			return id
		}
	}

	return ""
}
