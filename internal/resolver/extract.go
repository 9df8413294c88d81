package resolver

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	// linkPattern 메시지 본문에서 AliExpress 도메인(.com, .us, .ru 및 하위 도메인)의 URL을 찾습니다.
	// 스킴이 생략된 "www.aliexpress.com/..." 형태도 허용합니다.
	linkPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:[a-z0-9-]+\.)*aliexpress\.(?:com|us|ru)(?:[/?#][^\s<>"']*)?`)

	// bareIDPattern 메시지 전체가 상품 ID 숫자로만 이루어진 경우입니다.
	bareIDPattern = regexp.MustCompile(`^\d{8,}$`)

	// productIDPatterns 순서대로 적용하며 가장 먼저 일치한 캡처를 상품 ID로 사용합니다.
	productIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/item/(\d{8,})\.html`),
		regexp.MustCompile(`/i/(\d{8,})\.html`),
		regexp.MustCompile(`productId=(\d{8,})`),
		regexp.MustCompile(`[?&]id=(\d{8,})`),
	}

	// wrapperParams 공유 래퍼 URL이 실제 목적지를 담아 두는 쿼리 파라미터입니다.
	wrapperParams = []string{"redirectUrl", "redirect_url", "url"}
)

// trailingPunctuation 문장 끝에 붙어 URL의 일부로 잘못 잡히는 문자입니다.
const trailingPunctuation = `.,;:!?)]}'"»>`

// FindLink 텍스트에서 첫 번째 AliExpress URL을 찾아 반환합니다. 없으면 빈 문자열을 반환합니다.
//
// 호스트 이름이 앞뒤로 이어지는 경우(예: aliexpress.com.evil.io)는 AliExpress 도메인으로 보지 않습니다.
func FindLink(text string) string {
	for _, loc := range linkPattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]

		if start > 0 && isHostChar(text[start-1]) {
			continue
		}
		if end < len(text) && continuesHost(text[end:]) {
			continue
		}

		m := strings.TrimRight(text[start:end], trailingPunctuation)
		lower := strings.ToLower(m)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			m = "https://" + m
		}

		return m
	}

	return ""
}

func isHostChar(c byte) bool {
	return c == '.' || c == '-' || c == '_' || c == '/' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// continuesHost 매치 직후의 문자열이 호스트 이름의 연속(예: ".evil.io", "-shop")인지 확인합니다.
// 문장 끝의 마침표처럼 뒤에 호스트 문자가 없는 경우는 연속으로 보지 않습니다.
func continuesHost(rest string) bool {
	c := rest[0]
	if c == '.' || c == '-' {
		return len(rest) > 1 && isHostChar(rest[1]) && rest[1] != '/'
	}
	return isHostChar(c) && c != '/'
}

// ExtractProductID URL에서 상품 ID를 추출합니다.
//
// 패턴이 URL 자체에 일치하지 않으면 공유 래퍼의 목적지 파라미터(redirectUrl 등)를 디코딩하여 한 번 더 시도합니다.
func ExtractProductID(rawURL string) (string, bool) {
	if id, ok := matchPatterns(rawURL); ok {
		return id, true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	q := u.Query()
	for _, p := range wrapperParams {
		if target := q.Get(p); target != "" {
			if id, ok := matchPatterns(target); ok {
				return id, true
			}
		}
	}

	return "", false
}

func matchPatterns(s string) (string, bool) {
	for _, re := range productIDPatterns {
		if m := re.FindStringSubmatch(s); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// isBareProductID 메시지가 상품 ID 숫자 하나로만 이루어져 있는지 확인합니다.
func isBareProductID(text string) bool {
	return bareIDPattern.MatchString(text)
}
