// Package strutil 문자열 처리 유틸리티를 제공합니다.
package strutil

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// `<` 다음에 영문자가 오는 경우만 태그로 인식하여 "3 < 5" 같은 수식은 유지합니다.
var htmlTagRegexp = regexp.MustCompile(`</?([a-zA-Z]+)[^>]*>`)

// NormalizeSpaces 앞뒤 공백을 제거하고 연속된 공백을 하나로 축약합니다.
// 예: "  hello   world  " -> "hello world"
func NormalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SplitAndTrim 구분자로 분리한 각 항목의 공백을 제거하고 빈 항목은 제외합니다.
// 결과가 없으면 nil을 반환합니다.
func SplitAndTrim(s, sep string) []string {
	var result []string
	for _, token := range strings.Split(s, sep) {
		if token = strings.TrimSpace(token); token != "" {
			result = append(result, token)
		}
	}
	return result
}

// Mask 토큰, 키 등 민감한 값을 로그에 남길 수 있도록 일부만 노출합니다.
func Mask(data string) string {
	switch {
	case data == "":
		return ""
	case len(data) <= 3:
		return "***"
	case len(data) <= 12:
		return data[:4] + "***"
	default:
		return data[:4] + "***" + data[len(data)-4:]
	}
}

// StripHTMLTags HTML 태그를 제거하고 엔티티를 디코딩합니다.
// 예: "<b>Hello</b> &amp; World" -> "Hello & World"
func StripHTMLTags(s string) string {
	return html.UnescapeString(htmlTagRegexp.ReplaceAllString(s, ""))
}

// Truncate 문자열을 최대 maxRunes 글자(rune)로 자르고, 잘린 경우 말줄임표(…)를 덧붙입니다.
// 말줄임표도 글자 수에 포함됩니다. 멀티바이트 문자의 중간에서 잘리지 않습니다.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	if maxRunes == 1 {
		return "…"
	}

	var b strings.Builder
	n := 0
	for _, r := range s {
		if n == maxRunes-1 {
			break
		}
		b.WriteRune(r)
		n++
	}
	b.WriteString("…")

	return b.String()
}
