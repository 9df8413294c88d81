package fetcher

import (
	"net/url"
	"regexp"
	"slices"
	"strings"
)

const redacted = "xxxxx"

var (
	// sensitiveExactKeys 대소문자 구분 없이 정확히 일치할 때만 마스킹되는 쿼리 키입니다.
	// "key"를 부분 일치로 검사하면 "monkey" 같은 키까지 마스킹되므로 정확히 일치하는 경우만 처리합니다.
	sensitiveExactKeys = []string{
		"token", "auth", "key", "secret", "pass", "password", "signature", "sign",
		"access_token", "api_key", "app_key", "client_secret", "refresh_token",
	}

	sensitiveSuffixes = []string{"_token", "_secret", "_sig", "_password"}

	// 텔레그램 Bot API는 경로에 토큰이 포함됩니다. 예: /bot123456:ABC.../sendMessage
	botTokenPathRegexp = regexp.MustCompile(`/bot\d+:[A-Za-z0-9_-]+`)
)

// RedactURL 로그에 남기기 안전하도록 사용자 정보, 민감한 쿼리 값, 경로의 봇 토큰을 마스킹합니다.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	ru := *u

	if u.User != nil {
		if _, has := u.User.Password(); has {
			ru.User = url.UserPassword(u.User.Username(), redacted)
		} else if u.User.Username() != "" {
			ru.User = url.User(redacted)
		}
	}

	if u.RawQuery != "" {
		query := ru.Query()
		for key := range query {
			if isSensitiveKey(key) {
				query.Set(key, redacted)
			}
		}
		ru.RawQuery = query.Encode()
	}

	if botTokenPathRegexp.MatchString(ru.Path) {
		ru.Path = botTokenPathRegexp.ReplaceAllString(ru.Path, "/bot"+redacted)
		ru.RawPath = ""
	}

	return ru.String()
}

// RedactRawURL 문자열 URL을 파싱하여 RedactURL을 적용합니다. 파싱할 수 없으면 전체를 마스킹합니다.
func RedactRawURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return redacted
	}
	return RedactURL(u)
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if slices.Contains(sensitiveExactKeys, lower) {
		return true
	}
	for _, suffix := range sensitiveSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
