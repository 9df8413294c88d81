package formatter

import (
	"strings"
	"unicode/utf8"

	"github.com/darkkaiser/aliexpress-link-bot/pkg/strutil"
)

// markdownV2Reserved 텔레그램 MarkdownV2에서 이스케이프가 필요한 문자입니다.
const markdownV2Reserved = "_*[]()~`>#+-=|{}.!\\"

var markdownV2Replacer = func() *strings.Replacer {
	pairs := make([]string, 0, len(markdownV2Reserved)*2)
	for _, c := range markdownV2Reserved {
		pairs = append(pairs, string(c), `\`+string(c))
	}
	return strings.NewReplacer(pairs...)
}()

// EscapeMarkdownV2 예약 문자마다 역슬래시를 정확히 하나 붙입니다.
// 이미 이스케이프된 문자열에 다시 적용하면 이중 이스케이프가 되므로 원문에 한 번만 적용해야 합니다.
func EscapeMarkdownV2(s string) string {
	return markdownV2Replacer.Replace(s)
}

// TruncateEscaped 이스케이프가 끝난 MarkdownV2 문자열을 maxRunes 이내로 자릅니다.
// 잘린 위치에 짝을 잃은 역슬래시가 남지 않도록 합니다.
func TruncateEscaped(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}

	cut := strings.TrimSuffix(strutil.Truncate(s, maxRunes), "…")

	// 끝에 연속된 역슬래시가 홀수 개이면 마지막 하나는 짝을 잃은 것입니다.
	trailing := len(cut) - len(strings.TrimRight(cut, `\`))
	if trailing%2 == 1 {
		cut = cut[:len(cut)-1]
	}

	return cut + "…"
}
