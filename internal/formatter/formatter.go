// Package formatter 상품 정보와 제휴 링크를 텔레그램 MarkdownV2 메시지로 조립합니다.
package formatter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/darkkaiser/aliexpress-link-bot/internal/aliexpress"
	"github.com/darkkaiser/aliexpress-link-bot/pkg/strutil"
)

const (
	DefaultTitleMaxRunes = 200
	storeMaxRunes        = 100
	ratingMaxRunes       = 32
)

// ValueUnavailable 상점 이름이나 평점처럼 값이 없는 항목에 표시하는 값입니다.
const ValueUnavailable = "N/A"

// DefaultDisclaimer 가격이 참고용이라는 안내 문구입니다.
const DefaultDisclaimer = "⚠️ الأسعار تقريبية وقد تتغير حسب العروض وتكاليف الشحن."

// numericRating 숫자만으로 된 평점 값입니다. (소수점은 하나까지 허용)
var numericRating = regexp.MustCompile(`^\d+(\.\d+)?$`)

// Links 메시지에 포함되는 링크입니다.
type Links struct {
	Coin    aliexpress.AffiliateLink
	BigSave aliexpress.AffiliateLink

	// Promo 고정 프로모션 페이지 주소입니다.
	Promo string
}

// Options 메시지 조립 옵션입니다.
type Options struct {
	TitleMaxRunes int
	Disclaimer    string
}

// Line 메시지의 한 줄에 해당하는 항목 이름입니다.
type Line string

const (
	LineTitle     Line = "title"
	LinePrice     Line = "price"
	LineEstimate  Line = "estimate"
	LineCoinLink  Line = "coin_link"
	LineBigSave   Line = "big_save_link"
	LinePromoLink Line = "promo_link"
	LineStore     Line = "store"
	LineRating    Line = "rating"
	LineNotice    Line = "disclaimer"
)

// Message 전송 가능한 형태로 조립된 메시지입니다.
type Message struct {
	// Text 이스케이프가 완료된 MarkdownV2 본문입니다.
	Text string

	ImageURL string

	// Omitted 값을 계산할 수 없어 생략된 줄입니다. 생략은 실패로 취급하지 않습니다.
	Omitted []Line
}

// Format 상품 정보와 링크로 메시지를 조립합니다. 줄의 순서는 항상 고정입니다.
//
//	제목, 가격, (예상 가격), 코인 할인 링크, 빅세일 링크, 프로모션 링크, 상점, 평점, 안내 문구
func Format(d *aliexpress.ProductDetails, links Links, opts Options) Message {
	if opts.TitleMaxRunes <= 0 {
		opts.TitleMaxRunes = DefaultTitleMaxRunes
	}
	if opts.Disclaimer == "" {
		opts.Disclaimer = DefaultDisclaimer
	}

	var msg Message
	var lines []string

	title := strutil.Truncate(strutil.NormalizeSpaces(strutil.StripHTMLTags(d.Title)), opts.TitleMaxRunes)
	lines = append(lines, fmt.Sprintf("🛍️ *%s*", EscapeMarkdownV2(title)))

	lines = append(lines, "💰 السعر: "+EscapeMarkdownV2(d.Price.String()))

	if estimate, ok := EstimatePrice(d.Price, d.CoinDiscountRate); ok {
		lines = append(lines, "🪙 السعر بعد تخفيض العملات: "+EscapeMarkdownV2(estimate))
	} else if d.CoinDiscountRate > 0 {
		msg.Omitted = append(msg.Omitted, LineEstimate)
	}

	lines = append(lines,
		"",
		"🪙 رابط تخفيض العملات: "+EscapeMarkdownV2(links.Coin.URL),
		"🔥 رابط التخفيضات الكبرى: "+EscapeMarkdownV2(links.BigSave.URL),
		"🎁 صفحة العملات: "+EscapeMarkdownV2(links.Promo),
		"",
		"🏪 المتجر: "+EscapeMarkdownV2(orPlaceholder(strutil.Truncate(d.StoreName, storeMaxRunes))),
		"⭐ التقييم: "+EscapeMarkdownV2(FormatRating(strutil.Truncate(d.Rating, ratingMaxRunes))),
		"",
		EscapeMarkdownV2(opts.Disclaimer),
	)

	msg.Text = strings.Join(lines, "\n")
	msg.ImageURL = d.ImageURL

	return msg
}

// EstimatePrice 코인 할인율이 적용된 예상 가격을 소수점 둘째 자리까지 계산합니다.
// 할인율이 0 이하이거나 가격을 해석할 수 없으면 false를 반환합니다.
func EstimatePrice(p aliexpress.Price, rate float64) (string, bool) {
	if !p.Valid || rate <= 0 || rate > 1 {
		return "", false
	}

	estimated := p.Amount * (1 - rate)
	return strings.TrimSpace(fmt.Sprintf("%.2f %s", estimated, p.Currency)), true
}

// FormatRating 숫자만으로 된 평점에는 %를 붙이고, 그 외의 값("96.5%", "N/A" 등)은 그대로 반환합니다.
func FormatRating(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ValueUnavailable
	}
	if numericRating.MatchString(raw) {
		return raw + "%"
	}
	return raw
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return ValueUnavailable
	}
	return s
}
