package aliexpress

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PriceUnavailable 가격을 해석할 수 없을 때 표시하는 값입니다.
const PriceUnavailable = "N/A"

// Price 통화 정보가 포함된 상품 가격입니다.
//
// 제공자가 숫자가 아닌 값을 보내거나 값을 누락하면 Valid는 false이며, 조회 자체는 실패로 처리하지 않습니다.
type Price struct {
	Amount   float64
	Currency string
	Raw      string
	Valid    bool
}

// ParsePrice 제공자 응답의 가격 문자열을 해석합니다. 천 단위 구분 쉼표는 제거합니다.
func ParsePrice(raw, currency string) Price {
	p := Price{Raw: strings.TrimSpace(raw), Currency: strings.TrimSpace(currency)}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(p.Raw, ",", ""), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return p
	}

	p.Amount = amount
	p.Valid = true
	return p
}

// String 표시용 문자열을 반환합니다. (예: "12.34 USD")
func (p Price) String() string {
	if !p.Valid {
		return PriceUnavailable
	}
	return strings.TrimSpace(fmt.Sprintf("%.2f %s", p.Amount, p.Currency))
}

// ProductDetails 상품 상세 조회 결과입니다. 생성 이후 변경하지 않습니다.
type ProductDetails struct {
	ProductID string
	Title     string
	Price     Price
	ImageURL  string
	StoreName string

	// Rating 제공자가 보낸 평점 값 그대로입니다. (예: "96.5%", "96.5", "N/A")
	Rating string

	// CoinDiscountRate [0,1] 범위로 정규화된 코인 할인율입니다. 값이 없으면 0입니다.
	CoinDiscountRate float64

	// DetailURL 제휴 링크 생성의 원본으로 사용하는 상품 페이지 URL입니다.
	DetailURL string
}

// CanonicalProductURL 상품 ID로 표준 상품 페이지 URL을 만듭니다.
func CanonicalProductURL(productID string) string {
	return "https://www.aliexpress.com/item/" + productID + ".html"
}

// AffiliateLink 추적 태그가 적용된 제휴 링크입니다.
type AffiliateLink struct {
	URL       string
	SourceTag string
}
