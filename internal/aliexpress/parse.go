package aliexpress

import (
	"math"
	"strconv"
	"strings"

	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	"github.com/tidwall/gjson"
)

// envelopeKey 메서드 이름으로 응답 봉투 키를 만듭니다.
// (예: aliexpress.affiliate.productdetail.get -> aliexpress_affiliate_productdetail_get_response)
func envelopeKey(method string) string {
	return strings.ReplaceAll(method, ".", "_") + "_response"
}

// parseEnvelope 응답 본문에서 resp_result.result를 꺼냅니다.
//
// 반환하는 *GatewayError의 Op는 호출자가 채웁니다.
func parseEnvelope(method string, body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, &GatewayError{
			Method: method,
			Reason: ReasonMalformed,
			Err:    apperrors.New(apperrors.ParsingFailed, "응답이 올바른 JSON 형식이 아닙니다"),
		}
	}

	root := gjson.ParseBytes(body)

	if errResp := root.Get("error_response"); errResp.Exists() {
		msg := errResp.Get("msg").String()
		if sub := errResp.Get("sub_msg").String(); sub != "" {
			msg += " (" + sub + ")"
		}
		return gjson.Result{}, &GatewayError{
			Method:  method,
			Reason:  ReasonProvider,
			Code:    errResp.Get("code").String(),
			Message: msg,
			Err:     apperrors.New(apperrors.ExecutionFailed, "AliExpress API가 에러를 반환했습니다"),
		}
	}

	respResult := root.Get(envelopeKey(method) + ".resp_result")
	if !respResult.Exists() {
		return gjson.Result{}, &GatewayError{
			Method: method,
			Reason: ReasonMalformed,
			Err:    apperrors.New(apperrors.ParsingFailed, "응답에 "+envelopeKey(method)+".resp_result 항목이 없습니다"),
		}
	}

	if code := respResult.Get("resp_code"); code.Exists() && code.Int() != 200 {
		return gjson.Result{}, &GatewayError{
			Method:  method,
			Reason:  ReasonProvider,
			Code:    code.String(),
			Message: respResult.Get("resp_msg").String(),
			Err:     apperrors.New(apperrors.ExecutionFailed, "AliExpress API가 실패 코드를 반환했습니다"),
		}
	}

	return respResult.Get("result"), nil
}

// parseProductDetails 상품 항목을 ProductDetails로 변환합니다. 누락된 선택 항목은 빈 값으로 둡니다.
func parseProductDetails(productID string, product gjson.Result, fallbackCurrency string) *ProductDetails {
	rawPrice := firstString(product, "target_sale_price", "sale_price")
	currency := firstString(product, "target_sale_price_currency", "sale_price_currency")
	if currency == "" {
		currency = fallbackCurrency
	}

	if id := product.Get("product_id").String(); id != "" {
		productID = id
	}

	detailURL := product.Get("product_detail_url").String()
	if detailURL == "" {
		detailURL = CanonicalProductURL(productID)
	}

	return &ProductDetails{
		ProductID:        productID,
		Title:            strings.TrimSpace(product.Get("product_title").String()),
		Price:            ParsePrice(rawPrice, currency),
		ImageURL:         product.Get("product_main_image_url").String(),
		StoreName:        strings.TrimSpace(product.Get("shop_name").String()),
		Rating:           strings.TrimSpace(product.Get("evaluate_rate").String()),
		CoinDiscountRate: NormalizeRate(product.Get("coin_discount_rate").String()),
		DetailURL:        detailURL,
	}
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := strings.TrimSpace(r.Get(p).String()); s != "" {
			return s
		}
	}
	return ""
}

// NormalizeRate 할인율 값을 [0,1] 범위의 비율로 정규화합니다.
//
// "%" 기호가 붙어 있거나 1보다 큰 값은 백분율로 보고 100으로 나눕니다. (예: "15%", "15" -> 0.15)
// 해석할 수 없거나 비어 있는 값은 0입니다.
func NormalizeRate(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	if percent || v > 1 {
		v /= 100
	}

	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
