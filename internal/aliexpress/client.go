// Package aliexpress AliExpress 제휴(Affiliate) 오픈 API 게이트웨이를 제공합니다.
//
// 모든 요청은 서명된 단일 GET 요청이며 재시도하지 않습니다. 응답은 경계에서 ProductDetails 또는
// *GatewayError로 변환되어 호출자에게 원시 JSON 구조가 전달되지 않습니다.
package aliexpress

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/darkkaiser/aliexpress-link-bot/internal/aliexpress/signer"
	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	"github.com/darkkaiser/aliexpress-link-bot/internal/pkg/fetcher"
	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
)

const component = "aliexpress.gateway"

const (
	MethodProductDetail = "aliexpress.affiliate.productdetail.get"
	MethodLinkGenerate  = "aliexpress.affiliate.link.generate"
)

const (
	apiVersion            = "2.0"
	apiFormat             = "json"
	defaultRequestTimeout = 15 * time.Second
	maxResponseBytes      = 2 * 1024 * 1024
)

// Config 게이트웨이 설정입니다.
type Config struct {
	Endpoint   string
	AppKey     string
	AppSecret  string
	SignMethod signer.Method

	TargetCurrency string
	TargetLanguage string
	ShipToCountry  string
	TrackingID     string

	RequestTimeout time.Duration
	Breaker        BreakerConfig
}

// Option Client 생성 옵션입니다.
type Option func(*Client)

// WithFetcher HTTP 호출에 사용할 fetcher를 지정합니다.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *Client) {
		c.fetcher = f
	}
}

// WithMetrics 지표 수집기를 지정합니다.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithClock timestamp 파라미터 계산에 사용할 현재 시각 함수를 지정합니다.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// Client 제휴 API 게이트웨이입니다. 생성 이후 동시 사용에 안전합니다.
type Client struct {
	cfg     Config
	fetcher fetcher.Fetcher
	breaker *breaker
	metrics *Metrics
	now     func() time.Time
}

// New Client를 생성합니다.
func New(cfg Config, opts ...Option) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if !cfg.SignMethod.Valid() {
		cfg.SignMethod = signer.MethodHMAC
	}

	c := &Client{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	if c.fetcher == nil {
		c.fetcher = fetcher.New(fetcher.Config{
			Name:         component,
			Timeout:      cfg.RequestTimeout,
			MaxRedirects: 3,
			MaxBytes:     maxResponseBytes,
			CheckStatus:  true,
		})
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(component, cfg.Breaker, c.metrics)
	}

	return c
}

// FetchDetails 상품 상세 정보를 조회합니다.
func (c *Client) FetchDetails(ctx context.Context, productID string) (*ProductDetails, error) {
	const op = "FetchDetails"

	result, err := c.call(ctx, op, MethodProductDetail, c.detailParams(productID))
	if err != nil {
		return nil, err
	}

	product := result.Get("products.product.0")
	if !product.Exists() {
		return nil, &GatewayError{
			Op:     op,
			Method: MethodProductDetail,
			Reason: ReasonEmpty,
			Err:    apperrors.New(apperrors.NotFound, "상품 정보가 비어 있습니다: product_id="+productID),
		}
	}

	return parseProductDetails(productID, product, c.cfg.TargetCurrency), nil
}

// FetchAffiliateLink rawURL에 sourceTag가 적용된 제휴 링크를 생성합니다.
func (c *Client) FetchAffiliateLink(ctx context.Context, rawURL, sourceTag string) (AffiliateLink, error) {
	const op = "FetchAffiliateLink"

	source, err := TaggedSourceURL(rawURL, sourceTag)
	if err != nil {
		return AffiliateLink{}, apperrors.Wrapf(err, apperrors.InvalidInput, "제휴 링크의 원본 URL을 해석할 수 없습니다: %s", rawURL)
	}

	params := map[string]string{
		"promotion_link_type": "0",
		"source_values":       source,
		"tracking_id":         c.cfg.TrackingID,
	}

	result, err := c.call(ctx, op, MethodLinkGenerate, params)
	if err != nil {
		return AffiliateLink{}, err
	}

	link := strings.TrimSpace(result.Get("promotion_links.promotion_link.0.promotion_link").String())
	if link == "" {
		return AffiliateLink{}, &GatewayError{
			Op:     op,
			Method: MethodLinkGenerate,
			Reason: ReasonEmpty,
			Err:    apperrors.New(apperrors.NotFound, "제휴 링크 생성 결과가 비어 있습니다"),
		}
	}

	return AffiliateLink{URL: link, SourceTag: sourceTag}, nil
}

// TaggedSourceURL rawURL의 sourceType 쿼리 파라미터를 sourceTag로 설정한 URL을 반환합니다.
// 기존 sourceType 값은 교체되며 sourceTag가 비어 있으면 rawURL을 그대로 반환합니다.
func TaggedSourceURL(rawURL, sourceTag string) (string, error) {
	sourceTag = strings.TrimSpace(sourceTag)
	if sourceTag == "" {
		return rawURL, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("sourceType", sourceTag)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// RawDetails 상품 상세 조회 응답 본문을 해석하지 않고 그대로 반환합니다. 진단 용도입니다.
// 제공자가 에러 봉투로 응답하더라도 본문은 그대로 반환됩니다.
func (c *Client) RawDetails(ctx context.Context, productID string) ([]byte, error) {
	return c.exchange(ctx, "RawDetails", MethodProductDetail, c.detailParams(productID))
}

func (c *Client) detailParams(productID string) map[string]string {
	return map[string]string{
		"product_ids":     productID,
		"target_currency": c.cfg.TargetCurrency,
		"target_language": c.cfg.TargetLanguage,
		"ship_to_country": c.cfg.ShipToCountry,
		"tracking_id":     c.cfg.TrackingID,
	}
}

// call 요청을 전송하고 메서드 이름으로 구성된 응답 봉투를 검증한 뒤 resp_result.result를 반환합니다.
func (c *Client) call(ctx context.Context, op, method string, payload map[string]string) (gjson.Result, error) {
	body, err := c.exchange(ctx, op, method, payload)
	if err != nil {
		return gjson.Result{}, err
	}

	result, err := parseEnvelope(method, body)
	if err != nil {
		var gwErr *GatewayError
		if errors.As(err, &gwErr) {
			gwErr.Op = op
		}

		applog.WithComponentAndFields(component, applog.Fields{
			"op":     op,
			"method": method,
			"error":  err,
		}).Warn("AliExpress API가 실패 응답을 반환했습니다")

		return gjson.Result{}, err
	}

	return result, nil
}

// exchange 서명된 요청을 한 번 전송하고 응답 본문을 반환합니다.
func (c *Client) exchange(ctx context.Context, op, method string, payload map[string]string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.AppKey) == "" || strings.TrimSpace(c.cfg.AppSecret) == "" {
		return nil, &GatewayError{Op: op, Method: method, Reason: ReasonMissingCredentials, Err: ErrMissingCredentials}
	}

	params := map[string]string{
		"method":      method,
		"app_key":     c.cfg.AppKey,
		"timestamp":   strconv.FormatInt(c.now().UnixMilli(), 10),
		"format":      apiFormat,
		"v":           apiVersion,
		"sign_method": string(c.cfg.SignMethod),
	}
	for k, v := range payload {
		params[k] = v
	}
	signed := signer.NewSignedParams(params, c.cfg.AppSecret, c.cfg.SignMethod)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	body, err := c.breaker.execute(func() ([]byte, error) {
		return c.get(ctx, c.cfg.Endpoint+"?"+signed.Encode())
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		gwErr := classifyTransportError(op, method, err)
		c.metrics.observe(method, string(gwErr.Reason), elapsed)
		return nil, gwErr
	}

	c.metrics.observe(method, "success", elapsed)
	return body, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	resp, err := fetcher.Get(ctx, c.fetcher, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func classifyTransportError(op, method string, err error) *GatewayError {
	gwErr := &GatewayError{Op: op, Method: method}

	var statusErr *fetcher.HTTPStatusError
	switch {
	case errors.As(err, &statusErr):
		gwErr.Reason = ReasonHTTPStatus
		gwErr.StatusCode = statusErr.StatusCode
		gwErr.Err = err
	case errors.Is(err, fetcher.ErrResponseBodyTooLarge):
		gwErr.Reason = ReasonMalformed
		gwErr.Err = err
	case isBreakerRejection(err):
		gwErr.Reason = ReasonUnreachable
		gwErr.Err = apperrors.Wrap(err, apperrors.Unavailable, "AliExpress API 장애로 요청이 차단되었습니다")
	case errors.Is(err, context.DeadlineExceeded):
		gwErr.Reason = ReasonUnreachable
		gwErr.Err = apperrors.Wrap(err, apperrors.Timeout, "AliExpress API 응답 시간이 초과되었습니다")
	default:
		gwErr.Reason = ReasonUnreachable
		gwErr.Err = apperrors.Wrap(err, apperrors.Unavailable, "AliExpress API에 연결할 수 없습니다")
	}

	return gwErr
}

// Health 게이트웨이 상태를 확인합니다. 네트워크 호출은 하지 않습니다.
//
// 인증 정보가 없거나 서킷 브레이커가 열려 있으면 에러를 반환합니다.
func (c *Client) Health() error {
	if c.cfg.AppKey == "" || c.cfg.AppSecret == "" {
		return ErrMissingCredentials
	}
	if c.breaker != nil && c.breaker.cb.State() == gobreaker.StateOpen {
		return apperrors.New(apperrors.Unavailable, "서킷 브레이커가 열려 있어 제휴 API 호출을 차단하고 있습니다")
	}
	return nil
}
