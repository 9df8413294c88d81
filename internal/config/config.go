package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// AppName 애플리케이션의 전역 고유 식별자입니다.
	AppName string = "aliexpress-link-bot"

	// DefaultFilename 실행 인자로 설정 파일 경로가 주어지지 않았을 때 탐색하는 기본 설정 파일명입니다.
	// 파일이 없으면 기본값과 환경 변수만으로 구성을 완성합니다.
	DefaultFilename = AppName + ".json"

	// EnvPrefix 설정 값을 덮어쓰는 환경 변수의 접두사입니다.
	// 이중 언더스코어(__)는 계층 구분자로 사용됩니다. (예: ALIBOT_ALIEXPRESS__APP_KEY -> aliexpress.app_key)
	EnvPrefix = "ALIBOT_"
)

const (
	DefaultEndpoint         = "https://api-sg.aliexpress.com/sync"
	DefaultTargetCurrency   = "USD"
	DefaultTargetLanguage   = "EN"
	DefaultShipToCountry    = "DZ"
	DefaultTrackingID       = "default"
	DefaultCoinSourceTag    = "620"
	DefaultBigSaveSourceTag = "562"
	DefaultPromoLink        = "https://m.aliexpress.com/p/coin-index/index.html"
	DefaultListenPort       = 8080
)

// legacyEnvAliases 접두사 없이 배포되던 기존 환경 변수 이름과 설정 키의 대응 관계입니다.
// 접두사가 붙은 환경 변수가 함께 존재하면 접두사 쪽이 우선합니다.
var legacyEnvAliases = map[string]string{
	"BOT_TOKEN":             "telegram.bot_token",
	"ALIEXPRESS_APP_KEY":    "aliexpress.app_key",
	"ALIEXPRESS_APP_SECRET": "aliexpress.app_secret",
	"CURRENCY_CODE":         "aliexpress.target_currency",
	"SHIP_TO_COUNTRY":       "aliexpress.ship_to_country",
}

// AppConfig 애플리케이션의 모든 설정을 관장하는 최상위 루트 구조체
type AppConfig struct {
	Debug      bool             `json:"debug"`
	Log        LogConfig        `json:"log"`
	Telegram   TelegramConfig   `json:"telegram"`
	AliExpress AliExpressConfig `json:"aliexpress"`
	Resolver   ResolverConfig   `json:"resolver"`
	Server     ServerConfig     `json:"server"`
}

// LogConfig 로그 파일 저장 위치와 출력 형식을 정의하는 설정 구조체
type LogConfig struct {
	Dir        string `json:"dir"`
	Level      string `json:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	JSONFormat bool   `json:"json_format"`
	MaxAge     int    `json:"max_age" validate:"min=0"`
	MaxBackups int    `json:"max_backups" validate:"min=0"`
}

// TelegramConfig 텔레그램 봇 토큰과 발송/수신 동작을 정의하는 설정 구조체
type TelegramConfig struct {
	BotToken string `json:"bot_token" validate:"omitempty,telegram_bot_token"`

	// WebhookURL 값이 있으면 serve 기동 시 텔레그램에 웹훅 주소(WebhookURL/<token>)를 등록합니다.
	WebhookURL string `json:"webhook_url" validate:"omitempty,url"`

	SendRatePerSec float64       `json:"send_rate_per_sec" validate:"gt=0"`
	SendBurst      int           `json:"send_burst" validate:"min=1"`
	Workers        int           `json:"workers" validate:"min=1,max=100"`
	PollTimeout    int           `json:"poll_timeout" validate:"min=0,max=60"`
	HandleTimeout  time.Duration `json:"handle_timeout" validate:"gt=0"`
}

// AliExpressConfig 제휴 API 호출에 필요한 인증 정보와 요청 파라미터를 정의하는 설정 구조체
//
// AppKey와 AppSecret은 필수 항목으로 검증하지 않습니다. 누락된 경우 서명된 호출 자체가 차단되며,
// 그 사실은 VerifyRecommendations와 호출 시점의 에러로 드러납니다.
type AliExpressConfig struct {
	Endpoint  string `json:"endpoint" validate:"required,url"`
	AppKey    string `json:"app_key"`
	AppSecret string `json:"app_secret"`

	SignMethod     string `json:"sign_method" validate:"oneof=hmac md5"`
	TargetCurrency string `json:"target_currency" validate:"currency_code"`
	TargetLanguage string `json:"target_language" validate:"language_tag"`
	ShipToCountry  string `json:"ship_to_country" validate:"iso3166_1_alpha2"`
	TrackingID     string `json:"tracking_id" validate:"required"`

	CoinSourceTag    string `json:"coin_source_tag" validate:"required"`
	BigSaveSourceTag string `json:"big_save_source_tag" validate:"required"`
	PromoLink        string `json:"promo_link" validate:"required,url"`

	RequestTimeout time.Duration `json:"request_timeout" validate:"gt=0"`

	Breaker BreakerConfig `json:"breaker"`
}

// HasCredentials 서명에 필요한 AppKey와 AppSecret이 모두 설정되어 있는지 확인합니다.
func (c *AliExpressConfig) HasCredentials() bool {
	return strings.TrimSpace(c.AppKey) != "" && strings.TrimSpace(c.AppSecret) != ""
}

// BreakerConfig 제휴 API 장애 시 빠르게 실패하기 위한 서킷 브레이커 설정 구조체
type BreakerConfig struct {
	Enabled      bool          `json:"enabled"`
	MaxRequests  uint32        `json:"max_requests" validate:"min=1"`
	Interval     time.Duration `json:"interval" validate:"min=0"`
	Timeout      time.Duration `json:"timeout" validate:"gt=0"`
	MinRequests  uint32        `json:"min_requests" validate:"min=1"`
	FailureRatio float64       `json:"failure_ratio" validate:"gt=0,lte=1"`
}

// ResolverConfig 단축 링크를 실제 상품 주소로 해석하는 동작을 정의하는 설정 구조체
type ResolverConfig struct {
	Timeout          time.Duration `json:"timeout" validate:"gt=0"`
	MaxRedirects     int           `json:"max_redirects" validate:"min=1,max=30"`
	MaxBodyBytes     int64         `json:"max_body_bytes" validate:"min=1"`
	ShortenerDomains []string      `json:"shortener_domains" validate:"min=1,dive,hostname"`
	UserAgents       []string      `json:"user_agents" validate:"dive,required"`
}

// ServerConfig 웹훅 수신용 HTTP 서버의 포트 및 TLS, 요청 제한 설정을 정의하는 구조체
type ServerConfig struct {
	ListenPort  int    `json:"listen_port" validate:"min=1,max=65535"`
	TLSServer   bool   `json:"tls_server"`
	TLSCertFile string `json:"tls_cert_file" validate:"required_if=TLSServer true,omitempty,file"`
	TLSKeyFile  string `json:"tls_key_file" validate:"required_if=TLSServer true,omitempty,file"`

	RequestTimeout time.Duration   `json:"request_timeout" validate:"gt=0"`
	RateLimit      RateLimitConfig `json:"rate_limit"`
}

// RateLimitConfig 웹훅 엔드포인트의 IP별 요청 제한 설정 구조체
type RateLimitConfig struct {
	Enabled           bool    `json:"enabled"`
	RequestsPerSecond float64 `json:"requests_per_second" validate:"gt=0"`
	Burst             int     `json:"burst" validate:"min=1"`
}

// newDefaultConfig 설정 파일과 환경 변수가 없을 때 적용되는 기본 설정을 생성합니다.
func newDefaultConfig() AppConfig {
	return AppConfig{
		Debug: false,
		Log: LogConfig{
			Dir:        "logs",
			Level:      "info",
			MaxAge:     30,
			MaxBackups: 20,
		},
		Telegram: TelegramConfig{
			SendRatePerSec: 25,
			SendBurst:      5,
			Workers:        4,
			PollTimeout:    30,
			HandleTimeout:  60 * time.Second,
		},
		AliExpress: AliExpressConfig{
			Endpoint:         DefaultEndpoint,
			SignMethod:       "hmac",
			TargetCurrency:   DefaultTargetCurrency,
			TargetLanguage:   DefaultTargetLanguage,
			ShipToCountry:    DefaultShipToCountry,
			TrackingID:       DefaultTrackingID,
			CoinSourceTag:    DefaultCoinSourceTag,
			BigSaveSourceTag: DefaultBigSaveSourceTag,
			PromoLink:        DefaultPromoLink,
			RequestTimeout:   15 * time.Second,
			Breaker: BreakerConfig{
				Enabled:      false,
				MaxRequests:  1,
				Interval:     60 * time.Second,
				Timeout:      30 * time.Second,
				MinRequests:  5,
				FailureRatio: 0.6,
			},
		},
		Resolver: ResolverConfig{
			Timeout:      10 * time.Second,
			MaxRedirects: 10,
			MaxBodyBytes: 1024 * 1024,
			ShortenerDomains: []string{
				"s.click.aliexpress.com",
				"a.aliexpress.com",
				"click.aliexpress.com",
				"star.aliexpress.com",
			},
		},
		Server: ServerConfig{
			ListenPort:     DefaultListenPort,
			RequestTimeout: 90 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 20,
				Burst:             40,
			},
		},
	}
}

// validate 설정 로드 직후, 각 설정 항목의 정합성과 필수 값의 유효성을 검증합니다.
func (c *AppConfig) validate(v *validator.Validate) error {
	if err := checkStruct(v, c.Log, "로그(log)"); err != nil {
		return err
	}
	if err := checkStruct(v, c.Telegram, "텔레그램(telegram)"); err != nil {
		return err
	}
	if err := checkStruct(v, c.AliExpress, "AliExpress(aliexpress)"); err != nil {
		return err
	}
	if err := checkStruct(v, c.Resolver, "링크 해석기(resolver)"); err != nil {
		return err
	}
	if err := checkStruct(v, c.Server, "웹 서버(server)"); err != nil {
		return err
	}

	return nil
}

// RequireBotToken 텔레그램과 통신하는 실행 모드(serve, poll)에서 봇 토큰이 설정되어 있는지 확인합니다.
func (c *AppConfig) RequireBotToken() error {
	if strings.TrimSpace(c.Telegram.BotToken) == "" {
		return apperrors.New(apperrors.InvalidInput, "텔레그램 봇 토큰(telegram.bot_token 또는 BOT_TOKEN)이 설정되지 않았습니다")
	}
	return nil
}

// VerifyRecommendations 서비스 운영의 안정성과 보안을 위해 권장되는 설정 준수 여부를 진단합니다.
// 강제적인 에러를 발생시키지는 않으나, 잠재적 위험 요소에 대한 경고 메시지를 반환합니다.
func (c *AppConfig) VerifyRecommendations() []string {
	var warnings []string

	// 시스템 예약 포트(1024 미만) 사용 경고
	if c.Server.ListenPort < 1024 {
		warnings = append(warnings, fmt.Sprintf("시스템 예약 포트(1-1023)를 사용하도록 설정되었습니다(port: %d). 이 경우 서버 구동 시 관리자 권한이 필요할 수 있습니다", c.Server.ListenPort))
	}

	if !c.Server.TLSServer && !strings.HasPrefix(c.Telegram.WebhookURL, "https://") {
		warnings = append(warnings, "웹훅 서버가 TLS 없이 구동됩니다. 텔레그램은 HTTPS 웹훅만 허용하므로 앞단에 TLS 종단(리버스 프록시)이 필요합니다")
	}

	if !c.AliExpress.HasCredentials() {
		warnings = append(warnings, "AliExpress 인증 정보(app_key, app_secret)가 설정되지 않았습니다. 상품 조회 요청이 모두 실패합니다")
	}

	if c.AliExpress.SignMethod == "md5" {
		warnings = append(warnings, "서명 방식으로 md5가 설정되었습니다. 가능하면 hmac 사용을 권장합니다")
	}

	return warnings
}

// Load 기본 설정 파일을 읽어 애플리케이션 설정을 로드합니다.
// 기본 설정 파일이 존재하지 않으면 기본값과 환경 변수만으로 설정을 구성합니다.
func Load() (*AppConfig, error) {
	if _, err := os.Stat(DefaultFilename); errors.Is(err, os.ErrNotExist) {
		return LoadWithFile("")
	}
	return LoadWithFile(DefaultFilename)
}

// LoadWithFile 지정된 경로의 설정 파일을 읽어 AppConfig 객체를 생성합니다.
// filename이 빈 문자열이면 설정 파일 단계를 건너뜁니다.
func LoadWithFile(filename string) (*AppConfig, error) {
	k := koanf.New(".")

	// 1. 기본값 로드 (가장 낮은 우선순위)
	if err := k.Load(structs.Provider(newDefaultConfig(), "json"), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "애플리케이션 기본 설정 로드에 실패했습니다")
	}

	// 2. JSON 설정 파일 로드 (기본값 덮어쓰기)
	if filename != "" {
		if err := k.Load(file.Provider(filename), json.Parser()); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, apperrors.Wrap(err, apperrors.System, fmt.Sprintf("설정 파일을 찾을 수 없습니다: '%s'", filename))
			}
			return nil, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("설정 파일 로드 중 오류가 발생했습니다: '%s'", filename))
		}
	}

	// 3. 기존 배포 환경의 환경 변수 이름 (접두사 없음)
	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		return legacyEnvAliases[key], value
	}), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "환경 변수 로드에 실패했습니다")
	}

	// 4. 접두사 환경 변수 로드 (최우선 순위)
	// 예: ALIBOT_RESOLVER__TIMEOUT -> resolver.timeout
	if err := k.Load(env.Provider(EnvPrefix, ".", normalizeEnvKey), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "환경 변수 로드에 실패했습니다")
	}

	// 5. 구조체 언마샬링 (Strict Validation 적용)
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			ErrorUnused:      true, // 설정에는 존재하지만 구조체에 없는 필드가 있을 경우 에러를 발생시킴
			WeaklyTypedInput: true,
		},
	}
	var appConfig AppConfig
	if err := k.UnmarshalWithConf("", &appConfig, unmarshalConf); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "설정 데이터를 애플리케이션 구조체로 변환하는데 실패했습니다")
	}

	appConfig.AliExpress.TargetCurrency = strings.ToUpper(strings.TrimSpace(appConfig.AliExpress.TargetCurrency))
	appConfig.AliExpress.ShipToCountry = strings.ToUpper(strings.TrimSpace(appConfig.AliExpress.ShipToCountry))

	// 6. 유효성 검사 수행 (정합성 체크)
	if err := appConfig.validate(newValidator()); err != nil {
		source := filename
		if source == "" {
			source = "환경 변수"
		}
		return nil, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("설정('%s')의 유효성 검증에 실패했습니다", source))
	}

	return &appConfig, nil
}

// normalizeEnvKey 환경 변수 이름을 koanf 설정 키로 변환합니다.
func normalizeEnvKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "__", ".")
}
