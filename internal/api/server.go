package api

import (
	"time"

	"github.com/darkkaiser/aliexpress-link-bot/internal/api/httputil"
	appmiddleware "github.com/darkkaiser/aliexpress-link-bot/internal/api/middleware"
	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	defaultRequestTimeout = 90 * time.Second

	// 텔레그램 업데이트 JSON은 수 KB 수준입니다.
	defaultMaxBodySize = "1M"

	defaultReadTimeout       = 10 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultIdleTimeout       = 120 * time.Second

	// writeTimeoutMargin 응답 쓰기 제한은 요청 처리 제한보다 이 값만큼 길게 둡니다.
	writeTimeoutMargin = 10 * time.Second

	hstsMaxAge = 31536000
)

// HTTPServerConfig HTTP 서버 생성에 필요한 설정을 정의합니다.
type HTTPServerConfig struct {
	// Debug Echo 프레임워크의 디버그 모드 활성화 여부
	Debug bool

	// EnableHSTS TLS로 직접 서비스하는 경우 Strict-Transport-Security 헤더를 추가합니다.
	EnableHSTS bool

	// RequestTimeout 각 HTTP 요청의 최대 처리 시간 (기본값: 90초)
	// 웹훅 요청은 메시지 처리가 끝난 뒤 응답하므로 봇의 처리 제한 시간보다 길어야 합니다.
	RequestTimeout time.Duration

	// RateLimitEnabled가 true이면 IP별 요청 제한을 적용합니다.
	RateLimitEnabled bool
	RateLimitPerSec  float64
	RateLimitBurst   int

	// MaxBodySize 요청 본문 최대 크기 (기본값: "1M")
	MaxBodySize string
}

// NewHTTPServer 설정된 미들웨어를 포함한 Echo 인스턴스를 생성합니다.
//
// 미들웨어는 다음 순서로 적용됩니다:
//
//  1. PanicRecovery - 핸들러와 이후 미들웨어에서 발생한 panic 복구
//  2. RequestID - 요청마다 X-Request-ID 부여
//  3. ServerHeader - Server 응답 헤더 제거
//  4. HTTPLogger - 요청/응답 로깅 (봇 토큰이 포함된 경로는 마스킹)
//  5. RateLimiting - IP별 요청 제한 (설정 시)
//  6. BodyLimit - 요청 본문 크기 제한 (초과 시 413)
//  7. ContextTimeout - 요청 처리 시간 제한
//  8. Secure - 보안 헤더 추가
//
// 라우트 설정은 포함되지 않으며, 반환된 Echo 인스턴스에 별도로 설정해야 합니다.
func NewHTTPServer(cfg HTTPServerConfig) *echo.Echo {
	e := echo.New()

	e.Debug = cfg.Debug
	e.HideBanner = true
	e.HidePort = true

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	bodyLimit := cfg.MaxBodySize
	if bodyLimit == "" {
		bodyLimit = defaultMaxBodySize
	}

	e.Server.ReadTimeout = defaultReadTimeout
	e.Server.ReadHeaderTimeout = defaultReadHeaderTimeout
	e.Server.WriteTimeout = timeout + writeTimeoutMargin
	e.Server.IdleTimeout = defaultIdleTimeout

	// Echo 내부 로그를 애플리케이션 로거로 통합합니다.
	e.Logger = appmiddleware.Logger{Logger: applog.StandardLogger()}

	e.HTTPErrorHandler = httputil.ErrorHandler

	// 1. Panic 복구
	e.Use(appmiddleware.PanicRecovery())
	// 2. Request ID
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	// 3. Server 헤더 제거
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set(echo.HeaderServer, "")
			return next(c)
		}
	})
	// 4. HTTP 로깅 (RateLimit/Timeout 이전에 위치하여 429/503 에러도 기록)
	e.Use(appmiddleware.HTTPLogger())
	// 5. Rate Limiting
	if cfg.RateLimitEnabled {
		e.Use(appmiddleware.RateLimiting(cfg.RateLimitPerSec, cfg.RateLimitBurst))
	}
	// 6. Body Limit
	e.Use(middleware.BodyLimit(bodyLimit))
	// 7. Timeout
	e.Use(middleware.ContextTimeout(timeout))
	// 8. 보안 헤더
	secure := middleware.DefaultSecureConfig
	if cfg.EnableHSTS {
		secure.HSTSMaxAge = hstsMaxAge
	}
	e.Use(middleware.SecureWithConfig(secure))

	return e
}
