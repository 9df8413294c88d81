package api

import (
	"github.com/darkkaiser/aliexpress-link-bot/internal/api/handler"
	appmiddleware "github.com/darkkaiser/aliexpress-link-bot/internal/api/middleware"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// RegisterRoutes 웹훅 서버의 라우트를 등록합니다.
//
//   - 시스템 엔드포인트: 동작 확인(/), 헬스체크(/health), 버전 정보(/version)
//   - 지표: Prometheus 수집 엔드포인트(/metrics)
//   - API 문서: Swagger UI (/swagger/*)
//   - 텔레그램 웹훅: POST /:token (토큰 검증 후 JSON 본문만 허용)
func RegisterRoutes(e *echo.Echo, system *handler.SystemHandler, webhook *handler.WebhookHandler, gatherer prometheus.Gatherer) {
	registerSystemRoutes(e, system)
	registerMetricsRoutes(e, gatherer)
	registerSwaggerRoutes(e)
	registerWebhookRoutes(e, webhook)
}

func registerSystemRoutes(e *echo.Echo, h *handler.SystemHandler) {
	e.GET("/", h.Index)
	e.GET("/health", h.Health)
	e.GET("/version", h.Version)
}

func registerMetricsRoutes(e *echo.Echo, gatherer prometheus.Gatherer) {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

func registerSwaggerRoutes(e *echo.Echo) {
	e.GET("/swagger/*", echoSwagger.EchoWrapHandler(
		echoSwagger.URL("/swagger/doc.json"),
		echoSwagger.DeepLinking(true),
		echoSwagger.DocExpansion("list"),
	))
}

func registerWebhookRoutes(e *echo.Echo, h *handler.WebhookHandler) {
	// 토큰 검증이 Content-Type 검사보다 먼저입니다. 토큰을 모르는 요청에는 항상 404로 응답합니다.
	e.POST("/:token", h.Receive, h.VerifyToken, appmiddleware.RequireContentType(echo.MIMEApplicationJSON))
}
