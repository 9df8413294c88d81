package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/darkkaiser/aliexpress-link-bot/internal/pkg/version"
	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	"github.com/labstack/echo/v4"
)

// IndexText 서버 동작 확인용 응답입니다.
const IndexText = "🤖 البوت شغال!"

const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)

// HealthProbe 외부 의존성의 상태를 확인합니다. 정상이면 nil을 반환합니다.
type HealthProbe func() error

// HealthResponse 서버 헬스체크 응답
type HealthResponse struct {
	// 전체 상태: healthy, unhealthy
	Status string `json:"status" example:"healthy"`
	// 서버 가동 시간(초)
	Uptime int64 `json:"uptime" example:"3600"`
	// 의존성별 상태 (키: 의존성 이름)
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus 외부 의존성 상태
type DependencyStatus struct {
	Status  string `json:"status" example:"healthy"`
	Message string `json:"message,omitempty" example:"정상 작동 중"`
}

// VersionResponse 서버 버전 정보 응답
type VersionResponse struct {
	Version     string `json:"version" example:"v1.2.0"`
	Commit      string `json:"commit" example:"f25b8bf"`
	BuildDate   string `json:"build_date" example:"2026-10-01T14:00:00Z"`
	BuildNumber string `json:"build_number" example:"42"`
	GoVersion   string `json:"go_version" example:"go1.24.0"`
}

// SystemHandler 시스템 엔드포인트 핸들러 (동작 확인, 헬스체크, 버전 정보)
type SystemHandler struct {
	buildInfo version.Info
	probes    map[string]HealthProbe
	startedAt time.Time
}

// NewSystemHandler SystemHandler를 생성합니다.
func NewSystemHandler(buildInfo version.Info, probes map[string]HealthProbe) *SystemHandler {
	return &SystemHandler{
		buildInfo: buildInfo,
		probes:    probes,
		startedAt: time.Now(),
	}
}

// Index godoc
// @Summary 동작 확인
// @Description 봇 서버가 실행 중인지 확인합니다.
// @Tags System
// @Produce plain
// @Success 200 {string} string "🤖 البوت شغال!"
// @Router / [get]
func (h *SystemHandler) Index(c echo.Context) error {
	return c.String(http.StatusOK, IndexText)
}

// Health godoc
// @Summary 서버 헬스체크
// @Description 서버와 외부 의존성(제휴 API 게이트웨이 등)의 상태를 확인합니다.
// @Description 의존성 중 하나라도 비정상이면 status는 unhealthy입니다.
// @Tags System
// @Produce json
// @Success 200 {object} handler.HealthResponse "헬스체크 결과"
// @Router /health [get]
func (h *SystemHandler) Health(c echo.Context) error {
	deps := make(map[string]DependencyStatus, len(h.probes))
	status := HealthStatusHealthy

	names := make([]string, 0, len(h.probes))
	for name := range h.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.probes[name](); err != nil {
			deps[name] = DependencyStatus{Status: HealthStatusUnhealthy, Message: err.Error()}
			status = HealthStatusUnhealthy
			continue
		}
		deps[name] = DependencyStatus{Status: HealthStatusHealthy, Message: "정상 작동 중"}
	}

	if status != HealthStatusHealthy {
		applog.WithComponentAndFields(component, applog.Fields{
			"dependencies": deps,
		}).Debug("헬스체크 결과 비정상 의존성이 있습니다")
	}

	return c.JSON(http.StatusOK, HealthResponse{
		Status:       status,
		Uptime:       int64(time.Since(h.startedAt).Seconds()),
		Dependencies: deps,
	})
}

// Version godoc
// @Summary 서버 버전 정보
// @Description 빌드 버전, 커밋 해시, 빌드 날짜, 빌드 번호, Go 버전을 반환합니다.
// @Tags System
// @Produce json
// @Success 200 {object} handler.VersionResponse "버전 정보"
// @Router /version [get]
func (h *SystemHandler) Version(c echo.Context) error {
	return c.JSON(http.StatusOK, VersionResponse{
		Version:     h.buildInfo.Version,
		Commit:      h.buildInfo.ShortCommit(),
		BuildDate:   h.buildInfo.BuildDate,
		BuildNumber: h.buildInfo.BuildNumber,
		GoVersion:   h.buildInfo.GoVersion,
	})
}
