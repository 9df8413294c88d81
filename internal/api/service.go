// Package api 텔레그램 웹훅 수신용 HTTP 서버를 제공합니다.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	_ "github.com/darkkaiser/aliexpress-link-bot/docs"
	"github.com/darkkaiser/aliexpress-link-bot/internal/api/handler"
	"github.com/darkkaiser/aliexpress-link-bot/internal/config"
	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	"github.com/darkkaiser/aliexpress-link-bot/internal/pkg/version"
	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

const component = "api.service"

// shutdownTimeout Graceful Shutdown 시 최대 대기 시간
const shutdownTimeout = 5 * time.Second

// Dependencies 웹훅 서버가 사용하는 외부 구성 요소입니다.
type Dependencies struct {
	// Updates 웹훅으로 수신한 업데이트를 처리합니다. 필수입니다.
	Updates handler.UpdateHandler

	// Probes /health 응답에 포함할 의존성 상태 확인 함수입니다.
	Probes map[string]handler.HealthProbe

	// Gatherer /metrics로 노출할 지표 저장소입니다. nil이면 기본 저장소를 사용합니다.
	Gatherer prometheus.Gatherer

	BuildInfo version.Info
}

// Service 웹훅 서버의 생명주기를 관리하는 서비스입니다.
//
// Start()로 시작하면 고루틴에서 서버가 실행되며, context 취소로 종료됩니다.
// 종료 시에는 처리 중인 요청을 최대 5초까지 기다립니다.
// 포트 충돌처럼 서버가 먼저 중지되면 Done()이 닫히고 Err()로 원인을 확인할 수 있습니다.
type Service struct {
	appConfig *config.AppConfig
	deps      Dependencies

	running   bool
	done      chan struct{}
	exitErr   error
	runningMu sync.Mutex
}

// NewService Service 인스턴스를 생성합니다.
func NewService(appConfig *config.AppConfig, deps Dependencies) *Service {
	if appConfig == nil {
		panic("[api.Service] AppConfig는 필수입니다")
	}
	if deps.Updates == nil {
		panic("[api.Service] UpdateHandler는 필수입니다")
	}

	return &Service{
		appConfig: appConfig,
		deps:      deps,
	}
}

// Start 웹훅 서버를 시작합니다. 이 함수는 즉시 반환되며, 서버는 고루틴에서 실행됩니다.
//
// 서버가 완전히 종료되면 serviceStopWG.Done()이 호출됩니다.
func (s *Service) Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	applog.WithComponent(component).Info("웹훅 서버 시작중...")

	if s.running {
		defer serviceStopWG.Done()
		applog.WithComponent(component).Warn("웹훅 서버가 이미 시작되었습니다")
		return nil
	}

	s.running = true
	s.done = make(chan struct{})
	s.exitErr = nil

	go s.runServiceLoop(serviceStopCtx, serviceStopWG, s.done)

	applog.WithComponent(component).Info("웹훅 서버 시작됨")

	return nil
}

// Done 서버 루프가 끝나면 닫히는 채널을 반환합니다. Start 이전에는 nil입니다.
func (s *Service) Done() <-chan struct{} {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	return s.done
}

// Err 종료 신호 없이 서버가 먼저 중지된 경우 그 원인을 반환합니다. 정상 종료이면 nil입니다.
func (s *Service) Err() error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	return s.exitErr
}

func (s *Service) runServiceLoop(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup, done chan struct{}) {
	defer serviceStopWG.Done()
	defer close(done)

	e := s.setupServer()

	httpServerDone := make(chan error, 1)
	go s.startHTTPServer(e, httpServerDone)

	s.waitForShutdown(serviceStopCtx, e, httpServerDone)
}

// setupServer Echo 서버를 생성하고 핸들러와 라우트를 등록합니다.
func (s *Service) setupServer() *echo.Echo {
	srv := s.appConfig.Server

	systemHandler := handler.NewSystemHandler(s.deps.BuildInfo, s.deps.Probes)
	webhookHandler := handler.NewWebhookHandler(s.appConfig.Telegram.BotToken, s.deps.Updates)

	e := NewHTTPServer(HTTPServerConfig{
		Debug:            s.appConfig.Debug,
		EnableHSTS:       srv.TLSServer,
		RequestTimeout:   srv.RequestTimeout,
		RateLimitEnabled: srv.RateLimit.Enabled,
		RateLimitPerSec:  srv.RateLimit.RequestsPerSecond,
		RateLimitBurst:   srv.RateLimit.Burst,
	})

	RegisterRoutes(e, systemHandler, webhookHandler, s.deps.Gatherer)

	return e
}

// startHTTPServer HTTP/HTTPS 서버를 시작합니다. 서버가 종료될 때까지 반환하지 않습니다.
// 정상 종료가 아닌 경우의 에러를 done으로 전달합니다.
func (s *Service) startHTTPServer(e *echo.Echo, done chan<- error) {
	defer close(done)

	srv := s.appConfig.Server
	address := fmt.Sprintf(":%d", srv.ListenPort)

	applog.WithComponentAndFields(component, applog.Fields{
		"port": srv.ListenPort,
		"tls":  srv.TLSServer,
	}).Info("웹훅 서버가 요청을 수신합니다")

	var err error
	if srv.TLSServer {
		err = e.StartTLS(address, srv.TLSCertFile, srv.TLSKeyFile)
	} else {
		err = e.Start(address)
	}

	done <- s.handleServerError(err)
}

// handleServerError 서버 종료 원인을 기록하고, 정상 종료(http.ErrServerClosed)가 아니면 에러를 반환합니다.
func (s *Service) handleServerError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, http.ErrServerClosed) {
		applog.WithComponent(component).Info("웹훅 서버가 종료되었습니다")
		return nil
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"port":  s.appConfig.Server.ListenPort,
		"error": err,
	}).Error("웹훅 서버 구동 중 치명적인 오류가 발생했습니다")

	return err
}

// waitForShutdown 종료 신호를 기다린 뒤 Graceful Shutdown을 수행합니다.
func (s *Service) waitForShutdown(serviceStopCtx context.Context, e *echo.Echo, httpServerDone <-chan error) {
	select {
	case <-serviceStopCtx.Done():
		applog.WithComponent(component).Info("웹훅 서버 중지중...")
	case err := <-httpServerDone:
		// 포트 바인딩 실패 등으로 서버가 먼저 종료되었습니다.
		applog.WithComponent(component).Error("웹훅 서버가 예기치 않게 종료되었습니다")

		if err == nil {
			err = apperrors.New(apperrors.System, "웹훅 서버가 종료 신호 없이 중지되었습니다")
		} else {
			err = apperrors.Wrap(err, apperrors.System, "웹훅 서버가 종료 신호 없이 중지되었습니다")
		}

		s.runningMu.Lock()
		s.exitErr = err
		s.runningMu.Unlock()

		s.cleanup()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"error": err,
		}).Error("웹훅 서버를 종료하는 중 오류가 발생했습니다")
	}

	<-httpServerDone

	s.cleanup()
}

func (s *Service) cleanup() {
	s.runningMu.Lock()
	s.running = false
	s.runningMu.Unlock()

	applog.WithComponent(component).Info("웹훅 서버 중지됨")
}
