package main

import (
	"fmt"
	"io"

	"github.com/darkkaiser/aliexpress-link-bot/internal/aliexpress"
	"github.com/darkkaiser/aliexpress-link-bot/internal/aliexpress/signer"
	"github.com/darkkaiser/aliexpress-link-bot/internal/config"
	"github.com/darkkaiser/aliexpress-link-bot/internal/formatter"
	"github.com/darkkaiser/aliexpress-link-bot/internal/pipeline"
	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	"github.com/darkkaiser/aliexpress-link-bot/internal/pkg/version"
	"github.com/darkkaiser/aliexpress-link-bot/internal/resolver"
	"github.com/darkkaiser/aliexpress-link-bot/internal/telegram"
	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const component = "main"

// app 실행 모드와 무관하게 공통으로 사용하는 구성 요소입니다.
type app struct {
	cfg      *config.AppConfig
	registry *prometheus.Registry

	resolver     *resolver.Resolver
	gateway      *aliexpress.Client
	orchestrator *pipeline.Orchestrator
}

// bootstrap 설정을 로드하고 로거를 초기화한 뒤 구성 요소를 생성합니다.
//
// 텔레그램과 통신하는 실행 모드(serve, poll)는 requireBot을 true로 전달하며, 이 경우 배너를 out에 출력하고
// 봇 토큰이 없으면 실패합니다. 반환된 Closer는 종료 시점에 닫아야 합니다.
func bootstrap(out io.Writer, requireBot bool) (*app, io.Closer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.System, "환경설정 로드에 실패했습니다")
	}

	closer, err := applog.Setup(logOptions(cfg, requireBot))
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.System, "로그 시스템 초기화에 실패했습니다")
	}

	buildInfo := version.Get()
	if requireBot {
		fmt.Fprintf(out, banner, buildInfo.Version)
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"version": buildInfo.String(),
		"env":     map[bool]string{true: "development", false: "production"}[cfg.Debug],
	}).Info("초기화 시작")

	for _, warning := range cfg.VerifyRecommendations() {
		applog.WithComponent(component).Warn(warning)
	}

	if requireBot {
		if err := cfg.RequireBotToken(); err != nil {
			closer.Close()
			return nil, nil, err
		}
	}

	a, err := newApp(cfg, buildInfo)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}

	return a, closer, nil
}

func loadConfig() (*config.AppConfig, error) {
	if configFile != "" {
		return config.LoadWithFile(configFile)
	}
	return config.Load()
}

// logOptions 로그 설정을 로거 옵션으로 변환합니다. lookup 모드에서는 콘솔 출력을 끕니다.
func logOptions(cfg *config.AppConfig, console bool) applog.Options {
	opts := applog.NewProductionOptions(config.AppName)
	if cfg.Debug {
		opts = applog.NewDevelopmentOptions(config.AppName)
	}
	opts.EnableConsoleLog = opts.EnableConsoleLog && console

	opts.Dir = cfg.Log.Dir
	opts.JSONFormat = cfg.Log.JSONFormat
	if cfg.Log.MaxAge > 0 {
		opts.MaxAge = cfg.Log.MaxAge
	}
	if cfg.Log.MaxBackups > 0 {
		opts.MaxBackups = cfg.Log.MaxBackups
	}
	if cfg.Log.Level != "" {
		if level, err := applog.ParseLevel(cfg.Log.Level); err == nil {
			opts.Level = level
		}
	}

	return opts
}

// newApp 설정으로 Resolver, 제휴 API 게이트웨이, 파이프라인을 생성하고 지표를 등록합니다.
func newApp(cfg *config.AppConfig, buildInfo version.Info) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := version.RegisterMetrics(registry, buildInfo); err != nil {
		return nil, err
	}

	r := resolver.New(resolver.Config{
		Timeout:          cfg.Resolver.Timeout,
		MaxRedirects:     cfg.Resolver.MaxRedirects,
		MaxBodyBytes:     cfg.Resolver.MaxBodyBytes,
		ShortenerDomains: cfg.Resolver.ShortenerDomains,
		UserAgents:       cfg.Resolver.UserAgents,
	})

	ae := cfg.AliExpress
	gateway := aliexpress.New(aliexpress.Config{
		Endpoint:       ae.Endpoint,
		AppKey:         ae.AppKey,
		AppSecret:      ae.AppSecret,
		SignMethod:     signer.Method(ae.SignMethod),
		TargetCurrency: ae.TargetCurrency,
		TargetLanguage: ae.TargetLanguage,
		ShipToCountry:  ae.ShipToCountry,
		TrackingID:     ae.TrackingID,
		RequestTimeout: ae.RequestTimeout,
		Breaker: aliexpress.BreakerConfig{
			Enabled:      ae.Breaker.Enabled,
			MaxRequests:  ae.Breaker.MaxRequests,
			Interval:     ae.Breaker.Interval,
			Timeout:      ae.Breaker.Timeout,
			MinRequests:  ae.Breaker.MinRequests,
			FailureRatio: ae.Breaker.FailureRatio,
		},
	}, aliexpress.WithMetrics(aliexpress.NewMetrics(registry)))

	orchestrator := pipeline.New(r, gateway, pipeline.Options{
		CoinSourceTag:    ae.CoinSourceTag,
		BigSaveSourceTag: ae.BigSaveSourceTag,
		PromoLink:        ae.PromoLink,
		Format:           formatter.Options{TitleMaxRunes: formatter.DefaultTitleMaxRunes},
	}, pipeline.NewMetrics(registry))

	return &app{
		cfg:          cfg,
		registry:     registry,
		resolver:     r,
		gateway:      gateway,
		orchestrator: orchestrator,
	}, nil
}

// newBot 텔레그램 API에 연결하고 Bot을 생성합니다.
func (a *app) newBot() (*telegram.Bot, error) {
	client, err := telegram.NewClient(a.cfg.Telegram.BotToken, a.cfg.Debug)
	if err != nil {
		return nil, err
	}

	tg := a.cfg.Telegram
	return telegram.NewBot(client, a.orchestrator, telegram.Options{
		SendRatePerSec: tg.SendRatePerSec,
		SendBurst:      tg.SendBurst,
		Workers:        tg.Workers,
		PollTimeout:    tg.PollTimeout,
		HandleTimeout:  tg.HandleTimeout,
	}), nil
}
