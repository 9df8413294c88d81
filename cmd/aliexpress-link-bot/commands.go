package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/darkkaiser/aliexpress-link-bot/internal/api"
	"github.com/darkkaiser/aliexpress-link-bot/internal/api/handler"
	"github.com/darkkaiser/aliexpress-link-bot/internal/pipeline"
	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	"github.com/darkkaiser/aliexpress-link-bot/internal/pkg/version"
	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "웹훅 서버를 시작합니다",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, closer, err := bootstrap(cmd.OutOrStdout(), true)
			if err != nil {
				return err
			}
			defer closer.Close()

			bot, err := a.newBot()
			if err != nil {
				return err
			}

			if url := a.cfg.Telegram.WebhookURL; url != "" {
				if err := bot.SetWebhook(strings.TrimRight(url, "/") + "/" + a.cfg.Telegram.BotToken); err != nil {
					return err
				}
			} else {
				applog.WithComponent(component).Warn("webhook_url이 설정되지 않아 웹훅 등록을 건너뜁니다. 텔레그램에 웹훅이 이미 등록되어 있어야 합니다")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			apiService := api.NewService(a.cfg, api.Dependencies{
				Updates:   bot,
				Probes:    map[string]handler.HealthProbe{"aliexpress_gateway": a.gateway.Health},
				Gatherer:  a.registry,
				BuildInfo: version.Get(),
			})

			wg := &sync.WaitGroup{}
			wg.Add(1)
			if err := apiService.Start(ctx, wg); err != nil {
				return err
			}

			applog.WithComponent(component).Info("서버 가동 완료")

			return awaitShutdown(ctx, apiService, wg)
		},
	}
}

// serviceStatus 먼저 중지될 수 있는 서비스의 상태 조회 메서드입니다.
type serviceStatus interface {
	Done() <-chan struct{}
	Err() error
}

// awaitShutdown 종료 신호 또는 서비스의 조기 중지를 기다립니다.
// 서비스가 종료 신호 없이 먼저 중지되면 그 원인을 반환하여 프로세스가 종료되도록 합니다.
func awaitShutdown(ctx context.Context, svc serviceStatus, wg *sync.WaitGroup) error {
	select {
	case <-ctx.Done():
		applog.WithComponent(component).Info("종료 신호를 수신했습니다")
		wg.Wait()
		return nil

	case <-svc.Done():
		wg.Wait()
		if err := svc.Err(); err != nil {
			return apperrors.Wrap(err, apperrors.System, "웹훅 서버가 중지되어 프로세스를 종료합니다")
		}
		return nil
	}
}

func newPollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "웹훅 대신 Long Polling으로 업데이트를 수신합니다",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, closer, err := bootstrap(cmd.OutOrStdout(), true)
			if err != nil {
				return err
			}
			defer closer.Close()

			bot, err := a.newBot()
			if err != nil {
				return err
			}

			// 웹훅이 등록되어 있으면 getUpdates 호출이 거부됩니다.
			if err := bot.DeleteWebhook(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bot.Run(ctx)

			return nil
		},
	}
}

func newLookupCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "lookup <링크 또는 상품 ID>",
		Short: "메시지 하나를 처리하여 봇이 보낼 응답을 출력합니다",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closer, err := bootstrap(cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			text := strings.Join(args, " ")
			if raw {
				return lookupRaw(ctx, a, text, cmd.OutOrStdout())
			}

			outcome := a.orchestrator.Handle(ctx, text, newConsoleConversation(cmd.OutOrStdout()))
			if outcome.State != pipeline.StateDelivered {
				return apperrors.Wrapf(outcome.Err, apperrors.ExecutionFailed, "%s 단계에서 처리가 실패했습니다 (reason=%s)", outcome.Stage.Label(), outcome.Reason.Label())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "상품 상세 조회 응답 본문을 해석하지 않고 그대로 출력합니다")

	return cmd
}

// lookupRaw 상품 ID를 해석한 뒤 상품 상세 조회 응답 본문을 그대로 출력합니다.
func lookupRaw(ctx context.Context, a *app, text string, w io.Writer) error {
	res, err := a.resolver.Resolve(ctx, text)
	if err != nil {
		return err
	}

	body, err := a.gateway.RawDetails(ctx, res.ProductID)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		// JSON이 아닌 응답도 진단을 위해 그대로 출력합니다.
		_, err = w.Write(body)
		return err
	}
	pretty.WriteByte('\n')

	_, err = w.Write(pretty.Bytes())
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "버전 정보를 출력합니다",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		},
	}
}
