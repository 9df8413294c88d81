package telegram

import (
	"context"
	"sync"
	"time"

	"github.com/darkkaiser/aliexpress-link-bot/internal/pipeline"
	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

const (
	commandStart = "start"
	commandHelp  = "help"
)

// Handler 사용자 메시지 하나를 처리합니다.
type Handler interface {
	Handle(ctx context.Context, text string, conv pipeline.Conversation) pipeline.Outcome
}

// Options Bot 실행 옵션입니다.
type Options struct {
	// SendRatePerSec, SendBurst 텔레그램 API 전송 속도 제한입니다. SendRatePerSec가 0 이하이면 제한하지 않습니다.
	SendRatePerSec float64
	SendBurst      int

	// Workers Long Polling 모드에서 동시에 처리하는 최대 메시지 수입니다.
	Workers int

	// PollTimeout Long Polling 대기 시간(초)입니다.
	PollTimeout int

	// HandleTimeout 메시지 하나를 처리하는 최대 시간입니다.
	HandleTimeout time.Duration
}

// Bot 수신된 업데이트를 명령어 응답 또는 파이프라인 실행으로 분배합니다.
type Bot struct {
	client  Client
	handler Handler
	limiter *rate.Limiter

	pollTimeout   int
	handleTimeout time.Duration

	// workerSemaphore Long Polling 모드에서 메시지를 처리하는 고루틴의 동시 실행 수를 제한하는 세마포어입니다.
	workerSemaphore chan struct{}
}

// NewBot Bot을 생성합니다.
func NewBot(client Client, handler Handler, opts Options) *Bot {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.HandleTimeout <= 0 {
		opts.HandleTimeout = 60 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.SendRatePerSec > 0 {
		burst := opts.SendBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.SendRatePerSec), burst)
	}

	return &Bot{
		client:          client,
		handler:         handler,
		limiter:         limiter,
		pollTimeout:     opts.PollTimeout,
		handleTimeout:   opts.HandleTimeout,
		workerSemaphore: make(chan struct{}, opts.Workers),
	}
}

// HandleUpdate 업데이트 하나를 처리합니다. 처리가 끝날 때까지 반환하지 않습니다.
//
// 텍스트가 없는 업데이트(사진, 스티커, 편집 알림 등)는 무시합니다.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil || message.Chat == nil || message.Text == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, b.handleTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			applog.WithComponentAndFields(component, applog.Fields{
				"update_id": update.UpdateID,
				"chat_id":   message.Chat.ID,
				"panic":     r,
			}).Error("메시지 처리 중 패닉이 발생했습니다 (Recovered)")
		}
	}()

	if message.IsCommand() {
		switch message.Command() {
		case commandStart, commandHelp:
			b.reply(ctx, message, pipeline.NoticeWelcome)
			return
		}
	}

	conv := NewChat(b.client, b.limiter, message.Chat.ID, message.MessageID)
	outcome := b.handler.Handle(ctx, message.Text, conv)

	applog.WithComponentAndFields(component, applog.Fields{
		"update_id":  update.UpdateID,
		"chat_id":    message.Chat.ID,
		"run_id":     outcome.RunID,
		"state":      outcome.State.String(),
		"product_id": outcome.ProductID,
	}).Debug("메시지 처리가 끝났습니다")
}

// reply 안내 문구를 그대로 전송합니다.
func (b *Bot) reply(ctx context.Context, message *tgbotapi.Message, text string) {
	conv := NewChat(b.client, b.limiter, message.Chat.ID, message.MessageID)
	if err := conv.Fail(ctx, text); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"chat_id": message.Chat.ID,
			"error":   err,
		}).Warn("안내 메시지 전송에 실패했습니다")
	}
}

// Run Long Polling 방식으로 업데이트를 수신하여 처리합니다. ctx가 취소되면 진행 중인 처리를 기다린 뒤 반환합니다.
//
// 동시 처리 수가 Workers에 도달하면 새 업데이트는 처리하지 않고 버립니다.
func (b *Bot) Run(ctx context.Context) {
	self := b.client.GetSelf()

	applog.WithComponentAndFields(component, applog.Fields{
		"bot_username": self.UserName,
		"workers":      cap(b.workerSemaphore),
	}).Info("텔레그램 Long Polling 수신을 시작합니다")

	config := tgbotapi.NewUpdate(0)
	config.Timeout = b.pollTimeout
	config.AllowedUpdates = []string{"message"}
	updateC := b.client.GetUpdatesChan(config)

	var wg sync.WaitGroup
	defer func() {
		b.client.StopReceivingUpdates()
		wg.Wait()

		applog.WithComponent(component).Info("텔레그램 Long Polling 수신을 종료했습니다")
	}()

	for {
		select {
		case update, ok := <-updateC:
			if !ok {
				applog.WithComponent(component).Error("Long Polling 채널이 닫혀 수신 루프를 종료합니다")
				return
			}

			if update.Message == nil {
				continue
			}

			select {
			case b.workerSemaphore <- struct{}{}:
				wg.Add(1)
				go func(update tgbotapi.Update) {
					defer wg.Done()
					defer func() { <-b.workerSemaphore }()

					b.HandleUpdate(ctx, update)
				}(update)

			default:
				applog.WithComponentAndFields(component, applog.Fields{
					"update_id":          update.UpdateID,
					"semaphore_capacity": cap(b.workerSemaphore),
					"active_workers":     len(b.workerSemaphore),
				}).Warn("처리 용량 초과로 메시지를 버렸습니다")
			}

		case <-ctx.Done():
			return
		}
	}
}

// SetWebhook 텔레그램 서버에 웹훅 주소를 등록합니다.
func (b *Bot) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return apperrors.Wrap(err, apperrors.InvalidInput, "웹훅 주소가 올바르지 않습니다")
	}
	if _, err := b.client.Request(wh); err != nil {
		return apperrors.Wrap(err, apperrors.Unavailable, "웹훅 등록에 실패했습니다")
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"webhook_url": url,
	}).Info("웹훅을 등록했습니다")

	return nil
}

// DeleteWebhook 등록된 웹훅을 해제합니다. 웹훅이 등록된 상태에서는 Long Polling을 사용할 수 없습니다.
func (b *Bot) DeleteWebhook() error {
	if _, err := b.client.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return apperrors.Wrap(err, apperrors.Unavailable, "웹훅 해제에 실패했습니다")
	}
	return nil
}
