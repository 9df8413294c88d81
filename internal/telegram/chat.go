package telegram

import (
	"context"
	"unicode/utf8"

	"github.com/darkkaiser/aliexpress-link-bot/internal/formatter"
	"github.com/darkkaiser/aliexpress-link-bot/internal/pipeline"
	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Chat 채팅방 하나에 대한 파이프라인 대화 채널입니다.
//
// 처리 중 안내 메시지(placeholder)를 먼저 보내고, 이후 실패 안내 문구로 수정하거나
// 완성된 메시지로 교체합니다. 하나의 파이프라인 실행에서만 사용하며 동시 사용에 안전하지 않습니다.
type Chat struct {
	client  Client
	limiter *rate.Limiter

	chatID    int64
	replyToID int

	// placeholderID 처리 중 안내 메시지의 ID입니다. 0이면 안내 메시지가 없습니다.
	placeholderID int
}

// 인터페이스 준수 확인
var _ pipeline.Conversation = (*Chat)(nil)

// NewChat 채팅방(chatID)의 메시지(replyToID)에 응답하는 Chat을 생성합니다. limiter가 nil이면 속도 제한을 하지 않습니다.
func NewChat(client Client, limiter *rate.Limiter, chatID int64, replyToID int) *Chat {
	return &Chat{
		client:    client,
		limiter:   limiter,
		chatID:    chatID,
		replyToID: replyToID,
	}
}

// ShowPlaceholder 처리 중 안내 메시지를 전송합니다.
func (c *Chat) ShowPlaceholder(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ReplyToMessageID = c.replyToID
	msg.AllowSendingWithoutReply = true

	sent, err := c.send(ctx, msg)
	if err != nil {
		return err
	}
	c.placeholderID = sent.MessageID

	return nil
}

// Fail 처리 중 안내 메시지를 실패 안내 문구로 수정합니다. 안내 메시지가 없으면 새로 전송합니다.
func (c *Chat) Fail(ctx context.Context, notice string) error {
	if c.placeholderID != 0 {
		if _, err := c.send(ctx, tgbotapi.NewEditMessageText(c.chatID, c.placeholderID, notice)); err == nil {
			return nil
		}
	}

	msg := tgbotapi.NewMessage(c.chatID, notice)
	msg.ReplyToMessageID = c.replyToID
	msg.AllowSendingWithoutReply = true

	_, err := c.send(ctx, msg)
	return err
}

// Deliver 완성된 메시지를 전달합니다.
//
// 이미지가 있고 본문이 캡션 길이 이내이면 사진과 캡션으로 전송한 뒤 안내 메시지를 삭제합니다.
// 그 외에는 본문을 텍스트 메시지 길이에 맞게 자르고 안내 메시지를 본문으로 수정합니다.
func (c *Chat) Deliver(ctx context.Context, m formatter.Message) error {
	if m.ImageURL != "" && utf8.RuneCountInString(m.Text) <= captionMaxRunes {
		return c.deliverPhoto(ctx, m)
	}

	return c.deliverText(ctx, formatter.TruncateEscaped(m.Text, messageMaxRunes))
}

func (c *Chat) deliverPhoto(ctx context.Context, m formatter.Message) error {
	photo := tgbotapi.NewPhoto(c.chatID, tgbotapi.FileURL(m.ImageURL))
	photo.Caption = m.Text
	photo.ParseMode = tgbotapi.ModeMarkdownV2
	photo.ReplyToMessageID = c.replyToID
	photo.AllowSendingWithoutReply = true

	if _, err := c.send(ctx, photo); err != nil {
		return err
	}

	c.deletePlaceholder(ctx)

	return nil
}

func (c *Chat) deliverText(ctx context.Context, text string) error {
	if c.placeholderID != 0 {
		edit := tgbotapi.NewEditMessageText(c.chatID, c.placeholderID, text)
		edit.ParseMode = tgbotapi.ModeMarkdownV2
		edit.DisableWebPagePreview = true

		_, err := c.send(ctx, edit)
		return err
	}

	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true
	msg.ReplyToMessageID = c.replyToID
	msg.AllowSendingWithoutReply = true

	_, err := c.send(ctx, msg)
	return err
}

// deletePlaceholder 처리 중 안내 메시지를 삭제합니다. 실패해도 결과 전달에는 영향을 주지 않습니다.
func (c *Chat) deletePlaceholder(ctx context.Context) {
	if c.placeholderID == 0 {
		return
	}

	if err := c.wait(ctx); err != nil {
		return
	}
	if _, err := c.client.Request(tgbotapi.NewDeleteMessage(c.chatID, c.placeholderID)); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"chat_id":    c.chatID,
			"message_id": c.placeholderID,
			"error":      err,
		}).Warn("처리 중 안내 메시지 삭제에 실패했습니다")
		return
	}
	c.placeholderID = 0
}

// send 전송 속도 제한을 지킨 뒤 메시지를 한 번 전송합니다. 재시도는 하지 않습니다.
func (c *Chat) send(ctx context.Context, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := c.wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}

	sent, err := c.client.Send(msg)
	if err != nil {
		errType := apperrors.Unavailable
		if code := errorCode(err); code >= 400 && code < 500 && code != 429 {
			errType = apperrors.InvalidInput
		}

		applog.WithComponentAndFields(component, applog.Fields{
			"chat_id": c.chatID,
			"code":    errorCode(err),
			"error":   err,
		}).Warn("텔레그램 메시지 전송에 실패했습니다")

		return tgbotapi.Message{}, apperrors.Wrap(err, errType, "텔레그램 메시지 전송에 실패했습니다")
	}

	return sent, nil
}

func (c *Chat) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.Timeout, "텔레그램 전송 대기 중 요청이 취소되었습니다")
	}
	return nil
}
