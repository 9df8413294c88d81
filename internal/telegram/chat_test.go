package telegram

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/darkkaiser/aliexpress-link-bot/internal/formatter"
	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const placeholderID = 777

func isMessage(fn func(tgbotapi.MessageConfig) bool) interface{} {
	return mock.MatchedBy(fn)
}

func isEdit(fn func(tgbotapi.EditMessageTextConfig) bool) interface{} {
	return mock.MatchedBy(fn)
}

func isPhoto(fn func(tgbotapi.PhotoConfig) bool) interface{} {
	return mock.MatchedBy(fn)
}

func newChatWithPlaceholder(t *testing.T) (*Chat, *MockClient) {
	t.Helper()

	client := NewMockClient(t)
	client.On("Send", isMessage(func(c tgbotapi.MessageConfig) bool {
		return c.Text == "⏳" && c.ReplyToMessageID == 5
	})).Return(tgbotapi.Message{MessageID: placeholderID}, nil).Once()

	chat := NewChat(client, nil, testChatID, 5)
	require.NoError(t, chat.ShowPlaceholder(context.Background(), "⏳"))
	require.Equal(t, placeholderID, chat.placeholderID)

	return chat, client
}

// =============================================================================
// Placeholder / Fail
// =============================================================================

func TestChat_FailEditsPlaceholder(t *testing.T) {
	chat, client := newChatWithPlaceholder(t)
	client.On("Send", isEdit(func(c tgbotapi.EditMessageTextConfig) bool {
		return c.MessageID == placeholderID && c.Text == "notice" && c.ParseMode == ""
	})).Return(tgbotapi.Message{MessageID: placeholderID}, nil).Once()

	require.NoError(t, chat.Fail(context.Background(), "notice"))

	client.AssertExpectations(t)
}

func TestChat_FailSendsNewMessageWhenEditFails(t *testing.T) {
	chat, client := newChatWithPlaceholder(t)
	client.On("Send", mock.AnythingOfType("tgbotapi.EditMessageTextConfig")).
		Return(nil, &tgbotapi.Error{Code: 400, Message: "Bad Request: message to edit not found"}).Once()
	client.On("Send", isMessage(func(c tgbotapi.MessageConfig) bool {
		return c.Text == "notice"
	})).Return(tgbotapi.Message{MessageID: 778}, nil).Once()

	require.NoError(t, chat.Fail(context.Background(), "notice"))

	client.AssertExpectations(t)
}

func TestChat_FailWithoutPlaceholder(t *testing.T) {
	client := NewMockClient(t)
	client.On("Send", isMessage(func(c tgbotapi.MessageConfig) bool {
		return c.Text == "notice" && c.ChatID == testChatID
	})).Return(tgbotapi.Message{MessageID: 1}, nil).Once()

	chat := NewChat(client, nil, testChatID, 5)
	require.NoError(t, chat.Fail(context.Background(), "notice"))

	client.AssertExpectations(t)
}

// =============================================================================
// Deliver
// =============================================================================

func TestChat_DeliverPhotoWithCaption(t *testing.T) {
	chat, client := newChatWithPlaceholder(t)

	msg := formatter.Message{Text: "*title*", ImageURL: "https://ae01.alicdn.com/kf/x.jpg"}

	client.On("Send", isPhoto(func(c tgbotapi.PhotoConfig) bool {
		return c.Caption == "*title*" &&
			c.ParseMode == tgbotapi.ModeMarkdownV2 &&
			c.File == tgbotapi.FileURL("https://ae01.alicdn.com/kf/x.jpg")
	})).Return(tgbotapi.Message{MessageID: 900}, nil).Once()
	client.On("Request", tgbotapi.NewDeleteMessage(testChatID, placeholderID)).
		Return(&tgbotapi.APIResponse{Ok: true}, nil).Once()

	require.NoError(t, chat.Deliver(context.Background(), msg))

	assert.Zero(t, chat.placeholderID)
	client.AssertExpectations(t)
}

func TestChat_DeliverPhotoIgnoresDeleteFailure(t *testing.T) {
	chat, client := newChatWithPlaceholder(t)

	client.On("Send", mock.AnythingOfType("tgbotapi.PhotoConfig")).Return(tgbotapi.Message{MessageID: 900}, nil).Once()
	client.On("Request", mock.Anything).Return(nil, &tgbotapi.Error{Code: 400, Message: "message can't be deleted"}).Once()

	assert.NoError(t, chat.Deliver(context.Background(), formatter.Message{Text: "x", ImageURL: "https://img"}))
	client.AssertExpectations(t)
}

func TestChat_DeliverLongTextAsMessage(t *testing.T) {
	chat, client := newChatWithPlaceholder(t)

	// 캡션 제한(1024자)을 넘으면 사진 대신 안내 메시지를 본문으로 수정합니다.
	long := strings.Repeat("a", captionMaxRunes+1)
	client.On("Send", isEdit(func(c tgbotapi.EditMessageTextConfig) bool {
		return c.MessageID == placeholderID && c.Text == long && c.ParseMode == tgbotapi.ModeMarkdownV2
	})).Return(tgbotapi.Message{MessageID: placeholderID}, nil).Once()

	require.NoError(t, chat.Deliver(context.Background(), formatter.Message{Text: long, ImageURL: "https://img"}))

	client.AssertNotCalled(t, "Request", mock.Anything)
	client.AssertExpectations(t)
}

func TestChat_DeliverTruncatesOverMessageLimit(t *testing.T) {
	chat, client := newChatWithPlaceholder(t)

	var sent string
	client.On("Send", mock.AnythingOfType("tgbotapi.EditMessageTextConfig")).
		Run(func(args mock.Arguments) {
			sent = args.Get(0).(tgbotapi.EditMessageTextConfig).Text
		}).
		Return(tgbotapi.Message{MessageID: placeholderID}, nil).Once()

	huge := strings.Repeat("\\.", messageMaxRunes)
	require.NoError(t, chat.Deliver(context.Background(), formatter.Message{Text: huge}))

	assert.LessOrEqual(t, utf8.RuneCountInString(sent), messageMaxRunes)
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(sent, "…"), "\\"), "이스케이프 문자가 잘린 채로 끝나면 안 됩니다")
}

func TestChat_DeliverWithoutPlaceholderSendsMessage(t *testing.T) {
	client := NewMockClient(t)
	client.On("Send", isMessage(func(c tgbotapi.MessageConfig) bool {
		return c.Text == "body" && c.ParseMode == tgbotapi.ModeMarkdownV2 && c.ReplyToMessageID == 5
	})).Return(tgbotapi.Message{MessageID: 1}, nil).Once()

	chat := NewChat(client, nil, testChatID, 5)
	require.NoError(t, chat.Deliver(context.Background(), formatter.Message{Text: "body"}))

	client.AssertExpectations(t)
}

func TestChat_SendErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType apperrors.ErrorType
	}{
		{"잘못된 요청", &tgbotapi.Error{Code: 400, Message: "Bad Request: can't parse entities"}, apperrors.InvalidInput},
		{"요청 과다", &tgbotapi.Error{Code: 429, Message: "Too Many Requests"}, apperrors.Unavailable},
		{"네트워크 오류", assert.AnError, apperrors.Unavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewMockClient(t)
			client.On("Send", mock.Anything).Return(nil, tt.err).Once()

			chat := NewChat(client, nil, testChatID, 0)
			err := chat.Deliver(context.Background(), formatter.Message{Text: "body"})

			require.Error(t, err)
			assert.True(t, apperrors.Is(err, tt.wantType))
		})
	}
}

func TestChat_CancelledContextSendsNothing(t *testing.T) {
	client := NewMockClient(t)

	chat := NewChat(client, newTestLimiter(), testChatID, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := chat.ShowPlaceholder(ctx, "⏳")

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.Timeout))
	client.AssertNotCalled(t, "Send", mock.Anything)
}
