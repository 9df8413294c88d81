package telegram

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/darkkaiser/aliexpress-link-bot/internal/pipeline"
	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// HandleUpdate
// =============================================================================

func TestBot_HandleUpdate_Commands(t *testing.T) {
	for _, text := range []string{"/start", "/help", "/start@alibot"} {
		t.Run(text, func(t *testing.T) {
			client := NewMockClient(t)
			client.On("Send", isMessage(func(c tgbotapi.MessageConfig) bool {
				return c.Text == pipeline.NoticeWelcome && c.ChatID == testChatID
			})).Return(tgbotapi.Message{MessageID: 1}, nil).Once()

			handler := &fakeHandler{}
			bot := NewBot(client, handler, Options{})

			bot.HandleUpdate(context.Background(), textUpdate(1, text))

			assert.Empty(t, handler.received())
			client.AssertExpectations(t)
		})
	}
}

func TestBot_HandleUpdate_TextRunsPipeline(t *testing.T) {
	client := NewMockClient(t)
	client.On("Send", isMessage(func(c tgbotapi.MessageConfig) bool {
		return c.Text == "placeholder" && c.ChatID == testChatID && c.ReplyToMessageID == 101
	})).Return(tgbotapi.Message{MessageID: 55}, nil).Once()

	handler := &fakeHandler{run: func(ctx context.Context, conv pipeline.Conversation) {
		assert.NoError(t, conv.ShowPlaceholder(ctx, "placeholder"))
	}}
	bot := NewBot(client, handler, Options{})

	bot.HandleUpdate(context.Background(), textUpdate(1, "https://a.aliexpress.com/_mKZ1"))

	assert.Equal(t, []string{"https://a.aliexpress.com/_mKZ1"}, handler.received())
	client.AssertExpectations(t)
}

func TestBot_HandleUpdate_UnknownCommandRunsPipeline(t *testing.T) {
	handler := &fakeHandler{}
	bot := NewBot(NewMockClient(t), handler, Options{})

	bot.HandleUpdate(context.Background(), textUpdate(1, "/item 1005006123456"))

	assert.Equal(t, []string{"/item 1005006123456"}, handler.received())
}

func TestBot_HandleUpdate_IgnoresNonText(t *testing.T) {
	handler := &fakeHandler{}
	bot := NewBot(NewMockClient(t), handler, Options{})

	bot.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: 1})
	bot.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: 2, Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testChatID}}})

	assert.Empty(t, handler.received())
}

func TestBot_HandleUpdate_RecoversPanic(t *testing.T) {
	handler := &fakeHandler{run: func(context.Context, pipeline.Conversation) {
		panic("boom")
	}}
	bot := NewBot(NewMockClient(t), handler, Options{})

	assert.NotPanics(t, func() {
		bot.HandleUpdate(context.Background(), textUpdate(1, "hello"))
	})
}

func TestBot_HandleUpdate_AppliesTimeout(t *testing.T) {
	var deadline time.Time
	handler := &fakeHandler{run: func(ctx context.Context, _ pipeline.Conversation) {
		deadline, _ = ctx.Deadline()
	}}
	bot := NewBot(NewMockClient(t), handler, Options{HandleTimeout: 5 * time.Second})

	start := time.Now()
	bot.HandleUpdate(context.Background(), textUpdate(1, "hello"))

	require.False(t, deadline.IsZero())
	assert.WithinDuration(t, start.Add(5*time.Second), deadline, time.Second)
}

// =============================================================================
// Run (Long Polling)
// =============================================================================

func TestBot_Run_ProcessesUpdatesUntilCancelled(t *testing.T) {
	updates := make(chan tgbotapi.Update, 10)

	client := NewMockClient(t)
	client.On("GetSelf").Return(tgbotapi.User{UserName: "alibot"})
	client.On("GetUpdatesChan", mock.MatchedBy(func(c tgbotapi.UpdateConfig) bool {
		return c.Timeout == 30
	})).Return(updates)
	client.On("StopReceivingUpdates").Return().Once()

	var handled atomic.Int32
	handler := &fakeHandler{run: func(context.Context, pipeline.Conversation) {
		handled.Add(1)
	}}
	bot := NewBot(client, handler, Options{Workers: 2, PollTimeout: 30})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Run(ctx)
	}()

	updates <- textUpdate(1, "first")
	updates <- tgbotapi.Update{UpdateID: 2}
	updates <- textUpdate(3, "second")

	assert.Eventually(t, func() bool { return handled.Load() == 2 }, time.Second, 10*time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run이 종료되지 않았습니다")
	}

	assert.ElementsMatch(t, []string{"first", "second"}, handler.received())
	client.AssertExpectations(t)
}

func TestBot_Run_StopsWhenChannelClosed(t *testing.T) {
	updates := make(chan tgbotapi.Update)
	close(updates)

	client := NewMockClient(t)
	client.On("GetSelf").Return(tgbotapi.User{})
	client.On("GetUpdatesChan", mock.Anything).Return(updates)
	client.On("StopReceivingUpdates").Return().Once()

	bot := NewBot(client, &fakeHandler{}, Options{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run이 종료되지 않았습니다")
	}
	client.AssertExpectations(t)
}

func TestBot_Run_DropsWhenWorkersBusy(t *testing.T) {
	updates := make(chan tgbotapi.Update, 10)

	client := NewMockClient(t)
	client.On("GetSelf").Return(tgbotapi.User{})
	client.On("GetUpdatesChan", mock.Anything).Return(updates)
	client.On("StopReceivingUpdates").Return()

	release := make(chan struct{})
	started := make(chan struct{}, 10)
	handler := &fakeHandler{run: func(context.Context, pipeline.Conversation) {
		started <- struct{}{}
		<-release
	}}
	bot := NewBot(client, handler, Options{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Run(ctx)
	}()

	updates <- textUpdate(1, "busy")
	<-started

	updates <- textUpdate(2, "dropped")

	// 수신 루프가 두 번째 업데이트를 소비할 때까지 기다립니다.
	assert.Eventually(t, func() bool { return len(updates) == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	close(release)
	cancel()
	<-done

	assert.Equal(t, []string{"busy"}, handler.received())
}

// =============================================================================
// Webhook
// =============================================================================

func TestBot_SetWebhook(t *testing.T) {
	client := NewMockClient(t)
	client.On("Request", mock.MatchedBy(func(c tgbotapi.WebhookConfig) bool {
		return c.URL != nil && c.URL.String() == "https://bot.example.com/123:abc"
	})).Return(&tgbotapi.APIResponse{Ok: true}, nil).Once()

	bot := NewBot(client, &fakeHandler{}, Options{})

	require.NoError(t, bot.SetWebhook("https://bot.example.com/123:abc"))
	client.AssertExpectations(t)
}

func TestBot_SetWebhook_Errors(t *testing.T) {
	t.Run("잘못된 주소", func(t *testing.T) {
		bot := NewBot(NewMockClient(t), &fakeHandler{}, Options{})

		err := bot.SetWebhook("://bad")
		assert.True(t, apperrors.Is(err, apperrors.InvalidInput))
	})

	t.Run("등록 실패", func(t *testing.T) {
		client := NewMockClient(t)
		client.On("Request", mock.Anything).Return(nil, assert.AnError).Once()

		bot := NewBot(client, &fakeHandler{}, Options{})

		err := bot.SetWebhook("https://bot.example.com/hook")
		assert.True(t, apperrors.Is(err, apperrors.Unavailable))
	})
}

func TestBot_DeleteWebhook(t *testing.T) {
	client := NewMockClient(t)
	client.On("Request", tgbotapi.DeleteWebhookConfig{}).Return(&tgbotapi.APIResponse{Ok: true}, nil).Once()

	bot := NewBot(client, &fakeHandler{}, Options{})

	require.NoError(t, bot.DeleteWebhook())
	client.AssertExpectations(t)
}
