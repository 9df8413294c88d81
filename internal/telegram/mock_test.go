package telegram

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/darkkaiser/aliexpress-link-bot/internal/pipeline"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"
	"golang.org/x/time/rate"
)

// =============================================================================
// Telegram Client Mock
// =============================================================================

// 컴파일 타임에 Client 인터페이스 구현 여부를 검증합니다.
var _ Client = (*MockClient)(nil)

// MockClient 텔레그램 Bot API(Client)의 Mock 구현체입니다.
type MockClient struct {
	mock.Mock
}

// NewMockClient 새로운 MockClient 인스턴스를 생성합니다.
func NewMockClient(t *testing.T) *MockClient {
	m := &MockClient{}
	m.Test(t)
	return m
}

func (m *MockClient) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	args := m.Called(config)

	switch ch := args.Get(0).(type) {
	case nil:
		return nil
	case tgbotapi.UpdatesChannel:
		return ch
	case chan tgbotapi.Update:
		return ch
	default:
		panic(fmt.Sprintf("MockClient.GetUpdatesChan: unexpected return type: %T", ch))
	}
}

func (m *MockClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)

	var msg tgbotapi.Message
	if args.Get(0) != nil {
		msg = args.Get(0).(tgbotapi.Message)
	}
	return msg, args.Error(1)
}

func (m *MockClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)

	var resp *tgbotapi.APIResponse
	if args.Get(0) != nil {
		resp = args.Get(0).(*tgbotapi.APIResponse)
	}
	return resp, args.Error(1)
}

func (m *MockClient) StopReceivingUpdates() {
	m.Called()
}

func (m *MockClient) GetSelf() tgbotapi.User {
	args := m.Called()

	if args.Get(0) != nil {
		return args.Get(0).(tgbotapi.User)
	}
	return tgbotapi.User{}
}

// =============================================================================
// Handler Fake
// =============================================================================

// fakeHandler 받은 텍스트를 기록하고 지정된 동작을 수행하는 Handler입니다.
type fakeHandler struct {
	mu    sync.Mutex
	texts []string

	// run 처리 동작입니다. nil이면 아무것도 하지 않습니다.
	run func(ctx context.Context, conv pipeline.Conversation)
}

func (h *fakeHandler) Handle(ctx context.Context, text string, conv pipeline.Conversation) pipeline.Outcome {
	h.mu.Lock()
	h.texts = append(h.texts, text)
	h.mu.Unlock()

	if h.run != nil {
		h.run(ctx, conv)
	}
	return pipeline.Outcome{RunID: "test-run", State: pipeline.StateDelivered}
}

func (h *fakeHandler) received() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.texts...)
}

// =============================================================================
// Helpers
// =============================================================================

const testChatID int64 = 4242

func textUpdate(updateID int, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 100 + updateID,
		Chat:      &tgbotapi.Chat{ID: testChatID},
		Text:      text,
	}
	if len(text) > 0 && text[0] == '/' {
		end := len(text)
		for i, r := range text {
			if r == ' ' {
				end = i
				break
			}
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}}
	}
	return tgbotapi.Update{UpdateID: updateID, Message: msg}
}

func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 0)
}
