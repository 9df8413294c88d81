// Package telegram 텔레그램 Bot API와의 송수신을 담당합니다.
//
// 수신된 업데이트를 명령어 또는 파이프라인 실행으로 분배하고(Bot), 파이프라인 결과를
// 채팅방에 전달합니다(Chat). 웹훅 모드와 Long Polling 모드를 모두 지원합니다.
package telegram

import (
	"net/http"
	"time"

	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	"github.com/darkkaiser/aliexpress-link-bot/pkg/strutil"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// component 텔레그램 송수신 로깅용 컴포넌트 이름
const component = "telegram"

const (
	// captionMaxRunes 사진 캡션의 최대 길이입니다. 이를 넘으면 사진 대신 텍스트 메시지로 전송합니다.
	captionMaxRunes = 1024

	// messageMaxRunes 텍스트 메시지의 최대 길이입니다.
	messageMaxRunes = 4096

	// defaultHTTPClientTimeout Bot API 호출에 사용하는 HTTP 클라이언트 타임아웃입니다.
	// Long Polling 대기 시간보다 길어야 합니다.
	defaultHTTPClientTimeout = 90 * time.Second
)

// Client 텔레그램 봇 API와의 통신을 추상화한 인터페이스입니다.
type Client interface {
	// 봇 정보 조회
	GetSelf() tgbotapi.User

	// 메시지 송수신
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)

	// Request 응답이 Message가 아닌 요청(메시지 삭제, 웹훅 설정 등)을 전송합니다.
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)

	// 리소스 정리
	StopReceivingUpdates()
}

// tgClient tgbotapi.BotAPI를 래핑하여 Client 인터페이스를 구현하는 구조체입니다.
type tgClient struct {
	*tgbotapi.BotAPI
}

// GetSelf 현재 봇의 사용자 정보를 반환합니다.
func (c *tgClient) GetSelf() tgbotapi.User {
	return c.Self
}

// 인터페이스 준수 확인
var _ Client = (*tgClient)(nil)

// NewClient 봇 토큰으로 텔레그램 봇 API 클라이언트를 초기화합니다.
//
// 생성 과정에서 getMe를 호출하여 토큰의 유효성을 확인합니다.
func NewClient(botToken string, debug bool) (Client, error) {
	applog.WithComponentAndFields(component, applog.Fields{
		"bot_token": strutil.Mask(botToken),
	}).Debug("텔레그램 봇 API 클라이언트를 초기화합니다")

	// 기본 http.DefaultClient는 타임아웃이 없으므로 명시적인 타임아웃을 설정합니다.
	httpClient := &http.Client{Timeout: defaultHTTPClientTimeout}

	botAPI, err := tgbotapi.NewBotAPIWithClient(botToken, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.InvalidInput, "텔레그램 봇 API 클라이언트 초기화에 실패했습니다. BotToken이 올바른지 확인해주세요")
	}
	botAPI.Debug = debug

	return &tgClient{BotAPI: botAPI}, nil
}

// errorCode 텔레그램 API 에러 코드를 반환합니다. API 에러가 아니면 0입니다.
func errorCode(err error) int {
	var apiErr *tgbotapi.Error
	if apperrors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrValue tgbotapi.Error
	if apperrors.As(err, &apiErrValue) {
		return apiErrValue.Code
	}
	return 0
}
