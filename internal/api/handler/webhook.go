package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
)

// UpdateHandler 텔레그램 업데이트 하나를 처리합니다. 처리가 끝날 때까지 반환하지 않습니다.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// WebhookHandler 텔레그램 웹훅 요청을 처리합니다.
type WebhookHandler struct {
	botToken string
	updates  UpdateHandler
}

// NewWebhookHandler WebhookHandler를 생성합니다.
func NewWebhookHandler(botToken string, updates UpdateHandler) *WebhookHandler {
	if updates == nil {
		panic("[WebhookHandler] UpdateHandler는 필수입니다")
	}

	return &WebhookHandler{botToken: botToken, updates: updates}
}

// VerifyToken 경로의 토큰이 봇 토큰과 다르면 404로 응답하는 미들웨어입니다.
func (h *WebhookHandler) VerifyToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.Param("token")
		if h.botToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.botToken)) != 1 {
			return echo.ErrNotFound
		}
		return next(c)
	}
}

// Receive godoc
// @Summary 텔레그램 웹훅
// @Description 텔레그램 서버가 전달한 업데이트를 처리합니다.
// @Description 경로의 토큰이 봇 토큰과 다르면 404, Content-Type이 application/json이 아니면 403으로 응답합니다.
// @Description 메시지 처리 결과와 관계없이 처리가 끝나면 200으로 응답합니다.
// @Tags Webhook
// @Accept json
// @Produce plain
// @Param token path string true "봇 토큰"
// @Success 200 {string} string "ok"
// @Failure 400 {object} httputil.ErrorResponse "업데이트 형식 오류"
// @Failure 403 {object} httputil.ErrorResponse "Content-Type 오류"
// @Failure 404 {object} httputil.ErrorResponse "토큰 불일치"
// @Router /{token} [post]
func (h *WebhookHandler) Receive(c echo.Context) error {
	var update tgbotapi.Update
	if err := json.NewDecoder(c.Request().Body).Decode(&update); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"remote_ip": c.RealIP(),
			"error":     err,
		}).Warn("웹훅 업데이트를 해석할 수 없습니다")

		return echo.NewHTTPError(http.StatusBadRequest, "업데이트 형식이 올바르지 않습니다")
	}

	// 텔레그램이 연결을 끊더라도 처리는 끝까지 진행합니다. 처리 시간 제한은 UpdateHandler가 적용합니다.
	h.updates.HandleUpdate(context.WithoutCancel(c.Request().Context()), update)

	return c.String(http.StatusOK, "ok")
}
