package main

import (
	"context"
	"fmt"
	"io"

	"github.com/darkkaiser/aliexpress-link-bot/internal/formatter"
	"github.com/darkkaiser/aliexpress-link-bot/internal/pipeline"
)

// consoleConversation 파이프라인 결과를 텔레그램 대신 콘솔에 출력합니다.
type consoleConversation struct {
	w io.Writer
}

var _ pipeline.Conversation = (*consoleConversation)(nil)

func newConsoleConversation(w io.Writer) *consoleConversation {
	return &consoleConversation{w: w}
}

func (c *consoleConversation) ShowPlaceholder(_ context.Context, text string) error {
	_, err := fmt.Fprintf(c.w, "# %s\n", text)
	return err
}

func (c *consoleConversation) Deliver(_ context.Context, m formatter.Message) error {
	if m.ImageURL != "" {
		if _, err := fmt.Fprintf(c.w, "[image] %s\n", m.ImageURL); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(c.w, m.Text)
	return err
}

func (c *consoleConversation) Fail(_ context.Context, notice string) error {
	_, err := fmt.Fprintf(c.w, "! %s\n", notice)
	return err
}
