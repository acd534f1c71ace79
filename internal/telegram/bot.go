// Package telegram is the conversational transport: a long-polling
// bot that routes commands and free text into the chat engine and
// delivers scheduler notifications.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lukman83/pricehound/internal/chat"
)

// Bot wraps the Telegram API client. It implements watch.Notifier.
type Bot struct {
	api    *tgbotapi.BotAPI
	engine *chat.Engine
	log    *slog.Logger
}

func New(token string, engine *chat.Engine, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Bot{api: api, engine: engine, log: log}, nil
}

// Serve long-polls updates until the context is cancelled. Implements
// suture.Service.
func (b *Bot) Serve(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	b.log.Info("telegram bot started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return fmt.Errorf("telegram update channel closed")
			}
			if upd.Message == nil || upd.Message.From == nil {
				continue
			}
			// Handlers may fetch from a marketplace; keep the poll
			// loop free. The engine serializes per user.
			go b.handle(ctx, upd.Message)
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	var reply string
	switch msg.Command() {
	case "start", "help":
		b.engine.Reset(userID)
		reply = chat.MsgWelcome
	case "list":
		reply = b.engine.List(ctx, chatID)
	case "remove":
		reply = b.engine.Remove(ctx, chatID, msg.CommandArguments())
	case "":
		reply = b.engine.HandleText(ctx, userID, chatID, msg.Text)
	default:
		reply = chat.MsgWelcome
	}

	if err := b.Send(ctx, chatID, reply); err != nil {
		b.log.Error("send reply", "chat", chatID, "err", err)
	}
}

// Send implements watch.Notifier.
func (b *Bot) Send(ctx context.Context, chatID int64, text string) error {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeHTML
	m.DisableWebPagePreview = true
	if _, err := b.api.Send(m); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return nil
}
