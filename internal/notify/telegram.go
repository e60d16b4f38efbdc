package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
)

// telegramSender is the part of *tgbotapi.BotAPI the sink uses.
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink sends notifications to one chat.
type TelegramSink struct {
	bot    telegramSender
	chatID int64
}

// NewTelegramSink logs in with token. It calls the Telegram API once to
// validate the token.
func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &TelegramSink{bot: bot, chatID: chatID}, nil
}

func (s *TelegramSink) Name() string { return "telegram" }

// Notify sends tr as an HTML message. The bot client has no context
// support; ctx only bounds the span.
func (s *TelegramSink) Notify(ctx context.Context, tr *domain.Transition) error {
	_, span := otel.Tracer("notifier").Start(ctx, "sink.telegram")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(s.chatID, HTML(tr))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := s.bot.Send(msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return fmt.Errorf("telegram send to chat %d: %w", s.chatID, err)
	}
	return nil
}
