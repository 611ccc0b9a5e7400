package notify

import (
	"context"
	"fmt"

	"clinicbook/internal/config"
	"clinicbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramSender is the subset of the bot API used for notifications.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramChannel posts staff notifications into a fixed chat.
type TelegramChannel struct {
	sender TelegramSender
	chatID int64
	logger *zerolog.Logger
}

// NewTelegramChannel returns nil when the bot token is not configured.
func NewTelegramChannel(cfg config.TelegramConfig, logger *zerolog.Logger) (*TelegramChannel, error) {
	if cfg.BotToken == "" || cfg.StaffChatID == 0 {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramChannel{sender: bot, chatID: cfg.StaffChatID, logger: logger}, nil
}

// NewTelegramChannelWithSender wires an explicit sender; used in tests.
func NewTelegramChannelWithSender(sender TelegramSender, chatID int64, logger *zerolog.Logger) *TelegramChannel {
	return &TelegramChannel{sender: sender, chatID: chatID, logger: logger}
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Send(ctx context.Context, booking *models.Booking) error {
	msg := tgbotapi.NewMessage(c.chatID, bookingBody(booking))
	if _, err := c.sender.Send(msg); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}

	c.logger.Info().
		Int64("chat_id", c.chatID).
		Str("reference", booking.Reference).
		Msg("booking telegram message sent")
	return nil
}
