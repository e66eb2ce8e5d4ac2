// Package notify implements the telegram/email/whatsapp notification sinks'
// external-posting capability (nodes.Notifier), per spec §4.4.
//
// Telegram is grounded on internal/telegram/bot.go's SendMessage (bot-token
// + chat-id POST to the Telegram Bot API), ported onto go-resty/resty/v2
// for consistency with the rest of the core's HTTP calls instead of a raw
// net/http client. Email and WhatsApp are grounded on
// original_source/frame-processing-service/src/nodes/{email_node,
// whatsapp_node}.py, which are themselves placeholders that only log —
// carried over as such rather than inventing an SMTP/WhatsApp-API stack no
// part of the corpus demonstrates.
package notify

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

type Sender struct {
	client *resty.Client
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Sender {
	return &Sender{
		client: resty.New().SetTimeout(10e9),
		log:    log,
	}
}

// Notify satisfies nodes.Notifier.
func (s *Sender) Notify(ctx context.Context, channel string, cfg map[string]interface{}, message string) error {
	switch channel {
	case "telegram":
		return s.sendTelegram(ctx, cfg, message)
	case "email":
		s.log.Info().Str("recipient", str(cfg, "recipient")).Msg("email notification not implemented, logging only")
		return nil
	case "whatsapp":
		s.log.Info().Str("to_number", str(cfg, "to_number")).Msg("whatsapp notification not implemented, logging only")
		return nil
	default:
		return fmt.Errorf("unknown notification channel %q", channel)
	}
}

func (s *Sender) sendTelegram(ctx context.Context, cfg map[string]interface{}, message string) error {
	token := str(cfg, "bot_token")
	chatID := str(cfg, "chat_id")
	if token == "" || chatID == "" {
		return fmt.Errorf("telegram bot_token or chat_id not configured")
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", token)
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"chat_id":    chatID,
			"text":       message,
			"parse_mode": "Markdown",
		}).
		Post(url)
	if err != nil {
		return fmt.Errorf("posting telegram message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram API returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func str(cfg map[string]interface{}, key string) string {
	if v, ok := cfg[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
