package notify

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNotifyRejectsUnknownChannel(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.Notify(context.Background(), "carrier-pigeon", nil, "hi")
	assert.Error(t, err)
}

func TestNotifyTelegramRequiresBotTokenAndChatID(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.Notify(context.Background(), "telegram", map[string]interface{}{}, "hi")
	assert.Error(t, err)

	err = s.Notify(context.Background(), "telegram", map[string]interface{}{"bot_token": "t"}, "hi")
	assert.Error(t, err, "missing chat_id")
}

func TestNotifyEmailAndWhatsappLogOnlyWithoutError(t *testing.T) {
	s := New(zerolog.Nop())
	assert.NoError(t, s.Notify(context.Background(), "email", map[string]interface{}{"recipient": "a@b.com"}, "hi"))
	assert.NoError(t, s.Notify(context.Background(), "whatsapp", map[string]interface{}{"to_number": "+1"}, "hi"))
}
