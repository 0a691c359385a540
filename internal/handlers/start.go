package handlers

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/toxbot/internal/bot"
	"github.com/iamwavecut/toxbot/internal/i18n"
)

// Start greets users on the /start command.
type Start struct {
	s bot.Service
}

func NewStart(s bot.Service) *Start {
	return &Start{s: s}
}

func (h *Start) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	msg := u.Message
	if msg == nil || chat == nil || !msg.IsCommand() || msg.Command() != "start" {
		return true, nil
	}

	lang := h.s.GetLanguage(user)
	reply := api.NewMessage(chat.ID, i18n.Get("👋 Welcome! Send me text or voice messages and I'll check for toxicity.", lang))
	if _, err := h.s.GetBot().Send(reply); err != nil {
		log.WithField("error", err.Error()).Error("cant send welcome message")
	}
	return false, nil
}
