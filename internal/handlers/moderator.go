package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/iamwavecut/toxbot/internal/bot"
	"github.com/iamwavecut/toxbot/internal/classifier"
	"github.com/iamwavecut/toxbot/internal/db"
	"github.com/iamwavecut/toxbot/internal/i18n"
	"github.com/iamwavecut/toxbot/internal/moderation"
	"github.com/iamwavecut/toxbot/internal/observability"
	"github.com/iamwavecut/toxbot/internal/transcribe"
)

const (
	expiryFormat         = "2006-01-02 15:04:05"
	voiceDownloadTimeout = 30 * time.Second
)

type offenseStore interface {
	GetUserOffense(ctx context.Context, userID int64) (*db.UserOffense, error)
	UpsertUserOffense(ctx context.Context, offense *db.UserOffense) error
}

// platform abstracts the chat platform side effects so the pipeline can be
// exercised without a live bot API.
type platform interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	Reply(ctx context.Context, chatID int64, messageID int, text string) error
	VoiceFileURL(fileID string) (string, error)
}

type telegramPlatform struct {
	bot *api.BotAPI
}

func (p *telegramPlatform) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return bot.DeleteChatMessage(ctx, p.bot, chatID, messageID)
}

func (p *telegramPlatform) Reply(ctx context.Context, chatID int64, messageID int, text string) error {
	return bot.SendReply(ctx, p.bot, chatID, messageID, text)
}

func (p *telegramPlatform) VoiceFileURL(fileID string) (string, error) {
	return p.bot.GetFileDirectURL(fileID)
}

// Moderator runs one message end to end: record fetch, block check, optional
// transcription, classification, decision, side effects, persist.
type Moderator struct {
	s           bot.Service
	store       offenseStore
	platform    platform
	classifier  classifier.Classifier
	transcriber transcribe.Transcriber
	httpClient  *http.Client

	locksMutex sync.Mutex
	userLocks  map[int64]*sync.Mutex
}

func NewModerator(s bot.Service, cl classifier.Classifier, tr transcribe.Transcriber) *Moderator {
	m := &Moderator{
		s:           s,
		store:       s.GetDB(),
		platform:    &telegramPlatform{bot: s.GetBot()},
		classifier:  cl,
		transcriber: tr,
		httpClient:  &http.Client{Timeout: voiceDownloadTimeout},
		userLocks:   make(map[int64]*sync.Mutex),
	}
	m.getLogEntry().Debug("created new moderator")
	return m
}

func (m *Moderator) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	msg := u.Message
	if msg == nil || chat == nil || user == nil {
		return true, nil
	}
	if user.IsBot || msg.IsCommand() {
		return true, nil
	}
	isVoice := msg.Voice != nil
	if !isVoice && msg.Text == "" {
		return true, nil
	}

	ctx, span := otel.Tracer("moderator").Start(ctx, "moderate-message")
	defer span.End()
	done := observability.StartMessageProcessing()

	// Read-decide-write for one user must not interleave; concurrent
	// messages from the same sender would otherwise lose increments.
	unlock := m.lockUser(user.ID)
	defer unlock()

	now := time.Now()
	lang := m.s.GetLanguage(user)
	entry := m.getLogEntry().WithFields(log.Fields{"chat_id": chat.ID, "user_id": user.ID})

	rec := m.fetchRecord(ctx, user.ID)
	rec.Username = bot.GetUN(user)

	if rec.IsBlocked(now) {
		m.deleteMessage(ctx, chat.ID, msg.MessageID)
		m.reply(ctx, chat.ID, msg.MessageID,
			fmt.Sprintf(i18n.Get("⛔ You're blocked until %s", lang), rec.BlockedUntil.Format(expiryFormat)))
		observability.RecordOutcome(string(moderation.ActionRejectBlocked))
		done("rejected")
		return false, nil
	}

	text := msg.Text
	if isVoice {
		transcribed := m.transcribeVoice(ctx, entry, user.ID, msg)
		m.deleteMessage(ctx, chat.ID, msg.MessageID)
		if transcribed == "" {
			m.reply(ctx, chat.ID, msg.MessageID, i18n.Get("❓ Could not understand your voice message.", lang))
			observability.RecordOutcome("unintelligible")
			done("unintelligible")
			return false, nil
		}
		text = transcribed
	}

	toxic, err := m.classifier.IsToxic(ctx, text)
	if err != nil {
		done("error")
		return false, fmt.Errorf("cant classify message: %w", err)
	}
	if toxic {
		observability.RecordToxicMessage()
	}

	decision := moderation.Decide(rec, now, toxic)

	switch decision.Action {
	case moderation.ActionAllow:
		if isVoice {
			m.reply(ctx, chat.ID, msg.MessageID,
				fmt.Sprintf(i18n.Get("✅ Voice message transcription: %s", lang), text)+"\n"+i18n.Get("✅ Not Toxic", lang))
		} else {
			m.reply(ctx, chat.ID, msg.MessageID, i18n.Get("✅ Not Toxic", lang))
		}
	case moderation.ActionRemove, moderation.ActionBlock:
		if !isVoice {
			m.deleteMessage(ctx, chat.ID, msg.MessageID)
		}
		removedKey := "🚫 Toxic message removed. Explanation:"
		if isVoice {
			removedKey = "🚫 Toxic voice message removed. Explanation:"
		}
		m.reply(ctx, chat.ID, msg.MessageID, i18n.Get(removedKey, lang)+"\n"+moderation.Explain(text))

		if decision.Warn {
			m.reply(ctx, chat.ID, msg.MessageID,
				fmt.Sprintf(i18n.Get("⚠️ Warning @%s: 8 toxic messages detected.", lang), decision.Record.Username))
		}
		if decision.Action == moderation.ActionBlock {
			observability.RecordBlock()
			m.reply(ctx, chat.ID, msg.MessageID,
				fmt.Sprintf(i18n.Get("⛔ You are blocked for 2 days until %s", lang), decision.BlockedUntil.Format(expiryFormat)))
		}
	}

	m.persist(ctx, entry, &decision.Record)
	observability.RecordOutcome(string(decision.Action))
	done(string(decision.Action))
	return false, nil
}

func (m *Moderator) lockUser(userID int64) func() {
	m.locksMutex.Lock()
	lock, ok := m.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.userLocks[userID] = lock
	}
	m.locksMutex.Unlock()

	lock.Lock()
	return lock.Unlock
}

// fetchRecord treats any storage failure as an absent record. A transient
// outage under-counts offenses instead of stalling moderation.
func (m *Moderator) fetchRecord(ctx context.Context, userID int64) db.UserOffense {
	rec, err := m.store.GetUserOffense(ctx, userID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			m.getLogEntry().WithFields(log.Fields{
				"user_id": userID,
				"error":   err.Error(),
			}).Error("cant read offense record, treating as absent")
		}
		return db.UserOffense{UserID: userID}
	}
	return *rec
}

func (m *Moderator) persist(ctx context.Context, entry *log.Entry, rec *db.UserOffense) {
	if err := m.store.UpsertUserOffense(ctx, rec); err != nil {
		entry.WithField("error", err.Error()).Error("cant persist offense record")
	}
}

func (m *Moderator) transcribeVoice(ctx context.Context, entry *log.Entry, userID int64, msg *api.Message) string {
	audio, err := m.downloadVoice(ctx, msg.Voice)
	if err != nil {
		entry.WithField("error", err.Error()).Error("cant download voice message")
		return ""
	}
	text, err := m.transcriber.Transcribe(ctx, audio, fmt.Sprintf("%d_%d.ogg", userID, msg.MessageID))
	if err != nil {
		entry.WithField("error", err.Error()).Warn("cant transcribe voice message")
		return ""
	}
	return text
}

func (m *Moderator) downloadVoice(ctx context.Context, voice *api.Voice) ([]byte, error) {
	url, err := m.platform.VoiceFileURL(voice.FileID)
	if err != nil {
		return nil, fmt.Errorf("cant resolve voice file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("cant create voice download request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cant download voice file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (m *Moderator) deleteMessage(ctx context.Context, chatID int64, messageID int) {
	// Best-effort: the message may already be gone or the bot may lack
	// the delete permission.
	if err := m.platform.DeleteMessage(ctx, chatID, messageID); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Debug("cant delete message")
	}
}

func (m *Moderator) reply(ctx context.Context, chatID int64, messageID int, text string) {
	if err := m.platform.Reply(ctx, chatID, messageID, text); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Error("cant send reply")
	}
}

func (m *Moderator) getLogEntry() *log.Entry {
	return log.WithField("object", "Moderator")
}
