package transport

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/toxbot/internal/bot"
)

// Source delivers platform updates to the dispatcher, regardless of how they
// arrive (long polling or webhook callbacks).
type Source interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Updates() <-chan api.Update
	Errors() <-chan error
}

// Poller long-polls getUpdates in the background.
type Poller struct {
	botAPI  *api.BotAPI
	updates api.UpdatesChannel
	errs    chan error
	cancel  context.CancelFunc
}

func NewPoller(botAPI *api.BotAPI) *Poller {
	return &Poller{botAPI: botAPI}
}

func (p *Poller) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel

	updateConfig := api.NewUpdate(0)
	updateConfig.Timeout = 60
	p.updates, p.errs = bot.GetUpdatesChans(runCtx, p.botAPI, updateConfig)
	return nil
}

func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.botAPI.StopReceivingUpdates()
	return nil
}

func (p *Poller) Updates() <-chan api.Update {
	return p.updates
}

func (p *Poller) Errors() <-chan error {
	return p.errs
}
