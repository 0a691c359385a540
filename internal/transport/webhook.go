package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const (
	livenessMessage = "Toxic Scan Telegram Bot is running!"
	updateBuffer    = 100
)

// WebhookServer receives platform updates as HTTP callbacks. The callback
// path carries the bot token, per the platform's own convention, so third
// parties can't feed the dispatcher forged updates.
type WebhookServer struct {
	botAPI    *api.BotAPI
	router    *mux.Router
	server    *http.Server
	updates   chan api.Update
	errs      chan error
	publicURL string
	secret    string
	logger    *log.Entry
}

func NewWebhookServer(botAPI *api.BotAPI, secret, publicURL, listenAddr string) *WebhookServer {
	s := &WebhookServer{
		botAPI:    botAPI,
		router:    mux.NewRouter(),
		updates:   make(chan api.Update, updateBuffer),
		errs:      make(chan error, 1),
		publicURL: strings.TrimSuffix(publicURL, "/"),
		secret:    secret,
		logger:    log.WithField("object", "WebhookServer"),
	}
	s.server = &http.Server{
		Addr:         listenAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.setupRoutes()
	return s
}

func (s *WebhookServer) setupRoutes() {
	s.router.HandleFunc("/", s.handleLiveness()).Methods(http.MethodGet)
	s.router.HandleFunc("/webhook/{secret}", s.handleUpdate()).Methods(http.MethodPost)
	s.router.HandleFunc("/set_webhook", s.handleSetWebhook()).Methods(http.MethodGet)
}

func (s *WebhookServer) Start(ctx context.Context) error {
	go func() {
		s.logger.WithField("addr", s.server.Addr).Info("starting webhook server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.errs <- err
		}
	}()
	return nil
}

func (s *WebhookServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *WebhookServer) Updates() <-chan api.Update {
	return s.updates
}

func (s *WebhookServer) Errors() <-chan error {
	return s.errs
}

// Handler exposes the router, mainly for tests.
func (s *WebhookServer) Handler() http.Handler {
	return s.router
}

func (s *WebhookServer) handleLiveness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(livenessMessage))
	}
}

func (s *WebhookServer) handleUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["secret"] != s.secret {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var update api.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			s.logger.WithField("error", err.Error()).Warn("cant decode update payload")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		select {
		case s.updates <- update:
		default:
			s.logger.Warn("update buffer full, dropping update")
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func (s *WebhookServer) handleSetWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callback := fmt.Sprintf("%s/webhook/%s", s.publicURL, s.secret)
		wh, err := api.NewWebhook(callback)
		if err != nil {
			s.logger.WithField("error", err.Error()).Error("cant build webhook config")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if _, err := s.botAPI.Request(wh); err != nil {
			s.logger.WithField("error", err.Error()).Error("cant register webhook")
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("webhook set"))
	}
}
