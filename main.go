package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/toxbot/internal/bot"
	"github.com/iamwavecut/toxbot/internal/classifier"
	"github.com/iamwavecut/toxbot/internal/config"
	"github.com/iamwavecut/toxbot/internal/db/sqlite"
	"github.com/iamwavecut/toxbot/internal/handlers"
	"github.com/iamwavecut/toxbot/internal/infra"
	"github.com/iamwavecut/toxbot/internal/lifecycle"
	"github.com/iamwavecut/toxbot/internal/observability"
	"github.com/iamwavecut/toxbot/internal/transcribe"
	"github.com/iamwavecut/toxbot/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetFormatter(&config.ToxFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	infra.GoRecoverable(-1, "main", func() {
		run(cfg)
	})
}

func run(cfg config.Config) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := observability.Init(ctx, cfg.MetricsAddr); err != nil {
		log.WithError(err).Fatalln("cant init observability")
	}

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		log.WithError(err).Errorln("cant initialize bot api")
		time.Sleep(1 * time.Second)
		log.Fatalln("exiting")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}

	store, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(cfg.DotPath), cfg.DBName)
	if err != nil {
		log.WithError(err).Fatalln("cant open offense store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("cant close offense store")
		}
	}()

	toxicity, err := classifier.NewToxicity(cfg.Classifier.ModelsDir, cfg.Classifier.ModelName)
	if err != nil {
		log.WithError(err).Fatalln("cant load toxicity model")
	}
	whisper := transcribe.NewWhisper(cfg.Transcriber.APIKey, cfg.Transcriber.Model, cfg.Transcriber.BaseURL)

	service := bot.NewService(botAPI, store, cfg)
	bot.RegisterUpdateHandler("start", handlers.NewStart(service))
	bot.RegisterUpdateHandler("moderator", handlers.NewModerator(service, toxicity, whisper))

	var source transport.Source
	switch cfg.Transport {
	case config.TransportWebhook:
		source = transport.NewWebhookServer(botAPI, cfg.TelegramAPIToken, cfg.Webhook.PublicURL, cfg.Webhook.ListenAddr)
	default:
		source = transport.NewPoller(botAPI)
	}

	runtime := lifecycle.NewRuntime(source)
	if err := runtime.Start(ctx); err != nil {
		log.WithError(err).Fatalln("cant start transport")
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := runtime.Stop(stopCtx); err != nil {
			log.WithError(err).Error("shutdown error")
		}
	}()

	updateProcessor := bot.NewUpdateProcessor(service)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case err := <-source.Errors():
				return err
			case update := <-source.Updates():
				if err := updateProcessor.Process(gctx, &update); err != nil {
					log.WithError(err).Errorln("cant process update")
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	log.Infoln("bot started, waiting for messages")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatalln("bot api get updates error")
	}
}
