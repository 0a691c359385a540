package config

import (
	"context"
	"fmt"
	"sync"

	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken string   `env:"TOKEN,required"`
		DefaultLanguage  string   `env:"LANG,default=en"`
		EnabledHandlers  []string `env:"HANDLERS,default=start,moderator"`
		LogLevel         int      `env:"LOG_LEVEL,default=4"`
		DotPath          string   `env:"DOT_PATH,default=~/.toxbot"`
		DBName           string   `env:"DB_NAME,default=bot.db"`
		Transport        string   `env:"TRANSPORT,default=polling"`
		MetricsAddr      string   `env:"METRICS_ADDR,default=:2112"`
		Webhook          Webhook
		Classifier       Classifier
		Transcriber      Transcriber
	}

	Webhook struct {
		PublicURL  string `env:"WEBHOOK_URL"`
		ListenAddr string `env:"WEBHOOK_LISTEN_ADDR,default=:5000"`
	}

	Classifier struct {
		ModelsDir string `env:"MODELS_DIR,default=models"`
		ModelName string `env:"MODEL_NAME,default=MoritzLaurer/mDeBERTa-v3-base-mnli-xnli"`
	}

	Transcriber struct {
		APIKey  string `env:"TRANSCRIBE_API_KEY"`
		Model   string `env:"TRANSCRIBE_MODEL,default=whisper-1"`
		BaseURL string `env:"TRANSCRIBE_API_URL,default=https://api.openai.com/v1"`
	}
)

const (
	TransportPolling = "polling"
	TransportWebhook = "webhook"
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("TOX_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		if cfg.Transport == TransportWebhook && cfg.Webhook.PublicURL == "" {
			globalErr = fmt.Errorf("webhook transport requires TOX_WEBHOOK_URL")
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
