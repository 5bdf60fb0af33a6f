package app

import (
	"context"
	"errors"
	"strings"

	"github.com/suPer8Hu/ai-chatbot/internal/ai"
	"github.com/suPer8Hu/ai-chatbot/internal/audit"
	"github.com/suPer8Hu/ai-chatbot/internal/chat"
	"github.com/suPer8Hu/ai-chatbot/internal/config"
	"github.com/suPer8Hu/ai-chatbot/internal/observability"
)

type App struct {
	Config  config.Config
	Service *chat.Service

	closers []func() error
}

// NewRegistry registers every provider the config knows about. The model
// argument of a factory overrides the configured model when not empty.
func NewRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()

	reg.Register("openrouter", func(model string) (ai.Provider, error) {
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OpenRouterModel
		}
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, m,
			cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})
	reg.Register("ollama", func(model string) (ai.Provider, error) {
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, m), nil
	})
	reg.Register("openai", func(model string) (ai.Provider, error) {
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OpenAIModel
		}
		return ai.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, m, map[string]string{
			"HTTP-Referer": cfg.OpenRouterSiteURL,
			"X-Title":      cfg.OpenRouterAppName,
		}), nil
	})
	return reg
}

func modelFor(cfg config.Config) string {
	switch strings.ToLower(strings.TrimSpace(cfg.AIProvider)) {
	case "ollama":
		return cfg.OllamaModel
	case "openai":
		return cfg.OpenAIModel
	default:
		return cfg.OpenRouterModel
	}
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	log := observability.Logger()

	provider, err := NewRegistry(cfg).Get(cfg.AIProvider, "")
	if err != nil {
		return nil, err
	}

	recorder, closeRecorder, err := audit.Open(ctx, audit.Options{
		Driver:        cfg.AuditDriver,
		DSN:           cfg.DBDSN,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		RedisKey:      cfg.AuditRedisKey,
		RedisMax:      cfg.AuditRedisMax,
		AMQPURL:       cfg.RabbitURL,
		AMQPQueue:     cfg.RabbitQueue,
	})
	if err != nil {
		return nil, err
	}

	svc := chat.NewService(chat.NewStore(), provider,
		chat.WithRecorder(recorder),
		chat.WithProviderInfo(strings.ToLower(cfg.AIProvider), modelFor(cfg)),
	)

	log.Info("app ready",
		"provider", cfg.AIProvider,
		"model", modelFor(cfg),
		"audit_driver", cfg.AuditDriver,
		"api_key_set", cfg.OpenRouterAPIKey != "",
	)

	return &App{Config: cfg, Service: svc, closers: []func() error{closeRecorder}}, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
