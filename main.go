package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	advisorx "github.com/pattarawit/amort-mortgage-advisor/agent/agents/advisor"
	gatewayx "github.com/pattarawit/amort-mortgage-advisor/agent/gateway"
	llmx "github.com/pattarawit/amort-mortgage-advisor/agent/llm"
	statex "github.com/pattarawit/amort-mortgage-advisor/agent/state"
	configx "github.com/pattarawit/amort-mortgage-advisor/pkg/config"
	_ "github.com/pattarawit/amort-mortgage-advisor/pkg/logger/autoload"
	openrouterx "github.com/pattarawit/amort-mortgage-advisor/pkg/openrouter"
	serverx "github.com/pattarawit/amort-mortgage-advisor/server"
)

type AppConfig struct {
	Port         int    `envconfig:"APP_PORT" default:"3000"`
	SessionStore string `envconfig:"SESSION_STORE" default:"memory"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")

	// Fail fast on a missing API key, before any request arrives.
	if openrouterx.NewClient(llmCfg.OpenRouter()) == nil {
		log.Fatal().Msg("openrouter api key is required")
	}

	ctx := context.Background()

	store, closeStore, err := buildStore(ctx, appCfg.SessionStore)
	if err != nil {
		log.Fatal().Err(err).Str("store", appCfg.SessionStore).Msg("failed to initialize session store")
	}
	defer closeStore()

	gw, err := gatewayx.New(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize model gateway")
	}

	adv, err := advisorx.New(store, gw)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize chat orchestrator")
	}

	srv := serverx.New(appCfg.Port, serverx.NewHandler(adv), log.Logger)

	go func() {
		log.Info().Int("port", appCfg.Port).Str("store", appCfg.SessionStore).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shut down")
		return
	}
	log.Info().Msg("server stopped")
}

func buildStore(ctx context.Context, kind string) (statex.Store, func(), error) {
	noop := func() {}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "memory":
		return statex.NewMemoryStore(), noop, nil
	case "redis":
		cfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		store, err := statex.NewUpstashRedisStore(*cfg)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case "postgres":
		cfg := configx.MustNew[statex.PostgresConfig]("POSTGRES")
		store, err := statex.NewPostgresStore(ctx, *cfg)
		if err != nil {
			return nil, noop, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close session store")
			}
		}, nil
	default:
		return nil, noop, errors.New("unknown SESSION_STORE: " + kind)
	}
}
