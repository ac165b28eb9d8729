package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/simple-assets/pkg/simpleassets"
	"github.com/tendant/simple-assets/pkg/simpleassets/api"
	"github.com/tendant/simple-assets/pkg/simpleassets/config"
)

type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	ConfigFile  string `env:"ASSETS_CONFIG_FILE" env-default:""`
	EnvPrefix   string `env:"ASSETS_ENV_PREFIX" env-default:"ASSETS_"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var serverCfg ServerConfig
	if err := cleanenv.ReadEnv(&serverCfg); err != nil {
		logger.Error("failed to read server config", "error", err)
		os.Exit(1)
	}

	var opts []config.Option
	if serverCfg.ConfigFile != "" {
		opts = append(opts, config.WithFile(serverCfg.ConfigFile))
	}
	opts = append(opts, config.WithEnv(serverCfg.EnvPrefix))

	cfg, err := config.Load(opts...)
	if err != nil {
		logger.Error("failed to load asset config", "error", err)
		os.Exit(1)
	}

	svc, err := cfg.BuildService(context.Background(), logger)
	if err != nil {
		logger.Error("failed to build asset service", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(svc, simpleassets.NewLister(svc), logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Mount("/", handler.Routes())

	addr := ":" + serverCfg.Port
	logger.Info("asset server listening",
		"addr", addr,
		"environment", serverCfg.Environment,
		"database", cfg.Database.Type,
		"storage", cfg.Storage.Type)

	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
