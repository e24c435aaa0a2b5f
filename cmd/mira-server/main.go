// mira-server runs the chat media understanding service: it accepts
// attachments over HTTP, dispatches them to analysis backends, and memoizes
// the results in a content-addressed cache.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mira/internal/cache"
	"mira/internal/capability"
	"mira/internal/capability/openai"
	"mira/internal/config"
	"mira/internal/dispatch"
	"mira/internal/logging"
	"mira/internal/pipeline"
	"mira/internal/server"
	"mira/internal/staging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mira-server",
		Short:         "Media understanding service for chat attachments",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	flags := cmd.Flags()
	flags.String("config", "", "path to YAML config file")
	flags.String("host", "", "listen host (overrides config)")
	flags.Int("port", 0, "listen port (overrides config)")
	flags.String("cache-dir", "", "result cache directory (overrides config)")
	flags.String("staging-dir", "", "temp staging directory (overrides config)")
	flags.String("provider", "", "capability provider: mock or openai (overrides config)")
	flags.String("log-level", "", "log level: debug, info, warn, error (overrides config)")

	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	v.SetEnvPrefix("MIRA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return err
	}
	applyOverrides(cfg, v)

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	observer, err := cache.NewPrometheusObserver("mira_media_cache", nil)
	if err != nil {
		return err
	}
	store, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL.Std(), logging.Component(logger, "cache"), observer)
	if err != nil {
		return err
	}
	if err := store.Initialize(); err != nil {
		return err
	}

	stager, err := staging.New(cfg.Staging.Dir, logging.Component(logger, "staging"))
	if err != nil {
		return err
	}

	registry := capability.NewRegistry()
	switch cfg.Capabilities.Provider {
	case "openai":
		client := openai.New(openai.Config{
			BaseURL:            cfg.Capabilities.OpenAI.BaseURL,
			APIKey:             cfg.Capabilities.OpenAI.APIKey,
			VisionModel:        cfg.Capabilities.OpenAI.VisionModel,
			ChatModel:          cfg.Capabilities.OpenAI.ChatModel,
			TranscriptionModel: cfg.Capabilities.OpenAI.TranscriptionModel,
			Timeout:            cfg.Capabilities.OpenAI.Timeout.Std(),
		}, logging.Component(logger, "openai"))
		if err := client.Register(registry); err != nil {
			return err
		}
	default:
		logger.Warn("using mock analysis backends; set capabilities.provider=openai for real analysis")
		if err := capability.RegisterMocks(registry); err != nil {
			return err
		}
	}

	dispatcher := dispatch.New(registry, logging.Component(logger, "dispatch"))
	pipe := pipeline.New(store, stager, dispatcher, logging.Component(logger, "pipeline"))
	srv := server.New(cfg.Server, pipe, logging.Component(logger, "server"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func applyOverrides(cfg *config.Config, v *viper.Viper) {
	if host := v.GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port := v.GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}
	if dir := v.GetString("cache-dir"); dir != "" {
		cfg.Cache.Dir = dir
	}
	if dir := v.GetString("staging-dir"); dir != "" {
		cfg.Staging.Dir = dir
	}
	if provider := v.GetString("provider"); provider != "" {
		cfg.Capabilities.Provider = provider
	}
	if level := v.GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
}
