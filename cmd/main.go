package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/floe/internal/services"
	"github.com/desertthunder/floe/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadDotenv(".env"); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	} else {
		config.ApplyEnv()
	}

	ytmusic := services.NewYTMusicService(
		config.Credentials.YouTube.ProxyURL,
		config.Credentials.YouTube.AuthFile,
	)

	categorizer := services.NewCategorizer(
		config.Credentials.Anthropic.APIKey,
		config.Credentials.Anthropic.Model,
		services.PromptPolicy{
			TimeWeight:      config.Classifier.TimeWeight,
			SongWeight:      config.Classifier.SongWeight,
			ConfidenceFloor: config.Classifier.ConfidenceFloor,
		},
		logger,
	)

	runner := NewRunner(RunnerOpts{
		Config:     config,
		History:    ytmusic,
		Playlists:  ytmusic,
		Classifier: categorizer,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "floe",
		Usage:    "Sort your YouTube Music listening history into playlists",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
