package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/floe/internal/shared"
	"github.com/urfave/cli/v3"
)

// reloadConfig swaps in the config file named by the --config flag when it
// exists. The JSON document store keeps its original paths; only settings
// read at action time (credentials, database path) pick up the override.
func (r *Runner) reloadConfig(cmd *cli.Command) {
	path := cmd.String("config")
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, keeping current settings", "path", path, "error", err)
		return
	}
	r.config = config
}

// SetupConfig creates a config file from the bundled template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%w: %s already exists", shared.ErrInvalidInput, configPath)
	}

	if err := shared.CreateConfigFile(configPath); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	r.logger.Info("config file created", "path", configPath)
	return r.writePlainln("Created %s. Fill in your Anthropic API key and proxy settings.", configPath)
}

// SetupYouTube generates the proxy auth file from browser headers.
//
// Accepts a cURL command copied from the browser's network inspector and
// extracts the cookie and request headers the ytmusicapi proxy needs.
func (r *Runner) SetupYouTube(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")
	outputPath := cmd.String("output")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}

	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidInput)
	}

	r.logger.Info("parsing cURL command for YouTube Music headers")

	var curlHeaders *shared.CurlHeaders
	var err error

	if curlFile != "" {
		curlHeaders, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
	} else {
		curlHeaders, err = shared.ParseCurlCommand([]byte(curlCmd))
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
	}

	if outputPath == "" {
		outputPath = r.config.Credentials.YouTube.AuthFile
	}
	if outputPath == "" {
		outputPath = "headers_auth.json"
	}

	if err := curlHeaders.WriteAuthFile(outputPath); err != nil {
		return fmt.Errorf("failed to write auth file: %w", err)
	}

	r.logger.Info("auth file written", "path", outputPath)
	return r.writePlainln("Wrote %s. The proxy will use it for authenticated requests.", outputPath)
}

// SetupDatabase initializes the archive database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)
	path := r.config.Storage.DatabasePath

	r.logger.Info("initializing database", "path", path)

	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Storage.MaxOpenConns, r.config.Storage.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Info("setup complete", "database", path)
	return nil
}
