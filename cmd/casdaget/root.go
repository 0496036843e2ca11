package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"casdaget/internal/casda"
	"casdaget/internal/config"
	"casdaget/internal/observability"
	"casdaget/internal/workflow"
)

// defaultPollTimeout bounds how long a single job is polled before the run
// gives up on it.
const defaultPollTimeout = 6 * time.Hour

// resolveConfig builds the effective configuration for a command: config
// file values first, overridden by any flag the user set, with environment
// variables filling remaining credential and environment gaps.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if flagConfigPath != "" {
		loaded, err := config.LoadConfig(flagConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	// CLI flags override config file values
	if cmd.Flags().Changed("username") {
		cfg.Username = flagUsername
	}
	if cmd.Flags().Changed("password-file") {
		cfg.PasswordFile = flagPasswordFile
	}
	if cmd.Flags().Changed("env") {
		cfg.Env = flagEnv
	}
	if cmd.Flags().Changed("poll-interval") {
		cfg.PollInterval = flagPollInterval
	}
	if cmd.Flags().Changed("poll-timeout") {
		cfg.PollTimeout = flagPollTimeout
	}
	if cmd.Flags().Changed("radius") {
		cfg.Radius = flagRadius
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = flagVerbose
	}

	cfg = cfg.MergeWithDefaults(config.Config{
		Username: os.Getenv("OPAL_USER"),
		Env:      os.Getenv("CASDA_ENV"),
	})
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newRunner builds a workflow runner for a command: resolve configuration
// and credentials, pick the archive environment and wire up the client.
// defaultInterval is the command's poll cadence when none is configured;
// radius overrides the configured cutout radius when positive.
func newRunner(cmd *cobra.Command, destDir string, defaultInterval time.Duration, radius float64) (*workflow.Runner, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("an OPAL user name is required: use --username, the config file or the OPAL_USER env var")
	}

	password, err := config.ResolvePassword(flagPassword, cfg.PasswordFile)
	if err != nil {
		return nil, err
	}

	env, err := casda.EnvironmentByName(cfg.Env)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		observability.NewPrinter(os.Stdout).PrintEnvironment(env)
	}

	log := newLogger(cfg.Verbose)
	client := casda.NewClient(env, cfg.Username, password, log)

	if radius <= 0 {
		radius = cfg.Radius
	}
	opts := workflow.Options{
		DestDir:      destDir,
		Radius:       radius,
		PollInterval: cfg.PollIntervalDuration(defaultInterval),
		PollTimeout:  cfg.PollTimeoutDuration(defaultPollTimeout),
		Quiet:        flagQuiet,
		Verbose:      cfg.Verbose,
	}
	return workflow.NewRunner(client, opts, log), nil
}

// newLogger builds the console logger. Verbose mode enables debug output;
// LOG_LEVEL overrides the level entirely when set.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
