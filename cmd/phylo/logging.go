package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"phylo/internal/config"
)

const (
	logLevelEnvKey  = "PHYLO_LOG_LEVEL"
	logFormatEnvKey = "PHYLO_LOG_FORMAT"
)

// levelSource records where the effective log level came from.
type levelSource string

const (
	fromFlag    levelSource = "flag"
	fromEnv     levelSource = "env"
	fromConfig  levelSource = "config"
	fromDefault levelSource = "default"
)

// logSink is where diagnostics go. stdout stays reserved for trees, SVG
// and --json/--yaml payloads.
var logSink io.Writer = os.Stderr

// configureLoggerForCLI installs the process logger. An invalid --log-level
// is an error; an invalid env or config level falls back to the default and
// returns a warning for the caller to print.
func configureLoggerForCLI(flagLevel, configLevel string) (string, error) {
	envLevel := os.Getenv(logLevelEnvKey)
	raw, source := selectedLogLevel(flagLevel, envLevel, configLevel)

	level, err := parseLogLevel(raw)
	if err == nil {
		slog.SetDefault(newLogger(level))
		return "", nil
	}

	slog.SetDefault(newLogger(slog.LevelInfo))
	switch source {
	case fromFlag:
		return "", fmt.Errorf("invalid --log-level %q", flagLevel)
	case fromEnv:
		return fmt.Sprintf("warning: invalid %s=%q; defaulting to %s", logLevelEnvKey, envLevel, config.DefaultLogLevel), nil
	case fromConfig:
		return fmt.Sprintf("warning: invalid log_level=%q; defaulting to %s (fix with: phylo config set log_level info)", configLevel, config.DefaultLogLevel), nil
	}
	return "", nil
}

func selectedLogLevel(flagLevel, envLevel, configLevel string) (string, levelSource) {
	for _, candidate := range []struct {
		value  string
		source levelSource
	}{
		{flagLevel, fromFlag},
		{envLevel, fromEnv},
		{configLevel, fromConfig},
	} {
		if strings.TrimSpace(candidate.value) != "" {
			return candidate.value, candidate.source
		}
	}
	return "", fromDefault
}

func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "":
		value = config.DefaultLogLevel
	case "warning":
		value = "warn"
	}
	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

// newLogger builds the stderr logger. PHYLO_LOG_FORMAT=json switches to
// one JSON object per line; anything else keeps the text handler.
func newLogger(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(os.Getenv(logFormatEnvKey)), "json") {
		handler = slog.NewJSONHandler(logSink, opts)
	} else {
		handler = slog.NewTextHandler(logSink, opts)
	}
	return slog.New(handler).With("app", "phylo")
}
