package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	log     = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	logFile *os.File
)

func logPath() string { return filepath.Join(stateDir(), "samos-shell.log") }

// setupLogging sends log output to stderr and to a file in the state directory.
// If the file cannot be opened the console logger is kept.
func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	f, ferr := openLogFile()
	if ferr == nil {
		logFile = f
		w = zerolog.MultiLevelWriter(w, f)
	}

	log = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	if ferr != nil {
		log.Warn().Err(ferr).Msg("log file unavailable, logging to console only")
	}
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, using info")
	}
}

func openLogFile() (*os.File, error) {
	if err := os.MkdirAll(stateDir(), 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return os.OpenFile(logPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

func closeLogging() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// component returns a child logger tagged with name.
func component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
