package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Logger is the process-wide logger used by cmd and by log.* calls.
	Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	// output is the sink shared by Logger and every component logger.
	output io.Writer = os.Stdout
)

// Initialize sets up the global logger. Format "json" writes one JSON object
// per line, anything else writes human-readable console output.
func Initialize(logLevel string, format string) {
	zerolog.TimeFieldFormat = time.RFC3339

	if strings.EqualFold(format, "json") {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "2006-01-02 15:04:05",
			NoColor:    false,
		}
	}

	Logger = zerolog.New(globalWriter{}).
		With().
		Timestamp().
		Caller().
		Str("service", "cwgateway").
		Logger()

	zerolog.SetGlobalLevel(ParseLevel(logLevel))

	// Replace standard log with zerolog
	log.Logger = Logger
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(logLevel string) zerolog.Level {
	switch strings.ToLower(logLevel) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	return &Logger
}

// GetForComponent returns a logger with a component field for better filtering.
// The returned logger writes through the global logger at call time, so
// package-level component loggers pick up Initialize even when created first.
func GetForComponent(component string) zerolog.Logger {
	return zerolog.New(globalWriter{}).With().Timestamp().Str("component", component).Logger()
}

// globalWriter forwards to whatever output Logger currently uses.
type globalWriter struct{}

func (globalWriter) Write(p []byte) (int, error) {
	return output.Write(p)
}

// FileWriter returns a writer to a log file for optional use alongside console logging
func FileWriter(path string) (io.Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return file, nil
}
