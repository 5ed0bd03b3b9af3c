package di

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
)

// ProvideLogger creates a new zerolog.Logger configured for the runtime environment.
// In Lambda (when AWS_LAMBDA_RUNTIME_API is set), it uses JSON format.
// In terminal/CLI, it uses console format with pretty printing.
func ProvideLogger() zerolog.Logger {
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		// Running in Lambda - use JSON format
		return zerolog.New(os.Stdout).
			Level(zerolog.InfoLevel).
			With().
			Timestamp().
			Logger()
	}

	// Running in terminal - use console format with colors
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()
}

// ProvideInvocationLogger derives a per-invocation logger carrying a fresh
// correlation id so lines from overlapping invocations can be told apart.
func ProvideInvocationLogger(logger zerolog.Logger) zerolog.Logger {
	return logger.With().
		Str("invocation_id", ksuid.New().String()).
		Logger()
}
