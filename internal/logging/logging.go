// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.elastic.co/ecszerolog"
)

// Formats accepted by Setup.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
	// FormatECS writes Elastic Common Schema JSON for log shippers feeding Elasticsearch.
	FormatECS = "ecs"
)

// Setup installs the global logger tagged with the app name.
func Setup(app string, level zerolog.Level, format string) zerolog.Logger {
	return SetupWriter(os.Stdout, app, level, format)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(out io.Writer, app string, level zerolog.Level, format string) zerolog.Logger {
	zerolog.SetGlobalLevel(level)

	var base zerolog.Logger
	switch format {
	case FormatECS:
		base = ecszerolog.New(out)
	case FormatConsole:
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
		base = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	default:
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
		base = zerolog.New(out).With().Timestamp().Logger()
	}
	log.Logger = base.With().Str("app", app).Logger()
	return log.Logger
}
