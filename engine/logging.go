package engine

import (
	"os"

	"github.com/rs/zerolog"
)

// Log is the package logger. The CLI reconfigures its level from the config
// file before a session starts.
var Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

// SetLogLevel parses and applies a zerolog level name. Unknown names keep the
// current level.
func SetLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		Log.Warn().Str("level", level).Msg("unknown log level, keeping current")
		return
	}
	Log = Log.Level(lvl)
}
