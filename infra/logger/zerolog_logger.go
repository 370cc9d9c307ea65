package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// pretty switches new loggers to the human-readable console writer. JSON is
// the default; KURIR_ENV=dev or Configure flip it.
var pretty atomic.Bool

func init() {
	if strings.EqualFold(os.Getenv("KURIR_ENV"), "dev") {
		pretty.Store(true)
	}
}

// Configure applies the configured log level and output format. Level names
// follow zerolog (trace, debug, info, warn, error, fatal); an unknown name is
// rejected and the current settings stay in effect.
func Configure(level string, prettyOut bool) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	pretty.Store(prettyOut)
	return nil
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a logger that tags every entry with the component.
func NewZerologLogger(component string) Logger {
	var out io.Writer = os.Stdout
	if pretty.Load() {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(out).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
