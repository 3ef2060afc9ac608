package logx

import (
	"io"
	"os"

	"github.com/chative/market-research/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var DefaultLoggerOpts = &LoggerOpts{
	Environment: core.Development,
}

type LoggerOpts struct {
	Environment core.Environment
	// Level overrides the environment default when it parses as a zerolog level.
	Level string
	// Output defaults to stderr.
	Output io.Writer
}

func safe(otps ...LoggerOpts) *LoggerOpts {
	if len(otps) == 0 {
		return DefaultLoggerOpts
	}
	return &otps[0]
}

func Init(otps ...LoggerOpts) {
	opts := safe(otps...)
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := zerolog.DebugLevel
	if opts.Environment == core.Production {
		level = zerolog.InfoLevel
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Caller().Logger()
	}
	if opts.Level != "" {
		if l, err := zerolog.ParseLevel(opts.Level); err == nil {
			level = l
		}
	}
	log.Logger = log.Logger.Level(level)
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Panic() *zerolog.Event {
	return log.Panic()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
