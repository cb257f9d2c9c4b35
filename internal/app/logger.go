package app

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogger configures the global zerolog logger. Development gets the
// console writer; other environments log JSON. LOG_FILE adds a rotated
// file sink.
func SetupLogger(c *Config) io.Closer {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stdout
	if !c.Production() {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	var file *lumberjack.Logger
	if c.LogFile != "" {
		file = &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			LocalTime:  true,
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, file)
	}
	zlog.Logger = zerolog.New(out).With().Timestamp().Logger()
	if file == nil {
		return nopCloser{}
	}
	return file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
