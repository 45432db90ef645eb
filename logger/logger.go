package logger

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is an immutable zerolog logger; the With methods return copies.
// Fields are passed as maps, usually built with Fields.
type Logger struct {
	zl      zerolog.Logger
	service string
}

// New builds a logger from cfg and sets the process-wide zerolog level.
// An unknown level falls back to info.
func New(cfg *Config, service string) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := writer(cfg)
	if cfg.Format == FormatConsole {
		out = zerolog.ConsoleWriter{Out: out, NoColor: cfg.NoColor, TimeFormat: "15:04:05.000"}
	}
	zc := zerolog.New(out).With().Timestamp().Str("service", service)
	if cfg.Caller {
		zc = zc.CallerWithSkipFrameCount(4)
	}
	return &Logger{zl: zc.Logger(), service: service}
}

func writer(cfg *Config) io.Writer {
	switch cfg.Output {
	case OutputStderr:
		return os.Stderr
	case OutputFile:
		return &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
	}
	return os.Stdout
}

// NewNop discards everything.
func NewNop() *Logger { return &Logger{zl: zerolog.Nop()} }

func (l *Logger) Service() string { return l.service }

func (l *Logger) with(zl zerolog.Logger) *Logger { return &Logger{zl: zl, service: l.service} }

// WithComponent tags every line with the component name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.with(l.zl.With().Str(FieldComponent, name).Logger())
}

func (l *Logger) WithFields(fields map[string]any) *Logger {
	return l.with(l.zl.With().Fields(fields).Logger())
}

func (l *Logger) Debug(msg string, fields ...map[string]any) { l.log(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...map[string]any)  { l.log(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...map[string]any)  { l.log(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...map[string]any) { l.log(l.zl.Error(), msg, fields) }

func (l *Logger) log(e *zerolog.Event, msg string, fields []map[string]any) {
	if e == nil {
		return
	}
	for _, f := range fields {
		e = e.Fields(f)
	}
	e.Msg(msg)
}

var global atomic.Pointer[Logger]

// Init builds the process logger from cfg and makes it the default.
func Init(cfg *Config) *Logger {
	cfg.ApplyDefaults()
	l := New(cfg, cfg.ServiceName)
	global.Store(l)
	return l
}

// Default returns the logger installed by Init, or a console logger at
// info level before Init has run.
func Default() *Logger {
	if l := global.Load(); l != nil {
		return l
	}
	cfg := &Config{}
	cfg.ApplyDefaults()
	l := New(cfg, "scribe")
	global.CompareAndSwap(nil, l)
	return global.Load()
}
