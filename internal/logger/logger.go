package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/thushan/qlite/internal/util"
	"github.com/thushan/qlite/theme"
)

type Config struct {
	Level      string
	LogDir     string
	Theme      string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	FileOutput bool

	// Output overrides stdout for the terminal handler, tests use this
	Output io.Writer
}

const (
	DefaultLogOutputName  = "qlite.log"
	DefaultDetailedCookie = "detailed"

	LogLevelDebug   = "debug"
	LogLevelInfo    = "info"
	LogLevelWarn    = "warn"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
)

func New(cfg *Config) (*slog.Logger, func(), error) {
	level := parseLevel(cfg.Level)
	appTheme := theme.GetTheme(cfg.Theme)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	terminalHandler := createTerminalHandler(out, level, appTheme)

	if !cfg.FileOutput {
		return slog.New(terminalHandler), func() {}, nil
	}

	fileHandler, cleanup, err := createFileHandler(cfg, level)
	if err != nil {
		return nil, nil, err
	}

	handler := &fastMultiHandler{
		terminalHandler: terminalHandler,
		fileHandler:     fileHandler,
	}
	return slog.New(handler), cleanup, nil
}

func createTerminalHandler(out io.Writer, level slog.Level, appTheme *theme.Theme) slog.Handler {
	if out == os.Stdout && util.ShouldUseColors() {
		plogger := pterm.DefaultLogger.
			WithLevel(convertToPTermLevel(level)).
			WithWriter(out).
			WithFormatter(pterm.LogFormatterColorful)

		keyStyles := map[string]pterm.Style{
			"level": *appTheme.Info,
			"msg":   *appTheme.Info,
			"time":  *appTheme.Muted,
		}
		plogger = plogger.WithKeyStyles(keyStyles)
		return pterm.NewSlogHandler(plogger)
	}

	// non-TTY gets JSON, usually we're under a supervisor or in a container
	return slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: fastReplaceAttr,
	})
}

func createFileHandler(cfg *Config, level slog.Level) (slog.Handler, func(), error) {
	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("unable to create log directory %s: %w", cfg.LogDir, err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, DefaultLogOutputName),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   true,
	}

	handler := slog.NewJSONHandler(rotator, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: fastReplaceAttr,
	})

	cleanup := func() {
		_ = rotator.Close()
	}

	return handler, cleanup, nil
}

// fastReplaceAttr keeps timestamps short and strips colour codes that the
// styled helpers embed in messages
func fastReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		return slog.Attr{
			Key:   "timestamp",
			Value: slog.StringValue(a.Value.Time().Format("2006-01-02 15:04:05")),
		}
	case slog.MessageKey:
		return slog.Attr{Key: a.Key, Value: slog.StringValue(stripAnsiCodes(a.Value.String()))}
	}

	switch a.Value.Kind() {
	case slog.KindString:
		if str := a.Value.String(); strings.ContainsRune(str, '\x1b') {
			return slog.Attr{Key: a.Key, Value: slog.StringValue(stripAnsiCodes(str))}
		}
	case slog.KindAny:
		return slog.Attr{Key: a.Key, Value: slog.StringValue(fmt.Sprintf("%v", a.Value.Any()))}
	}
	return a
}

// fastMultiHandler fans records out to the terminal and the rotated log file
type fastMultiHandler struct {
	terminalHandler slog.Handler
	fileHandler     slog.Handler
}

func (h *fastMultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.terminalHandler.Enabled(ctx, level) || h.fileHandler.Enabled(ctx, level)
}

func (h *fastMultiHandler) Handle(ctx context.Context, record slog.Record) error {
	// detailed records only go to the file
	isDetailed := false
	if d, ok := ctx.Value(DefaultDetailedCookie).(bool); ok && d {
		isDetailed = true
	}

	if !isDetailed && h.terminalHandler.Enabled(ctx, record.Level) {
		if err := h.terminalHandler.Handle(ctx, record); err != nil {
			return err
		}
	}

	if h.fileHandler.Enabled(ctx, record.Level) {
		return h.fileHandler.Handle(ctx, record)
	}

	return nil
}

func (h *fastMultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &fastMultiHandler{
		terminalHandler: h.terminalHandler.WithAttrs(attrs),
		fileHandler:     h.fileHandler.WithAttrs(attrs),
	}
}

func (h *fastMultiHandler) WithGroup(name string) slog.Handler {
	return &fastMultiHandler{
		terminalHandler: h.terminalHandler.WithGroup(name),
		fileHandler:     h.fileHandler.WithGroup(name),
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn, LogLevelWarning:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func convertToPTermLevel(level slog.Level) pterm.LogLevel {
	switch level {
	case slog.LevelDebug:
		return pterm.LogLevelTrace
	case slog.LevelWarn:
		return pterm.LogLevelWarn
	case slog.LevelError:
		return pterm.LogLevelError
	default:
		return pterm.LogLevelInfo
	}
}
