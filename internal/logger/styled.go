package logger

import (
	"fmt"
	"log/slog"

	"github.com/pterm/pterm"

	"github.com/thushan/qlite/theme"
)

// StyledLogger wraps slog.Logger with Theme-aware formatting
type StyledLogger struct {
	logger *slog.Logger
	Theme  *theme.Theme
}

func NewStyledLogger(logger *slog.Logger, theme *theme.Theme) *StyledLogger {
	return &StyledLogger{
		logger: logger,
		Theme:  theme,
	}
}

func NewWithTheme(cfg *Config) (*slog.Logger, *StyledLogger, func(), error) {
	logger, cleanup, err := New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	styledLogger := NewStyledLogger(logger, theme.GetTheme(cfg.Theme))
	return logger, styledLogger, cleanup, nil
}

// NewDiscard returns a logger that drops everything below error, handy in tests
func NewDiscard() *StyledLogger {
	handler := slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError})
	return NewStyledLogger(slog.New(handler), theme.Default())
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func (sl *StyledLogger) Debug(msg string, args ...any) {
	sl.logger.Debug(msg, args...)
}

func (sl *StyledLogger) Info(msg string, args ...any) {
	sl.logger.Info(msg, args...)
}

func (sl *StyledLogger) Warn(msg string, args ...any) {
	sl.logger.Warn(msg, args...)
}

func (sl *StyledLogger) Error(msg string, args ...any) {
	sl.logger.Error(msg, args...)
}

func (sl *StyledLogger) InfoWithCount(msg string, count int, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.Style{sl.Theme.Counts}.Sprint("(", count, ")"))
	sl.logger.Info(styledMsg, args...)
}

func (sl *StyledLogger) InfoWithBackend(msg string, backend string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.Style{sl.Theme.Backend}.Sprint(backend))
	sl.logger.Info(styledMsg, args...)
}

func (sl *StyledLogger) WarnWithBackend(msg string, backend string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.Style{sl.Theme.Backend}.Sprint(backend))
	sl.logger.Warn(styledMsg, args...)
}

func (sl *StyledLogger) InfoWithPreset(msg string, preset string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.Style{sl.Theme.Preset}.Sprint(preset))
	sl.logger.Info(styledMsg, args...)
}

func (sl *StyledLogger) InfoWithSession(msg string, session string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.Style{sl.Theme.Session}.Sprint(session))
	sl.logger.Info(styledMsg, args...)
}

func (sl *StyledLogger) InfoWithNumbers(msg string, numbers ...int64) {
	formatted := make([]any, 0, len(numbers))
	for _, num := range numbers {
		formatted = append(formatted, pterm.Style{sl.Theme.Numbers}.Sprint(num))
	}
	sl.logger.Info(fmt.Sprintf(msg, formatted...))
}

func (sl *StyledLogger) GetUnderlying() *slog.Logger {
	return sl.logger
}

// WithConnection tags every record with the connection id
func (sl *StyledLogger) WithConnection(connID string) *StyledLogger {
	return sl.With("conn_id", connID)
}

func (sl *StyledLogger) With(args ...any) *StyledLogger {
	return &StyledLogger{
		logger: sl.logger.With(args...),
		Theme:  sl.Theme,
	}
}
