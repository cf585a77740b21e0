package logging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pion/logging"
)

// LevelTrace sits below debug so pion's packet-level chatter stays out of debug output.
const LevelTrace = slog.LevelDebug - 4

// PionFactory routes pion's internal loggers into slog.
type PionFactory struct {
	Logger *slog.Logger
}

// NewPionFactory returns a factory backed by l, or slog.Default when l is nil.
func NewPionFactory(l *slog.Logger) *PionFactory {
	return &PionFactory{Logger: l}
}

func (f *PionFactory) NewLogger(scope string) logging.LeveledLogger {
	l := f.Logger
	if l == nil {
		l = slog.Default()
	}
	return &pionLogger{l: l.With("scope", scope)}
}

type pionLogger struct {
	l *slog.Logger
}

func (p *pionLogger) log(level slog.Level, msg string) {
	p.l.Log(context.Background(), level, msg)
}

func (p *pionLogger) Trace(msg string) { p.log(LevelTrace, msg) }
func (p *pionLogger) Tracef(format string, args ...any) {
	p.log(LevelTrace, fmt.Sprintf(format, args...))
}
func (p *pionLogger) Debug(msg string) { p.log(slog.LevelDebug, msg) }
func (p *pionLogger) Debugf(format string, args ...any) {
	p.log(slog.LevelDebug, fmt.Sprintf(format, args...))
}
func (p *pionLogger) Info(msg string) { p.log(slog.LevelInfo, msg) }
func (p *pionLogger) Infof(format string, args ...any) {
	p.log(slog.LevelInfo, fmt.Sprintf(format, args...))
}
func (p *pionLogger) Warn(msg string) { p.log(slog.LevelWarn, msg) }
func (p *pionLogger) Warnf(format string, args ...any) {
	p.log(slog.LevelWarn, fmt.Sprintf(format, args...))
}
func (p *pionLogger) Error(msg string) { p.log(slog.LevelError, msg) }
func (p *pionLogger) Errorf(format string, args ...any) {
	p.log(slog.LevelError, fmt.Sprintf(format, args...))
}
