package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Printf adapts a slog logger to the Printf/Println shape that third-party
// packages (cron, telegram-bot-api) expect.
type Printf struct {
	logger *slog.Logger
	level  slog.Level
}

// New returns an adapter that logs every line at info level with a component attribute.
func New(logger *slog.Logger, component string) *Printf {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Printf{logger: logger.With("component", component), level: slog.LevelInfo}
}

// WithLevel returns a copy that logs at level.
func (p *Printf) WithLevel(level slog.Level) *Printf {
	return &Printf{logger: p.logger, level: level}
}

// Printf formats and logs one line.
func (p *Printf) Printf(format string, args ...any) {
	p.logger.Log(context.Background(), p.level, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Println logs its operands separated by spaces.
func (p *Printf) Println(args ...any) {
	p.logger.Log(context.Background(), p.level, strings.TrimSpace(fmt.Sprintln(args...)))
}
