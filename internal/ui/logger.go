package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// Log formats.
const (
	FormatConsole = "console"
	FormatActions = "actions"
	FormatJSON    = "json"
)

// Formats lists the accepted log formats.
var Formats = []string{FormatConsole, FormatActions, FormatJSON}

// Logger receives run progress. Implementations must be safe to call from
// a single goroutine; they are not required to be concurrent-safe.
type Logger interface {
	Info(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Debug(format string, args ...any)

	// Group starts a collapsible section and returns the func that ends it.
	Group(title string) func()
}

// NewLogger returns a Logger for the given format writing to w.
func NewLogger(format string, w io.Writer, debug bool) (Logger, error) {
	switch format {
	case FormatConsole, "":
		return NewConsoleLogger(w, debug), nil
	case FormatActions:
		return NewActionsLogger(w), nil
	case FormatJSON:
		return NewJSONLogger(w, debug), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// ConsoleLogger writes colored, human-readable lines.
type ConsoleLogger struct {
	w     io.Writer
	debug bool
	depth int
}

// NewConsoleLogger creates a ConsoleLogger. Debug lines are only written
// when debug is true.
func NewConsoleLogger(w io.Writer, debug bool) *ConsoleLogger {
	return &ConsoleLogger{w: w, debug: debug}
}

func (l *ConsoleLogger) line(c *color.Color, prefix, format string, args ...any) {
	indent := strings.Repeat("  ", l.depth)
	c.Fprintf(l.w, "%s%s%s\n", indent, prefix, fmt.Sprintf(format, args...))
}

func (l *ConsoleLogger) Info(format string, args ...any) {
	l.line(Blue, "", format, args...)
}

func (l *ConsoleLogger) Success(format string, args ...any) {
	l.line(Green, "✓ ", format, args...)
}

func (l *ConsoleLogger) Warn(format string, args ...any) {
	l.line(Yellow, "⚠ ", format, args...)
}

func (l *ConsoleLogger) Error(format string, args ...any) {
	l.line(Red, "✗ ", format, args...)
}

func (l *ConsoleLogger) Debug(format string, args ...any) {
	if l.debug {
		l.line(Cyan, "· ", format, args...)
	}
}

func (l *ConsoleLogger) Group(title string) func() {
	l.line(Bold, "", "%s", title)
	l.depth++
	return func() {
		if l.depth > 0 {
			l.depth--
		}
	}
}

// ActionsLogger writes GitHub Actions workflow commands. Errors and warnings
// become annotations, debug lines are only shown when the runner has step
// debugging enabled, and groups are collapsible in the job log.
type ActionsLogger struct {
	w io.Writer
}

// NewActionsLogger creates an ActionsLogger.
func NewActionsLogger(w io.Writer) *ActionsLogger {
	return &ActionsLogger{w: w}
}

func (l *ActionsLogger) Info(format string, args ...any) {
	fmt.Fprintf(l.w, format+"\n", args...)
}

func (l *ActionsLogger) Success(format string, args ...any) {
	fmt.Fprintf(l.w, "✓ "+format+"\n", args...)
}

func (l *ActionsLogger) Warn(format string, args ...any) {
	l.command("warning", fmt.Sprintf(format, args...))
}

func (l *ActionsLogger) Error(format string, args ...any) {
	l.command("error", fmt.Sprintf(format, args...))
}

func (l *ActionsLogger) Debug(format string, args ...any) {
	l.command("debug", fmt.Sprintf(format, args...))
}

func (l *ActionsLogger) Group(title string) func() {
	l.command("group", title)
	var once sync.Once
	return func() {
		once.Do(func() { l.command("endgroup", "") })
	}
}

func (l *ActionsLogger) command(name, msg string) {
	fmt.Fprintf(l.w, "::%s::%s\n", name, escapeData(msg))
}

// escapeData escapes a workflow command message.
func escapeData(s string) string {
	r := strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	return r.Replace(s)
}

// JSONLogger writes one JSON object per line via zerolog.
type JSONLogger struct {
	log   zerolog.Logger
	group string
}

// NewJSONLogger creates a JSONLogger. Debug events are dropped unless debug is true.
func NewJSONLogger(w io.Writer, debug bool) *JSONLogger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return &JSONLogger{
		log: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

func (l *JSONLogger) event(e *zerolog.Event) *zerolog.Event {
	if l.group != "" {
		e = e.Str("group", l.group)
	}
	return e
}

func (l *JSONLogger) Info(format string, args ...any) {
	l.event(l.log.Info()).Msgf(format, args...)
}

func (l *JSONLogger) Success(format string, args ...any) {
	l.event(l.log.Info()).Bool("ok", true).Msgf(format, args...)
}

func (l *JSONLogger) Warn(format string, args ...any) {
	l.event(l.log.Warn()).Msgf(format, args...)
}

func (l *JSONLogger) Error(format string, args ...any) {
	l.event(l.log.Error()).Msgf(format, args...)
}

func (l *JSONLogger) Debug(format string, args ...any) {
	l.event(l.log.Debug()).Msgf(format, args...)
}

func (l *JSONLogger) Group(title string) func() {
	prev := l.group
	l.group = title
	return func() {
		l.group = prev
	}
}
