package ttylog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	slogformatter "github.com/samber/slog-formatter"
	slogmulti "github.com/samber/slog-multi"
)

// layoutHandler is the slog.Handler behind an appender: it turns each record
// into an Event, renders it with the appender's layout and writes one line.
type layoutHandler struct {
	mu     *sync.Mutex
	writer io.Writer
	layout Layout
	level  slog.Leveler
	pid    int
	attrs  []slog.Attr
	groups []string
}

func newLayoutHandler(w io.Writer, layout Layout, level slog.Leveler, pid int) *layoutHandler {
	return &layoutHandler{
		mu:     &sync.Mutex{},
		writer: w,
		layout: layout,
		level:  level,
		pid:    pid,
	}
}

func (h *layoutHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *layoutHandler) Handle(ctx context.Context, r slog.Record) error {
	ev := newEvent(ctx, h.pid, r, h.groups, h.attrs)
	line := h.layout(ev, CallInfoFromContext(ctx))

	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf)
	return err
}

func (h *layoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *layoutHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

// backtraceHandler adds the per-call backtrace as an attribute for handlers
// that do not read CallInfo themselves (tint).
type backtraceHandler struct{ next slog.Handler }

func (bh *backtraceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return bh.next.Enabled(ctx, level)
}

func (bh *backtraceHandler) Handle(ctx context.Context, r slog.Record) error {
	if info := CallInfoFromContext(ctx); info.PrettyStacktrace && info.Backtrace != "" {
		r = r.Clone()
		r.AddAttrs(slog.String(BacktraceKey, info.Backtrace))
	}
	return bh.next.Handle(ctx, r)
}

func (bh *backtraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &backtraceHandler{next: bh.next.WithAttrs(attrs)}
}

func (bh *backtraceHandler) WithGroup(group string) slog.Handler {
	return &backtraceHandler{next: bh.next.WithGroup(group)}
}

// BacktraceKey is the attribute key used for backtraces by the tint appender.
const BacktraceKey = "backtrace"

func newTintHandler(w io.Writer, level slog.Leveler, noColor bool) slog.Handler {
	h := tint.NewHandler(w, &tint.Options{
		Level:       level,
		TimeFormat:  ISO8601Format,
		NoColor:     noColor,
		AddSource:   true,
		ReplaceAttr: replaceLogLevel,
	})
	return &backtraceHandler{next: h}
}

// replaceLogLevel paints level names with the same colors as the console layout.
func replaceLogLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key == orgErrorKey {
		return slog.Attr{}
	}
	if a.Key != slog.LevelKey {
		return a
	}
	if level, ok := a.Value.Any().(slog.Level); ok {
		name := levelString(level)
		a.Value = slog.StringValue(name)
		a = tint.Attr(levelColorNumbers[name], a)
	}
	return a
}

// levelColorNumbers are the tint (ANSI 0-7) equivalents of levelColor.
var levelColorNumbers = map[string]uint8{
	"ERROR": 1,
	"WARN":  3,
	"INFO":  4,
	"DEBUG": 7,
}

func (s *settings) writerFor(appenderType string) io.Writer {
	if s.output != nil {
		return s.output
	}
	switch appenderType {
	case TypeStdout, TypeConsole:
		return os.Stdout
	default:
		return os.Stderr
	}
}

// buildHandler turns the default category of mc into a handler chain:
// one handler per appender plus the callback handler, fanned out, behind
// the attribute formatters.
func buildHandler(mc ModeConfig, s *settings, level slog.Leveler) (slog.Handler, error) {
	cat := mc.Categories[DefaultCategory]

	handlers := make([]slog.Handler, 0, len(cat.Appenders)+1)
	for _, name := range cat.Appenders {
		app := mc.Appenders[name]
		w := s.writerFor(app.Type)

		if app.Layout == LayoutTint {
			handlers = append(handlers, newTintHandler(w, level, !s.interactiveOutput()))
			continue
		}
		layout, err := LookupLayout(app.Layout)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, newLayoutHandler(w, layout, level, s.pid))
	}
	handlers = append(handlers, newCallbackHandler(level, s.pid))

	formatters := append(redactFormatters(s.redactKeys),
		TozdErrorFormatter(colorErrors(mc, s)),
		ErrorFormatter("error"),
		ErrorFormatter("err"),
		slogformatter.TimeFormatter(ISO8601Format, time.Local),
	)
	return slogformatter.NewFormatterHandler(formatters...)(slogmulti.Fanout(handlers...)), nil
}

// colorErrors reports whether error stack frames may carry ANSI colors:
// only when every active appender renders for a terminal.
func colorErrors(mc ModeConfig, s *settings) bool {
	for _, name := range mc.ActiveAppenders() {
		switch mc.Appenders[name].Layout {
		case LayoutConsole:
		case LayoutTint:
			if !s.interactiveOutput() {
				return false
			}
		default:
			return false
		}
	}
	return true
}
