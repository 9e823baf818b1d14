package ttylog

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"
)

// Event is the record handed to layouts and callbacks, one per log call.
type Event struct {
	StartTime    time.Time
	Level        string
	Data         []any
	PID          int
	FileName     string
	LineNumber   int
	FunctionName string
	CallStack    string
}

// Message joins Data with single spaces.
func (e Event) Message() string {
	return joinData(e.Data)
}

// CallInfo carries per-call formatting options from a logging method to
// the handlers. It travels in the context passed to slog.Handler.Handle.
type CallInfo struct {
	PrettyStacktrace bool
	Backtrace        string
}

type callInfoKey struct{}

func withCallInfo(ctx context.Context, info CallInfo) context.Context {
	return context.WithValue(ctx, callInfoKey{}, info)
}

// CallInfoFromContext returns the per-call options, zero when none were set.
func CallInfoFromContext(ctx context.Context) CallInfo {
	if ctx == nil {
		return CallInfo{}
	}
	info, _ := ctx.Value(callInfoKey{}).(CallInfo)
	return info
}

func joinData(data []any) string {
	parts := make([]string, len(data))
	for i, d := range data {
		parts[i] = fmt.Sprint(d)
	}
	return strings.Join(parts, " ")
}

// levelString returns the canonical level name, or slog's own rendering
// (e.g. "INFO+2") for levels outside the four standard ones.
func levelString(level slog.Level) string {
	if name, ok := reverseLevelNames[level]; ok {
		return name
	}
	return level.String()
}

// callerFrame resolves a program counter to absolute file, short function
// name and line.
func callerFrame(pc uintptr) (file string, function string, line int) {
	if pc == 0 {
		return "", "", 0
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	return frame.File, shortFunctionName(frame.Function), frame.Line
}

// shortFunctionName drops the package path and receiver: "pkg.(*T).Do" -> "Do".
func shortFunctionName(name string) string {
	if idx := strings.LastIndex(name, "."); idx != -1 {
		name = name[idx+1:]
	}
	return name
}

// newEvent builds an Event from a record plus the attributes accumulated by
// WithAttrs/WithGroup. Attributes become "key=value" message parts.
func newEvent(ctx context.Context, pid int, r slog.Record, groups []string, attrs []slog.Attr) Event {
	file, function, line := callerFrame(r.PC)

	var kvs []kv
	flattenAttrs(&kvs, groups, attrs)
	r.Attrs(func(a slog.Attr) bool {
		flattenAttr(&kvs, groups, a)
		return true
	})

	data := make([]any, 0, len(kvs)+1)
	data = append(data, r.Message)
	for _, kv := range kvs {
		data = append(data, kv.key+"="+kv.value.String())
	}

	return Event{
		StartTime:    r.Time,
		Level:        levelString(r.Level),
		Data:         data,
		PID:          pid,
		FileName:     file,
		LineNumber:   line,
		FunctionName: function,
		CallStack:    CallInfoFromContext(ctx).Backtrace,
	}
}

type kv struct {
	key   string
	value slog.Value
}

func flattenAttrs(dst *[]kv, prefix []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		flattenAttr(dst, prefix, attr)
	}
}

func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) || attr.Key == orgErrorKey {
		return
	}
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(append([]string{}, prefix...), attr.Key)
		}
		flattenAttrs(dst, next, attr.Value.Group())
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(append(append([]string{}, prefix...), key), ".")
	}
	*dst = append(*dst, kv{key: key, value: attr.Value})
}
