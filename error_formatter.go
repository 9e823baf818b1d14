package ttylog

import (
	"log/slog"
	"maps"
	"reflect"
	"runtime"
	"slices"
	"strings"

	"github.com/fatih/color"
	slogformatter "github.com/samber/slog-formatter"
	"gitlab.com/tozd/go/errors"
)

// orgErrorKey carries the original error next to its formatted group so
// callbacks can still reach it; layouts drop it.
const orgErrorKey = "org_error"

// maxErrorFrames bounds the frames rendered for an error's own stack.
const maxErrorFrames = 20

// framePalette colors the parts of an error stack frame. Colors are
// forced on or off per logger so JSON output never carries escapes,
// whatever fatih/color guessed from stdout.
type framePalette struct {
	file, line, function *color.Color
}

func newFramePalette(colored bool) framePalette {
	p := framePalette{
		file:     color.New(color.FgGreen),
		line:     color.New(color.FgBlue),
		function: color.New(color.FgHiWhite),
	}
	for _, c := range []*color.Color{p.file, p.line, p.function} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p framePalette) format(frames *runtime.Frames) string {
	var stackLines []string
	for i := 0; i < maxErrorFrames; i++ {
		frame, more := frames.Next()
		stackLines = append(stackLines, p.file.Sprint(frame.File)+":"+
			p.line.Sprint(frame.Line)+" "+p.function.Sprint(frame.Function))
		if !more {
			break
		}
	}
	return strings.Join(stackLines, " -> ")
}

// ErrorFormatter renders a plain error attribute under fieldName as a group
// with its message and dynamic type.
//
//	"error": {"message": "file already closed", "type": "*fs.PathError"}
func ErrorFormatter(fieldName string) slogformatter.Formatter {
	return slogformatter.FormatByFieldType(fieldName, func(err error) slog.Value {
		if err == nil {
			return slog.StringValue("<nil>")
		}
		return slog.GroupValue(
			slog.String("message", err.Error()),
			slog.String("type", reflect.TypeOf(err).String()),
			slog.Any(orgErrorKey, err),
		)
	})
}

// TozdErrorFormatter renders gitlab.com/tozd/go/errors values as a group of
// message, details (sorted by key), stack trace and cause. colored selects
// ANSI colors for the stack frames.
func TozdErrorFormatter(colored bool) slogformatter.Formatter {
	palette := newFramePalette(colored)

	return slogformatter.FormatByType(func(v errors.E) slog.Value {
		attrs := []slog.Attr{slog.String("message", v.Error())}

		details := errors.Details(v)
		if len(details) > 0 {
			group := make([]any, 0, len(details))
			for _, k := range slices.Sorted(maps.Keys(details)) {
				group = append(group, slog.Any(k, details[k]))
			}
			attrs = append(attrs, slog.Group("details", group...))
		}

		if pcs := v.StackTrace(); len(pcs) > 0 {
			attrs = append(attrs, slog.String("stacktrace", palette.format(runtime.CallersFrames(pcs))))
		}

		if cause := errors.Cause(v); cause != nil && cause != v {
			attrs = append(attrs, slog.String("cause", cause.Error()))
		}

		return slog.GroupValue(append(attrs, slog.Any(orgErrorKey, v))...)
	})
}
