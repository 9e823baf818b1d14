package ttylog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fatih/color"
	"gitlab.com/tozd/go/errors"
)

// ISO8601Format is the layout of the "date" field, millisecond precision, local time.
const ISO8601Format = "2006-01-02T15:04:05.000"

// Built-in layout names
const (
	LayoutConsole = "console-layout"
	LayoutJSON    = "json-layout"
)

const (
	colorReset       = "\x1b[39m"
	fileSegmentWidth = 20
	pidWidth         = 4
)

// FormattedJSON is the JSON projection of an Event.
type FormattedJSON struct {
	Date      string `json:"date"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	PID       int    `json:"pid"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Function  string `json:"function"`
	Backtrace string `json:"backtrace,omitempty"`
}

// ToJSON projects an Event onto the fixed JSON keys. It never fails:
// missing strings stay empty and missing numbers stay 0.
func ToJSON(ev Event) FormattedJSON {
	return FormattedJSON{
		Date:      ev.StartTime.Format(ISO8601Format),
		Level:     ev.Level,
		Message:   ev.Message(),
		PID:       ev.PID,
		File:      ev.FileName,
		Line:      ev.LineNumber,
		Function:  ev.FunctionName,
		Backtrace: ev.CallStack,
	}
}

// levelColor maps a level name to its ANSI foreground escape.
func levelColor(level string) string {
	attr := color.FgRed
	switch level {
	case "ERROR":
		attr = color.FgRed
	case "WARN":
		attr = color.FgYellow
	case "INFO":
		attr = color.FgBlue
	case "DEBUG":
		attr = color.FgWhite
	}
	return fmt.Sprintf("\x1b[%dm", attr)
}

// ToConsoleLine renders an Event as one colorized line:
//
//	01-02T03:04:05 0042       foo.go:bar:31 message
//
// When prettyStacktrace is set the raw call stack follows on the next lines.
func ToConsoleLine(ev Event, prettyStacktrace bool) string {
	j := ToJSON(ev)

	file := j.File[strings.LastIndex(j.File, "/")+1:]

	var sb strings.Builder
	sb.WriteString(levelColor(j.Level))
	sb.WriteString(truncateDate(j.Date))
	sb.WriteByte(' ')
	sb.WriteString(padLeft(strconv.Itoa(j.PID), pidWidth, '0'))
	sb.WriteByte(' ')
	sb.WriteString(padLeft(file+":"+j.Function+":"+strconv.Itoa(j.Line)+" ", fileSegmentWidth, ' '))
	sb.WriteString(j.Message)
	sb.WriteString(colorReset)
	if prettyStacktrace {
		sb.WriteByte('\n')
		sb.WriteString(j.Backtrace)
	}
	return sb.String()
}

// truncateDate keeps MM-DDTHH:MM:SS out of 2006-01-02T03:04:05.000.
func truncateDate(date string) string {
	if len(date) < 19 {
		return date
	}
	return date[5:19]
}

// padLeft pads s to width characters, not bytes.
func padLeft(s string, width int, pad byte) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return strings.Repeat(string(pad), width-n) + s
}

// Layout turns an Event into the text written by an appender.
type Layout func(ev Event, call CallInfo) string

// LayoutFactory builds a Layout when an appender is configured.
type LayoutFactory func() Layout

var (
	layouts   = map[string]LayoutFactory{}
	layoutsMu sync.RWMutex
)

func init() {
	RegisterLayout(LayoutConsole, func() Layout {
		return func(ev Event, call CallInfo) string {
			return ToConsoleLine(ev, call.PrettyStacktrace)
		}
	})
	RegisterLayout(LayoutJSON, func() Layout {
		return func(ev Event, _ CallInfo) string {
			b, err := json.Marshal(ToJSON(ev))
			if err != nil {
				// FormattedJSON holds only strings and ints
				return ""
			}
			return string(b)
		}
	})
}

// RegisterLayout makes a layout available to appender configurations under name.
// Registering an existing name replaces it.
func RegisterLayout(name string, factory LayoutFactory) {
	layoutsMu.Lock()
	defer layoutsMu.Unlock()
	layouts[name] = factory
}

// LookupLayout builds the layout registered under name.
func LookupLayout(name string) (Layout, error) {
	layoutsMu.RLock()
	factory, ok := layouts[name]
	layoutsMu.RUnlock()
	if !ok || factory == nil {
		return nil, errors.WithDetails(ErrUnknownLayout, "layout", name)
	}
	return factory(), nil
}

func isLayoutRegistered(name string) bool {
	layoutsMu.RLock()
	defer layoutsMu.RUnlock()
	_, ok := layouts[name]
	return ok
}
