package ttylog

import (
	"fmt"
	"runtime"
	"strings"
)

// DeepStackDepth is the number of frames captured beyond the immediate
// caller by the stack-augmented methods (Errors, Warns, Infos, Debugs).
const DeepStackDepth = 5

// StackCapture renders a backtrace. skip counts frames above the caller of
// the StackCapture (0 is that caller); depth is the number of extra frames
// to include after the first one.
type StackCapture func(skip, depth int) string

// CaptureStack is the default StackCapture. Each frame becomes one
// "file:line function" line.
func CaptureStack(skip, depth int) string {
	if depth < 0 {
		depth = 0
	}
	pcs := make([]uintptr, depth+1)
	// skip [runtime.Callers, CaptureStack]
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])

	var lines []string
	for {
		frame, more := frames.Next()
		lines = append(lines, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		if !more {
			break
		}
	}
	return strings.Join(lines, "\n")
}
