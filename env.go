package ttylog

import (
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
)

// Host identifies the kind of runtime the process is hosted in.
type Host int

const (
	// HostProcess is a standard OS process with a diagnostic stream.
	HostProcess Host = iota
	// HostBrowser is a browser-like host (js/wasm, renderer or embedded shell).
	HostBrowser
)

func (h Host) String() string {
	if h == HostBrowser {
		return "browser"
	}
	return "process"
}

// Environment variables read by the detector
const (
	EnvPretty      = "LOG_PRETTY"
	EnvFormat      = "LOG_FORMAT"
	EnvLevel       = "LOG_LEVEL"
	EnvBrowser     = "LOG_BROWSER"
	EnvEmbedded    = "LOG_EMBEDDED"
	EnvProcessType = "LOG_PROCESS_TYPE"
)

// Environment holds the probe inputs used to pick a mode at startup.
// Tests replace the fields instead of touching the real process state.
type Environment struct {
	GOOS       string
	Getenv     func(string) string
	IsTerminal func(fd uintptr) bool
	Stderr     uintptr
}

// SystemEnvironment returns the probes of the running process.
func SystemEnvironment() Environment {
	return Environment{
		GOOS:   runtime.GOOS,
		Getenv: os.Getenv,
		IsTerminal: func(fd uintptr) bool {
			return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		},
		Stderr: os.Stderr.Fd(),
	}
}

func (e Environment) getenv(key string) string {
	if e.Getenv == nil {
		return ""
	}
	return e.Getenv(key)
}

// IsBrowserHost reports whether the process runs in a browser-like host.
// Absence of an OS process (GOOS=js) counts as a browser.
func (e Environment) IsBrowserHost() bool {
	return e.GOOS == "js" ||
		e.getenv(EnvProcessType) == "renderer" ||
		isTruthy(e.getenv(EnvBrowser)) ||
		isTruthy(e.getenv(EnvEmbedded))
}

// IsInteractiveOutput reports whether stderr is a terminal or pretty
// output was requested with LOG_PRETTY=1. Only meaningful for HostProcess.
func (e Environment) IsInteractiveOutput() bool {
	if e.getenv(EnvPretty) == "1" {
		return true
	}
	if e.IsTerminal == nil {
		return false
	}
	return e.IsTerminal(e.Stderr)
}

// Host classifies the environment.
func (e Environment) Host() Host {
	if e.IsBrowserHost() {
		return HostBrowser
	}
	return HostProcess
}

// Format returns the normalized LOG_FORMAT override, FormatAuto when unset or unknown.
func (e Environment) Format() string {
	switch f := strings.ToLower(strings.TrimSpace(e.getenv(EnvFormat))); f {
	case FormatPretty, FormatJSON, FormatTint:
		return f
	default:
		return FormatAuto
	}
}

// Level returns the LOG_LEVEL override, if it names a known level.
func (e Environment) Level() (slog.Level, bool) {
	name := strings.ToLower(strings.TrimSpace(e.getenv(EnvLevel)))
	if name == "" {
		return 0, false
	}
	level, ok := levelNames[name]
	return level, ok
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
