// Package ttylog configures log/slog for programs that write diagnostics to
// stderr: colorized single lines on a terminal, JSON lines everywhere else.
//
// # Modes
//
// The output mode is chosen once, when the logger is built:
//
//   - browser-like hosts (GOOS=js, LOG_BROWSER, LOG_EMBEDDED,
//     LOG_PROCESS_TYPE=renderer) always get the console layout on stdout;
//   - otherwise an interactive stderr, or LOG_PRETTY=1, selects the console
//     layout and anything else selects JSON lines.
//
// LOG_FORMAT=pretty|json|tint forces a mode and LOG_LEVEL sets the minimum
// level (debug by default).
//
// # Usage
//
//	logger, err := ttylog.New()
//	if err != nil {
//	    return err
//	}
//	logger.Info("listening on", addr)
//	logger.Errors("lost connection to", peer) // adds a backtrace
//
// The package-level functions (ttylog.Info, ttylog.Errors, ...) use a
// default logger built on first use, or by an explicit ttylog.Init.
//
// # Output
//
// Console layout:
//
//	01-02T03:04:05 0042     main.go:main:31 listening on :8080
//
// JSON layout:
//
//	{"date":"2006-01-02T03:04:05.000","level":"INFO","message":"listening on :8080","pid":42,"file":"/src/main.go","line":31,"function":"main"}
//
// The stack-augmented methods (Errors, Warns, Infos, Debugs) capture the call
// site plus DeepStackDepth frames. The backtrace is printed after the console
// line and stored under "backtrace" in JSON.
//
// # Errors in attributes
//
// Attributes added with Logger.With, or through the slog bridge, that hold
// errors are expanded by ErrorFormatter and TozdErrorFormatter; errors from
// gitlab.com/tozd/go/errors keep their details, cause and stack trace.
//
// # Redaction
//
// WithRedaction masks the values of sensitive attribute keys (SensitiveKeys
// unless others are given). Positional arguments are printed as they are.
package ttylog
