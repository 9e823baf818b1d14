package ttylog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"gitlab.com/tozd/go/errors"
)

// Log levels. Only the four standard slog levels have names; other values
// are rendered by slog (e.g. "INFO+2") and colored like errors.
const (
	LevelDebug slog.Level = slog.LevelDebug
	LevelInfo  slog.Level = slog.LevelInfo
	LevelWarn  slog.Level = slog.LevelWarn
	LevelError slog.Level = slog.LevelError
)

// levelNames maps level strings to slog.Level values
var levelNames = map[string]slog.Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

var reverseLevelNames = map[slog.Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// ParseLevel parses a case-insensitive level name; "warning" is an alias of "warn".
func ParseLevel(name string) (slog.Level, error) {
	if strings.TrimSpace(name) == "" {
		return 0, errors.WithDetails(ErrInvalidLevel, "reason", "log level cannot be empty")
	}
	level, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, errors.WithDetails(ErrInvalidLevel, "level", name, "supported", supportedLevels())
	}
	return level, nil
}

func supportedLevels() string {
	names := make([]string, 0, len(levelNames))
	for name := range levelNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// settings collects the options of New and Configure.
type settings struct {
	env         Environment
	host        *Host
	interactive *bool
	output      io.Writer
	level       *slog.Level
	capture     StackCapture
	pid         int
	redactKeys  []string
}

// Option configures a Logger built by New or Configure.
type Option func(*settings)

// WithEnvironment replaces the probed environment.
func WithEnvironment(env Environment) Option {
	return func(s *settings) {
		s.env = env
	}
}

// WithHost forces the host kind instead of detecting it.
func WithHost(host Host) Option {
	return func(s *settings) {
		s.host = &host
	}
}

// WithInteractive forces the interactive-output decision instead of probing stderr.
func WithInteractive(interactive bool) Option {
	return func(s *settings) {
		s.interactive = &interactive
	}
}

// WithOutput sends every appender to w instead of stderr/stdout.
func WithOutput(w io.Writer) Option {
	return func(s *settings) {
		s.output = w
	}
}

// WithLevel overrides the category level.
func WithLevel(level slog.Level) Option {
	return func(s *settings) {
		s.level = &level
	}
}

// WithCallStackCapture installs the strategy used by the stack-augmented methods.
func WithCallStackCapture(capture StackCapture) Option {
	return func(s *settings) {
		s.capture = capture
	}
}

// WithPID overrides the process id stamped on events.
func WithPID(pid int) Option {
	return func(s *settings) {
		s.pid = pid
	}
}

func newSettings(opts []Option) *settings {
	s := &settings{
		env:     SystemEnvironment(),
		capture: CaptureStack,
		pid:     os.Getpid(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.capture == nil {
		s.capture = CaptureStack
	}
	return s
}

func (s *settings) interactiveOutput() bool {
	if s.interactive != nil {
		return *s.interactive
	}
	return s.env.IsInteractiveOutput()
}

// modeConfig evaluates the environment once. Explicit host or interactive
// options bypass the LOG_FORMAT override.
func (s *settings) modeConfig() ModeConfig {
	if s.host == nil && s.interactive == nil {
		return SelectModeFor(s.env)
	}
	host := s.env.Host()
	if s.host != nil {
		host = *s.host
	}
	return SelectMode(host, s.interactiveOutput())
}

// stackSlot holds the capture strategy, shared by a logger and its With children.
type stackSlot struct {
	mu      sync.RWMutex
	capture StackCapture
}

// Logger is a configured handle with plain and stack-augmented level methods.
type Logger struct {
	handler   slog.Handler
	level     *slog.LevelVar
	mode      ModeConfig
	callStack bool
	stack     *stackSlot
}

// New detects the environment, selects the output mode and returns a ready logger.
func New(opts ...Option) (*Logger, error) {
	s := newSettings(opts)
	return configure(s.modeConfig(), s)
}

// Configure builds a logger from an explicit mode configuration.
func Configure(mc ModeConfig, opts ...Option) (*Logger, error) {
	return configure(mc, newSettings(opts))
}

func configure(mc ModeConfig, s *settings) (*Logger, error) {
	if err := mc.Validate(); err != nil {
		return nil, err
	}
	cat := mc.Categories[DefaultCategory]

	levelVar := new(slog.LevelVar)
	levelVar.Set(cat.Level)
	if s.level != nil {
		levelVar.Set(*s.level)
	}

	handler, err := buildHandler(mc, s, levelVar)
	if err != nil {
		return nil, err
	}

	return &Logger{
		handler:   handler,
		level:     levelVar,
		mode:      mc,
		callStack: cat.EnableCallStack,
		stack:     &stackSlot{capture: s.capture},
	}, nil
}

// Mode returns the configuration the logger was built from.
func (l *Logger) Mode() ModeConfig {
	return l.mode
}

// Handler returns the underlying slog handler chain.
func (l *Logger) Handler() slog.Handler {
	return l.handler
}

// Slog returns a *slog.Logger writing through the same appenders.
func (l *Logger) Slog() *slog.Logger {
	return slog.New(l.handler)
}

// With returns a logger that appends key=value parts to every message.
func (l *Logger) With(args ...any) *Logger {
	clone := *l
	clone.handler = slog.New(l.handler).With(args...).Handler()
	return &clone
}

// SetCallStackCapture replaces the strategy used by the stack-augmented methods.
func (l *Logger) SetCallStackCapture(capture StackCapture) {
	if capture == nil {
		capture = CaptureStack
	}
	l.stack.mu.Lock()
	defer l.stack.mu.Unlock()
	l.stack.capture = capture
}

// CallStackCapture returns the installed strategy.
func (l *Logger) CallStackCapture() StackCapture {
	l.stack.mu.RLock()
	defer l.stack.mu.RUnlock()
	return l.stack.capture
}

// SetLevel sets the minimum level.
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// Level returns the minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// SetLevelFromString sets the minimum level from its name.
func (l *Logger) SetLevelFromString(name string) error {
	level, err := ParseLevel(name)
	if err != nil {
		return err
	}
	l.level.Set(level)
	return nil
}

// LevelString returns the minimum level as a name.
func (l *Logger) LevelString() string {
	return levelString(l.level.Level())
}

// log is the low-level logging method. It must always be called directly
// by an exported logging method or function, because it uses a fixed call
// depth to find the call site.
func (l *Logger) log(ctx context.Context, level slog.Level, deep bool, args []any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level) {
		return
	}

	var pc uintptr
	if l.callStack {
		var pcs [1]uintptr
		// skip [runtime.Callers, this function, this function's caller]
		runtime.Callers(3, pcs[:])
		pc = pcs[0]
	}

	if deep {
		// skip [this function, this function's caller]: first frame is the call site
		backtrace := l.CallStackCapture()(2, DeepStackDepth)
		ctx = withCallInfo(ctx, CallInfo{PrettyStacktrace: true, Backtrace: backtrace})
	}

	r := slog.NewRecord(time.Now(), level, joinData(args), pc)
	_ = l.handler.Handle(ctx, r)
}

// Error logs args joined by spaces at error level.
func (l *Logger) Error(args ...any) {
	l.log(context.Background(), LevelError, false, args)
}

// Warn logs args joined by spaces at warn level.
func (l *Logger) Warn(args ...any) {
	l.log(context.Background(), LevelWarn, false, args)
}

// Info logs args joined by spaces at info level.
func (l *Logger) Info(args ...any) {
	l.log(context.Background(), LevelInfo, false, args)
}

// Debug logs args joined by spaces at debug level.
func (l *Logger) Debug(args ...any) {
	l.log(context.Background(), LevelDebug, false, args)
}

// Log logs args at any level with a context.
func (l *Logger) Log(ctx context.Context, level slog.Level, args ...any) {
	l.log(ctx, level, false, args)
}

// Errors is Error followed by a backtrace of the call site.
func (l *Logger) Errors(args ...any) {
	l.log(context.Background(), LevelError, true, args)
}

// Warns is Warn followed by a backtrace of the call site.
func (l *Logger) Warns(args ...any) {
	l.log(context.Background(), LevelWarn, true, args)
}

// Infos is Info followed by a backtrace of the call site.
func (l *Logger) Infos(args ...any) {
	l.log(context.Background(), LevelInfo, true, args)
}

// Debugs is Debug followed by a backtrace of the call site.
func (l *Logger) Debugs(args ...any) {
	l.log(context.Background(), LevelDebug, true, args)
}

// LogStack is Log followed by a backtrace of the call site.
func (l *Logger) LogStack(ctx context.Context, level slog.Level, args ...any) {
	l.log(ctx, level, true, args)
}

var (
	defaultLogger *Logger
	defaultMu     sync.Mutex
)

// Init configures the process-wide default logger and installs it as
// slog.Default(). It may run once; later calls return ErrAlreadyConfigured.
func Init(opts ...Option) (*Logger, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultLogger != nil {
		return nil, errors.WithStack(ErrAlreadyConfigured)
	}
	l, err := New(opts...)
	if err != nil {
		return nil, err
	}
	setDefaultLocked(l)
	return l, nil
}

// Default returns the process-wide logger, running Init with environment
// defaults on first use.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultLogger == nil {
		l, err := New()
		if err != nil {
			// the built-in modes always validate
			panic(err)
		}
		setDefaultLocked(l)
	}
	return defaultLogger
}

func setDefaultLocked(l *Logger) {
	defaultLogger = l
	slog.SetDefault(l.Slog())
}

// Error logs at error level on the default logger.
func Error(args ...any) {
	Default().log(context.Background(), LevelError, false, args)
}

// Warn logs at warn level on the default logger.
func Warn(args ...any) {
	Default().log(context.Background(), LevelWarn, false, args)
}

// Info logs at info level on the default logger.
func Info(args ...any) {
	Default().log(context.Background(), LevelInfo, false, args)
}

// Debug logs at debug level on the default logger.
func Debug(args ...any) {
	Default().log(context.Background(), LevelDebug, false, args)
}

// Errors logs at error level with a backtrace on the default logger.
func Errors(args ...any) {
	Default().log(context.Background(), LevelError, true, args)
}

// Warns logs at warn level with a backtrace on the default logger.
func Warns(args ...any) {
	Default().log(context.Background(), LevelWarn, true, args)
}

// Infos logs at info level with a backtrace on the default logger.
func Infos(args ...any) {
	Default().log(context.Background(), LevelInfo, true, args)
}

// Debugs logs at debug level with a backtrace on the default logger.
func Debugs(args ...any) {
	Default().log(context.Background(), LevelDebug, true, args)
}

// SetLevel sets the minimum level of the default logger.
func SetLevel(level slog.Level) {
	Default().SetLevel(level)
}

// GetLevel returns the minimum level of the default logger.
func GetLevel() slog.Level {
	return Default().Level()
}

// SetLevelFromString sets the minimum level of the default logger from its name.
func SetLevelFromString(name string) error {
	return Default().SetLevelFromString(name)
}

// GetLevelString returns the minimum level of the default logger as a name.
func GetLevelString() string {
	return Default().LevelString()
}

// IsLevelEnabled reports whether the default logger emits level.
func IsLevelEnabled(level slog.Level) bool {
	return GetLevel() <= level
}
