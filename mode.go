package ttylog

import (
	"log/slog"

	"gitlab.com/tozd/go/errors"
)

// DefaultCategory is the only category ttylog configures.
const DefaultCategory = "default"

// Appender names
const (
	AppenderPretty = "pretty-appender"
	AppenderJSON   = "json-appender"
	AppenderTint   = "tint-appender"
)

// Appender types
const (
	TypeStderr  = "stderr"
	TypeStdout  = "stdout"
	TypeConsole = "console"
)

// LayoutTint selects the lmittmann/tint handler instead of a registered layout.
const LayoutTint = "tint"

// LOG_FORMAT values
const (
	FormatAuto   = "auto"
	FormatPretty = "pretty"
	FormatJSON   = "json"
	FormatTint   = "tint"
)

// AppenderConfig names an output sink and the layout used to render events into it.
type AppenderConfig struct {
	Type   string
	Layout string
}

// CategoryConfig lists the appenders of a category and its level filter.
type CategoryConfig struct {
	Appenders       []string
	EnableCallStack bool
	Level           slog.Level
}

// ModeConfig is the configuration handed to Configure.
type ModeConfig struct {
	Appenders  map[string]AppenderConfig
	Categories map[string]CategoryConfig
}

func defaultCategory(appender string) map[string]CategoryConfig {
	return map[string]CategoryConfig{
		DefaultCategory: {
			Appenders:       []string{appender},
			EnableCallStack: true,
			Level:           LevelDebug,
		},
	}
}

// SelectMode picks the output mode. A browser host always gets the console
// layout; a process gets the console layout on an interactive stderr and
// JSON lines otherwise. Exactly one appender is attached either way.
func SelectMode(host Host, interactive bool) ModeConfig {
	if host == HostBrowser {
		return ModeConfig{
			Appenders: map[string]AppenderConfig{
				AppenderPretty: {Type: TypeConsole, Layout: LayoutConsole},
			},
			Categories: defaultCategory(AppenderPretty),
		}
	}

	active := AppenderJSON
	if interactive {
		active = AppenderPretty
	}
	return ModeConfig{
		Appenders: map[string]AppenderConfig{
			AppenderPretty: {Type: TypeStderr, Layout: LayoutConsole},
			AppenderJSON:   {Type: TypeStderr, Layout: LayoutJSON},
		},
		Categories: defaultCategory(active),
	}
}

// SelectModeFor applies the LOG_FORMAT and LOG_LEVEL overrides of env on top of SelectMode.
func SelectModeFor(env Environment) ModeConfig {
	host := env.Host()

	var mc ModeConfig
	switch env.Format() {
	case FormatPretty:
		mc = SelectMode(host, true)
	case FormatJSON:
		// browser hosts keep their single console appender
		mc = SelectMode(host, false)
	case FormatTint:
		mc = ModeConfig{
			Appenders: map[string]AppenderConfig{
				AppenderTint: {Type: TypeStderr, Layout: LayoutTint},
			},
			Categories: defaultCategory(AppenderTint),
		}
	default:
		interactive := host == HostBrowser || env.IsInteractiveOutput()
		mc = SelectMode(host, interactive)
	}

	if level, ok := env.Level(); ok {
		cat := mc.Categories[DefaultCategory]
		cat.Level = level
		mc.Categories[DefaultCategory] = cat
	}
	return mc
}

// ActiveAppenders returns the appender names attached to the default category.
func (mc ModeConfig) ActiveAppenders() []string {
	return mc.Categories[DefaultCategory].Appenders
}

// Validate checks that the default category exists and that every appender
// it names is configured with a known type and layout.
func (mc ModeConfig) Validate() error {
	cat, ok := mc.Categories[DefaultCategory]
	if !ok {
		return errors.WithDetails(ErrInvalidConfig, "reason", "missing default category")
	}
	if len(cat.Appenders) == 0 {
		return errors.WithDetails(ErrInvalidConfig, "reason", "default category has no appenders")
	}
	for _, name := range cat.Appenders {
		app, ok := mc.Appenders[name]
		if !ok {
			return errors.WithDetails(ErrInvalidConfig, "reason", "unknown appender", "appender", name)
		}
		switch app.Type {
		case TypeStderr, TypeStdout, TypeConsole:
		default:
			return errors.WithDetails(ErrInvalidConfig, "reason", "unknown appender type", "appender", name, "type", app.Type)
		}
		if app.Layout != LayoutTint && !isLayoutRegistered(app.Layout) {
			return errors.WithDetails(ErrUnknownLayout, "appender", name, "layout", app.Layout)
		}
	}
	return nil
}
