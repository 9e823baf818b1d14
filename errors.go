package ttylog

import "gitlab.com/tozd/go/errors"

var (
	// ErrAlreadyConfigured is returned by Init when the default logger exists already.
	ErrAlreadyConfigured = errors.Base("ttylog: default logger already configured")
	// ErrInvalidConfig reports a ModeConfig that cannot be applied.
	ErrInvalidConfig = errors.Base("ttylog: invalid mode configuration")
	// ErrUnknownLayout reports a layout name that was never registered.
	ErrUnknownLayout = errors.Base("ttylog: unknown layout")
	// ErrInvalidLevel reports an unparseable level name.
	ErrInvalidLevel = errors.Base("ttylog: invalid log level")
)
