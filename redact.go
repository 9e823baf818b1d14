package ttylog

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	slogformatter "github.com/samber/slog-formatter"
)

const maskChar = "🔒"

// SensitiveKeys are the attribute keys masked by WithRedaction when it is
// given no keys of its own.
var SensitiveKeys = []string{
	"password", "pwd", "pass", "passwd",
	"token", "jwt", "auth_token", "access_token", "refresh_token",
	"api_key", "apikey", "secret", "client_secret", "private_key",
	"authorization", "bearer", "credential",
}

// MaskString replaces every character of s with the mask character.
func MaskString(s string) string {
	return strings.Repeat(maskChar, utf8.RuneCountInString(s))
}

// WithRedaction masks the values of attributes with the given keys (or
// SensitiveKeys) before they reach any appender or callback. The message
// text itself is never rewritten.
func WithRedaction(keys ...string) Option {
	return func(s *settings) {
		if len(keys) == 0 {
			keys = SensitiveKeys
		}
		s.redactKeys = append(s.redactKeys, keys...)
	}
}

func redactFormatters(keys []string) []slogformatter.Formatter {
	formatters := make([]slogformatter.Formatter, 0, len(keys))
	for _, key := range keys {
		formatters = append(formatters, slogformatter.FormatByKey(key, func(v slog.Value) slog.Value {
			return slog.StringValue(MaskString(v.String()))
		}))
	}
	return formatters
}
