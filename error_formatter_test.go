package ttylog

import (
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"gitlab.com/tozd/go/errors"
)

type ErrorFormatterSuite struct {
	suite.Suite
}

func groupByKey(attrs []slog.Attr) map[string]slog.Value {
	out := make(map[string]slog.Value, len(attrs))
	for _, attr := range attrs {
		out[attr.Key] = attr.Value
	}
	return out
}

func (suite *ErrorFormatterSuite) TestSimpleTozdError() {
	formatter := TozdErrorFormatter(false)
	err := errors.New("simple test error")

	value, changed := formatter(nil, slog.Any("error", err))

	suite.True(changed)
	suite.Equal(slog.KindGroup, value.Kind())

	attrs := groupByKey(value.Group())
	suite.Equal("simple test error", attrs["message"].String())
	suite.Contains(attrs, orgErrorKey)
}

func (suite *ErrorFormatterSuite) TestTozdErrorWithDetails() {
	formatter := TozdErrorFormatter(false)
	err := errors.WithDetails(
		errors.New("error with details"),
		"user_id", "12345",
		"action", "login",
		"attempts", 3,
	)

	value, changed := formatter(nil, slog.Any("error", err))
	suite.True(changed)

	attrs := groupByKey(value.Group())
	suite.Equal("error with details", attrs["message"].String())
	suite.Require().Contains(attrs, "details")
	suite.Equal(slog.KindGroup, attrs["details"].Kind())

	details := make(map[string]any)
	for _, d := range attrs["details"].Group() {
		details[d.Key] = d.Value.Any()
	}
	var keys []string
	for _, d := range attrs["details"].Group() {
		keys = append(keys, d.Key)
	}
	suite.Equal([]string{"action", "attempts", "user_id"}, keys)
	suite.Equal("12345", details["user_id"])
	suite.Equal("login", details["action"])
	suite.Contains(details, "attempts")
}

func (suite *ErrorFormatterSuite) TestTozdErrorWithStackTrace() {
	formatter := TozdErrorFormatter(false)
	err := errors.WithStack(errors.New("error with stack"))

	value, changed := formatter(nil, slog.Any("error", err))
	suite.True(changed)

	attrs := groupByKey(value.Group())
	suite.Require().Contains(attrs, "stacktrace")
	suite.Equal(slog.KindString, attrs["stacktrace"].Kind())

	stack := attrs["stacktrace"].String()
	suite.Contains(stack, ":")
	suite.Contains(stack, "TestTozdErrorWithStackTrace")
	suite.NotContains(stack, "\n")
}

func (suite *ErrorFormatterSuite) TestStackTraceColors() {
	err := errors.New("colored")

	value, _ := TozdErrorFormatter(true)(nil, slog.Any("error", err))
	suite.Contains(groupByKey(value.Group())["stacktrace"].String(), "\x1b[32m")

	value, _ = TozdErrorFormatter(false)(nil, slog.Any("error", err))
	suite.NotContains(groupByKey(value.Group())["stacktrace"].String(), "\x1b[")
}

func (suite *ErrorFormatterSuite) TestTozdErrorWithCause() {
	formatter := TozdErrorFormatter(false)
	err := errors.Wrap(errors.New("root cause error"), "wrapped error")

	value, changed := formatter(nil, slog.Any("error", err))
	suite.True(changed)

	attrs := groupByKey(value.Group())
	suite.Equal("wrapped error", attrs["message"].String())
	suite.Equal("root cause error", attrs["cause"].String())
}

func (suite *ErrorFormatterSuite) TestNonTozdValueUnchanged() {
	formatter := TozdErrorFormatter(false)

	_, changed := formatter(nil, slog.String("error", "not a tozd error"))
	suite.False(changed)
}

func (suite *ErrorFormatterSuite) TestPlainErrorFormatter() {
	formatter := ErrorFormatter("error")

	value, changed := formatter(nil, slog.Any("error", fmt.Errorf("plain failure")))
	suite.True(changed)

	attrs := groupByKey(value.Group())
	suite.Equal("plain failure", attrs["message"].String())
	suite.Equal("*errors.errorString", attrs["type"].String())

	_, changed = formatter(nil, slog.Any("other", fmt.Errorf("ignored")))
	suite.False(changed, "only the configured field is formatted")
}

func (suite *ErrorFormatterSuite) TestOriginalErrorDroppedFromMessage() {
	value, changed := ErrorFormatter("error")(nil, slog.Any("error", fmt.Errorf("bad input")))
	suite.Require().True(changed)

	var kvs []kv
	flattenAttr(&kvs, nil, slog.Attr{Key: "error", Value: value})

	var keys []string
	for _, kv := range kvs {
		keys = append(keys, kv.key)
	}
	suite.Equal([]string{"error.message", "error.type"}, keys)
	suite.False(strings.Contains(strings.Join(keys, ","), orgErrorKey))
}

func TestErrorFormatterSuite(t *testing.T) {
	suite.Run(t, new(ErrorFormatterSuite))
}
