package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dianlight/ttylog"
	"github.com/k0kubun/pp/v3"
	"gitlab.com/tozd/go/errors"
)

func main() {
	fmt.Println("=== ttylog demonstration ===")

	logger, err := ttylog.Init()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ttylog:", err)
		os.Exit(1)
	}

	env := ttylog.SystemEnvironment()

	fmt.Println()
	fmt.Println("1. Resolved mode:")
	pp.SetDefaultOutput(os.Stdout)
	pp.Default.SetColoringEnabled(env.IsInteractiveOutput())
	pp.Println(logger.Mode())
	fmt.Printf("host=%s interactive=%t active=%v\n", env.Host(), env.IsInteractiveOutput(), logger.Mode().ActiveAppenders())

	fmt.Println()
	fmt.Println("2. Plain levels:")
	logger.Debug("debug message", 1)
	logger.Info("info message", "component", "demo")
	logger.Warn("warn message")
	logger.Error("error message", errors.New("demonstration error"))

	fmt.Println()
	fmt.Println("3. Levels with backtrace:")
	nested(logger)

	fmt.Println()
	fmt.Println("4. Package functions and slog bridge:")
	ttylog.Info("through the package default")
	slog.Info("through slog.Default", "request_id", "demo-123")
	slog.Log(context.Background(), slog.LevelInfo+2, "custom level renders in red")

	fmt.Println()
	fmt.Println("5. Error attributes:")
	detailed := errors.WithDetails(
		errors.New("database connection failed"),
		"host", "localhost",
		"port", 5432,
	)
	logger.Slog().Error("cannot start", "error", detailed)

	fmt.Println()
	fmt.Println("6. Redacted attributes:")
	redacted, err := ttylog.New(ttylog.WithRedaction())
	if err != nil {
		fmt.Fprintln(os.Stderr, "ttylog:", err)
		os.Exit(1)
	}
	redacted.Slog().Info("login", "user", "demo", "password", "hunter2")

	fmt.Println()
	fmt.Println("7. Callbacks:")
	done := make(chan struct{})
	id := ttylog.RegisterCallback(ttylog.LevelWarn, func(ev ttylog.Event) {
		fmt.Printf("callback got %s %q from %s:%d\n", ev.Level, ev.Message(), ev.FileName, ev.LineNumber)
		close(done)
	})
	logger.Warn("watched warning")
	<-done
	ttylog.UnregisterCallback(ttylog.LevelWarn, id)
	ttylog.Shutdown()
}

func nested(logger *ttylog.Logger) {
	deeper(logger)
}

func deeper(logger *ttylog.Logger) {
	logger.Errors("boom", 42)
	logger.Infos("state dump requested")
}
