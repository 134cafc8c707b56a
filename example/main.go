package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gitlab.com/tozd/go/errors"

	"github.com/colog-io/colog"
	"github.com/colog-io/colog/termcap"
)

func main() {
	defer colog.HandlePanic()

	if err := colog.Setup(); err != nil {
		panic(err)
	}
	colog.SetLevel(colog.LevelDebug)

	fmt.Println("=== colog demonstration ===")
	fmt.Println()

	fmt.Println("1. Severity keywords and markup in messages:")
	slog.Debug("debugging the startup sequence")
	slog.Info(`loading "config.yml" from the working directory`)
	slog.Info("remember: *emphasis*, **strong**, __underlined__ and `code` are styled")
	slog.Warn("disk usage warning, cleanup recommended")
	slog.Error(`write failed: "no space left on device"`)
	slog.Log(context.Background(), colog.LevelCritical, "critical error, shutting down")

	fmt.Println()
	fmt.Println("2. Structured errors with colored stack traces:")
	err := errors.WithDetails(
		errors.New("connection refused"),
		"host", "db.internal", "port", 5432,
	)
	slog.Error("database unreachable", "error", err)

	fmt.Println()
	fmt.Println("3. Per-level callbacks:")
	colog.RegisterCallback(colog.LevelError, func(event colog.LogEvent) {
		fmt.Printf("[callback] saw error record: %s\n", event.Record.Message)
	})
	slog.Error("an error observed by the callback")
	colog.Shutdown()

	fmt.Println()
	fmt.Println("4. Rule overrides (errors in purple):")
	handler, err := colog.NewHandler(os.Stderr, &colog.HandlerOptions{
		Name: "demo",
		KeywordRules: []colog.KeywordRule{
			{Pattern: `\berror\b`, Style: colog.Style{termcap.Purple, termcap.Bold}},
		},
	})
	if err != nil {
		panic(err)
	}
	slog.New(handler).Error("this error is purple")
}
