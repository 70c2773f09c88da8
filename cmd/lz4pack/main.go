package main

import (
	"log/slog"
	"os"

	"github.com/lz4pack/lz4pack/app/config"
	"github.com/lz4pack/lz4pack/app/panichandler"
	"github.com/lz4pack/lz4pack/app/paniclogger"
	"github.com/lz4pack/lz4pack/cmd/lz4pack/cmd"
)

func main() {
	defer panichandler.PanicHandler()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(2)
	}

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := paniclogger.Init(); err != nil {
		slog.Warn("panic logger did not initialize, falling back to stderr", slog.Any("error", err))
	}
	defer paniclogger.Close()

	cmd.Execute(cfg)
}
