// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/openffucontrol/fanbus-modbus/internal/config"
	"github.com/openffucontrol/fanbus-modbus/modbus"
	"github.com/openffucontrol/fanbus-modbus/serialbus"
)

func main() {
	flags := pflag.NewFlagSet("fanbusd", pflag.ExitOnError)
	configFile := flags.String("config", "", "path to config file")
	flags.Parse(os.Args[1:])

	var bus *serialbus.Bus
	cfg, err := config.WatchConfig(*configFile, flags, func(cfg *config.Config, err error) {
		if err != nil {
			slog.Warn("config reload failed, keeping previous settings", "err", err)
			return
		}
		if bus == nil {
			return
		}
		if err := bus.UpdateTimers(cfg.Bus.RequestTimeout, cfg.Bus.TxGuard, cfg.Bus.RxIdle); err != nil {
			slog.Warn("config reload rejected", "err", err)
			return
		}
		slog.Info("reloaded bus timers from config")
	})
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	slog.Info("starting fanbus daemon", "device", cfg.Bus.Device)

	bus, err = serialbus.NewBus(serialbus.Options{
		Device:         cfg.Bus.Device,
		BaudRate:       cfg.Bus.BaudRate,
		DataBits:       cfg.Bus.DataBits,
		StopBits:       cfg.Bus.StopBits,
		Parity:         cfg.Bus.Parity,
		RequestTimeout: cfg.Bus.RequestTimeout,
		TxGuard:        cfg.Bus.TxGuard,
		RxIdle:         cfg.Bus.RxIdle,
	})
	if err != nil {
		slog.Error("failed to configure bus", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go logEvents(bus)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("shutting down...")
		cancel()
	}()

	if err := bus.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("bus stopped with error", "err", err)
		os.Exit(1)
	}
	slog.Info("goodbye.")
}

// logEvents drains the bus's event stream and logs it: lost
// transactions and slave exceptions at warn level, everything else at
// debug level.
// A real fan-control application would replace this with a consumer
// that turns HoldingRegistersRead/CoilsRead events into fan state.
func logEvents(bus *serialbus.Bus) {
	for ev := range bus.Events() {
		switch ev := ev.(type) {
		case modbus.TransactionLost:
			slog.Warn("transaction lost", "id", ev.ID)
		case modbus.Exception:
			slog.Warn("slave exception", "id", ev.ID, "code", ev.Code)
		default:
			slog.Debug("bus event", "event", ev)
		}
	}
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("failed to open log file, falling back to stdout: %v\n", err)
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
