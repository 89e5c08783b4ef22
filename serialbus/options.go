// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package serialbus implements the Modbus RTU transaction engine: a
// single reactor goroutine that owns a serial line, serializes
// telegrams from a modbus.Queue onto the wire one at a time, and
// decodes replies by function code.
package serialbus

import (
	"fmt"
	"log/slog"
	"time"
)

// Options configures a Bus. Zero-value fields are filled in by
// DefaultOptions where a sensible default exists; Device has no
// default and must be set.
type Options struct {
	// Device is the OS path of the serial device, e.g. "/dev/ttyUSB0".
	Device string
	// BaudRate, DataBits, StopBits and Parity describe the line
	// discipline. The bus targets 8 data bits, no parity, two stop
	// bits by convention, but nothing here enforces that beyond the
	// defaults.
	BaudRate int
	DataBits int
	StopBits int
	Parity   string // "N", "E", or "O"

	// RequestTimeout bounds how long the bus waits for a reply before
	// declaring the telegram lost.
	RequestTimeout time.Duration
	// TxGuard is the pause after a transaction finishes before the
	// next telegram is sent, giving the RS-485 transceiver time to
	// release the line.
	TxGuard time.Duration
	// RxIdle is the inter-character idle gap that marks the end of a
	// reply frame.
	RxIdle time.Duration

	// EventBuffer sizes the channel returned by Bus.Events.
	EventBuffer int

	// Logger receives debug/info/warn-level diagnostics. Defaults to
	// slog.Default() when nil.
	Logger *slog.Logger
}

// DefaultOptions returns the timing defaults called out in the design:
// a 5s request timeout, a 4ms TX guard, and a 100ms RX idle window,
// tuned for the low baud rates typical of an RS-485 field bus.
func DefaultOptions() Options {
	return Options{
		BaudRate:       9600,
		DataBits:       8,
		StopBits:       2,
		Parity:         "N",
		RequestTimeout: 5 * time.Second,
		TxGuard:        4 * time.Millisecond,
		RxIdle:         100 * time.Millisecond,
		EventBuffer:    256,
	}
}

// withDefaults fills unset fields of o from DefaultOptions and
// validates the timing relationship the design calls out: the TX
// guard must not exceed the RX idle window, or a guard-timer-driven
// retransmit could race the still-open idle window of the previous
// reply.
func (o Options) withDefaults() (Options, error) {
	def := DefaultOptions()
	if o.Device == "" {
		return o, fmt.Errorf("serialbus: Device must be set")
	}
	if o.BaudRate == 0 {
		o.BaudRate = def.BaudRate
	}
	if o.DataBits == 0 {
		o.DataBits = def.DataBits
	}
	if o.StopBits == 0 {
		o.StopBits = def.StopBits
	}
	if o.Parity == "" {
		o.Parity = def.Parity
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = def.RequestTimeout
	}
	if o.TxGuard == 0 {
		o.TxGuard = def.TxGuard
	}
	if o.RxIdle == 0 {
		o.RxIdle = def.RxIdle
	}
	if o.EventBuffer == 0 {
		o.EventBuffer = def.EventBuffer
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.TxGuard > o.RxIdle {
		return o, fmt.Errorf("serialbus: TxGuard (%s) must not exceed RxIdle (%s)", o.TxGuard, o.RxIdle)
	}
	return o, nil
}
