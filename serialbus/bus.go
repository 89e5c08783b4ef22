// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serialbus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/openffucontrol/fanbus-modbus/modbus"
)

// Bus is a single-bus Modbus RTU transaction engine. It owns exactly
// one serial line, and drives all state transitions from a single
// reactor goroutine started by Run. Submit, Clear, QueueSize,
// Counters, UpdateTimers and SendRawBlocking are safe to call from any
// goroutine; the remaining state is reactor-owned.
type Bus struct {
	opts   Options
	logger *slog.Logger

	queue *modbus.Queue
	kick  chan struct{}

	events chan modbus.Event

	rxTelegrams atomic.Uint64
	crcErrors   atomic.Uint64

	waitersMu sync.Mutex
	waiters   map[uint64]chan modbus.RawComplete

	// Reactor-goroutine-only state below; touched exclusively inside
	// Run's select loop and the helpers it calls.
	ctx           context.Context
	port          io.ReadWriteCloser
	current       *modbus.Telegram
	awaitingReply bool
	rxBuf         []byte

	requestTimer *time.Timer
	txGuardTimer *time.Timer
	rxIdleTimer  *time.Timer

	rxChan      chan []byte
	readerErr   chan error
	applyTimers chan timerUpdate
}

// timerUpdate carries a new set of timer durations into the reactor
// goroutine, applied at the next select iteration.
type timerUpdate struct {
	requestTimeout time.Duration
	txGuard        time.Duration
	rxIdle         time.Duration
}

// NewBus constructs a Bus from opts, filling in defaults and
// validating the timer relationship described in the design. The
// serial port is not opened until Run is called.
func NewBus(opts Options) (*Bus, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Bus{
		opts:        opts,
		logger:      opts.Logger,
		queue:       modbus.NewQueue(),
		kick:        make(chan struct{}, 1),
		events:      make(chan modbus.Event, opts.EventBuffer),
		waiters:     make(map[uint64]chan modbus.RawComplete),
		rxChan:      make(chan []byte, 16),
		readerErr:   make(chan error, 1),
		applyTimers: make(chan timerUpdate, 1),
	}, nil
}

// Events returns the bus's ordered event stream. Exactly one consumer
// should drain it; a second consumer wanting to correlate a single
// telegram's outcome should use SendRawBlocking instead of also
// draining this channel.
func (b *Bus) Events() <-chan modbus.Event {
	return b.events
}

// Counters is a snapshot of the bus's monotonic counters.
type Counters struct {
	RxTelegrams uint64
	CRCErrors   uint64
}

// Counters returns the current values of the bus's counters. Safe to
// call from any goroutine.
func (b *Bus) Counters() Counters {
	return Counters{
		RxTelegrams: b.rxTelegrams.Load(),
		CRCErrors:   b.crcErrors.Load(),
	}
}

// Submit appends t to the bus's request queue (high-priority when
// highPriority is set) and nudges the reactor in case it is idle.
// Submit never blocks beyond acquiring the queue's mutex.
func (b *Bus) Submit(t *modbus.Telegram, highPriority bool) uint64 {
	id := b.queue.Submit(t, highPriority)
	select {
	case b.kick <- struct{}{}:
	default:
	}
	return id
}

// Clear drops every telegram waiting in the requested queue without
// touching a telegram already in flight.
func (b *Bus) Clear(highPriority bool) {
	b.queue.Clear(highPriority)
}

// QueueSize reports how many telegrams are waiting (not counting the
// one currently in flight, if any) in the requested queue.
func (b *Bus) QueueSize(highPriority bool) int {
	return b.queue.Size(highPriority)
}

// UpdateTimers replaces the bus's request timeout, TX guard and RX
// idle durations, taking effect from the reactor's next iteration
// onward (an already-armed timer keeps running with its old
// duration; only later arms use the new one). Safe to call from any
// goroutine, including a config file watcher. Returns an error
// without applying anything if txGuard exceeds rxIdle.
func (b *Bus) UpdateTimers(requestTimeout, txGuard, rxIdle time.Duration) error {
	if txGuard > rxIdle {
		return fmt.Errorf("serialbus: TxGuard (%s) must not exceed RxIdle (%s)", txGuard, rxIdle)
	}
	u := timerUpdate{requestTimeout: requestTimeout, txGuard: txGuard, rxIdle: rxIdle}
	select {
	case b.applyTimers <- u:
	default:
		select {
		case <-b.applyTimers:
		default:
		}
		b.applyTimers <- u
	}
	return nil
}

// Run opens the serial port and drives the reactor loop until ctx is
// canceled or an unrecoverable setup error occurs. Once the port is
// open, it closes the event channel before returning; if opening the
// port fails, the error is returned and the channel stays open.
func (b *Bus) Run(ctx context.Context) error {
	port, err := openPort(b.opts)
	if err != nil {
		return err
	}
	return b.run(ctx, port)
}

// run drives the reactor loop against an already-open port. It is
// split out from Run so tests can inject an in-memory port instead of
// a real serial device.
func (b *Bus) run(ctx context.Context, port io.ReadWriteCloser) error {
	b.port = port
	b.ctx = ctx
	defer b.port.Close()
	defer close(b.events)

	b.requestTimer = newStoppedTimer()
	b.txGuardTimer = newStoppedTimer()
	b.rxIdleTimer = newStoppedTimer()
	defer b.requestTimer.Stop()
	defer b.txGuardTimer.Stop()
	defer b.rxIdleTimer.Stop()

	go readLoop(ctx, b.port, b.rxChan, b.readerErr)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-b.kick:
			b.trySendNext()

		case chunk := <-b.rxChan:
			b.onBytes(chunk)

		case err := <-b.readerErr:
			b.logger.Warn("serial read failed, bus continues without further RX", "err", err)

		case <-b.requestTimer.C:
			b.onRequestTimeout()

		case <-b.txGuardTimer.C:
			b.trySendNext()

		case <-b.rxIdleTimer.C:
			b.onIdle()

		case u := <-b.applyTimers:
			b.opts.RequestTimeout = u.requestTimeout
			b.opts.TxGuard = u.txGuard
			b.opts.RxIdle = u.rxIdle
			b.logger.Info("applied updated bus timers",
				"request_timeout", u.requestTimeout, "tx_guard", u.txGuard, "rx_idle", u.rxIdle)
		}
	}
}

// trySendNext promotes the next telegram onto the wire. It is a
// no-op if the bus is currently awaiting a reply; it is only ever
// meant to run at the Idle->Sending and AwaitingTxGuard->Sending
// transitions (a submission on an idle bus, or the TX guard timer
// firing).
func (b *Bus) trySendNext() {
	if b.awaitingReply {
		return
	}
	if b.current != nil && b.current.RepeatCount <= 0 {
		b.current = nil
	}
	if b.current == nil {
		next := b.queue.Dequeue()
		if next == nil {
			return
		}
		b.current = next
	}

	b.awaitingReply = true
	b.rxBuf = b.rxBuf[:0]
	resetTimer(b.requestTimer, b.opts.RequestTimeout)

	b.current.RepeatCount--
	frame := modbus.EncodeFrame(b.current)
	if _, err := b.port.Write(frame); err != nil {
		// A write to a closed or failed port is silently absorbed:
		// the request timer still governs the outcome, keeping the
		// state machine consistent without a special error path.
		b.logger.Warn("serial write failed", "id", b.current.ID(), "err", err)
	}
	b.logger.Debug("sent telegram", "id", b.current.ID(), "addr", b.current.SlaveAddress, "fc", b.current.FunctionCode)
}

// onBytes appends newly-read bytes to the RX buffer and re-arms the
// idle timer; the decoder only runs once the line has gone quiet.
func (b *Bus) onBytes(chunk []byte) {
	b.rxBuf = append(b.rxBuf, chunk...)
	resetTimer(b.rxIdleTimer, b.opts.RxIdle)
}

// onIdle runs when the RX idle timer fires: the accumulated buffer is
// treated as one complete candidate frame.
func (b *Bus) onIdle() {
	frame := b.rxBuf
	b.rxBuf = nil
	b.decodeFrame(frame)
}

// onRequestTimeout runs when a reply never arrived in time.
func (b *Bus) onRequestTimeout() {
	if b.current != nil && b.current.NeedsAnswer() {
		b.emit(modbus.TransactionLost{ID: b.current.ID()})
	}
	b.finishTransaction()
}

// finishTransaction marks the current telegram's attempt as over
// (successful, exceptional, or lost) and arms the TX guard so the
// line has time to settle before the next attempt.
func (b *Bus) finishTransaction() {
	b.awaitingReply = false
	stopTimer(b.requestTimer)
	b.emit(modbus.TransactionFinished{})
	resetTimer(b.txGuardTimer, b.opts.TxGuard)
}

// emit delivers ev on the event channel, resolving any SendRawBlocking
// waiter first so a caller blocked on a specific id never misses it
// because the shared channel is momentarily full.
func (b *Bus) emit(ev modbus.Event) {
	if rc, ok := ev.(modbus.RawComplete); ok {
		b.resolveWaiter(rc)
	}
	select {
	case b.events <- ev:
	case <-b.ctx.Done():
	}
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	stopTimer(t)
	t.Reset(d)
}
