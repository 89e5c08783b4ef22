// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serialbus

import (
	"context"
	"time"

	"github.com/openffucontrol/fanbus-modbus/modbus"
)

// defaultBlockingTimeout bounds SendRawBlocking when the caller's
// context carries no deadline of its own.
const defaultBlockingTimeout = 10 * time.Second

// SendRawBlocking submits a raw telegram and synchronously waits for
// its matching RawComplete event, returning the reply's PDU body (the
// bytes between the function code and the CRC). It subscribes to the telegram's outcome before
// submitting, so it can never miss the event racing the submission.
//
// Must not be called from the goroutine running Bus.Run: that would
// block the reactor from ever producing the event being waited for.
func (b *Bus) SendRawBlocking(ctx context.Context, addr, fc byte, payload []byte) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultBlockingTimeout)
		defer cancel()
	}

	tg := modbus.NewRawTelegram(addr, fc, payload)
	ch := make(chan modbus.RawComplete, 1)
	b.registerWaiter(tg.ID(), ch)
	defer b.unregisterWaiter(tg.ID())

	b.Submit(tg, false)

	select {
	case rc := <-ch:
		if len(rc.Frame) < modbus.MinFrameSize {
			return nil, context.DeadlineExceeded
		}
		return rc.Frame[2 : len(rc.Frame)-2], nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Bus) registerWaiter(id uint64, ch chan modbus.RawComplete) {
	b.waitersMu.Lock()
	b.waiters[id] = ch
	b.waitersMu.Unlock()
}

func (b *Bus) unregisterWaiter(id uint64) {
	b.waitersMu.Lock()
	delete(b.waiters, id)
	b.waitersMu.Unlock()
}
