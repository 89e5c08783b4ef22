// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "go.uber.org/atomic"

// nextID is the process-wide telegram id allocator. It lives for the
// lifetime of the program; there is no teardown.
var nextID atomic.Uint64

// allocID returns the next id in the sequence, skipping zero on wrap.
func allocID() uint64 {
	for {
		id := nextID.Add(1)
		if id != 0 {
			return id
		}
	}
}

// Telegram is one Modbus request and the context needed to make sense
// of its reply, as a unit of work in a Bus's request queue.
type Telegram struct {
	id           uint64
	SlaveAddress byte
	FunctionCode byte
	Payload      []byte

	// RepeatCount is decremented once per attempt; the telegram is
	// retried after a loss as long as it remains greater than zero
	// after the decrement. Defaults to 1 (one attempt, no retry).
	RepeatCount int32

	// RequestedCount, RequestedStartAddress and RequestedDataAddress
	// cache what was asked for, since Modbus response PDUs do not
	// echo them and the decoder needs to know how many items to
	// extract. Populated by the New*Telegram constructors.
	RequestedCount        uint16
	RequestedStartAddress uint16
	RequestedDataAddress  uint16
}

// NewTelegram builds a telegram for an arbitrary function code and
// payload, assigning it a fresh, unique, nonzero id. RepeatCount
// defaults to 1; use WithRepeat to raise it.
func NewTelegram(slaveAddress, functionCode byte, payload []byte) *Telegram {
	return &Telegram{
		id:           allocID(),
		SlaveAddress: slaveAddress,
		FunctionCode: functionCode,
		Payload:      payload,
		RepeatCount:  1,
	}
}

// WithRepeat raises the telegram's repeat budget so it is sent up to
// n times in total (n-1 retries) if the bus never sees a reply, and
// returns the receiver for chaining at the call site.
func (t *Telegram) WithRepeat(n int32) *Telegram {
	t.RepeatCount = n
	return t
}

// ID returns the telegram's unique, nonzero, stable identifier.
func (t *Telegram) ID() uint64 {
	return t.id
}

// NeedsAnswer reports whether the bus should expect a reply. Modbus
// RTU broadcasts (slave address 0) never get one.
func (t *Telegram) NeedsAnswer() bool {
	return t.SlaveAddress != 0
}
