// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serialbus

import (
	"encoding/binary"

	"github.com/openffucontrol/fanbus-modbus/modbus"
	"github.com/openffucontrol/fanbus-modbus/modbus/crc"
)

// decodeFrame implements the reject rules and dispatch of the
// response parser: stray bytes and malformed lengths are dropped
// silently, a CRC failure counts and drops, and a CRC-valid frame is
// always followed through to RawComplete and TransactionFinished.
func (b *Bus) decodeFrame(frame []byte) {
	if b.current == nil {
		// Stray bytes: nothing is outstanding to attribute them to.
		return
	}
	if len(frame) < modbus.MinFrameSize {
		return
	}

	addr := frame[0]
	fcRaw := frame[1]
	fc, isException := modbus.IsException(fcRaw)

	if isException {
		b.decodeException(frame)
		return
	}

	if len(frame) > modbus.MaxFrameSize {
		return
	}
	if !crc.Verify(frame) {
		b.crcErrors.Inc()
		return
	}

	id := b.current.ID()
	b.rxTelegrams.Inc()
	// A successful reply is terminal regardless of remaining repeat
	// budget: retries exist to survive loss, not to repeat a
	// telegram that already succeeded.
	b.current.RepeatCount = 0

	pdu := frame[2 : len(frame)-2]
	b.emit(modbus.RawComplete{ID: id, Frame: append([]byte(nil), frame...)})
	b.emit(modbus.Raw{ID: id, SlaveAddress: addr, FunctionCode: fc, PDU: append([]byte(nil), pdu...)})
	b.decodePDU(id, addr, fc, pdu)
	b.finishTransaction()
}

func (b *Bus) decodeException(frame []byte) {
	if len(frame) < modbus.MinExceptionFrameSize {
		return
	}
	if !crc.Verify(frame) {
		b.crcErrors.Inc()
		return
	}

	id := b.current.ID()
	b.rxTelegrams.Inc()
	// Exceptions are terminal: never retried, no matter what repeat
	// budget the caller asked for.
	b.current.RepeatCount = 0

	code := modbus.ExceptionCode(frame[2])
	b.emit(modbus.Exception{ID: id, Code: code})
	b.emit(modbus.RawComplete{ID: id, Frame: append([]byte(nil), frame...)})
	b.finishTransaction()
}

// decodePDU decodes the reply body for the function codes that carry
// decoded events (§4.5). Everything else — echo-form writes and the
// diagnostics/exception-status/comm-log/FIFO family — relies on the
// Raw event already emitted by the caller; a malformed PDU here is
// logged and otherwise ignored, never causing a panic or a spurious
// event.
func (b *Bus) decodePDU(id uint64, addr, fc byte, pdu []byte) {
	req := b.current
	switch fc {
	case modbus.FuncReadCoils:
		values, ok := decodeBits(pdu, req.RequestedCount)
		if !ok {
			b.logger.Debug("malformed read-coils reply", "id", id)
			return
		}
		b.emit(modbus.CoilsRead{ID: id, SlaveAddress: addr, Start: req.RequestedStartAddress, Values: values})

	case modbus.FuncReadDiscreteInputs:
		values, ok := decodeBits(pdu, req.RequestedCount)
		if !ok {
			b.logger.Debug("malformed read-discrete-inputs reply", "id", id)
			return
		}
		b.emit(modbus.DiscreteInputsRead{ID: id, SlaveAddress: addr, Start: req.RequestedStartAddress, Values: values})

	case modbus.FuncReadHoldingRegisters:
		values, ok := decodeRegisters(pdu, req.RequestedCount)
		if !ok {
			b.logger.Debug("malformed read-holding-registers reply", "id", id)
			return
		}
		b.emit(modbus.HoldingRegistersRead{ID: id, SlaveAddress: addr, Start: req.RequestedStartAddress, Values: values})

	case modbus.FuncReadInputRegisters:
		values, ok := decodeRegisters(pdu, req.RequestedCount)
		if !ok {
			b.logger.Debug("malformed read-input-registers reply", "id", id)
			return
		}
		b.emit(modbus.InputRegistersRead{ID: id, SlaveAddress: addr, Start: req.RequestedStartAddress, Values: values})

	case modbus.FuncWriteSingleCoil, modbus.FuncWriteSingleRegister,
		modbus.FuncWriteMultipleCoils, modbus.FuncWriteMultipleRegs:
		// Echo-form replies: RawComplete already carries everything
		// there is to know.

	default:
		// fc 7, 8, 11, 12, 17, 24 and vendor extensions: decoded
		// event types are reserved but not emitted in this version.
	}
}

// decodeBits parses the [byteCount][packed bits] body used by fc 1/2,
// extracting exactly count booleans in wire order (LSB first within
// each byte).
func decodeBits(pdu []byte, count uint16) ([]bool, bool) {
	if len(pdu) < 1 {
		return nil, false
	}
	byteCount := int(pdu[0])
	if byteCount != len(pdu)-1 {
		return nil, false
	}
	if int(count) > byteCount*8 {
		return nil, false
	}
	values := make([]bool, count)
	for i := range values {
		octet := pdu[1+i/8]
		values[i] = octet&(1<<uint(i%8)) != 0
	}
	return values, true
}

// decodeRegisters parses the [byteCount][N big-endian words] body
// used by fc 3/4.
func decodeRegisters(pdu []byte, count uint16) ([]uint16, bool) {
	if len(pdu) < 1 {
		return nil, false
	}
	byteCount := int(pdu[0])
	if byteCount != len(pdu)-1 || len(pdu) != int(count)*2+1 {
		return nil, false
	}
	values := make([]uint16, count)
	for i := range values {
		values[i] = binary.BigEndian.Uint16(pdu[1+2*i : 3+2*i])
	}
	return values, true
}

// resolveWaiter delivers rc to a registered SendRawBlocking caller, if
// any, without blocking the reactor: the waiter's channel always has
// spare capacity for exactly one value.
func (b *Bus) resolveWaiter(rc modbus.RawComplete) {
	b.waitersMu.Lock()
	ch, ok := b.waiters[rc.ID]
	if ok {
		delete(b.waiters, rc.ID)
	}
	b.waitersMu.Unlock()
	if ok {
		ch <- rc
	}
}
