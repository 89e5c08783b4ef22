// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "encoding/binary"

// readPayload builds the four-byte payload shared by the read family
// (fc 1-4): start address followed by item count, both big-endian.
func readPayload(start, count uint16) []byte {
	p := make([]byte, 4)
	binary.BigEndian.PutUint16(p[0:2], start)
	binary.BigEndian.PutUint16(p[2:4], count)
	return p
}

func newReadTelegram(slave, fc byte, start, count uint16) *Telegram {
	t := NewTelegram(slave, fc, readPayload(start, count))
	t.RequestedStartAddress = start
	t.RequestedCount = count
	return t
}

// NewReadCoilsTelegram builds an fc=0x01 request for count coils
// starting at start.
func NewReadCoilsTelegram(slave byte, start, count uint16) *Telegram {
	return newReadTelegram(slave, FuncReadCoils, start, count)
}

// NewReadDiscreteInputsTelegram builds an fc=0x02 request for count
// discrete inputs starting at start.
func NewReadDiscreteInputsTelegram(slave byte, start, count uint16) *Telegram {
	return newReadTelegram(slave, FuncReadDiscreteInputs, start, count)
}

// NewReadHoldingRegistersTelegram builds an fc=0x03 request for count
// holding registers starting at start.
func NewReadHoldingRegistersTelegram(slave byte, start, count uint16) *Telegram {
	return newReadTelegram(slave, FuncReadHoldingRegisters, start, count)
}

// NewReadInputRegistersTelegram builds an fc=0x04 request for count
// input registers starting at start.
func NewReadInputRegistersTelegram(slave byte, start, count uint16) *Telegram {
	return newReadTelegram(slave, FuncReadInputRegisters, start, count)
}

// NewWriteSingleCoilTelegram builds an fc=0x05 request. on selects the
// 0xFF00/0x0000 wire encoding.
func NewWriteSingleCoilTelegram(slave byte, addr uint16, on bool) *Telegram {
	value := uint16(0x0000)
	if on {
		value = 0xFF00
	}
	p := make([]byte, 4)
	binary.BigEndian.PutUint16(p[0:2], addr)
	binary.BigEndian.PutUint16(p[2:4], value)
	t := NewTelegram(slave, FuncWriteSingleCoil, p)
	t.RequestedDataAddress = addr
	return t
}

// NewWriteSingleRegisterTelegram builds an fc=0x06 request writing
// value to the register at addr.
func NewWriteSingleRegisterTelegram(slave byte, addr, value uint16) *Telegram {
	p := make([]byte, 4)
	binary.BigEndian.PutUint16(p[0:2], addr)
	binary.BigEndian.PutUint16(p[2:4], value)
	t := NewTelegram(slave, FuncWriteSingleRegister, p)
	t.RequestedDataAddress = addr
	return t
}

// NewWriteMultipleCoilsTelegram builds an fc=0x0F request, packing
// values LSB-first within each byte as required on the wire.
func NewWriteMultipleCoilsTelegram(slave byte, start uint16, values []bool) *Telegram {
	count := uint16(len(values))
	byteCount := int(count+7) / 8
	p := make([]byte, 5+byteCount)
	binary.BigEndian.PutUint16(p[0:2], start)
	binary.BigEndian.PutUint16(p[2:4], count)
	p[4] = byte(byteCount)
	for i, v := range values {
		if v {
			p[5+i/8] |= 1 << uint(i%8)
		}
	}
	t := NewTelegram(slave, FuncWriteMultipleCoils, p)
	t.RequestedStartAddress = start
	t.RequestedCount = count
	return t
}

// NewWriteMultipleRegistersTelegram builds an fc=0x10 request, each
// value encoded big-endian.
func NewWriteMultipleRegistersTelegram(slave byte, start uint16, values []uint16) *Telegram {
	count := uint16(len(values))
	p := make([]byte, 5+2*len(values))
	binary.BigEndian.PutUint16(p[0:2], start)
	binary.BigEndian.PutUint16(p[2:4], count)
	p[4] = byte(2 * len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(p[5+2*i:7+2*i], v)
	}
	t := NewTelegram(slave, FuncWriteMultipleRegs, p)
	t.RequestedStartAddress = start
	t.RequestedCount = count
	return t
}

// NewMaskWriteRegisterTelegram builds an fc=0x16 request applying
// (register AND andMask) OR (orMask AND ^andMask) to addr.
func NewMaskWriteRegisterTelegram(slave byte, addr, andMask, orMask uint16) *Telegram {
	p := make([]byte, 6)
	binary.BigEndian.PutUint16(p[0:2], addr)
	binary.BigEndian.PutUint16(p[2:4], andMask)
	binary.BigEndian.PutUint16(p[4:6], orMask)
	t := NewTelegram(slave, FuncMaskWriteRegister, p)
	t.RequestedDataAddress = addr
	return t
}

// NewReadFIFOQueueTelegram builds an fc=0x18 request for the FIFO
// queue rooted at ptrAddr.
func NewReadFIFOQueueTelegram(slave byte, ptrAddr uint16) *Telegram {
	p := make([]byte, 2)
	binary.BigEndian.PutUint16(p, ptrAddr)
	t := NewTelegram(slave, FuncReadFIFOQueue, p)
	t.RequestedDataAddress = ptrAddr
	return t
}

// NewDiagnosticsTelegram builds an fc=0x08 request for the given
// diagnostics sub-function, with an arbitrary data payload appended.
func NewDiagnosticsTelegram(slave byte, subFunction uint16, data []byte) *Telegram {
	p := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(p[0:2], subFunction)
	copy(p[2:], data)
	return NewTelegram(slave, FuncDiagnostics, p)
}

// NewReadExceptionStatusTelegram builds a payload-less fc=0x07
// request.
func NewReadExceptionStatusTelegram(slave byte) *Telegram {
	return NewTelegram(slave, FuncReadExceptionStatus, nil)
}

// NewGetCommEventCounterTelegram builds a payload-less fc=0x0B
// request.
func NewGetCommEventCounterTelegram(slave byte) *Telegram {
	return NewTelegram(slave, FuncGetCommEventCounter, nil)
}

// NewGetCommEventLogTelegram builds a payload-less fc=0x0C request.
func NewGetCommEventLogTelegram(slave byte) *Telegram {
	return NewTelegram(slave, FuncGetCommEventLog, nil)
}

// NewReportSlaveIDTelegram builds a payload-less fc=0x11 request.
func NewReportSlaveIDTelegram(slave byte) *Telegram {
	return NewTelegram(slave, FuncReportSlaveID, nil)
}

// NewRawTelegram builds a telegram for a function code (or vendor
// extension) this package has no dedicated constructor for. payload
// is sent verbatim as the PDU body.
func NewRawTelegram(slave, functionCode byte, payload []byte) *Telegram {
	return NewTelegram(slave, functionCode, payload)
}
