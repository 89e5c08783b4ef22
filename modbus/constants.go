// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package modbus provides the protocol-level building blocks for a
// Modbus RTU master: function code and exception constants, telegram
// frame encoding (plus CRC), payload builders for the supported
// function codes, and the request queue that feeds a serialbus.Bus.
package modbus

// Function codes supported on the request side. Codes not listed here
// are out of scope; a caller that needs one can still submit a raw
// telegram via NewRawTelegram.
const (
	FuncReadCoils             byte = 0x01
	FuncReadDiscreteInputs    byte = 0x02
	FuncReadHoldingRegisters  byte = 0x03
	FuncReadInputRegisters    byte = 0x04
	FuncWriteSingleCoil       byte = 0x05
	FuncWriteSingleRegister   byte = 0x06
	FuncReadExceptionStatus   byte = 0x07
	FuncDiagnostics           byte = 0x08
	FuncGetCommEventCounter   byte = 0x0B
	FuncGetCommEventLog       byte = 0x0C
	FuncWriteMultipleCoils    byte = 0x0F
	FuncWriteMultipleRegs     byte = 0x10
	FuncReportSlaveID         byte = 0x11
	FuncMaskWriteRegister     byte = 0x16
	FuncReadFIFOQueue         byte = 0x18
	exceptionBit              byte = 0x80
)

// MinFrameSize is the smallest legal RTU ADU: address, function, two
// CRC bytes.
const MinFrameSize = 4

// MaxFrameSize is the largest legal RTU ADU: 255 bytes, the firm cap
// the original engine enforces. 256 is the size of the overflow
// check, not a valid frame length.
const MaxFrameSize = 255

// MinExceptionFrameSize is the smallest legal exception-response ADU:
// address, function|0x80, exception code, two CRC bytes.
const MinExceptionFrameSize = 5

// IsException reports whether fcRaw (the function-code byte as it
// arrived on the wire) carries the exception marker, and returns the
// underlying function code with the marker stripped.
func IsException(fcRaw byte) (fc byte, exception bool) {
	if fcRaw&exceptionBit != 0 {
		return fcRaw &^ exceptionBit, true
	}
	return fcRaw, false
}

// ExceptionCode identifies the reason a slave rejected a request, as
// carried in byte 0 of an exception PDU.
type ExceptionCode byte

// Exception codes defined by the Modbus application protocol.
const (
	ExcIllegalFunction               ExceptionCode = 0x01
	ExcIllegalDataAddress            ExceptionCode = 0x02
	ExcIllegalDataValue               ExceptionCode = 0x03
	ExcServerDeviceFailure           ExceptionCode = 0x04
	ExcAcknowledge                   ExceptionCode = 0x05
	ExcServerDeviceBusy              ExceptionCode = 0x06
	ExcMemoryParityError             ExceptionCode = 0x08
	ExcGatewayPathUnavailable        ExceptionCode = 0x0A
	ExcGatewayTargetFailedToRespond  ExceptionCode = 0x0B
)

// String renders the exception code the way it appears in the Modbus
// application protocol specification, or "UNKNOWN" for a code this
// implementation does not recognize.
func (e ExceptionCode) String() string {
	switch e {
	case ExcIllegalFunction:
		return "ILLEGAL_FUNCTION"
	case ExcIllegalDataAddress:
		return "ILLEGAL_DATA_ADDRESS"
	case ExcIllegalDataValue:
		return "ILLEGAL_DATA_VALUE"
	case ExcServerDeviceFailure:
		return "SERVER_DEVICE_FAILURE"
	case ExcAcknowledge:
		return "ACKNOWLEDGE"
	case ExcServerDeviceBusy:
		return "SERVER_DEVICE_BUSY"
	case ExcMemoryParityError:
		return "MEMORY_PARITY_ERROR"
	case ExcGatewayPathUnavailable:
		return "GATEWAY_PATH_UNAVAILABLE"
	case ExcGatewayTargetFailedToRespond:
		return "GATEWAY_TARGET_DEVICE_FAILED_TO_RESPOND"
	default:
		return "UNKNOWN"
	}
}
