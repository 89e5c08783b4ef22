// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "github.com/openffucontrol/fanbus-modbus/modbus/crc"

// EncodeFrame builds the RTU application data unit for t:
// address, function code, payload, then the CRC-16 trailer
// (low byte first).
func EncodeFrame(t *Telegram) []byte {
	length := 2 + len(t.Payload) + 2
	frame := make([]byte, length)
	frame[0] = t.SlaveAddress
	frame[1] = t.FunctionCode
	copy(frame[2:], t.Payload)

	var c crc.CRC
	c.Reset().PushBytes(frame[:length-2])
	copy(frame[length-2:], c.Bytes())
	return frame
}
