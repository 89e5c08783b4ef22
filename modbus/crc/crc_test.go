// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package crc

import (
	"testing"
)

func TestCRC(t *testing.T) {
	var crc CRC
	crc.Reset()
	crc.PushBytes([]byte{0x02, 0x07})

	if crc.Value() != 0x1241 {
		t.Fatalf("crc expected %v, actual %v", 0x1241, crc.Value())
	}
}

func TestVerify(t *testing.T) {
	// 01 03 00 10 00 02 <crc>, a real read-holding-registers request.
	var c CRC
	c.Reset().PushBytes([]byte{0x01, 0x03, 0x00, 0x10, 0x00, 0x02})
	frame := append([]byte{0x01, 0x03, 0x00, 0x10, 0x00, 0x02}, c.Bytes()...)

	if !Verify(frame) {
		t.Fatalf("Verify() = false for a correctly-trailed frame")
	}

	frame[len(frame)-1] ^= 0xFF
	if Verify(frame) {
		t.Fatalf("Verify() = true after flipping the trailing CRC byte")
	}
}

func TestVerifyShortFrame(t *testing.T) {
	if Verify([]byte{0x01}) {
		t.Fatalf("Verify() = true for a frame shorter than the CRC trailer")
	}
}
