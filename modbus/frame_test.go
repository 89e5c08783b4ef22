// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"bytes"
	"testing"

	"github.com/openffucontrol/fanbus-modbus/modbus/crc"
)

func TestEncodeFrameReadHoldingRegisters(t *testing.T) {
	tg := NewReadHoldingRegistersTelegram(1, 0x0010, 2)
	got := EncodeFrame(tg)
	want := []byte{0x01, 0x03, 0x00, 0x10, 0x00, 0x02, 0xC5, 0xCE}
	if !bytes.Equal(got, want) {
		t.Fatalf("EncodeFrame() = % X, want % X", got, want)
	}
}

func TestEncodeFrameRoundTripsThroughCRC(t *testing.T) {
	telegrams := []*Telegram{
		NewReadCoilsTelegram(1, 0, 8),
		NewWriteSingleCoilTelegram(5, 2, true),
		NewWriteMultipleRegistersTelegram(3, 100, []uint16{1, 2, 3}),
		NewRawTelegram(9, 0x08, []byte{0x00, 0x00, 0xCA, 0xFE}),
	}
	for _, tg := range telegrams {
		frame := EncodeFrame(tg)
		if !crc.Verify(frame) {
			t.Fatalf("EncodeFrame(%+v) produced a frame that fails CRC verification: % X", tg, frame)
		}
	}
}
