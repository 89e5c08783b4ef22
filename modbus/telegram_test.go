// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "testing"

func TestNewTelegramIDsAreUniqueAndNonzero(t *testing.T) {
	seen := make(map[uint64]bool)
	for i := 0; i < 1000; i++ {
		tg := NewTelegram(1, FuncReadHoldingRegisters, nil)
		if tg.ID() == 0 {
			t.Fatalf("telegram %d got id 0", i)
		}
		if seen[tg.ID()] {
			t.Fatalf("telegram %d reused id %d", i, tg.ID())
		}
		seen[tg.ID()] = true
	}
}

func TestNeedsAnswer(t *testing.T) {
	if NewTelegram(0, FuncWriteSingleRegister, nil).NeedsAnswer() {
		t.Fatalf("broadcast telegram (slave 0) should not need an answer")
	}
	if !NewTelegram(1, FuncWriteSingleRegister, nil).NeedsAnswer() {
		t.Fatalf("addressed telegram should need an answer")
	}
}

func TestWithRepeatDefaultsToOne(t *testing.T) {
	tg := NewTelegram(1, FuncReadCoils, nil)
	if tg.RepeatCount != 1 {
		t.Fatalf("default RepeatCount = %d, want 1", tg.RepeatCount)
	}
	tg.WithRepeat(3)
	if tg.RepeatCount != 3 {
		t.Fatalf("RepeatCount after WithRepeat(3) = %d, want 3", tg.RepeatCount)
	}
}
