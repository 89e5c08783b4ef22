// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serialbus

import (
	"context"
	"fmt"
	"io"

	"github.com/grid-x/serial"
)

// openPort opens and configures the OS serial device described by
// opts using the grid-x/serial line discipline.
func openPort(opts Options) (io.ReadWriteCloser, error) {
	cfg := &serial.Config{
		Address:  opts.Device,
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: opts.StopBits,
		Parity:   opts.Parity,
	}
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("serialbus: open %s: %w", opts.Device, err)
	}
	return port, nil
}

// readLoop continuously drains the serial port and forwards each
// nonempty read as a copy on rxChan, so the reactor never touches the
// port's read path directly. It returns once ctx is done, or once a
// port read fails, after sending that error on readerErr.
func readLoop(ctx context.Context, port io.Reader, rxChan chan<- []byte, readerErr chan<- error) {
	buf := make([]byte, 256)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case rxChan <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			select {
			case readerErr <- err:
			case <-ctx.Done():
			}
			return
		}
	}
}
