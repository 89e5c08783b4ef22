// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "bus:\n  device: /dev/ttyUSB0\n")

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Bus.Device != "/dev/ttyUSB0" {
		t.Fatalf("Device = %q, want /dev/ttyUSB0", cfg.Bus.Device)
	}
	if cfg.Bus.BaudRate != 9600 {
		t.Fatalf("BaudRate = %d, want 9600", cfg.Bus.BaudRate)
	}
	if cfg.Bus.Parity != "N" {
		t.Fatalf("Parity = %q, want N", cfg.Bus.Parity)
	}
	if cfg.Bus.RequestTimeout != 5*time.Second {
		t.Fatalf("RequestTimeout = %v, want 5s", cfg.Bus.RequestTimeout)
	}
	if cfg.Bus.DefaultRepeatCount != 1 {
		t.Fatalf("DefaultRepeatCount = %d, want 1", cfg.Bus.DefaultRepeatCount)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
bus:
  device: /dev/ttyS0
  baud_rate: 19200
  parity: e
  request_timeout: 2s
  tx_guard: 20ms
  rx_idle: 50ms
log:
  level: debug
  file: /var/log/fanbus.log
`)

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Bus.BaudRate != 19200 {
		t.Fatalf("BaudRate = %d, want 19200", cfg.Bus.BaudRate)
	}
	if cfg.Bus.Parity != "E" {
		t.Fatalf("Parity = %q, want E (uppercased)", cfg.Bus.Parity)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "/var/log/fanbus.log" {
		t.Fatalf("Log = %+v, unexpected", cfg.Log)
	}
	if cfg.Bus.TxGuard != 20*time.Millisecond || cfg.Bus.RxIdle != 50*time.Millisecond {
		t.Fatalf("TxGuard/RxIdle = %v/%v, want 20ms/50ms", cfg.Bus.TxGuard, cfg.Bus.RxIdle)
	}
}

func TestLoadConfigRejectsTxGuardExceedingRxIdle(t *testing.T) {
	path := writeConfigFile(t, `
bus:
  device: /dev/ttyS0
  tx_guard: 200ms
  rx_idle: 50ms
`)

	_, err := LoadConfig(path, nil)
	if err == nil {
		t.Fatalf("LoadConfig with tx_guard > rx_idle succeeded, want an error")
	}
}

func TestWatchConfigReloadsOnChange(t *testing.T) {
	path := writeConfigFile(t, "bus:\n  device: /dev/ttyUSB0\n  request_timeout: 1s\n")

	reloaded := make(chan *Config, 1)
	cfg, err := WatchConfig(path, nil, func(cfg *Config, err error) {
		if err != nil {
			t.Errorf("reload callback got an error: %v", err)
			return
		}
		reloaded <- cfg
	})
	if err != nil {
		t.Fatalf("WatchConfig: %v", err)
	}
	if cfg.Bus.RequestTimeout != time.Second {
		t.Fatalf("initial RequestTimeout = %v, want 1s", cfg.Bus.RequestTimeout)
	}

	if err := os.WriteFile(path, []byte("bus:\n  device: /dev/ttyUSB0\n  request_timeout: 3s\n"), 0o644); err != nil {
		t.Fatalf("rewriting config: %v", err)
	}

	select {
	case got := <-reloaded:
		if got.Bus.RequestTimeout != 3*time.Second {
			t.Fatalf("reloaded RequestTimeout = %v, want 3s", got.Bus.RequestTimeout)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for the config watcher to notice the rewrite")
	}
}

func TestLoadConfigMissingFileIsNotFatalWhenUsingDefaultSearchPath(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(cwd)

	cfg, err := LoadConfig("", nil)
	if err != nil {
		t.Fatalf("LoadConfig with no config file present: %v", err)
	}
	if cfg.Bus.BaudRate != 9600 {
		t.Fatalf("BaudRate = %d, want the default of 9600", cfg.Bus.BaudRate)
	}
}
