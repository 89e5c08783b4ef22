// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config defines the global configuration structure for a fanbus
// daemon: exactly one serial bus, plus logging.
type Config struct {
	Bus BusConfig `mapstructure:"bus"`
	Log LogConfig `mapstructure:"log"`
}

// LogConfig defines logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // empty means stdout
}

// BusConfig defines the serial line and timing parameters of the
// Modbus RTU bus this daemon drives.
type BusConfig struct {
	Device   string `mapstructure:"device"`
	BaudRate int    `mapstructure:"baud_rate"`
	DataBits int    `mapstructure:"data_bits"`
	Parity   string `mapstructure:"parity"`
	StopBits int    `mapstructure:"stop_bits"`

	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	TxGuard        time.Duration `mapstructure:"tx_guard"`
	RxIdle         time.Duration `mapstructure:"rx_idle"`

	// DefaultRepeatCount is applied by callers that don't set their
	// own retry budget; the bus itself has no notion of a default.
	DefaultRepeatCount int32 `mapstructure:"default_repeat_count"`
}

// newViper builds a viper instance with the search path, defaults and
// flag bindings shared by LoadConfig and WatchConfig. It does not read
// the config file; callers do that so they can each decide how a
// missing file should be treated.
func newViper(configFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/fanbus/")
		v.AddConfigPath("$HOME/.fanbus")
		v.AddConfigPath(".")
	}

	v.SetDefault("log.level", "info")
	v.SetDefault("bus.baud_rate", 9600)
	v.SetDefault("bus.data_bits", 8)
	v.SetDefault("bus.stop_bits", 2)
	v.SetDefault("bus.parity", "N")
	v.SetDefault("bus.request_timeout", 5*time.Second)
	v.SetDefault("bus.tx_guard", 4*time.Millisecond)
	v.SetDefault("bus.rx_idle", 100*time.Millisecond)
	v.SetDefault("bus.default_repeat_count", 1)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}
	return v, nil
}

// unmarshal reads the current state of v into a Config and applies the
// same validation LoadConfig and a reload both need.
func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := fixupBus(&config.Bus); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadConfig loads configuration from configFile, or from the default
// search path when configFile is empty. flags, if non-nil, is bound
// over the file/defaults so command-line overrides win.
func LoadConfig(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v, err := newViper(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

// WatchConfig loads the initial configuration exactly like LoadConfig,
// then keeps watching the config file for changes. Each time the file
// is rewritten, onChange is called with the freshly reloaded Config,
// or with a non-nil error if the new file fails to parse or validate
// (the previously loaded Config, and the running daemon, are left
// untouched in that case).
func WatchConfig(configFile string, flags *pflag.FlagSet, onChange func(*Config, error)) (*Config, error) {
	v, err := newViper(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		onChange(unmarshal(v))
	})
	v.WatchConfig()

	return cfg, nil
}

func fixupBus(b *BusConfig) error {
	b.Parity = strings.ToUpper(b.Parity)
	if b.DefaultRepeatCount <= 0 {
		b.DefaultRepeatCount = 1
	}
	if b.TxGuard > b.RxIdle {
		return fmt.Errorf("bus.tx_guard (%s) must not exceed bus.rx_idle (%s)", b.TxGuard, b.RxIdle)
	}
	return nil
}
