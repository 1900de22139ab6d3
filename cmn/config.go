// Package cmn provides common constants, types, and utilities for shmstack packages
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package cmn

import (
	"fmt"
	"os"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shmstack/shmstack/cmn/cos"
)

// environment overrides
const (
	EnvLogDir     = "SHMSTACK_LOG_DIR"
	EnvVerbose    = "SHMSTACK_VERBOSE"
	EnvPoolSize   = "SHMSTACK_POOL_SIZE"
	EnvPollIval   = "SHMSTACK_POLL_IVAL"
	EnvInjectIval = "SHMSTACK_INJECT_IVAL"
)

// defaults
const (
	DfltPoolSize = 4

	DfltPollIval      = 100 * time.Millisecond
	DfltReasmTimeout  = 30 * time.Second
	DfltInjectIval    = 10 * time.Second
	DfltHousekeepIval = 10 * time.Second

	DfltSrcPort = 12345
	DfltDstPort = 54321
)

type (
	LogConf struct {
		Dir     string `json:"dir"`
		Verbose bool   `json:"verbose"`
	}
	TimeoutConf struct {
		Reassembly cos.Duration `json:"reassembly"`
		PollIval   cos.Duration `json:"poll_ival"`
		InjectIval cos.Duration `json:"inject_ival"`
		Housekeep  cos.Duration `json:"housekeep"`
	}
	PortsConf struct {
		Src uint16 `json:"src"`
		Dst uint16 `json:"dst"`
	}
	Config struct {
		Log      LogConf     `json:"log"`
		Timeout  TimeoutConf `json:"timeout"`
		Ports    PortsConf   `json:"ports"`
		PoolSize int         `json:"pool_size"`
	}
)

func DefaultConfig() *Config {
	return &Config{
		Timeout: TimeoutConf{
			Reassembly: cos.Duration(DfltReasmTimeout),
			PollIval:   cos.Duration(DfltPollIval),
			InjectIval: cos.Duration(DfltInjectIval),
			Housekeep:  cos.Duration(DfltHousekeepIval),
		},
		Ports:    PortsConf{Src: DfltSrcPort, Dst: DfltDstPort},
		PoolSize: DfltPoolSize,
	}
}

// LoadConfig reads the optional JSON configuration, applies environment
// overrides, and validates. Empty path yields defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %q: %v", path, err)
		}
		if err := jsoniter.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %q: %v", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyEnv() {
	if v := os.Getenv(EnvLogDir); v != "" {
		cfg.Log.Dir = v
	}
	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Log.Verbose = v == "true" || v == "1"
	}
	if v := os.Getenv(EnvPoolSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PoolSize = n
		}
	}
	if v := os.Getenv(EnvPollIval); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout.PollIval = cos.Duration(d)
		}
	}
	if v := os.Getenv(EnvInjectIval); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout.InjectIval = cos.Duration(d)
		}
	}
}

func (cfg *Config) Validate() error {
	if cfg.PoolSize <= 0 {
		return fmt.Errorf("invalid pool_size %d", cfg.PoolSize)
	}
	if cfg.Timeout.PollIval <= 0 {
		return fmt.Errorf("invalid poll_ival %s", cfg.Timeout.PollIval)
	}
	if cfg.Timeout.Reassembly <= 0 {
		return fmt.Errorf("invalid reassembly timeout %s", cfg.Timeout.Reassembly)
	}
	if cfg.Timeout.InjectIval <= 0 {
		return fmt.Errorf("invalid inject_ival %s", cfg.Timeout.InjectIval)
	}
	if cfg.Timeout.Housekeep <= 0 {
		return fmt.Errorf("invalid housekeep interval %s", cfg.Timeout.Housekeep)
	}
	return nil
}
