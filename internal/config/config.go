// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package config loads and validates the simulation's runtime configuration,
// exactly the key set named in §6.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"swarmsim/pkg/swarmtypes"
)

// Config is the complete runtime configuration for a simulation instance.
type Config struct {
	MaxAgents           int     `yaml:"maxAgents"`
	UpdateIntervalMs    int     `yaml:"updateInterval"`
	WorldWidth          float64 `yaml:"worldWidth"`
	WorldHeight         float64 `yaml:"worldHeight"`
	TargetFPS           int     `yaml:"targetFPS"`
	CommandTimeoutMs    int     `yaml:"commandTimeoutMs"`
	HeartbeatTimeoutMs  int     `yaml:"heartbeatTimeoutMs"`
	RecoveryTimeoutMs   int     `yaml:"recoveryTimeoutMs"`
	MaxRecoveryAttempts int     `yaml:"maxRecoveryAttempts"`
	ArrivalThreshold    float64 `yaml:"arrivalThreshold"`
	CollisionDistance   float64 `yaml:"collisionDistance"`
	CacheTTLMs          int     `yaml:"cacheTtlMs"`
	CacheMaxEntries     int     `yaml:"cacheMaxEntries"`
	CacheCellSize       float64 `yaml:"cacheCellSize"`
}

// Default returns the configuration baked into the simulation when no file
// is supplied, matching the constants pkg/swarmtypes ships as defaults.
func Default() *Config {
	return &Config{
		MaxAgents:           500,
		UpdateIntervalMs:    16,
		WorldWidth:          1000,
		WorldHeight:         1000,
		TargetFPS:           60,
		CommandTimeoutMs:    int(swarmtypes.CommandTimeout / time.Millisecond),
		HeartbeatTimeoutMs:  int(swarmtypes.HeartbeatTimeout / time.Millisecond),
		RecoveryTimeoutMs:   int(swarmtypes.RecoveryTimeout / time.Millisecond),
		MaxRecoveryAttempts: swarmtypes.MaxRecoveryAttempts,
		ArrivalThreshold:    swarmtypes.ArrivalThreshold,
		CollisionDistance:   swarmtypes.CollisionDistance,
		CacheTTLMs:          500,
		CacheMaxEntries:     4096,
		CacheCellSize:       50,
	}
}

// Load reads and parses a YAML configuration file at path. An empty path
// returns Default(); otherwise the file is decoded over Default(), so any
// key the file leaves unset keeps its default value, and the result is
// validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := *Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field named in §6, returning ErrConfigInvalid
// wrapped with the specific violation on the first failure found.
func (c *Config) Validate() error {
	switch {
	case c.MaxAgents <= 0:
		return invalid("maxAgents must be > 0, got %d", c.MaxAgents)
	case c.UpdateIntervalMs < 1:
		return invalid("updateInterval must be >= 1ms, got %d", c.UpdateIntervalMs)
	case c.WorldWidth <= 0:
		return invalid("worldWidth must be > 0, got %f", c.WorldWidth)
	case c.WorldHeight <= 0:
		return invalid("worldHeight must be > 0, got %f", c.WorldHeight)
	case c.TargetFPS <= 0:
		return invalid("targetFPS must be > 0, got %d", c.TargetFPS)
	case c.CommandTimeoutMs <= 0:
		return invalid("commandTimeoutMs must be > 0, got %d", c.CommandTimeoutMs)
	case c.HeartbeatTimeoutMs <= 0:
		return invalid("heartbeatTimeoutMs must be > 0, got %d", c.HeartbeatTimeoutMs)
	case c.RecoveryTimeoutMs <= 0:
		return invalid("recoveryTimeoutMs must be > 0, got %d", c.RecoveryTimeoutMs)
	case c.MaxRecoveryAttempts <= 0:
		return invalid("maxRecoveryAttempts must be > 0, got %d", c.MaxRecoveryAttempts)
	case c.ArrivalThreshold <= 0:
		return invalid("arrivalThreshold must be > 0, got %f", c.ArrivalThreshold)
	case c.CollisionDistance <= 0:
		return invalid("collisionDistance must be > 0, got %f", c.CollisionDistance)
	case c.CacheTTLMs <= 0:
		return invalid("cacheTtlMs must be > 0, got %d", c.CacheTTLMs)
	case c.CacheMaxEntries <= 0:
		return invalid("cacheMaxEntries must be > 0, got %d", c.CacheMaxEntries)
	case c.CacheCellSize <= 0:
		return invalid("cacheCellSize must be > 0, got %f", c.CacheCellSize)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("config: %s: %w", fmt.Sprintf(format, args...), swarmtypes.ErrConfigInvalid)
}

// IsConfigInvalid reports whether err is (or wraps) ErrConfigInvalid, the
// exit-code-2 case main.go branches on.
func IsConfigInvalid(err error) bool {
	return errors.Is(err, swarmtypes.ErrConfigInvalid)
}
