// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNoPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setupFunc   func(t *testing.T) string // returns config file path
		wantErr     bool
		errContains string
		validate    func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid configuration file overrides selected defaults",
			setupFunc: func(t *testing.T) string {
				dir := t.TempDir()
				content := `
maxAgents: 200
updateInterval: 20
worldWidth: 2000
worldHeight: 1500
targetFPS: 30
commandTimeoutMs: 4000
heartbeatTimeoutMs: 2500
recoveryTimeoutMs: 8000
maxRecoveryAttempts: 5
arrivalThreshold: 3.5
collisionDistance: 1.5
cacheTtlMs: 250
cacheMaxEntries: 1024
cacheCellSize: 25
`
				path := filepath.Join(dir, "swarm.yaml")
				require.NoError(t, os.WriteFile(path, []byte(content), 0644))
				return path
			},
			wantErr: false,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 200, cfg.MaxAgents)
				assert.Equal(t, 30, cfg.TargetFPS)
				assert.Equal(t, 2000.0, cfg.WorldWidth)
				assert.Equal(t, 5, cfg.MaxRecoveryAttempts)
				assert.Equal(t, 25.0, cfg.CacheCellSize)
			},
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.yaml")
			},
			wantErr:     true,
			errContains: "read",
		},
		{
			name: "invalid yaml syntax",
			setupFunc: func(t *testing.T) string {
				dir := t.TempDir()
				path := filepath.Join(dir, "swarm.yaml")
				require.NoError(t, os.WriteFile(path, []byte("maxAgents: [\n"), 0644))
				return path
			},
			wantErr:     true,
			errContains: "parse",
		},
		{
			name: "out of range value fails validation",
			setupFunc: func(t *testing.T) string {
				dir := t.TempDir()
				path := filepath.Join(dir, "swarm.yaml")
				require.NoError(t, os.WriteFile(path, []byte("maxAgents: 0\n"), 0644))
				return path
			},
			wantErr:     true,
			errContains: "maxAgents",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setupFunc(t)
			cfg, err := Load(path)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	base := func(mutate func(c *Config)) *Config {
		cfg := Default()
		mutate(cfg)
		return cfg
	}

	tests := []struct {
		name        string
		config      *Config
		wantErr     bool
		errContains string
	}{
		{
			name:    "default configuration is valid",
			config:  Default(),
			wantErr: false,
		},
		{
			name:        "maxAgents must be positive",
			config:      base(func(c *Config) { c.MaxAgents = 0 }),
			wantErr:     true,
			errContains: "maxAgents",
		},
		{
			name:        "updateInterval must be at least 1ms",
			config:      base(func(c *Config) { c.UpdateIntervalMs = 0 }),
			wantErr:     true,
			errContains: "updateInterval",
		},
		{
			name:        "worldWidth must be positive",
			config:      base(func(c *Config) { c.WorldWidth = 0 }),
			wantErr:     true,
			errContains: "worldWidth",
		},
		{
			name:        "worldHeight must be positive",
			config:      base(func(c *Config) { c.WorldHeight = -1 }),
			wantErr:     true,
			errContains: "worldHeight",
		},
		{
			name:        "cacheMaxEntries must be positive",
			config:      base(func(c *Config) { c.CacheMaxEntries = 0 }),
			wantErr:     true,
			errContains: "cacheMaxEntries",
		},
		{
			name:        "maxRecoveryAttempts must be positive",
			config:      base(func(c *Config) { c.MaxRecoveryAttempts = 0 }),
			wantErr:     true,
			errContains: "maxRecoveryAttempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsConfigInvalid(err))
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				require.NoError(t, err)
			}
		})
	}
}
