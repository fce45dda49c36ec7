package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		errContains string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no env vars and no file",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 90*time.Second, cfg.Server.AnalysisTimeout)
				assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
				assert.True(t, cfg.Security.EnableCORS)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, 5, cfg.Analysis.PreviewRows)
				assert.Equal(t, 10, cfg.Analysis.TopRules)
				assert.Equal(t, DefaultMaxUploadBytes, cfg.Analysis.MaxUploadBytes)
			},
		},
		{
			name: "env vars override defaults",
			env: map[string]string{
				"RFM_SERVER_PORT":        "9090",
				"RFM_LOGGING_LEVEL":      "debug",
				"RFM_ANALYSIS_TOP_RULES": "25",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, 25, cfg.Analysis.TopRules)
			},
		},
		{
			name: "file values apply when env is unset",
			file: "server:\n  port: 7070\nanalysis:\n  preview_rows: 3\nsecurity:\n  enable_cors: false\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, 3, cfg.Analysis.PreviewRows)
				assert.False(t, cfg.Security.EnableCORS)
				// keys absent from the file keep defaults
				assert.Equal(t, 10, cfg.Analysis.TopRules)
				assert.True(t, cfg.Security.RateLimit.Enabled)
			},
		},
		{
			name: "env wins over file",
			env:  map[string]string{"RFM_SERVER_PORT": "6060"},
			file: "server:\n  port: 7070\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 6060, cfg.Server.Port)
			},
		},
		{
			name:        "invalid port is rejected",
			env:         map[string]string{"RFM_SERVER_PORT": "70000"},
			wantErr:     true,
			errContains: "config validation failed",
		},
		{
			name:        "invalid log level is rejected",
			env:         map[string]string{"RFM_LOGGING_LEVEL": "loud"},
			wantErr:     true,
			errContains: "Level",
		},
		{
			name:        "malformed env value",
			env:         map[string]string{"RFM_SERVER_READ_TIMEOUT": "soon"},
			wantErr:     true,
			errContains: "failed to load config from env",
		},
		{
			name:        "malformed yaml",
			file:        "server: [unclosed\n",
			wantErr:     true,
			errContains: "failed to load config from file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := LoadFrom(path)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestValidateForcesJSONFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 4, ClusterCount)
	assert.Equal(t, 0.02, MinSupport)
	assert.Equal(t, 1.0, MinLift)
}
