// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 8317, cfg.Port)
	assert.Equal(t, "problems.json", cfg.KnowledgeBase)
	assert.True(t, cfg.WatchKnowledgeBase)
	assert.Equal(t, 75, cfg.MinConfidence)
	assert.Equal(t, 500, cfg.MatchCacheSize)
	assert.Equal(t, 20, cfg.HistorySize)
	assert.Equal(t, "en", cfg.DefaultLanguage)
	assert.False(t, cfg.EnableInternet)
	assert.InDelta(t, 0.60, cfg.Semantic.Threshold, 1e-9)
	assert.Equal(t, 10, cfg.Monitor.IntervalSeconds)
	assert.Equal(t, 90.0, cfg.Monitor.CPUThreshold)
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
host: 127.0.0.1
port: 9090
debug: true
knowledge-base: /data/kb.json
min-confidence: 60
default-language: np
enable-internet: true
semantic:
  enabled: true
  threshold: 0.75
monitor:
  enabled: true
  interval-seconds: 5
  rules:
    - condition: "upload_kbps > 1000.0"
      message: "Upload saturated"
      code: 101
`))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/data/kb.json", cfg.KnowledgeBase)
	assert.Equal(t, 60, cfg.MinConfidence)
	assert.Equal(t, "np", cfg.DefaultLanguage)
	assert.True(t, cfg.EnableInternet)
	assert.True(t, cfg.Semantic.Enabled)
	assert.InDelta(t, 0.75, cfg.Semantic.Threshold, 1e-9)
	require.Len(t, cfg.Monitor.Rules, 1)
	assert.Equal(t, 101, cfg.Monitor.Rules[0].Code)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "port: [not a number\n"))
	assert.Error(t, err)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad port", "port: 70000\n"},
		{"empty knowledge base", "knowledge-base: \"\"\n"},
		{"confidence out of range", "min-confidence: 150\n"},
		{"unknown language", "default-language: fr\n"},
		{"semantic threshold out of range", "semantic:\n  threshold: 1.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_HashesPlaintextManagementKey(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "management-key: hunter2\n"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(cfg.ManagementKey, "$2"), "key should be bcrypt hashed")
	assert.True(t, cfg.VerifyManagementKey("hunter2"))
	assert.False(t, cfg.VerifyManagementKey("wrong"))
}

func TestLoadConfig_PreservesHashedManagementKey(t *testing.T) {
	first, err := LoadConfig(writeConfig(t, "management-key: hunter2\n"))
	require.NoError(t, err)

	second, err := LoadConfig(writeConfig(t, "management-key: "+first.ManagementKey+"\n"))
	require.NoError(t, err)

	assert.Equal(t, first.ManagementKey, second.ManagementKey)
	assert.True(t, second.VerifyManagementKey("hunter2"))
}

func TestVerifyManagementKey_EmptyRejectsAll(t *testing.T) {
	cfg := defaultConfig()
	assert.False(t, cfg.VerifyManagementKey(""))
	assert.False(t, cfg.VerifyManagementKey("anything"))
}
