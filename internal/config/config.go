// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the techsewa server.
// It handles loading and parsing YAML configuration files, and provides
// structured access to server settings, the knowledge base location,
// matching thresholds, and the semantic/monitor subsystem tuning.
package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/techsewa/techsewaCore/internal/match"
	"github.com/techsewa/techsewaCore/internal/monitor"
	"github.com/techsewa/techsewaCore/internal/semantic"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the network host/interface the API server binds to. Empty
	// binds all interfaces; use "127.0.0.1" for local-only access.
	Host string `yaml:"host" json:"-"`
	// Port is the network port the API server listens on.
	Port int `yaml:"port" json:"-"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile controls whether logs go to rotating files or stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// KnowledgeBase is the path to the persisted problem records file.
	KnowledgeBase string `yaml:"knowledge-base" json:"knowledge-base"`

	// WatchKnowledgeBase reloads the store when the file changes on disk.
	WatchKnowledgeBase bool `yaml:"watch-knowledge-base" json:"watch-knowledge-base"`

	// QueryLogDB is the SQLite file for resolution diagnostics. Empty
	// disables the query log.
	QueryLogDB string `yaml:"query-log-db" json:"query-log-db"`

	// QueryLogRetentionDays bounds how long resolution entries are kept.
	QueryLogRetentionDays int `yaml:"query-log-retention-days" json:"query-log-retention-days"`

	// MinConfidence is the fuzzy match acceptance threshold (0-100).
	MinConfidence int `yaml:"min-confidence" json:"min-confidence"`

	// MatchCacheSize bounds the match memoization cache.
	MatchCacheSize int `yaml:"match-cache-size" json:"match-cache-size"`

	// HistorySize bounds the in-memory resolution history ring.
	HistorySize int `yaml:"history-size" json:"history-size"`

	// DefaultLanguage is used when a request carries no language ("en"/"np").
	DefaultLanguage string `yaml:"default-language" json:"default-language"`

	// EnableInternet turns the web fallback tier on.
	EnableInternet bool `yaml:"enable-internet" json:"enable-internet"`

	// ManagementKey guards the teach endpoint. Plaintext values are hashed
	// with bcrypt at load time; empty disables teach over the API.
	ManagementKey string `yaml:"management-key" json:"-"`

	// Semantic configures the embedding fallback tier.
	Semantic SemanticConfig `yaml:"semantic" json:"semantic"`

	// Monitor configures the health sampling loop.
	Monitor MonitorConfig `yaml:"monitor" json:"monitor"`
}

// SemanticConfig tunes the embedding tier. The tier silently degrades to a
// no-op when disabled or when the ONNX assets cannot be loaded.
type SemanticConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	ModelPath   string  `yaml:"model-path" json:"model-path"`
	VocabPath   string  `yaml:"vocab-path" json:"vocab-path"`
	OnnxLibPath string  `yaml:"onnx-lib-path" json:"onnx-lib-path"`
	Threshold   float64 `yaml:"threshold" json:"threshold"`
}

// MonitorConfig tunes the health monitor and auto-healer.
type MonitorConfig struct {
	Enabled          bool                 `yaml:"enabled" json:"enabled"`
	AutoHeal         bool                 `yaml:"auto-heal" json:"auto-heal"`
	IntervalSeconds  int                  `yaml:"interval-seconds" json:"interval-seconds"`
	CPUThreshold     float64              `yaml:"cpu-threshold" json:"cpu-threshold"`
	MemoryThreshold  float64              `yaml:"memory-threshold" json:"memory-threshold"`
	DiskThreshold    float64              `yaml:"disk-threshold" json:"disk-threshold"`
	BatteryThreshold float64              `yaml:"battery-threshold" json:"battery-threshold"`
	DiskPath         string               `yaml:"disk-path" json:"disk-path"`
	Rules            []monitor.RuleConfig `yaml:"rules" json:"rules"`
}

// LoadConfig reads and validates YAML from configFile. Absent keys keep
// their defaults.
func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := defaultConfig()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err = cfg.validate(); err != nil {
		return nil, err
	}

	// Hash the management key if plaintext is detected. A value is
	// considered hashed when it carries a bcrypt prefix.
	if cfg.ManagementKey != "" && !looksLikeBcrypt(cfg.ManagementKey) {
		hashed, errHash := hashSecret(cfg.ManagementKey)
		if errHash != nil {
			return nil, fmt.Errorf("failed to hash management key: %w", errHash)
		}
		cfg.ManagementKey = hashed
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Port:                  8317,
		KnowledgeBase:         "problems.json",
		WatchKnowledgeBase:    true,
		QueryLogRetentionDays: 90,
		MinConfidence:         match.DefaultMinConfidence,
		MatchCacheSize:        match.DefaultCacheSize,
		HistorySize:           20,
		DefaultLanguage:       "en",
		Semantic: SemanticConfig{
			Threshold: semantic.DefaultThreshold,
		},
		Monitor: MonitorConfig{
			IntervalSeconds:  10,
			CPUThreshold:     monitor.DefaultCPUThreshold,
			MemoryThreshold:  monitor.DefaultMemoryThreshold,
			DiskThreshold:    monitor.DefaultDiskThreshold,
			BatteryThreshold: monitor.DefaultBatteryThreshold,
			DiskPath:         monitor.DefaultDiskPath,
		},
	}
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.KnowledgeBase == "" {
		return fmt.Errorf("knowledge-base path cannot be empty")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return fmt.Errorf("min-confidence must be within 0-100, got %d", c.MinConfidence)
	}
	if c.DefaultLanguage != "en" && c.DefaultLanguage != "np" {
		return fmt.Errorf("default-language must be \"en\" or \"np\", got %q", c.DefaultLanguage)
	}
	if c.Semantic.Threshold < 0 || c.Semantic.Threshold > 1 {
		return fmt.Errorf("semantic threshold must be within 0-1, got %g", c.Semantic.Threshold)
	}
	return nil
}

// VerifyManagementKey checks a presented key against the stored bcrypt hash.
// An empty configured key rejects everything.
func (c *Config) VerifyManagementKey(presented string) bool {
	if c.ManagementKey == "" || presented == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.ManagementKey), []byte(presented)) == nil
}

func looksLikeBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func hashSecret(secret string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}
