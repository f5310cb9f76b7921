// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the techsewa server: a
// bilingual help-desk resolution engine with a local knowledge base, an
// optional semantic tier, an internet fallback, and a host health monitor.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/techsewa/techsewaCore/internal/api"
	"github.com/techsewa/techsewaCore/internal/brain"
	"github.com/techsewa/techsewaCore/internal/buildinfo"
	"github.com/techsewa/techsewaCore/internal/config"
	"github.com/techsewa/techsewaCore/internal/embedding"
	"github.com/techsewa/techsewaCore/internal/knowledge"
	"github.com/techsewa/techsewaCore/internal/logging"
	"github.com/techsewa/techsewaCore/internal/match"
	"github.com/techsewa/techsewaCore/internal/monitor"
	"github.com/techsewa/techsewaCore/internal/querylog"
	"github.com/techsewa/techsewaCore/internal/semantic"
	"github.com/techsewa/techsewaCore/internal/watcher"
	"github.com/techsewa/techsewaCore/internal/web"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	var configPath string
	var showVersion bool
	flag.StringVar(&configPath, "config", "config.yaml", "Configuration file path")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("techsewa %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		return
	}

	if wd, err := os.Getwd(); err == nil {
		if errLoad := godotenv.Load(wd + "/.env"); errLoad != nil && !os.IsNotExist(errLoad) {
			log.Debugf(".env not loaded: %v", errLoad)
		}
	}

	if err := run(configPath); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if err = logging.ConfigureLogOutput(cfg.LoggingToFile, "logs"); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	log.Infof("Starting techsewa %s (commit %s)", Version, Commit)

	store, err := knowledge.Load(cfg.KnowledgeBase)
	if err != nil {
		return fmt.Errorf("failed to load knowledge base: %w", err)
	}
	log.Infof("Knowledge base loaded | records=%d path=%s", store.Len(), cfg.KnowledgeBase)

	matcher := match.NewEngine(store, cfg.MinConfidence, cfg.MatchCacheSize)
	semMatcher := buildSemanticTier(cfg, store)

	var webFallback *web.Fallback
	if cfg.EnableInternet {
		webFallback = web.New()
		log.Info("Internet fallback tier enabled")
	}

	var qlog *querylog.Collector
	if cfg.QueryLogDB != "" {
		qlog, err = querylog.NewCollector(cfg.QueryLogDB, cfg.QueryLogRetentionDays)
		if err != nil {
			return fmt.Errorf("failed to create query log: %w", err)
		}
		if err = qlog.Initialize(context.Background()); err != nil {
			log.Warnf("Query log disabled: %v", err)
			qlog = nil
		}
	}

	engine := brain.New(store, matcher, semMatcher, webFallback, qlog, brain.Options{
		HistorySize: cfg.HistorySize,
	})

	server := api.NewServer(cfg, engine, qlog)

	var kbWatcher *watcher.Watcher
	if cfg.WatchKnowledgeBase {
		kbWatcher = watcher.New(cfg.KnowledgeBase, func() error {
			if err := store.Reload(); err != nil {
				return err
			}
			if err := semMatcher.Refresh(store.Records()); err != nil {
				log.Warnf("Semantic refresh after reload failed: %v", err)
			}
			return nil
		})
		if err = kbWatcher.Start(); err != nil {
			log.Warnf("Knowledge base watcher disabled: %v", err)
			kbWatcher = nil
		}
	}

	healthMonitor, err := startMonitor(cfg, server)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-errCh:
		if err != nil {
			return err
		}
	case sig := <-quit:
		log.Infof("Received signal %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if healthMonitor != nil {
		if err := healthMonitor.Stop(); err != nil {
			log.Warnf("Health monitor stop failed: %v", err)
		}
	}
	if kbWatcher != nil {
		kbWatcher.Stop()
	}
	if qlog != nil {
		if err := qlog.Shutdown(shutdownCtx); err != nil {
			log.Warnf("Query log shutdown failed: %v", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Shutdown complete")
	return nil
}

// buildSemanticTier wires the embedding engine when configured. Any failure
// degrades to a disabled matcher instead of blocking startup.
func buildSemanticTier(cfg *config.Config, store *knowledge.Store) *semantic.Matcher {
	if !cfg.Semantic.Enabled {
		return semantic.New(nil, nil, cfg.Semantic.Threshold)
	}

	engine, err := embedding.NewEngine(embedding.Config{
		ModelPath: cfg.Semantic.ModelPath,
		VocabPath: cfg.Semantic.VocabPath,
	})
	if err != nil {
		log.Warnf("Semantic tier disabled: %v", err)
		return semantic.New(nil, nil, cfg.Semantic.Threshold)
	}
	if err = engine.Initialize(cfg.Semantic.OnnxLibPath); err != nil {
		log.Warnf("Semantic tier disabled: %v", err)
		return semantic.New(nil, nil, cfg.Semantic.Threshold)
	}

	log.Info("Semantic tier enabled")
	return semantic.New(engine, store.Records(), cfg.Semantic.Threshold)
}

// startMonitor wires the health monitor to the auto-healer and the alert
// endpoint. Returns nil when monitoring is disabled.
func startMonitor(cfg *config.Config, server *api.Server) (*monitor.Monitor, error) {
	if !cfg.Monitor.Enabled {
		return nil, nil
	}

	mcfg := monitor.Config{
		Interval:         time.Duration(cfg.Monitor.IntervalSeconds) * time.Second,
		CPUThreshold:     cfg.Monitor.CPUThreshold,
		MemoryThreshold:  cfg.Monitor.MemoryThreshold,
		DiskThreshold:    cfg.Monitor.DiskThreshold,
		BatteryThreshold: cfg.Monitor.BatteryThreshold,
		DiskPath:         cfg.Monitor.DiskPath,
		Rules:            cfg.Monitor.Rules,
	}

	m, err := monitor.New(mcfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build health monitor: %w", err)
	}

	healer := monitor.NewHealer(nil)
	autoHeal := cfg.Monitor.AutoHeal

	onAlert := func(message string, code int) {
		server.RecordAlert(message, code)
		if !autoHeal {
			return
		}
		kind := monitor.KindForCode(code)
		if healer.Heal(kind) {
			log.Infof("Auto-heal succeeded | kind=%s", kind)
		} else {
			log.Warnf("Auto-heal failed or unavailable | kind=%s", kind)
		}
	}

	if err = m.Start(onAlert); err != nil {
		return nil, err
	}
	return m, nil
}
