// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api exposes the resolution engine over HTTP: solve, teach, stats,
// history, alerts, and a health probe.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/techsewa/techsewaCore/internal/brain"
	"github.com/techsewa/techsewaCore/internal/buildinfo"
	"github.com/techsewa/techsewaCore/internal/config"
	"github.com/techsewa/techsewaCore/internal/monitor"
	"github.com/techsewa/techsewaCore/internal/querylog"
)

// maxStoredAlerts bounds the in-memory health alert ring.
const maxStoredAlerts = 50

// Server hosts the HTTP API.
type Server struct {
	cfg   *config.Config
	brain *brain.Brain
	qlog  *querylog.Collector

	httpServer *http.Server

	alertMu sync.Mutex
	alerts  []monitor.Signal
}

// NewServer assembles the HTTP layer. qlog may be nil.
func NewServer(cfg *config.Config, b *brain.Brain, qlog *querylog.Collector) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:   cfg,
		brain: b,
		qlog:  qlog,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestIDMiddleware(), requestLogMiddleware())

	engine.GET("/health", s.handleHealth)

	v1 := engine.Group("/v1")
	{
		v1.POST("/solve", s.handleSolve)
		v1.POST("/teach", s.managementAuth(), s.handleTeach)
		v1.GET("/stats", s.handleStats)
		v1.GET("/history", s.handleHistory)
		v1.GET("/alerts", s.handleAlerts)
	}

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: engine,
	}
	return s
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	log.Infof("API server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// RecordAlert stores a health signal for the alerts endpoint. Safe to call
// from the monitor goroutine.
func (s *Server) RecordAlert(message string, code int) {
	s.alertMu.Lock()
	defer s.alertMu.Unlock()
	s.alerts = append(s.alerts, monitor.Signal{
		Kind:      monitor.KindForCode(code),
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	})
	if len(s.alerts) > maxStoredAlerts {
		s.alerts = s.alerts[len(s.alerts)-maxStoredAlerts:]
	}
}

// requestIDMiddleware tags every request with a UUID, honoring one supplied
// by the caller.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugf("%s %s | status=%d latency=%s reqID=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start), c.GetString("request_id"))
	}
}

// managementAuth guards mutating endpoints with the configured key.
func (s *Server) managementAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.cfg.VerifyManagementKey(c.GetHeader("X-Management-Key")) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or missing management key",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}
