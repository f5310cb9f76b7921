// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/techsewa/techsewaCore/internal/knowledge"
)

// SolveRequest is the body for POST /v1/solve.
type SolveRequest struct {
	Query         string `json:"query" binding:"required"`
	Lang          string `json:"lang,omitempty"`
	MinConfidence int    `json:"min_confidence,omitempty"`
}

// TeachRequest is the body for POST /v1/teach.
type TeachRequest struct {
	Query    string `json:"query" binding:"required"`
	AnswerEn string `json:"answer_en" binding:"required"`
	AnswerNp string `json:"answer_np,omitempty"`
}

// handleSolve runs a query through the resolution cascade.
//
// Response:
//   - 200: Resolution with source and answer
//   - 400: Invalid request body
func (s *Server) handleSolve(c *gin.Context) {
	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}

	lang := req.Lang
	if lang == "" {
		lang = s.cfg.DefaultLanguage
	}
	if lang != knowledge.LangEnglish && lang != knowledge.LangNepali {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "lang must be \"en\" or \"np\"",
		})
		return
	}

	resolution := s.brain.Solve(c.Request.Context(), req.Query, lang, req.MinConfidence)
	c.JSON(http.StatusOK, resolution)
}

// handleTeach appends a learned record to the knowledge base.
//
// Response:
//   - 201: Record learned
//   - 400: Invalid request body or malformed record
//   - 409: A record with the same derived ID already exists
//   - 500: Record accepted in memory but persistence failed
func (s *Server) handleTeach(c *gin.Context) {
	var req TeachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}

	if err := s.brain.Teach(req.Query, req.AnswerEn, req.AnswerNp); err != nil {
		switch {
		case errors.Is(err, knowledge.ErrDuplicateID):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, knowledge.ErrPersistence):
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "learned",
		"query":  req.Query,
	})
}

// handleStats reports engine state, plus aggregate query-log numbers when
// the log is enabled.
func (s *Server) handleStats(c *gin.Context) {
	payload := gin.H{"engine": s.brain.Stats()}

	if s.qlog != nil && s.qlog.IsEnabled() {
		if logStats, err := s.qlog.GetStats(c.Request.Context()); err == nil {
			payload["queries"] = logStats
		}
	}

	c.JSON(http.StatusOK, payload)
}

// handleHistory returns the recent resolution ring, oldest first.
func (s *Server) handleHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"history": s.brain.History(),
	})
}

// handleAlerts returns recent health alerts, oldest first. ?limit=N trims
// to the newest N.
func (s *Server) handleAlerts(c *gin.Context) {
	s.alertMu.Lock()
	alerts := make([]interface{}, 0, len(s.alerts))
	for _, a := range s.alerts {
		alerts = append(alerts, a)
	}
	s.alertMu.Unlock()

	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit >= 0 && limit < len(alerts) {
			alerts = alerts[len(alerts)-limit:]
		}
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}
