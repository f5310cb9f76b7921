// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/techsewa/techsewaCore/internal/brain"
	"github.com/techsewa/techsewaCore/internal/config"
	"github.com/techsewa/techsewaCore/internal/knowledge"
	"github.com/techsewa/techsewaCore/internal/match"
	"github.com/techsewa/techsewaCore/internal/semantic"
)

const testKB = `[
	{
		"id": "a1b2c3d4",
		"aliases": ["wifi not working", "no internet", "wifi"],
		"np_aliases": ["इन्टरनेट छैन"],
		"en": "Restart your router and wait 30 seconds.",
		"np": "राउटर रिस्टार्ट गरेर ३० सेकेन्ड पर्खनुहोस्।"
	}
]`

const testManagementKey = "sekret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "problems.json")
	require.NoError(t, os.WriteFile(path, []byte(testKB), 0644))

	store, err := knowledge.Load(path)
	require.NoError(t, err)

	matcher := match.NewEngine(store, 0, 0)
	sem := semantic.New(nil, store.Records(), 0)
	b := brain.New(store, matcher, sem, nil, nil, brain.Options{})

	hashed, err := bcrypt.GenerateFromPassword([]byte(testManagementKey), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:            8317,
		DefaultLanguage: "en",
		ManagementKey:   string(hashed),
	}
	return NewServer(cfg, b, nil)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSolveEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/solve", SolveRequest{Query: "my wifi is not working"}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var res brain.Resolution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, brain.SourceLocal, res.Source)
	assert.Equal(t, "Restart your router and wait 30 seconds.", res.Answer)
	assert.Equal(t, 100, res.Confidence)
}

func TestSolveEndpoint_NepaliLang(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/solve", SolveRequest{Query: "इन्टरनेट छैन", Lang: "np"}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var res brain.Resolution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "राउटर रिस्टार्ट गरेर ३० सेकेन्ड पर्खनुहोस्।", res.Answer)
}

func TestSolveEndpoint_BadRequests(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/v1/solve", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/v1/solve", SolveRequest{Query: "wifi", Lang: "fr"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTeachEndpoint_RequiresKey(t *testing.T) {
	s := newTestServer(t)
	body := TeachRequest{Query: "screen flickering", AnswerEn: "Update the display driver."}

	rec := doJSON(t, s, http.MethodPost, "/v1/teach", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/v1/teach", body, map[string]string{"X-Management-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTeachEndpoint_LearnsRecord(t *testing.T) {
	s := newTestServer(t)
	auth := map[string]string{"X-Management-Key": testManagementKey}
	body := TeachRequest{Query: "screen flickering", AnswerEn: "Update the display driver."}

	rec := doJSON(t, s, http.MethodPost, "/v1/teach", body, auth)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/v1/solve", SolveRequest{Query: "screen flickering"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res brain.Resolution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, brain.SourceLocal, res.Source)
	assert.Equal(t, "Update the display driver.", res.Answer)

	// Same query derives the same record ID.
	rec = doJSON(t, s, http.MethodPost, "/v1/teach", body, auth)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/v1/stats", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Engine brain.Stats `json:"engine"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, 1, payload.Engine.TotalProblems)
	assert.False(t, payload.Engine.InternetEnabled)
}

func TestHistoryEndpoint(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/v1/solve", SolveRequest{Query: "wifi"}, nil)

	rec := doJSON(t, s, http.MethodGet, "/v1/history", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		History []brain.Resolution `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.History, 1)
	assert.Equal(t, "wifi", payload.History[0].Query)
}

func TestAlertsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.RecordAlert("CPU usage above 90%", 103)
	s.RecordAlert("Disk usage above 90%", 105)

	rec := doJSON(t, s, http.MethodGet, "/v1/alerts", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":103`)
	assert.Contains(t, rec.Body.String(), `"code":105`)

	rec = doJSON(t, s, http.MethodGet, "/v1/alerts?limit=1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"code":103`)
	assert.Contains(t, rec.Body.String(), `"code":105`)
}
