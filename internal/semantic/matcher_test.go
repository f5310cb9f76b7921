// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package semantic

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techsewa/techsewaCore/internal/knowledge"
)

// stubEngine maps exact strings to fixed vectors so similarity outcomes are
// deterministic.
type stubEngine struct {
	vectors  map[string][]float32
	enabled  bool
	batchErr error
	embedErr error
}

func (s *stubEngine) Embed(text string) ([]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (s *stubEngine) BatchEmbed(texts []string) ([][]float32, error) {
	if s.batchErr != nil {
		return nil, s.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := s.Embed(t)
		out[i] = v
	}
	return out, nil
}

func (s *stubEngine) CosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (s *stubEngine) IsEnabled() bool { return s.enabled }

func testRecords() []knowledge.Record {
	return []knowledge.Record{
		{ID: "a1", Aliases: []string{"wifi"}, AnswerEn: "Restart your router.", AnswerNp: "राउटर रिस्टार्ट गर्नुहोस्।"},
		{ID: "b2", Aliases: []string{"printer"}, AnswerEn: "Clear the paper jam.", AnswerNp: "कागज निकाल्नुहोस्।"},
	}
}

func TestMatcher_NilEngineIsNoOp(t *testing.T) {
	m := New(nil, testRecords(), 0)

	assert.False(t, m.Enabled())
	answer, ok := m.Search("my wifi is down", knowledge.LangEnglish, 0)
	assert.False(t, ok)
	assert.Empty(t, answer)
}

func TestMatcher_DisabledEngineIsNoOp(t *testing.T) {
	m := New(&stubEngine{enabled: false}, testRecords(), 0)

	assert.False(t, m.Enabled())
	_, ok := m.Search("my wifi is down", knowledge.LangEnglish, 0)
	assert.False(t, ok)
}

func TestMatcher_BatchFailureDisables(t *testing.T) {
	engine := &stubEngine{enabled: true, batchErr: errors.New("onnx session not ready")}
	m := New(engine, testRecords(), 0)

	assert.False(t, m.Enabled())
}

func TestMatcher_SearchReturnsBestAboveThreshold(t *testing.T) {
	engine := &stubEngine{
		enabled: true,
		vectors: map[string][]float32{
			"Restart your router.": {1, 0, 0},
			"Clear the paper jam.": {0, 1, 0},
			"internet keeps dying": {0.95, 0.1, 0},
		},
	}
	m := New(engine, testRecords(), 0)
	require.True(t, m.Enabled())

	answer, ok := m.Search("internet keeps dying", knowledge.LangEnglish, 0)
	require.True(t, ok)
	assert.Equal(t, "Restart your router.", answer)

	answer, ok = m.Search("internet keeps dying", knowledge.LangNepali, 0)
	require.True(t, ok)
	assert.Equal(t, "राउटर रिस्टार्ट गर्नुहोस्।", answer)
}

func TestMatcher_BelowThresholdMisses(t *testing.T) {
	engine := &stubEngine{
		enabled: true,
		vectors: map[string][]float32{
			"Restart your router.": {1, 0, 0},
			"Clear the paper jam.": {0, 1, 0},
			"unrelated query":      {0.3, 0.3, 0.9},
		},
	}
	m := New(engine, testRecords(), 0)

	_, ok := m.Search("unrelated query", knowledge.LangEnglish, 0.9)
	assert.False(t, ok)
}

func TestMatcher_QueryEmbedFailureMisses(t *testing.T) {
	engine := &stubEngine{enabled: true, vectors: map[string][]float32{}}
	m := New(engine, testRecords(), 0)
	require.True(t, m.Enabled())

	engine.embedErr = errors.New("tensor allocation failed")
	_, ok := m.Search("anything", knowledge.LangEnglish, 0)
	assert.False(t, ok)
}

func TestMatcher_RefreshPicksUpLearnedAnswers(t *testing.T) {
	engine := &stubEngine{
		enabled: true,
		vectors: map[string][]float32{
			"Restart your router.":   {1, 0, 0},
			"Clear the paper jam.":   {0, 1, 0},
			"Replug the HDMI cable.": {0, 0, 1},
			"screen has no signal":   {0.1, 0, 0.99},
		},
	}
	m := New(engine, testRecords(), 0)

	_, ok := m.Search("screen has no signal", knowledge.LangEnglish, 0.8)
	assert.False(t, ok)

	learned := knowledge.NewLearnedRecord("screen has no signal", "Replug the HDMI cable.", "")
	require.NoError(t, m.Refresh(append(testRecords(), learned)))

	answer, ok := m.Search("screen has no signal", knowledge.LangEnglish, 0.8)
	require.True(t, ok)
	assert.Equal(t, "Replug the HDMI cable.", answer)
}
