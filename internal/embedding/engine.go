// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package embedding provides an ONNX-based sentence embedding engine used by
// the semantic matcher. It runs a MiniLM model producing 384-dimensional
// normalized vectors.
package embedding

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// Dimension is the output dimension of the MiniLM model.
	Dimension = 384

	// MaxSequenceLength caps the input sequence length.
	MaxSequenceLength = 256
)

// Config locates the model artifacts on disk.
type Config struct {
	// ModelPath is the path to the ONNX model file.
	ModelPath string

	// VocabPath is the path to the WordPiece vocabulary file.
	VocabPath string

	// SharedLibraryPath is the path to the ONNX runtime shared library.
	SharedLibraryPath string
}

// Engine runs embedding inference through the ONNX runtime. A zero Engine is
// disabled; Initialize must succeed before Embed works.
type Engine struct {
	session   *ort.DynamicAdvancedSession
	modelPath string
	vocabPath string
	tokenizer *WordPieceTokenizer

	enabled bool
	mu      sync.RWMutex
}

// NewEngine creates an engine for the given artifact paths. It does not load
// anything yet; call Initialize.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("model path is required")
	}
	return &Engine{
		modelPath: cfg.ModelPath,
		vocabPath: cfg.VocabPath,
	}, nil
}

// Initialize loads the ONNX model and tokenizer. When the model file is
// missing the engine stays disabled and the error tells the caller why; the
// semantic tier then degrades to a no-op.
func (e *Engine) Initialize(sharedLibPath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := os.Stat(e.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", e.modelPath)
	}

	if sharedLibPath != "" {
		ort.SetSharedLibraryPath(sharedLibPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		e.modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		options,
	)
	if err != nil {
		return fmt.Errorf("failed to load ONNX model: %w", err)
	}

	tokenizer, err := NewWordPieceTokenizer(e.vocabPath)
	if err != nil {
		session.Destroy()
		return fmt.Errorf("failed to initialize tokenizer: %w", err)
	}

	e.session = session
	e.tokenizer = tokenizer
	e.enabled = true
	log.Infof("Embedding engine initialized with model %s", filepath.Base(e.modelPath))
	return nil
}

// IsEnabled reports whether the engine is ready for inference.
func (e *Engine) IsEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabled
}

// Embed computes the normalized embedding vector for one text.
func (e *Engine) Embed(text string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.enabled {
		return nil, fmt.Errorf("embedding engine not initialized")
	}

	tokens := e.tokenizer.Tokenize(text, MaxSequenceLength)
	embedding, err := e.runInference(tokens)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	return embedding, nil
}

// BatchEmbed computes embeddings for multiple texts. Used once at matcher
// construction to encode every knowledge-base answer.
func (e *Engine) BatchEmbed(texts []string) ([][]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.enabled {
		return nil, fmt.Errorf("embedding engine not initialized")
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		tokens := e.tokenizer.Tokenize(text, MaxSequenceLength)
		embedding, err := e.runInference(tokens)
		if err != nil {
			return nil, fmt.Errorf("inference failed for text %d: %w", i, err)
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// runInference executes the model. Must be called with the read lock held.
func (e *Engine) runInference(tokens *TokenizedInput) ([]float32, error) {
	seqLen := int64(len(tokens.InputIDs))

	inputIDs, err := ort.NewTensor(ort.NewShape(1, seqLen), tokens.InputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer inputIDs.Destroy()

	attentionMask, err := ort.NewTensor(ort.NewShape(1, seqLen), tokens.AttentionMask)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer attentionMask.Destroy()

	tokenTypeIDs, err := ort.NewTensor(ort.NewShape(1, seqLen), tokens.TokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer tokenTypeIDs.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seqLen, int64(Dimension)))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer output.Destroy()

	err = e.session.Run(
		[]ort.ArbitraryTensor{inputIDs, attentionMask, tokenTypeIDs},
		[]ort.ArbitraryTensor{output},
	)
	if err != nil {
		return nil, fmt.Errorf("ONNX inference failed: %w", err)
	}

	embedding := meanPool(output.GetData(), tokens.AttentionMask, int(seqLen))
	return normalize(embedding), nil
}

// meanPool averages token embeddings over the sequence, weighted by the
// attention mask.
func meanPool(output []float32, attentionMask []int64, seqLen int) []float32 {
	embedding := make([]float32, Dimension)
	var weight float32

	for i := 0; i < seqLen; i++ {
		if attentionMask[i] != 1 {
			continue
		}
		for j := 0; j < Dimension; j++ {
			embedding[j] += output[i*Dimension+j]
		}
		weight++
	}

	if weight > 0 {
		for j := range embedding {
			embedding[j] /= weight
		}
	}
	return embedding
}

// normalize applies L2 normalization in place.
func normalize(embedding []float32) []float32 {
	var norm float32
	for _, v := range embedding {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))

	if norm > 0 {
		for i := range embedding {
			embedding[i] /= norm
		}
	}
	return embedding
}

// CosineSimilarity computes the cosine similarity between two vectors.
func (e *Engine) CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (normA * normB)
}

// Shutdown releases the ONNX session.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return nil
	}
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	e.enabled = false
	log.Info("Embedding engine shut down")
	return nil
}
