// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package embedding

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// TokenizedInput is model-ready tokenizer output.
type TokenizedInput struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
}

// WordPieceTokenizer implements BERT-style WordPiece tokenization against a
// vocabulary file (one token per line). Without a vocabulary file it falls
// back to a small built-in vocabulary good enough for smoke testing.
type WordPieceTokenizer struct {
	vocab map[string]int64

	clsID int64
	sepID int64
	padID int64
	unkID int64
}

// NewWordPieceTokenizer loads the vocabulary at vocabPath. A missing or
// empty path selects the built-in fallback vocabulary.
func NewWordPieceTokenizer(vocabPath string) (*WordPieceTokenizer, error) {
	t := &WordPieceTokenizer{vocab: make(map[string]int64)}

	if vocabPath == "" {
		t.loadFallbackVocab()
		return t, nil
	}

	file, err := os.Open(vocabPath)
	if err != nil {
		t.loadFallbackVocab()
		return t, nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var id int64
	for scanner.Scan() {
		t.vocab[scanner.Text()] = id
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading vocabulary: %w", err)
	}

	t.bindSpecialTokens()
	return t, nil
}

func (t *WordPieceTokenizer) loadFallbackVocab() {
	fallback := []string{
		"[PAD]", "[UNK]", "[CLS]", "[SEP]", "[MASK]",
		"the", "a", "an", "is", "are", "was", "were", "not", "no",
		"to", "of", "in", "for", "on", "with", "at", "by", "from",
		"my", "your", "it", "this", "that", "and", "or", "but",
		"what", "which", "where", "when", "why", "how",
		"wifi", "internet", "network", "router", "printer", "computer",
		"screen", "battery", "power", "disk", "memory", "slow", "restart",
		"error", "problem", "fix", "help", "working", "broken", "update",
		"##s", "##ed", "##ing", "##er", "##ly",
	}
	for i, token := range fallback {
		t.vocab[token] = int64(i)
	}
	t.bindSpecialTokens()
}

func (t *WordPieceTokenizer) bindSpecialTokens() {
	t.clsID = t.vocab["[CLS]"]
	t.sepID = t.vocab["[SEP]"]
	t.padID = t.vocab["[PAD]"]
	t.unkID = t.vocab["[UNK]"]
}

// Tokenize converts text into token IDs, bounded by maxLength including the
// [CLS] and [SEP] markers.
func (t *WordPieceTokenizer) Tokenize(text string, maxLength int) *TokenizedInput {
	words := splitWords(strings.ToLower(text))

	tokens := []int64{t.clsID}
	for _, word := range words {
		tokens = append(tokens, t.tokenizeWord(word)...)
		if len(tokens) >= maxLength-1 {
			break
		}
	}
	if len(tokens) > maxLength-1 {
		tokens = tokens[:maxLength-1]
	}
	tokens = append(tokens, t.sepID)

	seqLen := len(tokens)
	attentionMask := make([]int64, seqLen)
	tokenTypeIDs := make([]int64, seqLen)
	for i := range attentionMask {
		attentionMask[i] = 1
	}

	return &TokenizedInput{
		InputIDs:      tokens,
		AttentionMask: attentionMask,
		TokenTypeIDs:  tokenTypeIDs,
	}
}

// VocabSize returns the number of vocabulary entries.
func (t *WordPieceTokenizer) VocabSize() int {
	return len(t.vocab)
}

// tokenizeWord applies greedy longest-match WordPiece to one word.
func (t *WordPieceTokenizer) tokenizeWord(word string) []int64 {
	if id, ok := t.vocab[word]; ok {
		return []int64{id}
	}

	var tokens []int64
	start := 0
	for start < len(word) {
		end := len(word)
		matched := false
		for end > start {
			piece := word[start:end]
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := t.vocab[piece]; ok {
				tokens = append(tokens, id)
				matched = true
				break
			}
			end--
		}
		if !matched {
			tokens = append(tokens, t.unkID)
			start++
			continue
		}
		start = end
	}

	if len(tokens) == 0 {
		return []int64{t.unkID}
	}
	return tokens
}

// splitWords normalizes whitespace and detaches punctuation before
// whitespace splitting.
func splitWords(text string) []string {
	var sb strings.Builder
	for _, r := range text {
		if unicode.IsPunct(r) {
			sb.WriteRune(' ')
			sb.WriteRune(r)
			sb.WriteRune(' ')
		} else {
			sb.WriteRune(r)
		}
	}
	return strings.Fields(sb.String())
}
