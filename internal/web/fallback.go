// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package web answers queries from public search endpoints when the local
// knowledge base has nothing. Backends are tried in order; the first one
// that yields results wins. Searches never return an error: total failure
// produces NoResultsAnswer so callers always have text to show.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// NoResultsAnswer is returned when every backend fails or comes back empty.
const NoResultsAnswer = "No internet results found."

// DefaultTimeout bounds each backend request.
const DefaultTimeout = 8 * time.Second

// maxResults caps how many hits are folded into the answer text.
const maxResults = 3

// Result is a single hit from a search backend.
type Result struct {
	Title   string
	Snippet string
	Link    string
}

// Backend is one search provider. BuildRequest maps a query to a URL and
// Parse extracts results from the raw response body.
type Backend struct {
	Name         string
	BuildRequest func(query, lang string) string
	Parse        func(body []byte) []Result
}

// Fallback queries a fixed list of backends over a shared HTTP client.
type Fallback struct {
	client   *http.Client
	backends []Backend
	timeout  time.Duration
}

// Option configures a Fallback.
type Option func(*Fallback)

// WithTimeout overrides the per-backend request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fallback) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithBackends replaces the default backend list.
func WithBackends(backends []Backend) Option {
	return func(f *Fallback) { f.backends = backends }
}

// WithClient overrides the HTTP client, primarily for tests.
func WithClient(client *http.Client) Option {
	return func(f *Fallback) { f.client = client }
}

// New builds a Fallback with the default DuckDuckGo and Wikipedia backends.
func New(opts ...Option) *Fallback {
	f := &Fallback{
		client:   &http.Client{Timeout: DefaultTimeout},
		backends: defaultBackends(),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Search queries the backends in order and returns a user-facing answer.
// It never returns an error; when every backend fails the answer is
// NoResultsAnswer, itself presentable text.
func (f *Fallback) Search(ctx context.Context, query, lang string) string {
	for _, backend := range f.backends {
		results, err := f.query(ctx, backend, query, lang)
		if err != nil {
			log.Debugf("Web backend %s failed | query=%q err=%v", backend.Name, query, err)
			continue
		}
		if len(results) == 0 {
			continue
		}
		log.Infof("Web fallback answered | backend=%s results=%d", backend.Name, len(results))
		return formatResults(results)
	}
	return NoResultsAnswer
}

func (f *Fallback) query(ctx context.Context, backend Backend, query, lang string) ([]Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	endpoint := backend.BuildRequest(query, lang)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "techsewaCore/1.0 (help-desk)")
	if lang == "np" {
		req.Header.Set("Accept-Language", "ne")
	} else {
		req.Header.Set("Accept-Language", "en")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return backend.Parse(body), nil
}

func formatResults(results []Result) string {
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		line := r.Snippet
		if line == "" {
			line = r.Title
		}
		if r.Link != "" {
			line += " (" + r.Link + ")"
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, "\n")
}

func defaultBackends() []Backend {
	return []Backend{
		{
			Name: "duckduckgo",
			BuildRequest: func(query, lang string) string {
				return "https://api.duckduckgo.com/?format=json&no_html=1&q=" + url.QueryEscape(query)
			},
			Parse: parseDuckDuckGo,
		},
		{
			Name: "wikipedia",
			BuildRequest: func(query, lang string) string {
				host := "en.wikipedia.org"
				if lang == "np" {
					host = "ne.wikipedia.org"
				}
				return "https://" + host + "/w/api.php?action=opensearch&format=json&limit=3&search=" + url.QueryEscape(query)
			},
			Parse: parseWikipedia,
		},
	}
}

// parseDuckDuckGo reads the Instant Answer payload: the abstract first, then
// flattened RelatedTopics.
func parseDuckDuckGo(body []byte) []Result {
	var results []Result

	abstract := gjson.GetBytes(body, "AbstractText")
	if abstract.String() != "" {
		results = append(results, Result{
			Title:   gjson.GetBytes(body, "Heading").String(),
			Snippet: abstract.String(),
			Link:    gjson.GetBytes(body, "AbstractURL").String(),
		})
	}

	gjson.GetBytes(body, "RelatedTopics").ForEach(func(_, topic gjson.Result) bool {
		text := topic.Get("Text").String()
		if text == "" {
			// Category node; descend one level.
			topic.Get("Topics").ForEach(func(_, sub gjson.Result) bool {
				if t := sub.Get("Text").String(); t != "" {
					results = append(results, Result{Snippet: t, Link: sub.Get("FirstURL").String()})
				}
				return len(results) < maxResults
			})
		} else {
			results = append(results, Result{Snippet: text, Link: topic.Get("FirstURL").String()})
		}
		return len(results) < maxResults
	})

	return results
}

// parseWikipedia reads the opensearch quad: [query, [titles], [snippets], [links]].
func parseWikipedia(body []byte) []Result {
	titles := gjson.GetBytes(body, "1").Array()
	snippets := gjson.GetBytes(body, "2").Array()
	links := gjson.GetBytes(body, "3").Array()

	var results []Result
	for i, title := range titles {
		r := Result{Title: title.String()}
		if i < len(snippets) {
			r.Snippet = snippets[i].String()
		}
		if i < len(links) {
			r.Link = links[i].String()
		}
		if r.Title == "" && r.Snippet == "" {
			continue
		}
		results = append(results, r)
	}
	return results
}
