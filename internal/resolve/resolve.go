// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve turns bare paper titles into bibliographic records with a
// retrievable document URL. Providers are queried in a fixed precedence
// order and their candidates merged, so results stay deterministic for a
// given set of provider responses.
package resolve

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// ErrNotFound indicates no provider produced a candidate with a usable
// document URL. The record is a dead end until requeued.
var ErrNotFound = errors.New("no resolvable candidate found")

// ErrRateLimited indicates a provider refused the request due to rate
// limiting. The caller decides whether to cool down and retry; Lookup
// never retries internally.
var ErrRateLimited = errors.New("provider rate limited")

// Provider looks up bibliographic candidates for a title. Each provider
// (arXiv, OpenAlex) implements this interface.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, title string, cfg types.ResolveConfig) ([]types.Candidate, error)
}

// arxivURLPattern matches abstract and document URLs carrying an arXiv ID,
// e.g. "https://arxiv.org/abs/2301.07041v2" or ".../pdf/2301.07041.pdf".
var arxivURLPattern = regexp.MustCompile(`arxiv\.org/(?:abs|pdf)/(\d{4}\.\d{4,5})`)

// ArxivIDFromURL extracts the bare arXiv ID from a URL, or returns "".
func ArxivIDFromURL(rawURL string) string {
	m := arxivURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// Resolve finds the best bibliographic match for a pending record.
//
// If the record already carries a URL with a recognizable arXiv ID the
// providers are skipped entirely and a candidate is synthesized from the
// ID. Otherwise providers are queried in order; the first provider's
// candidates keep precedence during the merge, duplicates (by normalized
// title) are dropped, and an exact normalized-title match wins over
// positional order. The pick happens before any URL check, so a selected
// candidate without a document URL yields ErrNotFound rather than falling
// through to a differently-titled paper.
//
// ErrRateLimited from a provider aborts the whole resolution so the caller
// can cool down; any other provider error degrades that provider to an
// empty result set.
func Resolve(ctx context.Context, p types.Paper, providers []Provider, cfg types.ResolveConfig) (*types.Candidate, error) {
	if id := ArxivIDFromURL(p.PDFURL); id != "" {
		return &types.Candidate{
			Title:    p.Title,
			ArxivID:  id,
			PDFURL:   arxivPDFURL(id),
			Provider: "hint",
		}, nil
	}

	merged, err := lookupAll(ctx, p.Title, providers, cfg)
	if err != nil {
		return nil, err
	}

	want := normalizeTitle(p.Title)
	var selected *types.Candidate
	for i := range merged {
		if normalizeTitle(merged[i].Title) == want {
			selected = &merged[i]
			break
		}
	}
	if selected == nil && len(merged) > 0 {
		selected = &merged[0]
	}
	if selected == nil || selected.PDFURL == "" {
		return nil, ErrNotFound
	}
	return selected, nil
}

// lookupAll queries the providers in order and merges their candidates,
// earlier providers first. Candidates whose normalized title was already
// seen are dropped.
func lookupAll(ctx context.Context, title string, providers []Provider, cfg types.ResolveConfig) ([]types.Candidate, error) {
	seen := make(map[string]bool)
	var merged []types.Candidate

	for _, prov := range providers {
		candidates, err := prov.Lookup(ctx, title, cfg)
		if err != nil {
			if errors.Is(err, ErrRateLimited) || ctx.Err() != nil {
				return nil, err
			}
			// A broken provider should not sink the whole resolution.
			continue
		}
		for _, c := range candidates {
			key := normalizeTitle(c.Title)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, c)
		}
	}
	return merged, nil
}

// stopWords are dropped when a title is reduced to keyword search terms.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"and": true, "or": true, "of": true, "for": true,
	"in": true, "on": true, "at": true, "to": true,
	"with": true, "by": true, "from": true,
}

// normalizeTitle lowercases a title and collapses runs of whitespace so
// trivially different renderings of the same title compare equal.
func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

var punctPattern = regexp.MustCompile(`[^a-z0-9\s]+`)

// keywordTerms reduces a title to its significant search terms: lowercase,
// punctuation stripped, stop words removed.
func keywordTerms(title string) []string {
	cleaned := punctPattern.ReplaceAllString(strings.ToLower(title), " ")
	var terms []string
	for _, w := range strings.Fields(cleaned) {
		if stopWords[w] {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}

// arxivPDFURL builds the canonical document URL for an arXiv ID.
func arxivPDFURL(id string) string {
	return "https://arxiv.org/pdf/" + id + ".pdf"
}
