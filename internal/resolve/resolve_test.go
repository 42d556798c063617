// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/survey-engine/pkg/types"
)

func testCfg() types.ResolveConfig {
	return types.ResolveConfig{
		HTTPConfig:            types.HTTPConfig{UserAgent: "survey-engine-test"},
		MaxResultsPerProvider: 10,
	}
}

// fakeProvider returns canned candidates or a canned error.
type fakeProvider struct {
	name       string
	candidates []types.Candidate
	err        error
	calls      int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Lookup(ctx context.Context, title string, cfg types.ResolveConfig) ([]types.Candidate, error) {
	f.calls++
	return f.candidates, f.err
}

// --- normalizeTitle / keywordTerms / ArxivIDFromURL ---

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Attention Is All You Need", "attention is all you need"},
		{"  Attention   Is\tAll You Need ", "attention is all you need"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeTitle(tt.in), "normalizeTitle(%q)", tt.in)
	}
}

func TestKeywordTerms(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  []string
	}{
		{"drops stop words", "The Annotated Transformer: A Guide for Beginners",
			[]string{"annotated", "transformer", "guide", "beginners"}},
		{"strips punctuation", "Grokking: Generalization Beyond Overfitting!",
			[]string{"grokking", "generalization", "beyond", "overfitting"}},
		{"all stop words", "Of The And", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keywordTerms(tt.title))
		})
	}
}

func TestArxivIDFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://arxiv.org/abs/1706.03762", "1706.03762"},
		{"https://arxiv.org/abs/1706.03762v5", "1706.03762"},
		{"https://arxiv.org/pdf/2301.07041.pdf", "2301.07041"},
		{"http://export.arxiv.org/abs/2301.07041", "2301.07041"},
		{"https://example.org/paper.pdf", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ArxivIDFromURL(tt.url), "ArxivIDFromURL(%q)", tt.url)
	}
}

// --- Resolve ---

func TestResolveHintURLShortCircuit(t *testing.T) {
	prov := &fakeProvider{name: "arxiv"}
	p := types.Paper{
		Title:  "Attention Is All You Need",
		PDFURL: "https://arxiv.org/abs/1706.03762v5",
	}

	c, err := Resolve(context.Background(), p, []Provider{prov}, testCfg())
	require.NoError(t, err)
	assert.Equal(t, "1706.03762", c.ArxivID)
	assert.Equal(t, "https://arxiv.org/pdf/1706.03762.pdf", c.PDFURL)
	assert.Zero(t, prov.calls, "providers must not be queried on a hint hit")
}

func TestResolveExactMatchWins(t *testing.T) {
	prov := &fakeProvider{name: "arxiv", candidates: []types.Candidate{
		{Title: "Attention Is Not All You Need", PDFURL: "https://arxiv.org/pdf/2103.03404.pdf"},
		{Title: "Attention is all you need", ArxivID: "1706.03762", PDFURL: "https://arxiv.org/pdf/1706.03762.pdf"},
	}}

	c, err := Resolve(context.Background(), types.Paper{Title: "Attention Is All You Need"},
		[]Provider{prov}, testCfg())
	require.NoError(t, err)
	assert.Equal(t, "1706.03762", c.ArxivID, "exact-title match must win over position")
}

func TestResolveFirstCandidateWhenNoExactMatch(t *testing.T) {
	prov := &fakeProvider{name: "arxiv", candidates: []types.Candidate{
		{Title: "Scaling Laws for Neural Language Models", PDFURL: "https://arxiv.org/pdf/2001.08361.pdf"},
		{Title: "Training Compute-Optimal Large Language Models", PDFURL: "https://arxiv.org/pdf/2203.15556.pdf"},
	}}

	c, err := Resolve(context.Background(), types.Paper{Title: "Scaling Laws"},
		[]Provider{prov}, testCfg())
	require.NoError(t, err)
	assert.Equal(t, "Scaling Laws for Neural Language Models", c.Title)
}

func TestResolvePrimaryProviderPrecedence(t *testing.T) {
	primary := &fakeProvider{name: "arxiv", candidates: []types.Candidate{
		{Title: "Deep Residual Learning", ArxivID: "1512.03385",
			PDFURL: "https://arxiv.org/pdf/1512.03385.pdf", Provider: "arxiv"},
	}}
	secondary := &fakeProvider{name: "openalex", candidates: []types.Candidate{
		// Same paper under a trivially different title rendering.
		{Title: "Deep  Residual Learning", PDFURL: "https://example.org/resnet.pdf", Provider: "openalex"},
	}}

	c, err := Resolve(context.Background(), types.Paper{Title: "Deep Residual Learning"},
		[]Provider{primary, secondary}, testCfg())
	require.NoError(t, err)
	assert.Equal(t, "arxiv", c.Provider, "primary provider must win the merge")
}

func TestResolveNoUsableURL(t *testing.T) {
	prov := &fakeProvider{name: "openalex", candidates: []types.Candidate{
		{Title: "A Paywalled Paper"},
		{Title: "Another Paywalled Paper"},
	}}

	_, err := Resolve(context.Background(), types.Paper{Title: "A Paywalled Paper"},
		[]Provider{prov}, testCfg())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveSelectedCandidateWithoutURLIsNotFound(t *testing.T) {
	// The exact-title match has no document URL. Selection must stick with
	// it and fail, never slide over to a differently-titled candidate that
	// happens to be downloadable.
	prov := &fakeProvider{name: "openalex", candidates: []types.Candidate{
		{Title: "Attention Is All You Need"},
		{Title: "Attention Is Not All You Need", PDFURL: "https://arxiv.org/pdf/2103.03404.pdf"},
	}}

	_, err := Resolve(context.Background(), types.Paper{Title: "Attention Is All You Need"},
		[]Provider{prov}, testCfg())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveFirstCandidateWithoutURLIsNotFound(t *testing.T) {
	// No exact match, so the first merged candidate is the selection even
	// though a later one carries a URL.
	prov := &fakeProvider{name: "openalex", candidates: []types.Candidate{
		{Title: "A Survey of Graph Networks"},
		{Title: "Graph Networks Revisited", PDFURL: "https://example.org/gn.pdf"},
	}}

	_, err := Resolve(context.Background(), types.Paper{Title: "Graph Networks"},
		[]Provider{prov}, testCfg())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveNoCandidates(t *testing.T) {
	prov := &fakeProvider{name: "arxiv"}
	_, err := Resolve(context.Background(), types.Paper{Title: "Unfindable"},
		[]Provider{prov}, testCfg())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveRateLimitAborts(t *testing.T) {
	primary := &fakeProvider{name: "arxiv", err: fmt.Errorf("arXiv API: %w", ErrRateLimited)}
	secondary := &fakeProvider{name: "openalex", candidates: []types.Candidate{
		{Title: "Some Paper", PDFURL: "https://example.org/p.pdf"},
	}}

	_, err := Resolve(context.Background(), types.Paper{Title: "Some Paper"},
		[]Provider{primary, secondary}, testCfg())
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Zero(t, secondary.calls, "secondary must not be queried after a rate limit")
}

func TestResolveBrokenProviderDegrades(t *testing.T) {
	broken := &fakeProvider{name: "arxiv", err: errors.New("connection refused")}
	working := &fakeProvider{name: "openalex", candidates: []types.Candidate{
		{Title: "Some Paper", PDFURL: "https://example.org/p.pdf", Provider: "openalex"},
	}}

	c, err := Resolve(context.Background(), types.Paper{Title: "Some Paper"},
		[]Provider{broken, working}, testCfg())
	require.NoError(t, err)
	assert.Equal(t, "openalex", c.Provider)
}
