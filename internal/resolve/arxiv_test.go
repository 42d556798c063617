// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleArxivFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v5</id>
    <title>Attention Is All You Need</title>
    <summary>The dominant sequence transduction models are based on
complex recurrent or convolutional neural networks.</summary>
    <published>2017-06-12T17:57:34Z</published>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
  </entry>
</feed>`

const emptyArxivFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"></feed>`

func TestArxivProviderLookup(t *testing.T) {
	var receivedQueries []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedQueries = append(receivedQueries, r.URL.Query().Get("search_query"))
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, sampleArxivFeed)
	}))
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	p := &ArxivProvider{Client: ts.Client()}
	candidates, err := p.Lookup(context.Background(), "Attention Is All You Need", testCfg())
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "1706.03762", c.ArxivID)
	assert.Equal(t, "https://arxiv.org/pdf/1706.03762.pdf", c.PDFURL)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, c.Authors)
	assert.Equal(t, "2017-06-12", c.PublishedDate)

	// Exact query matched on the first try, no keyword fallback.
	require.Len(t, receivedQueries, 1)
	assert.Equal(t, `ti:"Attention Is All You Need"`, receivedQueries[0])
}

func TestArxivProviderKeywordFallback(t *testing.T) {
	var receivedQueries []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("search_query")
		receivedQueries = append(receivedQueries, q)
		w.Header().Set("Content-Type", "application/atom+xml")
		if strings.HasPrefix(q, `ti:"`) {
			fmt.Fprint(w, emptyArxivFeed)
			return
		}
		fmt.Fprint(w, sampleArxivFeed)
	}))
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	p := &ArxivProvider{Client: ts.Client()}
	candidates, err := p.Lookup(context.Background(), "The Attention for You: Need!", testCfg())
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	require.Len(t, receivedQueries, 2)
	assert.Equal(t, "all:attention you need", receivedQueries[1],
		"fallback must search all fields with the significant terms")
}

func TestArxivProviderRateLimited(t *testing.T) {
	requests := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	p := &ArxivProvider{Client: ts.Client()}
	_, err := p.Lookup(context.Background(), "anything", testCfg())
	require.ErrorIs(t, err, ErrRateLimited)
	// No internal retry: the caller owns the cooldown.
	assert.Equal(t, 1, requests)
}

func TestArxivProviderServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	p := &ArxivProvider{Client: ts.Client()}
	_, err := p.Lookup(context.Background(), "anything", testCfg())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited, "HTTP 500 must not read as rate limiting")
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		idURL string
		want  string
	}{
		{"http://arxiv.org/abs/1706.03762v5", "1706.03762"},
		{"http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"http://example.org/no-id", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractArxivID(tt.idURL), "extractArxivID(%q)", tt.idURL)
	}
}
