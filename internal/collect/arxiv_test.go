// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// listingServer serves Atom pages with total synthetic entries, honoring
// start and max_results, and records every received query.
func listingServer(total int, queries *[]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if queries != nil {
			*queries = append(*queries, r.URL.Query().Get("search_query"))
		}
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		max, _ := strconv.Atoi(r.URL.Query().Get("max_results"))

		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom">`)
		for i := start; i < start+max && i < total; i++ {
			fmt.Fprintf(&b, `<entry>
				<id>http://arxiv.org/abs/2501.%05d</id>
				<title>Paper   Number %d</title>
				<published>2025-03-0%dT12:00:00Z</published>
			</entry>`, i, i, i%9+1)
		}
		b.WriteString(`</feed>`)
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, b.String())
	}))
}

func TestArxivSourceCollect(t *testing.T) {
	var queries []string
	ts := listingServer(3, &queries)
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	src := NewArxivSource(ts.Client(), types.CollectConfig{
		HTTPConfig: types.HTTPConfig{UserAgent: "survey-engine-test"},
		Category:   "cs.RO",
		Year:       2025,
		MaxResults: 100,
	})

	records, err := src.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "cat:cs.RO AND submittedDate:[20250101 TO 20251231]", queries[0])

	r := records[0]
	assert.Equal(t, "Paper Number 0", r.Title, "title must be whitespace-normalized")
	assert.Equal(t, "arXiv2025", r.Source)
	assert.Equal(t, "2025-03-01", r.PublishedDate)
	assert.Contains(t, r.URL, "/abs/")
}

func TestArxivSourceStopsAtMaxResults(t *testing.T) {
	ts := listingServer(5000, nil)
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	src := NewArxivSource(ts.Client(), types.CollectConfig{
		Category:   "cs.RO",
		Year:       2025,
		MaxResults: 1500,
	})

	records, err := src.Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1500)
}

func TestArxivSourceEmptyCategory(t *testing.T) {
	ts := listingServer(0, nil)
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	src := NewArxivSource(ts.Client(), types.CollectConfig{Category: "cs.XX", Year: 2025})
	records, err := src.Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestArxivSourceServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	src := NewArxivSource(ts.Client(), types.CollectConfig{Category: "cs.RO", Year: 2025})
	_, err := src.Collect(context.Background())
	assert.Error(t, err)
}
