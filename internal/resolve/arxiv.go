// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/survey-engine/internal/httputil"
	"github.com/pdiddy/survey-engine/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivProvider resolves titles against the arXiv API. It is the primary
// provider: its candidates keep precedence in the merged result set.
type ArxivProvider struct {
	Client *http.Client
}

// Name returns the provider identifier.
func (p *ArxivProvider) Name() string { return "arxiv" }

// Lookup tries an exact-title query first and falls back to an all-fields
// keyword query built from the title's significant terms. HTTP 429 surfaces as
// ErrRateLimited without retrying; the caller owns the cooldown.
func (p *ArxivProvider) Lookup(ctx context.Context, title string, cfg types.ResolveConfig) ([]types.Candidate, error) {
	exact := fmt.Sprintf("ti:%q", title)
	candidates, err := p.query(ctx, exact, cfg)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		return candidates, nil
	}

	terms := keywordTerms(title)
	if len(terms) == 0 {
		return nil, nil
	}
	return p.query(ctx, "all:"+strings.Join(terms, " "), cfg)
}

func (p *ArxivProvider) query(ctx context.Context, searchQuery string, cfg types.ResolveConfig) ([]types.Candidate, error) {
	maxResults := cfg.MaxResultsPerProvider
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{
		"search_query": {searchQuery},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(maxResults)},
	}
	reqURL := arxivAPIBase + "?" + params.Encode()

	req, err := httputil.NewRequest(ctx, reqURL, cfg.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("arXiv API: %w", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var candidates []types.Candidate
	for _, entry := range feed.Entries {
		id := extractArxivID(entry.ID)
		if id == "" {
			continue
		}
		c := types.Candidate{
			Title:    strings.TrimSpace(entry.Title),
			ArxivID:  id,
			PDFURL:   arxivPDFURL(id),
			Abstract: strings.TrimSpace(entry.Summary),
			Provider: "arxiv",
		}
		for _, a := range entry.Authors {
			c.Authors = append(c.Authors, strings.TrimSpace(a.Name))
		}
		if len(entry.Published) >= 10 {
			c.PublishedDate = entry.Published[:10]
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
