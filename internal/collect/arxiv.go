// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collect

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

// arxivPageSize is the largest page the arXiv API serves per request.
const arxivPageSize = 1000

// ArxivSource lists papers submitted to one arXiv category in one year.
type ArxivSource struct {
	Client *http.Client
	Config types.CollectConfig
}

// NewArxivSource builds a source for cfg.Category and cfg.Year.
func NewArxivSource(client *http.Client, cfg types.CollectConfig) *ArxivSource {
	return &ArxivSource{Client: client, Config: cfg}
}

// Name returns the source label recorded on every collected title,
// e.g. "arXiv2025".
func (s *ArxivSource) Name() string {
	return fmt.Sprintf("arXiv%d", s.Config.Year)
}

// Collect pages through the category's submissions for the year. Paging
// stops at cfg.MaxResults, at a short page, or at an empty page. Titles
// gathered before a mid-run error are returned alongside it.
func (s *ArxivSource) Collect(ctx context.Context) ([]types.TitleRecord, error) {
	query := fmt.Sprintf("cat:%s AND submittedDate:[%d0101 TO %d1231]",
		s.Config.Category, s.Config.Year, s.Config.Year)

	maxResults := s.Config.MaxResults
	if maxResults <= 0 {
		maxResults = arxivPageSize
	}

	var records []types.TitleRecord
	for start := 0; start < maxResults; {
		pageSize := arxivPageSize
		if remaining := maxResults - start; remaining < pageSize {
			pageSize = remaining
		}

		page, err := s.fetchPage(ctx, query, start, pageSize)
		if err != nil {
			return records, err
		}
		if len(page) == 0 {
			break
		}
		records = append(records, page...)
		if len(page) < pageSize {
			break
		}
		start += pageSize
	}
	return records, nil
}

func (s *ArxivSource) fetchPage(ctx context.Context, query string, start, pageSize int) ([]types.TitleRecord, error) {
	params := url.Values{
		"search_query": {query},
		"start":        {strconv.Itoa(start)},
		"max_results":  {strconv.Itoa(pageSize)},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
	}
	reqURL := arxivAPIBase + "?" + params.Encode()

	req, err := httputil.NewRequest(ctx, reqURL, s.Config.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed listingFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	source := s.Name()
	var records []types.TitleRecord
	for _, entry := range feed.Entries {
		title := strings.Join(strings.Fields(entry.Title), " ")
		if title == "" {
			continue
		}
		r := types.TitleRecord{
			Title:  title,
			URL:    strings.TrimSpace(entry.ID),
			Source: source,
		}
		if len(entry.Published) >= 10 {
			r.PublishedDate = entry.Published[:10]
		}
		records = append(records, r)
	}
	return records, nil
}

// arXiv Atom listing structures.
type listingFeed struct {
	Entries []listingEntry `xml:"entry"`
}

type listingEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Published string `xml:"published"`
}
