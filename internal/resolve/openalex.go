// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/survey-engine/internal/httputil"
	"github.com/pdiddy/survey-engine/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// OpenAlexProvider resolves titles against the OpenAlex API. It is the
// secondary provider: useful for papers arXiv never hosted, though its
// candidates often lack an open-access document URL.
type OpenAlexProvider struct {
	Client *http.Client
	// Email is sent as the mailto parameter for polite pool access.
	Email string
}

// Name returns the provider identifier.
func (p *OpenAlexProvider) Name() string { return "openalex" }

// Lookup runs a single relevance search on the raw title.
func (p *OpenAlexProvider) Lookup(ctx context.Context, title string, cfg types.ResolveConfig) ([]types.Candidate, error) {
	maxResults := cfg.MaxResultsPerProvider
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{
		"search":   {title},
		"per_page": {strconv.Itoa(maxResults)},
		"page":     {"1"},
	}
	if p.Email != "" {
		params.Set("mailto", p.Email)
	}
	reqURL := openAlexSearchBase + "?" + params.Encode()

	req, err := httputil.NewRequest(ctx, reqURL, cfg.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("OpenAlex API: %w", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	var candidates []types.Candidate
	for _, work := range oar.Results {
		c := types.Candidate{
			Title:         work.Title,
			Abstract:      reconstructAbstract(work.AbstractInvertedIndex),
			PublishedDate: work.PublicationDate,
			Provider:      "openalex",
		}

		for _, authorship := range work.Authorships {
			if authorship.Author.DisplayName != "" {
				c.Authors = append(c.Authors, authorship.Author.DisplayName)
			}
		}

		// Mine an arXiv ID out of whatever URLs the work carries; a
		// known ID gives a stable document URL even when OpenAlex has
		// no open-access copy of its own.
		for _, u := range []string{work.IDs.ArxivURL(), work.BestOALocation.PDFURL, work.OpenAccess.OAURL} {
			if id := ArxivIDFromURL(u); id != "" {
				c.ArxivID = id
				break
			}
		}

		switch {
		case c.ArxivID != "":
			c.PDFURL = arxivPDFURL(c.ArxivID)
		case work.BestOALocation.PDFURL != "":
			c.PDFURL = work.BestOALocation.PDFURL
		case work.OpenAccess.OAURL != "":
			c.PDFURL = work.OpenAccess.OAURL
		}

		candidates = append(candidates, c)
	}
	return candidates, nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	PublicationDate       string               `json:"publication_date"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	IDs                   openAlexIDs          `json:"ids"`
	OpenAccess            openAlexOpenAccess   `json:"open_access"`
	BestOALocation        openAlexLocation     `json:"best_oa_location"`
}

type openAlexIDs struct {
	OpenAlex string `json:"openalex"`
	DOI      string `json:"doi"`
	Arxiv    string `json:"arxiv"`
}

// ArxivURL returns the arXiv URL from the IDs block, if present.
func (ids openAlexIDs) ArxivURL() string { return ids.Arxiv }

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexOpenAccess struct {
	IsOA     bool   `json:"is_oa"`
	OAStatus string `json:"oa_status"`
	OAURL    string `json:"oa_url"`
}

type openAlexLocation struct {
	PDFURL      string `json:"pdf_url"`
	LandingPage string `json:"landing_page_url"`
}
