// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// KeywordClassifier is the built-in Classifier: it scores a paper by the
// fraction of configured keywords that appear in its text. It exists so
// the analysis stage works out of the box; richer classifiers plug in
// through the same interface.
type KeywordClassifier struct {
	// Keywords are matched case-insensitively as substrings.
	Keywords []string
	// MinScore is the relevance threshold.
	MinScore float64
}

// Classify scores text by keyword coverage.
func (c *KeywordClassifier) Classify(ctx context.Context, text string, paper types.Paper) (types.Analysis, error) {
	if len(c.Keywords) == 0 {
		return types.Analysis{}, fmt.Errorf("keyword classifier has no keywords configured")
	}

	lower := strings.ToLower(text)
	var matched []string
	for _, kw := range c.Keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	sort.Strings(matched)

	score := float64(len(matched)) / float64(len(c.Keywords))
	a := types.Analysis{
		PaperID:        paper.ID,
		IsRelevant:     score >= c.MinScore,
		RelevanceScore: score,
		Summary:        firstLine(text),
	}
	if len(matched) > 0 {
		a.Reasoning = fmt.Sprintf("matched %d/%d keywords: %s",
			len(matched), len(c.Keywords), strings.Join(matched, ", "))
	} else {
		a.Reasoning = fmt.Sprintf("matched 0/%d keywords", len(c.Keywords))
	}
	return a, nil
}

// firstLine returns the text's first line, bounded, as a stand-in summary.
func firstLine(text string) string {
	line := text
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	const maxLen = 200
	if len(line) > maxLen {
		line = line[:maxLen]
	}
	return line
}
