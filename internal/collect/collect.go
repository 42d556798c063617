// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package collect gathers paper titles from external listings and feeds
// them into the corpus as pending records.
package collect

import (
	"context"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// TitleSource lists paper titles from one external venue. Implementations
// return whatever they could gather; a partial list with an error is a
// valid outcome for paged sources that fail midway.
type TitleSource interface {
	Name() string
	Collect(ctx context.Context) ([]types.TitleRecord, error)
}
