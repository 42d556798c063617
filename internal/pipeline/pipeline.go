// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives papers through the corpus lifecycle: collected
// titles are resolved to bibliographic records, resolved records are
// fetched and converted to text, and processed text is classified. Each
// stage is a batch operation that claims records by status, so runs can
// be interrupted and resumed at any point.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/survey-engine/internal/collect"
	"github.com/pdiddy/survey-engine/internal/extract"
	"github.com/pdiddy/survey-engine/internal/fetch"
	"github.com/pdiddy/survey-engine/internal/httputil"
	"github.com/pdiddy/survey-engine/internal/resolve"
	"github.com/pdiddy/survey-engine/internal/store"
	"github.com/pdiddy/survey-engine/pkg/types"
)

// Classifier judges whether a paper's text is relevant to the survey.
// The pipeline persists whatever verdict comes back; scores outside
// [0, 1] are clamped at the store boundary.
type Classifier interface {
	Classify(ctx context.Context, text string, paper types.Paper) (types.Analysis, error)
}

// Pipeline wires the stages to shared infrastructure. All stages pace
// themselves through the one Throttle, so a cooldown imposed by one
// record delays every subsequent request in the run.
type Pipeline struct {
	Store      *store.Store
	Client     *http.Client
	Providers  []resolve.Provider
	Classifier Classifier
	Throttle   *httputil.Throttle
	Config     types.PipelineConfig
	Out        io.Writer
}

// New builds a pipeline with the default provider chain (arXiv first,
// OpenAlex second).
func New(s *store.Store, client *http.Client, cfg types.PipelineConfig, out io.Writer) *Pipeline {
	return &Pipeline{
		Store:  s,
		Client: client,
		Providers: []resolve.Provider{
			&resolve.ArxivProvider{Client: client},
			&resolve.OpenAlexProvider{Client: client, Email: cfg.Resolve.OpenAlexEmail},
		},
		Throttle: httputil.NewThrottle(0),
		Config:   cfg,
		Out:      out,
	}
}

// PDFPath returns where the paper's document lives on disk.
func (pl *Pipeline) PDFPath(p types.Paper) string {
	return filepath.Join(pl.Config.Fetch.PDFDir, p.ID+".pdf")
}

// TextPath returns where the paper's extracted text lives on disk.
func (pl *Pipeline) TextPath(p types.Paper) string {
	return filepath.Join(pl.Config.Extract.TextDir, p.ID+".txt")
}

// delay sleeps the per-record pacing interval, honoring cancellation.
func (pl *Pipeline) delay(ctx context.Context) error {
	if pl.Config.RecordDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(pl.Config.RecordDelay):
		return nil
	}
}

// CollectSummary holds the outcome of a title collection run.
type CollectSummary struct {
	Listed   int
	Inserted int
	Failed   int
}

// CollectTitles gathers titles from every source and inserts the new ones
// as pending records. A failing source does not stop the others; titles
// it returned before failing are still inserted.
func (pl *Pipeline) CollectTitles(ctx context.Context, sources []collect.TitleSource) (CollectSummary, error) {
	var sum CollectSummary
	for _, src := range sources {
		records, err := src.Collect(ctx)
		if err != nil {
			fmt.Fprintf(pl.Out, "failed:  %s (%v)\n", src.Name(), err)
			sum.Failed++
		}
		if len(records) == 0 {
			continue
		}
		sum.Listed += len(records)
		inserted, err := pl.Store.InsertTitles(ctx, records)
		if err != nil {
			return sum, fmt.Errorf("inserting titles from %s: %w", src.Name(), err)
		}
		sum.Inserted += inserted
		fmt.Fprintf(pl.Out, "collected: %s (%d listed, %d new)\n", src.Name(), len(records), inserted)
	}
	return sum, nil
}

// ResolveSummary holds the outcome of a resolution run.
type ResolveSummary struct {
	Resolved int
	Failed   int
}

// Total returns the number of records processed.
func (r ResolveSummary) Total() int { return r.Resolved + r.Failed }

// HasFailures reports whether any records failed to resolve.
func (r ResolveSummary) HasFailures() bool { return r.Failed > 0 }

// ResolvePending resolves up to limit pending titles. Each success moves
// the record to the download queue; each failure moves it to detailFailed
// and records the reason in the detail ledger. Provider rate limiting
// pauses the whole loop for the configured cooldown and retries the same
// record a bounded number of times before giving up on it.
func (pl *Pipeline) ResolvePending(ctx context.Context, limit int) (ResolveSummary, error) {
	papers, err := pl.Store.ListByStatus(ctx, types.StatusPendingTitles, limit)
	if err != nil {
		return ResolveSummary{}, err
	}

	var sum ResolveSummary
	for i, p := range papers {
		if i > 0 {
			if err := pl.delay(ctx); err != nil {
				return sum, err
			}
		}
		if err := pl.Throttle.Wait(ctx); err != nil {
			return sum, err
		}

		c, err := pl.resolveWithCooldown(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			if err := pl.markDetailFailed(ctx, p, err); err != nil {
				return sum, err
			}
			fmt.Fprintf(pl.Out, "failed:  %s (%v)\n", p.Title, err)
			sum.Failed++
			continue
		}

		if err := pl.Store.UpdateResolved(ctx, p.ID, *c); err != nil {
			return sum, err
		}
		if err := pl.Store.UpdateStatus(ctx, p.ID, types.StatusToBeDownloaded); err != nil {
			return sum, err
		}
		fmt.Fprintf(pl.Out, "resolved: %s [%s]\n", p.Title, c.Provider)
		sum.Resolved++
	}

	fmt.Fprintf(pl.Out, "\nResolve summary: %d resolved, %d failed (total: %d)\n",
		sum.Resolved, sum.Failed, sum.Total())
	return sum, nil
}

// resolveWithCooldown retries a rate-limited resolution after pausing the
// shared throttle. Any other error is final for this record.
func (pl *Pipeline) resolveWithCooldown(ctx context.Context, p types.Paper) (*types.Candidate, error) {
	for attempt := 0; ; attempt++ {
		c, err := resolve.Resolve(ctx, p, pl.Providers, pl.Config.Resolve)
		if err == nil || !errors.Is(err, resolve.ErrRateLimited) {
			return c, err
		}
		if attempt >= pl.Config.Resolve.RateLimitRetries {
			return nil, err
		}
		fmt.Fprintf(pl.Out, "warning: rate limited, cooling down %s\n", pl.Config.Resolve.RateLimitCooldown)
		pl.Throttle.Pause(pl.Config.Resolve.RateLimitCooldown)
		if err := pl.Throttle.Wait(ctx); err != nil {
			return nil, err
		}
	}
}

func (pl *Pipeline) markDetailFailed(ctx context.Context, p types.Paper, cause error) error {
	if err := pl.Store.UpdateStatus(ctx, p.ID, types.StatusDetailFailed); err != nil {
		return err
	}
	return pl.Store.RecordFailure(ctx, types.FailureDetail, types.Failure{
		PaperID: p.ID,
		Title:   p.Title,
		Source:  p.Source,
		Reason:  detailReason(cause),
	})
}

// detailReason maps a resolution error to a stable ledger reason so the
// aggregate failure counts group by kind instead of by error text.
func detailReason(cause error) string {
	switch {
	case errors.Is(cause, resolve.ErrRateLimited):
		return "rate-limited"
	case errors.Is(cause, resolve.ErrNotFound):
		return "not-found"
	default:
		return cause.Error()
	}
}

// FetchSummary holds the outcome of a fetch run.
type FetchSummary struct {
	Fetched int
	Skipped int
	Failed  int
}

// Total returns the number of records processed.
func (r FetchSummary) Total() int { return r.Fetched + r.Skipped + r.Failed }

// HasFailures reports whether any records failed.
func (r FetchSummary) HasFailures() bool { return r.Failed > 0 }

// FetchQueued retrieves and extracts up to limit queued records. A record
// reaches processed only when both the document and its text are on disk;
// any failure moves it to downloadFailed with the failure kind as the
// ledger reason. Consecutive timeout outcomes across records trip a
// run-wide cooldown on the shared throttle.
func (pl *Pipeline) FetchQueued(ctx context.Context, limit int) (FetchSummary, error) {
	papers, err := pl.Store.ListByStatus(ctx, types.StatusToBeDownloaded, limit)
	if err != nil {
		return FetchSummary{}, err
	}

	var sum FetchSummary
	consecutiveTimeouts := 0
	for i, p := range papers {
		if i > 0 {
			if err := pl.delay(ctx); err != nil {
				return sum, err
			}
		}
		if err := pl.Throttle.Wait(ctx); err != nil {
			return sum, err
		}

		outcome, err := pl.fetchOne(ctx, p)
		if err != nil {
			return sum, err
		}

		switch outcome.kind {
		case fetch.KindNone:
			consecutiveTimeouts = 0
			if outcome.skipped {
				fmt.Fprintf(pl.Out, "skipped: %s\n", p.Title)
				sum.Skipped++
			} else {
				fmt.Fprintf(pl.Out, "fetched: %s\n", p.Title)
				sum.Fetched++
			}
		case fetch.KindTimeout:
			consecutiveTimeouts++
			fmt.Fprintf(pl.Out, "failed:  %s (%v)\n", p.Title, outcome.err)
			sum.Failed++
			if lim := pl.Config.ConsecutiveTimeoutLimit; lim > 0 && consecutiveTimeouts >= lim {
				fmt.Fprintf(pl.Out, "warning: %d consecutive timeouts, cooling down %s\n",
					consecutiveTimeouts, pl.Config.TimeoutCooldown)
				pl.Throttle.Pause(pl.Config.TimeoutCooldown)
				consecutiveTimeouts = 0
			}
		default:
			consecutiveTimeouts = 0
			fmt.Fprintf(pl.Out, "failed:  %s (%v)\n", p.Title, outcome.err)
			sum.Failed++
		}
	}

	fmt.Fprintf(pl.Out, "\nFetch summary: %d fetched, %d skipped, %d failed (total: %d)\n",
		sum.Fetched, sum.Skipped, sum.Failed, sum.Total())
	return sum, nil
}

// kindExtractionEmpty is the download-ledger reason for a document that
// arrived intact but yielded no usable text. It is distinct from the
// retrieval kinds so the aggregate counts separate bad payloads from bad
// extractions.
const kindExtractionEmpty = fetch.Kind("extraction-empty")

// fetchOutcome is one record's terminal fetch+extract state.
type fetchOutcome struct {
	kind    fetch.Kind
	skipped bool
	err     error
}

// fetchOne retrieves one record's document, extracts its text, and
// persists the resulting status. The returned error is only for store
// failures; retrieval and extraction failures land in the outcome.
func (pl *Pipeline) fetchOne(ctx context.Context, p types.Paper) (fetchOutcome, error) {
	fail := func(kind fetch.Kind, cause error) (fetchOutcome, error) {
		if err := pl.Store.UpdateStatus(ctx, p.ID, types.StatusDownloadFailed); err != nil {
			return fetchOutcome{}, err
		}
		err := pl.Store.RecordFailure(ctx, types.FailureDownload, types.Failure{
			PaperID: p.ID,
			Title:   p.Title,
			Source:  p.Source,
			Reason:  string(kind),
		})
		return fetchOutcome{kind: kind, err: cause}, err
	}

	if p.PDFURL == "" {
		return fail(fetch.KindTransport, errors.New("no document URL on record"))
	}

	res := fetch.Retrieve(ctx, pl.Client, p.PDFURL, pl.PDFPath(p), pl.Config.Fetch)
	if res.Err != nil {
		if ctx.Err() != nil && !errors.Is(res.Err, context.DeadlineExceeded) {
			return fetchOutcome{}, ctx.Err()
		}
		return fail(res.Kind, res.Err)
	}

	if _, err := extract.ExtractText(pl.PDFPath(p), pl.TextPath(p), pl.Config.Extract, pl.Out); err != nil {
		return fail(kindExtractionEmpty, fmt.Errorf("extraction: %w", err))
	}

	if err := pl.Store.UpdateStatus(ctx, p.ID, types.StatusProcessed); err != nil {
		return fetchOutcome{}, err
	}
	return fetchOutcome{skipped: res.Skipped}, nil
}

// AnalyzeSummary holds the outcome of an analysis run.
type AnalyzeSummary struct {
	Analyzed int
	Relevant int
	Failed   int
}

// Total returns the number of records processed.
func (r AnalyzeSummary) Total() int { return r.Analyzed + r.Failed }

// HasFailures reports whether any records failed to classify.
func (r AnalyzeSummary) HasFailures() bool { return r.Failed > 0 }

// AnalyzeProcessed classifies up to limit processed records. A failed
// classification leaves the record at processed so a later run can retry
// it; a persisted verdict moves it to the terminal analyzed state.
func (pl *Pipeline) AnalyzeProcessed(ctx context.Context, limit int) (AnalyzeSummary, error) {
	if pl.Classifier == nil {
		return AnalyzeSummary{}, errors.New("no classifier configured")
	}

	papers, err := pl.Store.ListByStatus(ctx, types.StatusProcessed, limit)
	if err != nil {
		return AnalyzeSummary{}, err
	}

	var sum AnalyzeSummary
	for i, p := range papers {
		if i > 0 {
			if err := pl.delay(ctx); err != nil {
				return sum, err
			}
		}

		text, err := pl.readText(p)
		if err != nil {
			fmt.Fprintf(pl.Out, "failed:  %s (%v)\n", p.Title, err)
			sum.Failed++
			continue
		}

		a, err := pl.Classifier.Classify(ctx, text, p)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			fmt.Fprintf(pl.Out, "failed:  %s (%v)\n", p.Title, err)
			sum.Failed++
			continue
		}

		a.PaperID = p.ID
		if err := pl.Store.InsertAnalysis(ctx, a); err != nil {
			return sum, err
		}
		if err := pl.Store.UpdateStatus(ctx, p.ID, types.StatusAnalyzed); err != nil {
			return sum, err
		}

		verdict := "irrelevant"
		if a.IsRelevant {
			verdict = "relevant"
			sum.Relevant++
		}
		fmt.Fprintf(pl.Out, "analyzed: %s (%s, score %.2f)\n", p.Title, verdict, a.RelevanceScore)
		sum.Analyzed++
	}

	fmt.Fprintf(pl.Out, "\nAnalyze summary: %d analyzed (%d relevant), %d failed (total: %d)\n",
		sum.Analyzed, sum.Relevant, sum.Failed, sum.Total())
	return sum, nil
}

// readText loads the paper's extracted text, truncated to the configured
// character budget.
func (pl *Pipeline) readText(p types.Paper) (string, error) {
	raw, err := os.ReadFile(pl.TextPath(p))
	if err != nil {
		return "", fmt.Errorf("reading extracted text: %w", err)
	}
	text := string(raw)
	if lim := pl.Config.Analyze.MaxChars; lim > 0 && len(text) > lim {
		text = text[:lim]
	}
	return text, nil
}

// RequeueDetailFailed puts detail-failed records back in the pending
// queue and clears their ledger entries.
func (pl *Pipeline) RequeueDetailFailed(ctx context.Context, limit int) (int, error) {
	papers, err := pl.Store.RequeueDetailFailures(ctx, limit)
	if err != nil {
		return 0, err
	}
	for _, p := range papers {
		fmt.Fprintf(pl.Out, "requeued: %s\n", p.Title)
	}
	return len(papers), nil
}

// RequeueDownloadFailed puts download-failed records back in the queue.
// With clearMetadata the records drop back to pending for a fresh
// resolution and their on-disk artifacts are deleted, since the old
// document URL is presumed to be the problem.
func (pl *Pipeline) RequeueDownloadFailed(ctx context.Context, limit int, clearMetadata bool) (int, error) {
	papers, err := pl.Store.RequeueDownloadFailures(ctx, limit, clearMetadata)
	if err != nil {
		return 0, err
	}
	for _, p := range papers {
		if clearMetadata {
			os.Remove(pl.PDFPath(p))
			os.Remove(pl.TextPath(p))
		}
		fmt.Fprintf(pl.Out, "requeued: %s\n", p.Title)
	}
	return len(papers), nil
}
