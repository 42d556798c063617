// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves resolved documents over HTTP with hard size and
// wall-clock bounds. Every failure is classified into a Kind so the caller
// can record a structured reason and decide requeue policy; no partial
// file is ever left at the destination path.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/pdiddy/survey-engine/internal/httputil"
	"github.com/pdiddy/survey-engine/pkg/types"
)

// Kind classifies a retrieval failure. The string values double as the
// reason recorded in the download failure ledger.
type Kind string

const (
	// KindNone means the retrieval succeeded or was skipped.
	KindNone Kind = ""
	// KindTimeout means the wall-clock bound elapsed before the body
	// finished. Transient; eligible for bounded retry.
	KindTimeout Kind = "timeout"
	// KindOversize means the body exceeded the size bound. Deterministic;
	// never retried.
	KindOversize Kind = "oversize"
	// KindBadContentType means the server returned something other than a
	// PDF, or the downloaded bytes failed structural validation.
	KindBadContentType Kind = "bad-content-type"
	// KindTransport covers everything else: DNS, TLS, connection resets,
	// non-200 status codes.
	KindTransport Kind = "transport"
)

var (
	errTimeout        = errors.New("download timed out")
	errOversize       = errors.New("document exceeds size limit")
	errBadContentType = errors.New("response is not a PDF")
)

// Result reports the outcome of one retrieval.
type Result struct {
	// Skipped is true when the destination already existed and the
	// download was not attempted.
	Skipped bool
	// Kind classifies the failure; KindNone on success.
	Kind Kind
	// Err carries the underlying failure, nil on success.
	Err error
}

// validatePDF checks the downloaded bytes are structurally a PDF.
// Declared as a var so tests can substitute fixture-free validation.
var validatePDF = func(path string) error {
	return api.ValidateFile(path, nil)
}

func failure(err error) Result {
	return Result{Kind: classify(err), Err: err}
}

// classify maps an error to its failure Kind.
func classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, errTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, errOversize):
		return KindOversize
	case errors.Is(err, errBadContentType):
		return KindBadContentType
	default:
		return KindTransport
	}
}

// Retrieve downloads url to destPath. It is idempotent: an existing
// destination short-circuits with Skipped set. The download streams
// through a temporary file in the destination directory and is promoted
// by rename only after the content-type gate, the size and wall-clock
// bounds, and structural PDF validation have all passed. Timeouts are
// retried up to cfg.MaxTimeoutRetries additional attempts; every other
// failure kind is terminal for this call.
func Retrieve(ctx context.Context, client *http.Client, url, destPath string, cfg types.FetchConfig) Result {
	if _, err := os.Stat(destPath); err == nil {
		return Result{Skipped: true}
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return failure(fmt.Errorf("creating document directory: %w", err))
	}

	attempts := uint(1 + cfg.MaxTimeoutRetries)
	if attempts < 1 {
		attempts = 1
	}

	err := retry.Do(
		func() error { return download(ctx, client, url, destPath, cfg) },
		retry.Attempts(attempts),
		retry.RetryIf(func(err error) bool { return classify(err) == KindTimeout }),
		retry.LastErrorOnly(true),
		retry.Delay(time.Second),
		retry.Context(ctx),
	)
	if err != nil {
		return failure(err)
	}

	// A 200 with an HTML error page behind a PDF content type is common
	// enough that the bytes themselves get the final say.
	if err := validatePDF(destPath); err != nil {
		os.Remove(destPath)
		return failure(fmt.Errorf("%w: %v", errBadContentType, err))
	}
	return Result{}
}

// download performs a single bounded attempt.
func download(ctx context.Context, client *http.Client, url, destPath string, cfg types.FetchConfig) error {
	maxDuration := cfg.MaxDuration
	if maxDuration <= 0 {
		maxDuration = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, maxDuration)
	defer cancel()

	req, err := httputil.NewRequest(ctx, url, cfg.UserAgent)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	if !acceptableContentType(resp.Header.Get("Content-Type")) {
		return fmt.Errorf("%w: Content-Type %q", errBadContentType, resp.Header.Get("Content-Type"))
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	copyErr := boundedCopy(ctx, tmpFile, resp.Body, cfg.MaxSizeBytes)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return copyErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// boundedCopy streams body to dst in chunks, enforcing the byte bound as
// bytes arrive so an unbounded body never fills the disk. The wall-clock
// bound rides on the request context: a stalled read fails with the
// context's deadline error.
func boundedCopy(ctx context.Context, dst io.Writer, body io.Reader, maxBytes int64) error {
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			written += int64(n)
			if maxBytes > 0 && written > maxBytes {
				return fmt.Errorf("%w (limit %d bytes)", errOversize, maxBytes)
			}
			if _, err := dst.Write(buf[:n]); err != nil {
				return fmt.Errorf("writing download: %w", err)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %v", errTimeout, readErr)
			}
			return fmt.Errorf("reading download: %w", readErr)
		}
	}
}

// acceptableContentType gates the response before any body bytes are
// consumed. Some mirrors serve PDFs as octet-stream, so both are allowed.
func acceptableContentType(contentType string) bool {
	mediaType := contentType
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))
	return mediaType == "application/pdf" || mediaType == "application/octet-stream"
}
