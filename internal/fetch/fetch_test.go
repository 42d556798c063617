// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// stubValidation replaces structural PDF validation for the duration of a
// test so fixtures do not need to be real PDFs.
func stubValidation(t *testing.T, err error) {
	t.Helper()
	old := validatePDF
	validatePDF = func(string) error { return err }
	t.Cleanup(func() { validatePDF = old })
}

func testCfg() types.FetchConfig {
	return types.FetchConfig{
		HTTPConfig:   types.HTTPConfig{UserAgent: "survey-engine-test"},
		MaxSizeBytes: 1 << 20,
		MaxDuration:  5 * time.Second,
	}
}

// assertNoResidue fails if the destination file or any temp file survived
// a failed retrieval.
func assertNoResidue(t *testing.T, destPath string) {
	t.Helper()
	_, err := os.Stat(destPath)
	assert.True(t, os.IsNotExist(err), "destination %s exists after failure", destPath)
	tmps, _ := filepath.Glob(filepath.Join(filepath.Dir(destPath), ".fetch-*.tmp"))
	assert.Empty(t, tmps, "temp files left behind")
}

func TestRetrieveSuccess(t *testing.T) {
	stubValidation(t, nil)
	body := "%PDF-1.4 fake document body"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, body)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "1706.03762.pdf")
	res := Retrieve(context.Background(), ts.Client(), ts.URL, dest, testCfg())
	require.NoError(t, res.Err)
	assert.False(t, res.Skipped, "fresh download reported as skipped")

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestRetrieveIdempotentSkip(t *testing.T) {
	requests := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "existing.pdf")
	require.NoError(t, os.WriteFile(dest, []byte("already here"), 0o644))

	res := Retrieve(context.Background(), ts.Client(), ts.URL, dest, testCfg())
	require.NoError(t, res.Err)
	assert.True(t, res.Skipped, "existing destination not reported as skipped")
	assert.Zero(t, requests, "no network call on skip")
}

func TestRetrieveOctetStreamAccepted(t *testing.T) {
	stubValidation(t, nil)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream; charset=binary")
		fmt.Fprint(w, "%PDF-1.4 bytes")
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "doc.pdf")
	res := Retrieve(context.Background(), ts.Client(), ts.URL, dest, testCfg())
	require.NoError(t, res.Err)
}

func TestRetrieveBadContentType(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>Please sign in</body></html>")
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "doc.pdf")
	res := Retrieve(context.Background(), ts.Client(), ts.URL, dest, testCfg())
	assert.Equal(t, KindBadContentType, res.Kind)
	assertNoResidue(t, dest)
}

func TestRetrieveFailedValidation(t *testing.T) {
	stubValidation(t, fmt.Errorf("pdfcpu: invalid xref table"))
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "<html>an error page wearing a PDF content type</html>")
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "doc.pdf")
	res := Retrieve(context.Background(), ts.Client(), ts.URL, dest, testCfg())
	assert.Equal(t, KindBadContentType, res.Kind)
	assertNoResidue(t, dest)
}

func TestRetrieveOversize(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, strings.Repeat("x", 4096))
	}))
	defer ts.Close()

	cfg := testCfg()
	cfg.MaxSizeBytes = 1024

	dest := filepath.Join(t.TempDir(), "doc.pdf")
	res := Retrieve(context.Background(), ts.Client(), ts.URL, dest, cfg)
	assert.Equal(t, KindOversize, res.Kind)
	assertNoResidue(t, dest)
}

func TestRetrieveTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "doc.pdf")
	res := Retrieve(context.Background(), ts.Client(), ts.URL, dest, testCfg())
	assert.Equal(t, KindTransport, res.Kind)
	assertNoResidue(t, dest)
}

func TestRetrieveTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer ts.Close()

	cfg := testCfg()
	cfg.MaxDuration = 100 * time.Millisecond

	dest := filepath.Join(t.TempDir(), "doc.pdf")
	res := Retrieve(context.Background(), ts.Client(), ts.URL, dest, cfg)
	assert.Equal(t, KindTimeout, res.Kind)
	assertNoResidue(t, dest)
}

func TestRetrieveTimeoutRetrySucceeds(t *testing.T) {
	stubValidation(t, nil)
	requests := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			time.Sleep(2 * time.Second)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4 second try")
	}))
	defer ts.Close()

	cfg := testCfg()
	cfg.MaxDuration = 200 * time.Millisecond
	cfg.MaxTimeoutRetries = 1

	dest := filepath.Join(t.TempDir(), "doc.pdf")
	res := Retrieve(context.Background(), ts.Client(), ts.URL, dest, cfg)
	require.NoError(t, res.Err, "second attempt should succeed")
	assert.Equal(t, 2, requests)
}

func TestRetrieveTransportNotRetried(t *testing.T) {
	requests := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	cfg := testCfg()
	cfg.MaxTimeoutRetries = 3

	dest := filepath.Join(t.TempDir(), "doc.pdf")
	res := Retrieve(context.Background(), ts.Client(), ts.URL, dest, cfg)
	assert.Equal(t, KindTransport, res.Kind)
	assert.Equal(t, 1, requests, "transport failures are terminal")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"timeout sentinel", fmt.Errorf("wrapped: %w", errTimeout), KindTimeout},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"oversize", fmt.Errorf("wrapped: %w", errOversize), KindOversize},
		{"content type", fmt.Errorf("wrapped: %w", errBadContentType), KindBadContentType},
		{"anything else", fmt.Errorf("connection reset"), KindTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}
