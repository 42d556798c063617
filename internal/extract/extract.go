// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract converts retrieved PDF documents to plain text files.
// Extraction is layered: a layout-aware per-page pass is tried first and
// a whole-document fallback catches PDFs the primary pass cannot handle.
// A document that yields no text through either layer is a hard failure,
// never an empty output file.
package extract

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// ErrEmptyExtraction indicates the document produced no text through any
// extraction layer. The PDF may be scanned images or encrypted.
var ErrEmptyExtraction = errors.New("no text extracted from document")

var warnFlagsOnce sync.Once

// Result reports the outcome of one extraction.
type Result struct {
	// Skipped is true when the text file already existed.
	Skipped bool
	// UsedFallback is true when the layout-aware pass produced nothing
	// and the whole-document pass supplied the text.
	UsedFallback bool
	// Chars is the size of the normalized text written.
	Chars int
}

// ExtractText converts the PDF at pdfPath to normalized plain text at
// textPath. It is idempotent: an existing text file short-circuits with
// Skipped set. On any failure no file is left at textPath.
func ExtractText(pdfPath, textPath string, cfg types.ExtractConfig, w io.Writer) (Result, error) {
	if _, err := os.Stat(textPath); err == nil {
		return Result{Skipped: true}, nil
	}

	// Table and formula extraction never made it past flag parsing in
	// this layer; say so once per process instead of once per paper.
	if cfg.ExtractTables || cfg.ExtractFormulas {
		warnFlagsOnce.Do(func() {
			fmt.Fprintln(w, "warning: table and formula extraction are not supported; flags ignored")
		})
	}

	text, usedFallback, err := extractLayered(pdfPath)
	if err != nil {
		return Result{}, err
	}

	normalized := normalize(text)
	if normalized == "" {
		return Result{}, fmt.Errorf("%s: %w", filepath.Base(pdfPath), ErrEmptyExtraction)
	}

	if err := os.MkdirAll(filepath.Dir(textPath), 0o755); err != nil {
		return Result{}, fmt.Errorf("creating text directory: %w", err)
	}
	if err := os.WriteFile(textPath, []byte(normalized), 0o644); err != nil {
		os.Remove(textPath)
		return Result{}, fmt.Errorf("writing text file: %w", err)
	}
	return Result{UsedFallback: usedFallback, Chars: len(normalized)}, nil
}

// extractLayered runs the layout-aware pass and falls back to the
// whole-document pass when it yields nothing usable.
func extractLayered(pdfPath string) (text string, usedFallback bool, err error) {
	text, primaryErr := extractByRows(pdfPath)
	if primaryErr == nil && strings.TrimSpace(text) != "" {
		return text, false, nil
	}

	text, fallbackErr := extractPlain(pdfPath)
	if fallbackErr == nil && strings.TrimSpace(text) != "" {
		return text, true, nil
	}

	if primaryErr != nil {
		return "", false, fmt.Errorf("extracting text: %w", primaryErr)
	}
	if fallbackErr != nil {
		return "", false, fmt.Errorf("extracting text: %w", fallbackErr)
	}
	return "", false, nil
}

// extractByRows walks the document page by page, reading text rows in
// layout order. The pdf library panics on some malformed documents, so
// the whole pass runs under a recover.
func extractByRows(pdfPath string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			for _, word := range row.Content {
				b.WriteString(word.S)
				b.WriteByte(' ')
			}
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// extractPlain reads the whole document's text in one pass.
func extractPlain(pdfPath string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// normalize trims every line and drops blank ones, so downstream
// consumers see dense, stable text regardless of which layer produced it.
func normalize(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
