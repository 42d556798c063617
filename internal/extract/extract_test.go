// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// writeMinimalPDF assembles a one-page PDF containing the given text.
// Object offsets in the xref table are computed while writing, so the
// fixture stays a structurally valid document.
func writeMinimalPDF(t *testing.T, path, text string) {
	t.Helper()

	content := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefStart)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestExtractText(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "paper.pdf")
	textPath := filepath.Join(dir, "paper.txt")
	writeMinimalPDF(t, pdfPath, "Attention Is All You Need")

	res, err := ExtractText(pdfPath, textPath, types.ExtractConfig{}, os.Stderr)
	require.NoError(t, err)
	assert.False(t, res.Skipped, "fresh extraction reported as skipped")
	assert.NotZero(t, res.Chars)

	got, err := os.ReadFile(textPath)
	require.NoError(t, err)
	assert.Contains(t, string(got), "Attention")
}

func TestExtractTextIdempotentSkip(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "paper.txt")
	require.NoError(t, os.WriteFile(textPath, []byte("already extracted"), 0o644))

	// The PDF path does not even exist; an existing text file wins.
	res, err := ExtractText(filepath.Join(dir, "missing.pdf"), textPath, types.ExtractConfig{}, os.Stderr)
	require.NoError(t, err)
	assert.True(t, res.Skipped, "existing text file not reported as skipped")
}

func TestExtractTextNotAPDF(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "paper.pdf")
	textPath := filepath.Join(dir, "paper.txt")
	require.NoError(t, os.WriteFile(pdfPath, []byte("<html>not a pdf</html>"), 0o644))

	_, err := ExtractText(pdfPath, textPath, types.ExtractConfig{}, os.Stderr)
	require.Error(t, err)
	_, statErr := os.Stat(textPath)
	assert.True(t, os.IsNotExist(statErr), "text file exists after failed extraction")
}

func TestExtractTextEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "paper.pdf")
	textPath := filepath.Join(dir, "paper.txt")
	writeMinimalPDF(t, pdfPath, "")

	_, err := ExtractText(pdfPath, textPath, types.ExtractConfig{}, os.Stderr)
	require.ErrorIs(t, err, ErrEmptyExtraction)
	_, statErr := os.Stat(textPath)
	assert.True(t, os.IsNotExist(statErr), "text file exists after empty extraction")
}

func TestExtractTextMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := ExtractText(filepath.Join(dir, "missing.pdf"), filepath.Join(dir, "out.txt"),
		types.ExtractConfig{}, os.Stderr)
	assert.Error(t, err)
}

func TestExtractTextWarnsOnceForIgnoredFlags(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "paper.pdf")
	writeMinimalPDF(t, pdfPath, "Some Text")

	cfg := types.ExtractConfig{ExtractTables: true}
	var out bytes.Buffer
	for i := 0; i < 2; i++ {
		textPath := filepath.Join(dir, fmt.Sprintf("out-%d.txt", i))
		_, err := ExtractText(pdfPath, textPath, cfg, &out)
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, strings.Count(out.String(), "warning:"), 1,
		"ignored-flag warning must print at most once per process")
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims and drops blanks", "  line one  \n\n\t\nline two\n", "line one\nline two"},
		{"all blank", " \n\t\n ", ""},
		{"empty", "", ""},
		{"single line", "just this", "just this"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize(tt.in))
		})
	}
}
