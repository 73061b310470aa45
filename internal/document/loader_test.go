package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixturePDF(t *testing.T, pageTexts ...string) []byte {
	t.Helper()

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for _, text := range pageTexts {
		pdf.AddPage()
		pdf.Text(72, 100, text)
	}

	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func newTestLoader(t *testing.T, opts ...Option) *Loader {
	t.Helper()

	loader, err := NewLoader(64<<20, opts...)
	require.NoError(t, err)
	t.Cleanup(loader.Close)
	return loader
}

func TestLoad_SinglePage(t *testing.T) {
	loader := newTestLoader(t)

	doc, err := loader.Load(context.Background(), fixturePDF(t, "Hello World"))
	require.NoError(t, err)

	assert.Equal(t, 1, doc.PageCount)
	require.Len(t, doc.Pages, 1)
	assert.NotEmpty(t, doc.Fingerprint)
	assert.NotEmpty(t, doc.Raw)

	page := doc.Page(1)
	require.NotNil(t, page)
	assert.Equal(t, 1, page.Number)
	// A4 in points.
	assert.InDelta(t, 595.28, page.Width, 0.5)
	assert.InDelta(t, 841.89, page.Height, 0.5)
	assert.Equal(t, 0, page.Rotation)

	var joined strings.Builder
	for _, run := range page.Runs {
		joined.WriteString(run.Text)
	}
	assert.Contains(t, joined.String(), "Hello")
	for _, run := range page.Runs {
		assert.True(t, run.HasGeometry)
		assert.Positive(t, run.Height)
	}
}

func TestLoad_MultiPageOrder(t *testing.T) {
	loader := newTestLoader(t)

	doc, err := loader.Load(context.Background(), fixturePDF(t, "alpha", "beta", "gamma"))
	require.NoError(t, err)

	require.Equal(t, 3, doc.PageCount)
	require.Len(t, doc.Pages, 3)
	for i, page := range doc.Pages {
		assert.Equal(t, i+1, page.Number)
	}
}

func TestLoad_StableFingerprint(t *testing.T) {
	loader := newTestLoader(t)
	data := fixturePDF(t, "same bytes")

	a, err := loader.Load(context.Background(), data)
	require.NoError(t, err)
	b, err := loader.Load(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint, b.Fingerprint)
}

func TestLoad_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr string
	}{
		{"empty", nil, "empty"},
		{"not a pdf", []byte("plain text, no header"), "missing %PDF header"},
		{"truncated header only", []byte("%PDF-1.7\n"), "failed to parse"},
	}

	loader := newTestLoader(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.Load(context.Background(), tt.data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// brokenContentPDF hand-builds a single-page document whose content stream
// carries a Tj operator with no operand, so text extraction panics mid-parse
// while the document structure itself is valid.
func brokenContentPDF(t *testing.T) []byte {
	t.Helper()

	content := "BT /F1 12 Tf 72 700 Td Tj ET"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
			"/Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects)+1)
	for i, body := range objects {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xref)
	return buf.Bytes()
}

func TestLoad_BrokenContentStreamKeepsPageIdentity(t *testing.T) {
	loader := newTestLoader(t)

	doc, err := loader.Load(context.Background(), brokenContentPDF(t))
	require.NoError(t, err)

	require.Equal(t, 1, doc.PageCount)
	page := doc.Page(1)
	require.NotNil(t, page)
	assert.Equal(t, 1, page.Number)
	assert.InDelta(t, 612.0, page.Width, 1e-9)
	assert.InDelta(t, 792.0, page.Height, 1e-9)
	assert.Empty(t, page.Runs)
}

func TestLoad_SizeLimit(t *testing.T) {
	loader, err := NewLoader(16)
	require.NoError(t, err)
	defer loader.Close()

	_, err = loader.Load(context.Background(), fixturePDF(t, "over the limit"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoad_CanceledContext(t *testing.T) {
	loader := newTestLoader(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.Load(ctx, fixturePDF(t, "never extracted"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.pdf")
	require.NoError(t, os.WriteFile(path, fixturePDF(t, "from disk"), 0o644))

	loader := newTestLoader(t)
	doc, err := loader.LoadFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, path, doc.Path)
	assert.Equal(t, "fixture.pdf", doc.Name)
	assert.Equal(t, 1, doc.PageCount)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	notPDF := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notPDF, []byte("text"), 0o644))

	loader := newTestLoader(t)

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"missing file", filepath.Join(dir, "absent.pdf"), "does not exist"},
		{"directory", dir, "directory"},
		{"wrong extension", notPDF, "not a PDF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.LoadFile(context.Background(), tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

type recordingCache struct {
	pages map[string][]Page
	gets  int
	puts  int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{pages: make(map[string][]Page)}
}

func (c *recordingCache) Get(fingerprint string) ([]Page, bool) {
	c.gets++
	pages, ok := c.pages[fingerprint]
	return pages, ok
}

func (c *recordingCache) Put(fingerprint string, pages []Page) error {
	c.puts++
	c.pages[fingerprint] = pages
	return nil
}

func TestLoad_CacheRoundTrip(t *testing.T) {
	cache := newRecordingCache()
	loader := newTestLoader(t, WithCache(cache))
	data := fixturePDF(t, "cached once")

	first, err := loader.Load(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.puts)

	second, err := loader.Load(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.puts)
	assert.Equal(t, 2, cache.gets)
	assert.Equal(t, first.Pages, second.Pages)
}

func TestPage_OutOfRange(t *testing.T) {
	loader := newTestLoader(t)
	doc, err := loader.Load(context.Background(), fixturePDF(t, "one page"))
	require.NoError(t, err)

	assert.Nil(t, doc.Page(0))
	assert.Nil(t, doc.Page(2))
}
