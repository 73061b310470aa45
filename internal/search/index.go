// Package search finds term occurrences in a document's per-page text runs
// and maps each occurrence back to a document-space bounding region.
package search

import (
	"sort"
	"strings"

	"github.com/docsight/mcp-pdf-highlighter/internal/document"
)

// PageIndex is the searchable form of one page: the page's runs flattened
// into a single string by plain concatenation (no separators), plus a prefix
// table giving each run's starting offset in that string.
//
// The index is cheap to build and is recomputed per page on demand; it is
// not retained across searches.
type PageIndex struct {
	page   *document.Page
	flat   string
	starts []int // len(runs)+1 entries; starts[len(runs)] == len(flat)
}

// BuildIndex flattens the page's runs. Empty runs contribute no characters;
// they occupy a zero-width slot in the prefix table and are never resolved
// as the owner of an offset.
func BuildIndex(page *document.Page) *PageIndex {
	var b strings.Builder
	starts := make([]int, 0, len(page.Runs)+1)
	for _, run := range page.Runs {
		starts = append(starts, b.Len())
		b.WriteString(run.Text)
	}
	starts = append(starts, b.Len())
	return &PageIndex{page: page, flat: b.String(), starts: starts}
}

// Text returns the flattened page text.
func (ix *PageIndex) Text() string {
	return ix.flat
}

// RunAt returns the index of the run containing byte offset off.
// Zero-length runs can never own an offset.
func (ix *PageIndex) RunAt(off int) (int, bool) {
	n := len(ix.page.Runs)
	if n == 0 || off < 0 || off >= len(ix.flat) {
		return 0, false
	}
	// First run whose end offset lies past off; zero-width runs collapse
	// to starts[i] == starts[i+1] and are skipped by the strict compare.
	i := sort.Search(n, func(i int) bool { return ix.starts[i+1] > off })
	if i == n {
		return 0, false
	}
	return i, true
}

// RunRange resolves the half-open offset range [start, end) to the
// contiguous run-index range it spans.
func (ix *PageIndex) RunRange(start, end int) (first, last int, ok bool) {
	if end <= start {
		return 0, 0, false
	}
	first, ok = ix.RunAt(start)
	if !ok {
		return 0, 0, false
	}
	last, ok = ix.RunAt(end - 1)
	if !ok {
		return 0, 0, false
	}
	return first, last, true
}

// RunStart returns the flattened-text offset at which run i begins.
func (ix *PageIndex) RunStart(i int) int {
	return ix.starts[i]
}
