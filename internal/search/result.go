package search

import (
	"github.com/docsight/mcp-pdf-highlighter/internal/geometry"
)

// Match is one occurrence of the search term on one page. Matches are
// immutable; every new search replaces the previous result set wholesale.
type Match struct {
	// PageNumber is the 1-based page the occurrence was found on.
	PageNumber int `json:"page_number"`

	// Text is the matched substring as it appears in the page text.
	Text string `json:"text"`

	// Start and End delimit the occurrence in the page's flattened text
	// (half-open byte range).
	Start int `json:"start"`
	End   int `json:"end"`

	// FirstRun and LastRun are the contiguous run-index range the match
	// spans; StartInRun/EndInRun are the intra-run byte offsets within
	// those two runs (EndInRun exclusive).
	FirstRun   int `json:"first_run"`
	LastRun    int `json:"last_run"`
	StartInRun int `json:"start_in_run"`
	EndInRun   int `json:"end_in_run"`

	// Bounds is the document-space bounding box of the occurrence,
	// y measured from the page's bottom-left origin. It is the
	// component-wise union of the spanned runs' boxes.
	Bounds geometry.Rect `json:"bounds"`
}

// PageResult is one page's ordered matches.
type PageResult struct {
	Page    int     `json:"page"`
	Matches []Match `json:"matches"`
}

// Result is the complete outcome of one search: page results in ascending
// page order, matches within a page in document order. A Result is
// immutable once built.
type Result struct {
	Term          string       `json:"term"`
	CaseSensitive bool         `json:"case_sensitive"`
	Pages         []PageResult `json:"pages"`
	total         int
}

// Total is the number of matches across all pages.
func (r *Result) Total() int {
	if r == nil {
		return 0
	}
	return r.total
}

// Empty reports whether the search produced no matches.
func (r *Result) Empty() bool {
	return r.Total() == 0
}

// Resolve maps a global result index (0-based, document order across all
// pages) to the page number and the match's position within that page.
func (r *Result) Resolve(global int) (page, local int, ok bool) {
	if r == nil || global < 0 || global >= r.total {
		return 0, 0, false
	}
	for _, pr := range r.Pages {
		if global < len(pr.Matches) {
			return pr.Page, global, true
		}
		global -= len(pr.Matches)
	}
	return 0, 0, false
}

// GlobalIndex is the inverse of Resolve: it maps (page, local) back to the
// global result index.
func (r *Result) GlobalIndex(page, local int) (int, bool) {
	if r == nil || local < 0 {
		return 0, false
	}
	global := 0
	for _, pr := range r.Pages {
		if pr.Page == page {
			if local >= len(pr.Matches) {
				return 0, false
			}
			return global + local, true
		}
		global += len(pr.Matches)
	}
	return 0, false
}

// MatchAt returns the match at the given global index.
func (r *Result) MatchAt(global int) (Match, bool) {
	page, local, ok := r.Resolve(global)
	if !ok {
		return Match{}, false
	}
	for _, pr := range r.Pages {
		if pr.Page == page {
			return pr.Matches[local], true
		}
	}
	return Match{}, false
}

// PageMatches returns the matches on the given page, or nil when the page
// holds none.
func (r *Result) PageMatches(page int) []Match {
	if r == nil {
		return nil
	}
	for _, pr := range r.Pages {
		if pr.Page == page {
			return pr.Matches
		}
	}
	return nil
}
