package search

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/docsight/mcp-pdf-highlighter/internal/document"
	"github.com/docsight/mcp-pdf-highlighter/internal/geometry"
)

// Locator finds term occurrences per page and derives a document-space
// bounding box for each.
type Locator struct {
	logger *slog.Logger
}

// NewLocator creates a match locator.
func NewLocator() *Locator {
	return &Locator{logger: slog.Default()}
}

// Search runs Locate over every page of the document in ascending page
// order and assembles the result. A page's matches are fully computed
// before the next page begins, so page results are always emitted in page
// order. An empty term yields an empty result without error.
func (l *Locator) Search(doc *document.Document, term string, caseSensitive bool) *Result {
	result := &Result{Term: term, CaseSensitive: caseSensitive}
	if term == "" {
		return result
	}
	for i := range doc.Pages {
		matches := l.Locate(&doc.Pages[i], term, caseSensitive)
		if len(matches) == 0 {
			continue
		}
		result.Pages = append(result.Pages, PageResult{Page: doc.Pages[i].Number, Matches: matches})
		result.total += len(matches)
	}
	return result
}

// Locate finds all non-overlapping occurrences of term on the page, in
// document order. Occurrences that cannot be geometrically located (every
// spanned run lacks a transform) are logged at debug level and dropped;
// locatable occurrences on the same page are still reported.
func (l *Locator) Locate(page *document.Page, term string, caseSensitive bool) []Match {
	if term == "" {
		return nil
	}

	ix := BuildIndex(page)
	hay := ix.Text()
	needle := term
	var foldOffsets []int
	if !caseSensitive {
		hay, foldOffsets = foldLower(hay)
		needle = strings.ToLower(needle)
	}
	if needle == "" || hay == "" {
		return nil
	}

	var matches []Match
	for from := 0; ; {
		rel := strings.Index(hay[from:], needle)
		if rel < 0 {
			break
		}
		start := from + rel
		end := start + len(needle)
		from = end // forward scan resumes past the match; no overlaps

		origStart, origEnd := start, end
		if foldOffsets != nil {
			origStart, origEnd = foldOffsets[start], foldOffsets[end]
		}
		m, ok := l.buildMatch(ix, page, origStart, origEnd)
		if !ok {
			l.logger.Debug("dropping match without geometry",
				"page", page.Number, "offset", origStart, "term", term)
			continue
		}
		matches = append(matches, m)
	}
	return matches
}

// foldLower lowercases s rune by rune and returns an offset table mapping
// every byte position in the folded string (plus the terminating position)
// back to the byte position of the owning rune in s. Lowercasing can change
// a rune's byte length, so folded offsets must not index s directly.
func foldLower(s string) (string, []int) {
	var b strings.Builder
	b.Grow(len(s))
	offsets := make([]int, 0, len(s)+1)
	for i, r := range s {
		lower := unicode.ToLower(r)
		for n := utf8.RuneLen(lower); n > 0; n-- {
			offsets = append(offsets, i)
		}
		b.WriteRune(lower)
	}
	offsets = append(offsets, len(s))
	return b.String(), offsets
}

// buildMatch resolves the offset range to its run span and computes the
// union bounding box across the spanned runs.
func (l *Locator) buildMatch(ix *PageIndex, page *document.Page, start, end int) (Match, bool) {
	first, last, ok := ix.RunRange(start, end)
	if !ok {
		return Match{}, false
	}

	var bounds geometry.Rect
	located := false
	for i := first; i <= last; i++ {
		run := page.Runs[i]
		if !run.HasGeometry {
			continue
		}
		if !located {
			bounds = run.Bounds()
			located = true
			continue
		}
		bounds = geometry.Union(bounds, run.Bounds())
	}
	if !located {
		return Match{}, false
	}

	return Match{
		PageNumber: page.Number,
		Text:       ix.Text()[start:end],
		Start:      start,
		End:        end,
		FirstRun:   first,
		LastRun:    last,
		StartInRun: start - ix.RunStart(first),
		EndInRun:   end - ix.RunStart(last),
		Bounds:     bounds,
	}, true
}
