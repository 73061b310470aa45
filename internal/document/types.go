// Package document models a parsed PDF as ordered pages of positioned text
// runs, and loads that model from raw PDF bytes.
package document

import (
	"github.com/docsight/mcp-pdf-highlighter/internal/geometry"
)

// TextRun is the smallest atomic unit of page text: a literal string plus
// its position and size in document user-space (origin bottom-left).
// Runs are immutable once extracted and owned by their page.
type TextRun struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Font     string  `json:"font,omitempty"`
	FontSize float64 `json:"font_size,omitempty"`

	// HasGeometry is false when the run carried no usable transform.
	// Such runs still contribute characters to the page text but cannot
	// be located on the page.
	HasGeometry bool `json:"has_geometry"`
}

// Bounds returns the run's document-space bounding box.
func (r TextRun) Bounds() geometry.Rect {
	return geometry.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// Page is an ordered sequence of text runs plus the page dimensions and
// rotation. Page numbers are 1-based and stable for the life of the
// document.
type Page struct {
	Number   int       `json:"number"`
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
	Rotation int       `json:"rotation"` // 0, 90, 180 or 270, clockwise
	Runs     []TextRun `json:"runs"`
}

// Viewport returns the geometry viewport for this page at the given render
// parameters.
func (p *Page) Viewport(scale, devicePixelRatio float64) geometry.Viewport {
	return geometry.Viewport{
		PageWidth:        p.Width,
		PageHeight:       p.Height,
		Rotation:         p.Rotation,
		Scale:            scale,
		DevicePixelRatio: devicePixelRatio,
	}
}

// Document is a fully parsed source PDF. Raw holds the original bytes; they
// are read-only and shared with the highlight compositor, which never
// mutates them.
type Document struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint"` // hex content digest
	PageCount   int    `json:"page_count"`
	Pages       []Page `json:"pages"`
	Raw         []byte `json:"-"`
}

// Page returns the 1-based page n, or nil when n is out of range.
func (d *Document) Page(n int) *Page {
	if n < 1 || n > len(d.Pages) {
		return nil
	}
	return &d.Pages[n-1]
}

// RunCache stores extracted pages keyed by document fingerprint so repeated
// loads of the same bytes skip content-stream parsing.
type RunCache interface {
	Get(fingerprint string) ([]Page, bool)
	Put(fingerprint string, pages []Page) error
}
