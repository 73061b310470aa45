package highlight

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/docsight/mcp-pdf-highlighter/internal/document"
	"github.com/docsight/mcp-pdf-highlighter/internal/geometry"
	"github.com/docsight/mcp-pdf-highlighter/internal/search"
)

// CompositionError reports a failure while baking highlights into a new
// document. The caller's previous highlighted document, if any, is left
// untouched.
type CompositionError struct {
	Stage string
	Err   error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("highlight composition failed during %s: %v", e.Stage, e.Err)
}

func (e *CompositionError) Unwrap() error {
	return e.Err
}

// Compositor produces an independent copy of a source PDF with translucent
// rectangles drawn over every match. The source bytes are never mutated;
// composing the same (document, result, color) triple is deterministic and
// may be safely repeated.
type Compositor struct {
	opacity float64
}

// NewCompositor creates a compositor drawing fills at the given opacity.
func NewCompositor(opacity float64) *Compositor {
	if opacity <= 0 || opacity > 1 {
		opacity = DefaultOpacity
	}
	return &Compositor{opacity: opacity}
}

// Compose imports every source page into a fresh document and draws a
// filled rectangle at each match's document-space box, adjusted for the
// page's rotation. Rectangles falling outside the page are clipped, or
// dropped entirely when nothing remains visible.
func (c *Compositor) Compose(src *document.Document, result *search.Result, col Color) ([]byte, error) {
	if src == nil || len(src.Raw) == 0 {
		return nil, &CompositionError{Stage: "load", Err: fmt.Errorf("no source document")}
	}

	// The page importer reads from a file path; stage the read-only
	// source bytes in a temp file.
	tmp, err := os.CreateTemp("", "highlight-src-*.pdf")
	if err != nil {
		return nil, &CompositionError{Stage: "load", Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(src.Raw); err != nil {
		tmp.Close()
		return nil, &CompositionError{Stage: "load", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &CompositionError{Stage: "load", Err: err}
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	// Fixed creation date keeps the output byte-identical across repeated
	// compositions of the same inputs.
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	imp := gofpdi.NewImporter()

	fillR, fillG, fillB := col.RGB()

	for pageNum := 1; pageNum <= src.PageCount; pageNum++ {
		tplID := imp.ImportPage(pdf, tmpPath, pageNum, "/MediaBox")
		pw, ph := importedPageSize(imp, pageNum)
		if pw == 0 || ph == 0 {
			if p := src.Page(pageNum); p != nil {
				pw, ph = p.Width, p.Height
			} else {
				pw, ph = 595.28, 841.89
			}
		}

		rot := 0
		if p := src.Page(pageNum); p != nil {
			rot = p.Rotation
		}
		vp := geometry.Viewport{PageWidth: pw, PageHeight: ph, Rotation: rot, Scale: 1, DevicePixelRatio: 1}
		cw, ch := vp.Size(geometry.UnitCSS)

		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: cw, Ht: ch})
		placeTemplate(pdf, imp, tplID, rot, pw, ph, cw, ch)

		matches := result.PageMatches(pageNum)
		if len(matches) == 0 {
			continue
		}

		pdf.SetFillColor(fillR, fillG, fillB)
		pdf.SetAlpha(c.opacity, "Normal")
		for _, m := range matches {
			view := geometry.ToView(m.Bounds, vp, geometry.UnitCSS)
			clipped, visible := geometry.Clip(view, cw, ch)
			if !visible {
				// An imprecise box estimate can land outside the
				// page; dropping it beats corrupting the visible
				// area.
				continue
			}
			pdf.Rect(clipped.X, clipped.Y, clipped.Width, clipped.Height, "F")
		}
		pdf.SetAlpha(1.0, "Normal")
	}

	if pdf.Err() {
		return nil, &CompositionError{Stage: "draw", Err: pdf.Error()}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &CompositionError{Stage: "serialize", Err: err}
	}
	out := buf.Bytes()

	if err := verifyPageCount(out, src.PageCount); err != nil {
		return nil, err
	}
	return out, nil
}

// placeTemplate draws the imported page onto the current output page,
// applying the source page's display rotation so baked highlights line up
// with what the viewer showed.
func placeTemplate(pdf *gofpdf.Fpdf, imp *gofpdi.Importer, tplID, rot int, pw, ph, cw, ch float64) {
	if rot == 0 {
		imp.UseImportedTemplate(pdf, tplID, 0, 0, pw, ph)
		return
	}
	// Center the unrotated template on the (possibly axis-swapped)
	// canvas, then rotate clockwise about the canvas center.
	pdf.TransformBegin()
	pdf.TransformRotate(float64(-rot), cw/2, ch/2)
	imp.UseImportedTemplate(pdf, tplID, (cw-pw)/2, (ch-ph)/2, pw, ph)
	pdf.TransformEnd()
}

// importedPageSize reads the imported page's MediaBox dimensions.
func importedPageSize(imp *gofpdi.Importer, pageNum int) (w, h float64) {
	sizes := imp.GetPageSizes()
	if dims, ok := sizes[pageNum]; ok {
		if mb, ok := dims["/MediaBox"]; ok {
			return mb["w"], mb["h"]
		}
	}
	return 0, 0
}

// verifyPageCount parses the composed bytes and confirms the copy carries
// the same page count as its source.
func verifyPageCount(data []byte, want int) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return &CompositionError{Stage: "verify", Err: err}
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return &CompositionError{Stage: "verify", Err: err}
	}
	if ctx.PageCount != want {
		return &CompositionError{
			Stage: "verify",
			Err:   fmt.Errorf("composed document has %d pages, source has %d", ctx.PageCount, want),
		}
	}
	return nil
}

// HighlightedName derives the download file name for a composed document
// from the source file name.
func HighlightedName(sourceName string) string {
	base := filepath.Base(sourceName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "document"
	}
	return stem + "_highlighted.pdf"
}
