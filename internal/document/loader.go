package document

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/panjf2000/ants/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const defaultRunHeight = 12.0 // fallback when a run carries no font size

// Loader parses PDF bytes into the Document model. Page content streams are
// extracted on a worker pool and reassembled in page order, so callers
// always observe pages 1..N in ascending order.
type Loader struct {
	maxFileSize int64
	cache       RunCache
	pool        *ants.Pool
	logger      *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithCache sets a run cache consulted before content-stream parsing.
func WithCache(cache RunCache) Option {
	return func(l *Loader) { l.cache = cache }
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader enforcing the given file size limit.
func NewLoader(maxFileSize int64, opts ...Option) (*Loader, error) {
	poolSize := runtime.NumCPU()
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction pool: %w", err)
	}

	l := &Loader{
		maxFileSize: maxFileSize,
		pool:        pool,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Close releases the extraction pool.
func (l *Loader) Close() {
	l.pool.Release()
}

// LoadFile reads and parses the PDF at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Document, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return nil, fmt.Errorf("file is not a PDF: %s", path)
	}
	if l.maxFileSize > 0 && info.Size() > l.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), l.maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	doc, err := l.Load(ctx, data)
	if err != nil {
		return nil, err
	}
	doc.Path = path
	doc.Name = filepath.Base(path)
	return doc, nil
}

// Load parses raw PDF bytes into a Document. The input slice is retained as
// Document.Raw and treated as read-only from then on.
func (l *Loader) Load(ctx context.Context, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("document is empty")
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("not a PDF document (missing %%PDF header)")
	}
	if l.maxFileSize > 0 && int64(len(data)) > l.maxFileSize {
		return nil, fmt.Errorf("document too large: %d bytes (max: %d bytes)", len(data), l.maxFileSize)
	}

	// Structural validation via pdfcpu before touching content streams.
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pdfctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}
	if err := pdfctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}

	digest := sha256.Sum256(data)
	doc := &Document{
		Fingerprint: hex.EncodeToString(digest[:]),
		PageCount:   pdfctx.PageCount,
		Raw:         data,
	}

	if l.cache != nil {
		if pages, ok := l.cache.Get(doc.Fingerprint); ok && len(pages) == doc.PageCount {
			doc.Pages = pages
			return doc, nil
		}
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	if n := reader.NumPage(); n != doc.PageCount {
		// Trust the text-extraction reader; pdfcpu already vouched for
		// structure.
		doc.PageCount = n
	}

	pages, err := l.extractPages(ctx, reader)
	if err != nil {
		return nil, err
	}
	doc.Pages = pages

	if l.cache != nil {
		if err := l.cache.Put(doc.Fingerprint, pages); err != nil {
			l.logger.Warn("failed to cache extracted runs", "error", err)
		}
	}
	return doc, nil
}

// extractPages fans page extraction out on the worker pool and reassembles
// results in page order.
func (l *Loader) extractPages(ctx context.Context, reader *pdf.Reader) ([]Page, error) {
	n := reader.NumPage()
	pages := make([]Page, n)

	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageNum := i
		wg.Add(1)
		if err := l.pool.Submit(func() {
			defer wg.Done()
			pages[pageNum-1] = l.extractPage(reader, pageNum)
		}); err != nil {
			wg.Done()
			return nil, fmt.Errorf("failed to schedule page %d: %w", pageNum, err)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pages, nil
}

// extractPage builds the Page model for a single page. Content-stream
// parsing can panic on malformed input; a panic yields a page with
// dimensions but no runs rather than aborting the whole load.
func (l *Loader) extractPage(reader *pdf.Reader, pageNum int) (page Page) {
	page = Page{Number: pageNum, Width: 612, Height: 792}

	// The result is named so the recover path returns the page identity
	// and dimensions gathered before the panic.
	defer func() {
		if r := recover(); r != nil {
			l.logger.Warn("text extraction failed", "page", pageNum, "panic", r)
			page.Runs = nil
		}
	}()

	p := reader.Page(pageNum)
	if p.V.IsNull() {
		return page
	}

	if w, h, ok := mediaBox(p.V); ok {
		page.Width = w
		page.Height = h
	}
	page.Rotation = rotation(p.V)

	content := p.Content()
	runs := make([]TextRun, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		runs = append(runs, newRun(t))
	}
	page.Runs = runs
	return page
}

// newRun converts an extracted text fragment into a TextRun, estimating the
// missing metrics from the font scale where the library provides none.
func newRun(t pdf.Text) TextRun {
	run := TextRun{
		Text:     t.S,
		X:        t.X,
		Y:        t.Y,
		Width:    t.W,
		Height:   t.FontSize,
		Font:     t.Font,
		FontSize: t.FontSize,
	}
	run.HasGeometry = t.W > 0 || t.FontSize > 0
	if run.Height == 0 {
		run.Height = defaultRunHeight
	}
	if run.Width == 0 && t.FontSize > 0 {
		// Rough advance estimate from the scale component: half an em
		// per character.
		run.Width = t.FontSize * 0.5 * float64(len([]rune(t.S)))
	}
	return run
}

// mediaBox resolves the page's MediaBox, walking up the page tree for
// inherited values.
func mediaBox(page pdf.Value) (w, h float64, ok bool) {
	for v := page; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.IsNull() || box.Len() < 4 {
			continue
		}
		x0 := box.Index(0).Float64()
		y0 := box.Index(1).Float64()
		x1 := box.Index(2).Float64()
		y1 := box.Index(3).Float64()
		if x1 > x0 && y1 > y0 {
			return x1 - x0, y1 - y0, true
		}
	}
	return 0, 0, false
}

// rotation resolves the page's Rotate entry, walking up the page tree for
// inherited values. The result is normalized to 0, 90, 180 or 270.
func rotation(page pdf.Value) int {
	for v := page; !v.IsNull(); v = v.Key("Parent") {
		rot := v.Key("Rotate")
		if rot.IsNull() {
			continue
		}
		deg := int(rot.Int64()) % 360
		if deg < 0 {
			deg += 360
		}
		return deg - deg%90
	}
	return 0
}
