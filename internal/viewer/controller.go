package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/docsight/mcp-pdf-highlighter/internal/document"
	"github.com/docsight/mcp-pdf-highlighter/internal/geometry"
	"github.com/docsight/mcp-pdf-highlighter/internal/highlight"
	"github.com/docsight/mcp-pdf-highlighter/internal/search"
)

// RenderFunc receives page renders for a view: the page number and the
// overlay regions to draw over it. Regions are nil outside overlay mode or
// before a search.
type RenderFunc func(view ViewID, page int, regions []highlight.Region)

// Controller owns the session state of one document: lifecycle, the two
// views, search results and result navigation, and the composed highlighted
// copy. It is the single source of truth; renderers receive read-only
// snapshots and report back only which page they drew.
//
// All methods are safe for concurrent use. Renders for the same view never
// overlap; while one runs, newer page requests for that view collapse to
// the latest one.
type Controller struct {
	loader     *document.Loader
	locator    *search.Locator
	renderer   *highlight.Renderer
	compositor *highlight.Compositor
	logger     *slog.Logger
	renderFn   RenderFunc

	color   highlight.Color
	opacity float64
	scale   float64
	dpr     float64

	mu      sync.Mutex
	state   State
	nav     NavigationState
	doc     *document.Document
	result  *search.Result
	version uint64

	// Composed copy, cached until the search, the color or the document
	// changes.
	highlighted      *document.Document
	highlightedBytes []byte
	composedVersion  uint64

	queues map[ViewID]*renderQueue
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithRenderFunc sets the sink for page renders.
func WithRenderFunc(fn RenderFunc) ControllerOption {
	return func(c *Controller) { c.renderFn = fn }
}

// WithColors sets the highlight and emphasis colors.
func WithColors(highlightColor, emphasis highlight.Color) ControllerOption {
	return func(c *Controller) {
		c.color = highlightColor
		c.renderer = highlight.NewRenderer(emphasis, c.opacity)
	}
}

// WithOpacity sets the fill opacity for non-active highlights.
func WithOpacity(opacity float64) ControllerOption {
	return func(c *Controller) {
		c.opacity = opacity
		c.renderer = highlight.NewRenderer(c.renderer.Emphasis(), opacity)
		c.compositor = highlight.NewCompositor(opacity)
	}
}

// WithViewportScale sets the render scale and device pixel ratio reported
// by the hosting surface.
func WithViewportScale(scale, devicePixelRatio float64) ControllerOption {
	return func(c *Controller) {
		if scale > 0 {
			c.scale = scale
		}
		if devicePixelRatio > 0 {
			c.dpr = devicePixelRatio
		}
	}
}

// WithControllerLogger sets a custom logger. Default is slog.Default().
func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController creates a controller in the no-document state.
func NewController(loader *document.Loader, opts ...ControllerOption) *Controller {
	c := &Controller{
		loader:     loader,
		locator:    search.NewLocator(),
		renderer:   highlight.NewRenderer(highlight.Orange, highlight.DefaultOpacity),
		compositor: highlight.NewCompositor(highlight.DefaultOpacity),
		logger:     slog.Default(),
		color:      highlight.Yellow,
		opacity:    highlight.DefaultOpacity,
		scale:      1,
		dpr:        1,
		state:      StateNoDocument,
		nav:        NavigationState{Mode: ModeOverlay},
		queues: map[ViewID]*renderQueue{
			ViewOriginal:    {},
			ViewHighlighted: {},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Navigation returns a snapshot of the navigation state.
func (c *Controller) Navigation() NavigationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav
}

// Document returns the loaded document, or nil.
func (c *Controller) Document() *document.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

// Result returns the current search result, or nil.
func (c *Controller) Result() *search.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// LoadFile loads the PDF at path and resets all search and navigation
// state. In-flight work computed against the previous document is discarded
// when it completes.
func (c *Controller) LoadFile(ctx context.Context, path string) error {
	doc, err := c.loader.LoadFile(ctx, path)
	if err != nil {
		return &InputError{Msg: "cannot load document", Err: err}
	}
	c.install(doc)
	return nil
}

// Load loads a PDF from raw bytes, keeping name as the document's display
// name.
func (c *Controller) Load(ctx context.Context, data []byte, name string) error {
	doc, err := c.loader.Load(ctx, data)
	if err != nil {
		return &InputError{Msg: "cannot load document", Err: err}
	}
	doc.Name = name
	c.install(doc)
	return nil
}

func (c *Controller) install(doc *document.Document) {
	c.mu.Lock()
	c.doc = doc
	c.result = nil
	c.highlighted = nil
	c.highlightedBytes = nil
	c.state = StateDocumentLoaded
	c.nav = NavigationState{Mode: c.nav.Mode, OriginalPage: 1}
	c.version++
	c.mu.Unlock()

	c.render(ViewOriginal, 1)
}

// Search runs a search over the loaded document. A successful search with
// at least one match enters the searched state, resets the global index to
// the first match and moves the active view to its page. Zero matches
// return a NoMatchError and clear any prior search so navigation is never
// left pointing at stale results.
func (c *Controller) Search(term string, caseSensitive bool) (*search.Result, error) {
	if strings.TrimSpace(term) == "" {
		return nil, &InputError{Msg: "empty search term"}
	}

	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return nil, ErrNoDocument
	}
	doc := c.doc
	c.mu.Unlock()

	result := c.locator.Search(doc, term, caseSensitive)

	c.mu.Lock()
	if c.doc != doc {
		// The document changed while searching; drop the result.
		c.mu.Unlock()
		return nil, ErrNoDocument
	}
	c.version++
	c.highlighted = nil
	c.highlightedBytes = nil

	if result.Empty() {
		c.result = nil
		c.state = StateDocumentLoaded
		c.nav.GlobalIndex = 0
		c.mu.Unlock()
		return nil, &NoMatchError{Term: term}
	}

	c.result = result
	c.state = StateSearched
	c.nav.GlobalIndex = 0
	page, _, _ := result.Resolve(0)
	view := c.moveToLocked(page)
	c.mu.Unlock()

	c.render(view, page)
	return result, nil
}

// NextResult advances to the next match, wrapping past the last match back
// to the first.
func (c *Controller) NextResult() (NavigationState, error) {
	return c.step(1)
}

// PreviousResult moves to the previous match, wrapping past the first match
// back to the last.
func (c *Controller) PreviousResult() (NavigationState, error) {
	return c.step(-1)
}

func (c *Controller) step(delta int) (NavigationState, error) {
	c.mu.Lock()
	if c.state != StateSearched || c.result == nil {
		nav := c.nav
		c.mu.Unlock()
		return nav, ErrNoResults
	}

	total := c.result.Total()
	c.nav.GlobalIndex = ((c.nav.GlobalIndex+delta)%total + total) % total
	page, _, ok := c.result.Resolve(c.nav.GlobalIndex)
	if !ok {
		nav := c.nav
		c.mu.Unlock()
		return nav, fmt.Errorf("result index %d not resolvable", c.nav.GlobalIndex)
	}
	view := c.moveToLocked(page)
	nav := c.nav
	c.mu.Unlock()

	c.render(view, page)
	return nav, nil
}

// moveToLocked points the mode's view at page and returns the view to
// render. Callers hold c.mu.
func (c *Controller) moveToLocked(page int) ViewID {
	if c.nav.Mode == ModeNewDocument {
		c.nav.HighlightedPage = page
		return ViewHighlighted
	}
	c.nav.OriginalPage = page
	return ViewOriginal
}

// ShowPage turns the given view to page n. Out-of-range pages are ignored;
// a double-click past the last page is not an error.
func (c *Controller) ShowPage(n int, view ViewID) {
	c.mu.Lock()
	count := c.pageCountLocked(view)
	if n < 1 || n > count {
		c.mu.Unlock()
		return
	}
	if view == ViewHighlighted {
		c.nav.HighlightedPage = n
	} else {
		c.nav.OriginalPage = n
	}
	c.mu.Unlock()

	c.render(view, n)
}

func (c *Controller) pageCountLocked(view ViewID) int {
	if view == ViewHighlighted {
		if c.highlighted == nil {
			return 0
		}
		return c.highlighted.PageCount
	}
	if c.doc == nil {
		return 0
	}
	return c.doc.PageCount
}

// SwitchMode switches the presentation mode. Entering new-document mode
// composes the highlighted copy first unless a current one is already
// cached; entering overlay mode re-renders the original view at its
// current page.
func (c *Controller) SwitchMode(ctx context.Context, mode Mode) error {
	if !mode.Valid() {
		return &InputError{Msg: fmt.Sprintf("unknown mode %q", mode)}
	}

	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return ErrNoDocument
	}
	c.nav.Mode = mode
	if mode == ModeOverlay {
		page := c.nav.OriginalPage
		c.mu.Unlock()
		c.render(ViewOriginal, page)
		return nil
	}
	c.mu.Unlock()

	if err := c.ensureComposed(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	if c.nav.HighlightedPage < 1 {
		c.nav.HighlightedPage = 1
	}
	page := c.nav.HighlightedPage
	c.mu.Unlock()

	c.render(ViewHighlighted, page)
	return nil
}

// SetColor changes the highlight color. A color change invalidates the
// cached highlighted copy.
func (c *Controller) SetColor(hex string) error {
	col, err := highlight.ParseHex(hex)
	if err != nil {
		return &InputError{Msg: "invalid highlight color", Err: err}
	}

	c.mu.Lock()
	if col != c.color {
		c.color = col
		c.highlighted = nil
		c.highlightedBytes = nil
	}
	mode := c.nav.Mode
	state := c.state
	page := c.nav.OriginalPage
	c.mu.Unlock()

	if mode == ModeOverlay && state == StateSearched {
		c.render(ViewOriginal, page)
	}
	return nil
}

// ClearHighlights drops the search result and the composed copy, returning
// to the document-loaded state. The document itself stays loaded.
func (c *Controller) ClearHighlights() {
	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return
	}
	c.result = nil
	c.highlighted = nil
	c.highlightedBytes = nil
	c.state = StateDocumentLoaded
	page := c.nav.OriginalPage
	c.nav = NavigationState{Mode: c.nav.Mode, OriginalPage: page}
	c.version++
	c.mu.Unlock()

	c.render(ViewOriginal, page)
}

// HighlightedBytes returns the composed highlighted PDF, producing it on
// demand. Repeated calls with unchanged search and color reuse the cached
// bytes.
func (c *Controller) HighlightedBytes(ctx context.Context) ([]byte, error) {
	if err := c.ensureComposed(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highlightedBytes, nil
}

// DownloadName returns the deterministic file name for the highlighted
// copy.
func (c *Controller) DownloadName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return highlight.HighlightedName("")
	}
	return highlight.HighlightedName(c.doc.Name)
}

// ensureComposed makes sure a current highlighted copy exists. On failure
// a previously composed copy, when still current, is left untouched.
func (c *Controller) ensureComposed(ctx context.Context) error {
	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return ErrNoDocument
	}
	if c.result == nil {
		c.mu.Unlock()
		return ErrNoResults
	}
	if c.highlighted != nil && c.composedVersion == c.version {
		c.mu.Unlock()
		return nil
	}
	doc := c.doc
	result := c.result
	col := c.color
	version := c.version
	c.mu.Unlock()

	data, err := c.compositor.Compose(doc, result, col)
	if err != nil {
		return err
	}
	composed, err := c.loader.Load(ctx, data)
	if err != nil {
		return &highlight.CompositionError{Stage: "reload", Err: err}
	}
	composed.Name = highlight.HighlightedName(doc.Name)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != version {
		// A newer search, color or document superseded this composition.
		c.logger.Debug("discarding stale composition", "document", doc.Name)
		return nil
	}
	c.highlighted = composed
	c.highlightedBytes = data
	c.composedVersion = version
	return nil
}

// Highlighted returns the parsed highlighted copy, or nil when none is
// composed.
func (c *Controller) Highlighted() *document.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highlighted
}

// OverlayRegions computes the overlay element list for a page of the
// original view, for callers driving their own surface.
func (c *Controller) OverlayRegions(page int) []highlight.Region {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overlayRegionsLocked(ViewOriginal, page)
}

func (c *Controller) overlayRegionsLocked(view ViewID, page int) []highlight.Region {
	if view != ViewOriginal || c.state != StateSearched || c.nav.Mode != ModeOverlay {
		return nil
	}
	p := c.doc.Page(page)
	if p == nil {
		return nil
	}
	matches := c.result.PageMatches(page)
	active := -1
	if activePage, local, ok := c.result.Resolve(c.nav.GlobalIndex); ok && activePage == page {
		active = local
	}
	return c.renderer.Render(p, matches, active, c.color, c.scale, c.dpr, geometry.UnitCSS)
}

// render drives the per-view queue: at most one render per view at a time,
// newer requests collapsing to the latest page.
func (c *Controller) render(view ViewID, page int) {
	q := c.queues[view]
	if !q.request(page) {
		return
	}
	for {
		c.renderOne(view, page)
		next, ok := q.done()
		if !ok {
			return
		}
		page = next
	}
}

// renderOne snapshots state, invokes the render sink outside the lock, and
// records the completion only if the state it was computed against is still
// current.
func (c *Controller) renderOne(view ViewID, page int) {
	c.mu.Lock()
	version := c.version
	regions := c.overlayRegionsLocked(view, page)
	fn := c.renderFn
	c.mu.Unlock()

	if fn != nil {
		fn(view, page, regions)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != version {
		c.logger.Debug("discarding stale render", "view", view, "page", page)
		return
	}
	if view == ViewHighlighted {
		c.nav.RenderedHighlighted = page
	} else {
		c.nav.RenderedOriginal = page
	}
}
