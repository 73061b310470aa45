package highlight

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/docsight/mcp-pdf-highlighter/internal/document"
	"github.com/docsight/mcp-pdf-highlighter/internal/geometry"
	"github.com/docsight/mcp-pdf-highlighter/internal/search"
)

// Region is one overlay element: a view-space rectangle with its fill color
// and opacity. The region covering the active match is flagged and drawn in
// the emphasis color at full opacity.
type Region struct {
	Rect    geometry.Rect `json:"rect"`
	Color   Color         `json:"color"`
	Opacity float64       `json:"opacity"`
	Active  bool          `json:"active"`
}

// Surface is a 2D drawing target for overlay regions. Implementations
// decide what a pixel is; the renderer only hands over rectangles.
type Surface interface {
	// Clear removes everything previously drawn on the surface.
	Clear()
	// FillRect fills a view-space rectangle with the color at the given
	// opacity.
	FillRect(r geometry.Rect, c Color, opacity float64)
}

// Renderer computes overlay regions for the currently rendered viewport.
// It never touches the source document; output is purely visual.
type Renderer struct {
	emphasis Color
	opacity  float64
}

// NewRenderer creates an overlay renderer. The emphasis color marks the
// active match; all other matches use the caller-selected highlight color
// at the configured opacity.
func NewRenderer(emphasis Color, opacity float64) *Renderer {
	if opacity <= 0 || opacity > 1 {
		opacity = DefaultOpacity
	}
	return &Renderer{emphasis: emphasis, opacity: opacity}
}

// Emphasis returns the active-match color.
func (r *Renderer) Emphasis() Color {
	return r.emphasis
}

// Render maps every match on the page into view space and returns the full
// replacement region list. activeIndex is the page-local index of the match
// to emphasize, or -1 for none. Calling Render again with the same
// arguments yields the same regions; callers replace, never append.
//
// unit follows the dual pixel convention: UnitCSS for DOM-style element
// overlays, UnitDevice when drawing into a raster surface.
func (r *Renderer) Render(page *document.Page, matches []search.Match, activeIndex int,
	c Color, scale, devicePixelRatio float64, unit geometry.Unit,
) []Region {
	if page == nil || len(matches) == 0 {
		return nil
	}

	vp := page.Viewport(scale, devicePixelRatio)
	regions := make([]Region, 0, len(matches))
	for i, m := range matches {
		region := Region{
			Rect:    geometry.ToView(m.Bounds, vp, unit),
			Color:   c,
			Opacity: r.opacity,
		}
		if i == activeIndex {
			region.Color = r.emphasis
			region.Opacity = 1
			region.Active = true
		}
		regions = append(regions, region)
	}
	return regions
}

// Draw clears the surface and paints the regions onto it.
func (r *Renderer) Draw(s Surface, regions []Region) {
	s.Clear()
	for _, region := range regions {
		s.FillRect(region.Rect, region.Color, region.Opacity)
	}
}

// RasterSurface is a Surface backed by an RGBA image, sized in device
// pixels. Regions drawn into it must therefore be computed with
// geometry.UnitDevice.
type RasterSurface struct {
	img *image.RGBA
}

// NewRasterSurface creates a raster surface of the given pixel dimensions.
func NewRasterSurface(width, height int) *RasterSurface {
	return &RasterSurface{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Clear resets the surface to fully transparent.
func (s *RasterSurface) Clear() {
	draw.Draw(s.img, s.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// FillRect alpha-blends a filled rectangle over the surface.
func (s *RasterSurface) FillRect(r geometry.Rect, c Color, opacity float64) {
	opacity = math.Max(0, math.Min(1, opacity))
	fill := image.NewUniform(color.NRGBA{
		R: c.R,
		G: c.G,
		B: c.B,
		A: uint8(math.Round(opacity * 255)),
	})
	rect := image.Rect(
		int(math.Floor(r.X)),
		int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)),
		int(math.Ceil(r.Y+r.Height)),
	)
	draw.Draw(s.img, rect.Intersect(s.img.Bounds()), fill, image.Point{}, draw.Over)
}

// Image exposes the rendered surface.
func (s *RasterSurface) Image() *image.RGBA {
	return s.img
}
