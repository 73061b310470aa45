// Package geometry converts rectangles between PDF user-space coordinates
// (origin bottom-left, y up) and view coordinates (origin top-left, y down)
// for a page rendered at a given scale, rotation, and device pixel ratio.
package geometry

// Rect is an axis-aligned rectangle. In document space X/Y name the
// lower-left corner; in view space they name the upper-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Unit selects the pixel convention of computed view rectangles.
type Unit int

const (
	// UnitCSS produces CSS (logical) pixels: dimensions are multiplied by
	// the render scale only. DOM-style overlay elements use this unit since
	// the browser applies the device pixel ratio itself.
	UnitCSS Unit = iota

	// UnitDevice produces physical pixels: dimensions are multiplied by the
	// render scale and the device pixel ratio. Raster surfaces use this
	// unit. The two conventions must never be mixed on one surface.
	UnitDevice
)

// Viewport describes how a page was rasterized: its unrotated user-space
// dimensions, the clockwise rotation applied by the renderer (0, 90, 180 or
// 270 degrees), the render scale, and the device pixel ratio.
type Viewport struct {
	PageWidth        float64
	PageHeight       float64
	Rotation         int
	Scale            float64
	DevicePixelRatio float64
}

// Size returns the rendered canvas dimensions in the requested unit.
func (v Viewport) Size(unit Unit) (w, h float64) {
	f := v.factor(unit)
	if v.Rotation == 90 || v.Rotation == 270 {
		return v.PageHeight * f, v.PageWidth * f
	}
	return v.PageWidth * f, v.PageHeight * f
}

func (v Viewport) factor(unit Unit) float64 {
	f := v.Scale
	if f == 0 {
		f = 1
	}
	if unit == UnitDevice {
		dpr := v.DevicePixelRatio
		if dpr == 0 {
			dpr = 1
		}
		f *= dpr
	}
	return f
}

// ToView maps a document-space rectangle onto the rendered page canvas.
// The rotation mapping must match the rotation the rendering surface applied
// when it rasterized the page or highlights will misalign.
func ToView(r Rect, v Viewport, unit Unit) Rect {
	var out Rect
	switch normalizeRotation(v.Rotation) {
	case 90:
		// Page top edge rendered along the right edge of the canvas.
		out = Rect{X: r.Y, Y: r.X, Width: r.Height, Height: r.Width}
	case 180:
		out = Rect{
			X:      v.PageWidth - r.X - r.Width,
			Y:      r.Y,
			Width:  r.Width,
			Height: r.Height,
		}
	case 270:
		out = Rect{
			X:      v.PageHeight - r.Y - r.Height,
			Y:      v.PageWidth - r.X - r.Width,
			Width:  r.Height,
			Height: r.Width,
		}
	default:
		// Flip the y axis: document origin is bottom-left, view origin
		// is top-left.
		out = Rect{
			X:      r.X,
			Y:      v.PageHeight - r.Y - r.Height,
			Width:  r.Width,
			Height: r.Height,
		}
	}
	f := v.factor(unit)
	return Rect{X: out.X * f, Y: out.Y * f, Width: out.Width * f, Height: out.Height * f}
}

// ToDocument is the inverse of ToView. For rotation 0 and scale 1,
// ToDocument(ToView(r)) == r.
func ToDocument(r Rect, v Viewport, unit Unit) Rect {
	f := v.factor(unit)
	if f != 0 {
		r = Rect{X: r.X / f, Y: r.Y / f, Width: r.Width / f, Height: r.Height / f}
	}
	switch normalizeRotation(v.Rotation) {
	case 90:
		return Rect{X: r.Y, Y: r.X, Width: r.Height, Height: r.Width}
	case 180:
		return Rect{
			X:      v.PageWidth - r.X - r.Width,
			Y:      r.Y,
			Width:  r.Width,
			Height: r.Height,
		}
	case 270:
		return Rect{
			X:      v.PageWidth - r.Y - r.Height,
			Y:      v.PageHeight - r.X - r.Width,
			Width:  r.Height,
			Height: r.Width,
		}
	default:
		return Rect{
			X:      r.X,
			Y:      v.PageHeight - r.Y - r.Height,
			Width:  r.Width,
			Height: r.Height,
		}
	}
}

// Union returns the smallest rectangle covering both inputs.
func Union(a, b Rect) Rect {
	minX := min(a.X, b.X)
	minY := min(a.Y, b.Y)
	maxX := max(a.X+a.Width, b.X+b.Width)
	maxY := max(a.Y+a.Height, b.Y+b.Height)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Clip intersects r with the canvas [0,0,w,h]. The second return value is
// false when the rectangle lies entirely outside the canvas.
func Clip(r Rect, w, h float64) (Rect, bool) {
	x0 := max(r.X, 0)
	y0 := max(r.Y, 0)
	x1 := min(r.X+r.Width, w)
	y1 := min(r.Y+r.Height, h)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}, false
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, true
}

// normalizeRotation reduces a Rotate value to one of 0, 90, 180, 270.
func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg - deg%90
}
