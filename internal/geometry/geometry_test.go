package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToView_Rotations(t *testing.T) {
	// 600x800pt page with a run at document-space (100,700), 50 wide and
	// 20 tall, near the top-left corner of the unrotated page.
	run := Rect{X: 100, Y: 700, Width: 50, Height: 20}

	tests := []struct {
		name     string
		rotation int
		expected Rect
	}{
		{
			name:     "rotation 0 flips the y axis",
			rotation: 0,
			expected: Rect{X: 100, Y: 80, Width: 50, Height: 20},
		},
		{
			name:     "rotation 90 sends the page top to the right edge",
			rotation: 90,
			expected: Rect{X: 700, Y: 100, Width: 20, Height: 50},
		},
		{
			name:     "rotation 180 mirrors both axes",
			rotation: 180,
			expected: Rect{X: 450, Y: 700, Width: 50, Height: 20},
		},
		{
			name:     "rotation 270 sends the page top to the left edge",
			rotation: 270,
			expected: Rect{X: 80, Y: 450, Width: 20, Height: 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vp := Viewport{
				PageWidth:        600,
				PageHeight:       800,
				Rotation:         tt.rotation,
				Scale:            1,
				DevicePixelRatio: 1,
			}
			got := ToView(run, vp, UnitCSS)
			assert.InDelta(t, tt.expected.X, got.X, 1e-9)
			assert.InDelta(t, tt.expected.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.expected.Width, got.Width, 1e-9)
			assert.InDelta(t, tt.expected.Height, got.Height, 1e-9)
		})
	}
}

func TestToView_RoundTripIdentity(t *testing.T) {
	// For rotation 0 and scale 1.0, ToDocument(ToView(r)) must be r.
	vp := Viewport{PageWidth: 612, PageHeight: 792, Rotation: 0, Scale: 1}
	r := Rect{X: 72, Y: 144, Width: 200, Height: 14}

	back := ToDocument(ToView(r, vp, UnitCSS), vp, UnitCSS)
	assert.InDelta(t, r.X, back.X, 1e-9)
	assert.InDelta(t, r.Y, back.Y, 1e-9)
	assert.InDelta(t, r.Width, back.Width, 1e-9)
	assert.InDelta(t, r.Height, back.Height, 1e-9)
}

func TestToView_RoundTripAllRotations(t *testing.T) {
	vp := Viewport{PageWidth: 600, PageHeight: 800, Scale: 1.5, DevicePixelRatio: 2}
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}

	for _, rot := range []int{0, 90, 180, 270} {
		vp.Rotation = rot
		for _, unit := range []Unit{UnitCSS, UnitDevice} {
			back := ToDocument(ToView(r, vp, unit), vp, unit)
			assert.InDelta(t, r.X, back.X, 1e-9, "rotation %d", rot)
			assert.InDelta(t, r.Y, back.Y, 1e-9, "rotation %d", rot)
			assert.InDelta(t, r.Width, back.Width, 1e-9, "rotation %d", rot)
			assert.InDelta(t, r.Height, back.Height, 1e-9, "rotation %d", rot)
		}
	}
}

func TestToView_Units(t *testing.T) {
	vp := Viewport{PageWidth: 600, PageHeight: 800, Scale: 2, DevicePixelRatio: 1.5}
	r := Rect{X: 100, Y: 700, Width: 50, Height: 20}

	// CSS pixels scale by the render scale only.
	css := ToView(r, vp, UnitCSS)
	assert.InDelta(t, 200.0, css.X, 1e-9)
	assert.InDelta(t, 160.0, css.Y, 1e-9)
	assert.InDelta(t, 100.0, css.Width, 1e-9)

	// Device pixels additionally scale by the DPR.
	dev := ToView(r, vp, UnitDevice)
	assert.InDelta(t, 300.0, dev.X, 1e-9)
	assert.InDelta(t, 240.0, dev.Y, 1e-9)
	assert.InDelta(t, 150.0, dev.Width, 1e-9)
}

func TestViewportSize(t *testing.T) {
	vp := Viewport{PageWidth: 600, PageHeight: 800, Rotation: 90, Scale: 1, DevicePixelRatio: 2}

	w, h := vp.Size(UnitCSS)
	assert.InDelta(t, 800.0, w, 1e-9)
	assert.InDelta(t, 600.0, h, 1e-9)

	w, h = vp.Size(UnitDevice)
	assert.InDelta(t, 1600.0, w, 1e-9)
	assert.InDelta(t, 1200.0, h, 1e-9)
}

func TestUnion(t *testing.T) {
	a := Rect{X: 10, Y: 10, Width: 20, Height: 10}
	b := Rect{X: 25, Y: 5, Width: 30, Height: 10}

	u := Union(a, b)
	assert.Equal(t, Rect{X: 10, Y: 5, Width: 45, Height: 15}, u)
}

func TestClip(t *testing.T) {
	tests := []struct {
		name    string
		in      Rect
		want    Rect
		visible bool
	}{
		{
			name:    "fully inside",
			in:      Rect{X: 10, Y: 10, Width: 50, Height: 20},
			want:    Rect{X: 10, Y: 10, Width: 50, Height: 20},
			visible: true,
		},
		{
			name:    "overhangs the right edge",
			in:      Rect{X: 580, Y: 10, Width: 50, Height: 20},
			want:    Rect{X: 580, Y: 10, Width: 20, Height: 20},
			visible: true,
		},
		{
			name:    "entirely outside",
			in:      Rect{X: 700, Y: 10, Width: 50, Height: 20},
			visible: false,
		},
		{
			name:    "negative origin clamped",
			in:      Rect{X: -10, Y: -5, Width: 30, Height: 20},
			want:    Rect{X: 0, Y: 0, Width: 20, Height: 15},
			visible: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Clip(tt.in, 600, 800)
			require.Equal(t, tt.visible, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
