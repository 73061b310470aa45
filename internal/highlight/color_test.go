package highlight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Color
		wantErr bool
	}{
		{name: "full form with hash", in: "#ffeb3b", want: Color{0xFF, 0xEB, 0x3B}},
		{name: "full form without hash", in: "ff9800", want: Color{0xFF, 0x98, 0x00}},
		{name: "uppercase", in: "#FFEB3B", want: Color{0xFF, 0xEB, 0x3B}},
		{name: "short form", in: "#f90", want: Color{0xFF, 0x99, 0x00}},
		{name: "surrounding whitespace", in: "  #102030 ", want: Color{0x10, 0x20, 0x30}},
		{name: "wrong length", in: "#ffff", wantErr: true},
		{name: "non-hex digits", in: "#zzzzzz", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColorChannels(t *testing.T) {
	c := Color{R: 255, G: 128, B: 0}

	r, g, b := c.RGB()
	assert.Equal(t, 255, r)
	assert.Equal(t, 128, g)
	assert.Equal(t, 0, b)

	fr, fg, fb := c.Normalized()
	assert.InDelta(t, 1.0, fr, 1e-9)
	assert.InDelta(t, 128.0/255, fg, 1e-9)
	assert.InDelta(t, 0.0, fb, 1e-9)
}

func TestColorHexRoundTrip(t *testing.T) {
	c, err := ParseHex("#a1b2c3")
	require.NoError(t, err)
	assert.Equal(t, "#a1b2c3", c.Hex())
}
