package store

import (
	"fmt"
	"math"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"

	"github.com/docsight/mcp-pdf-highlighter/internal/document"
)

// schemaVersion is bumped whenever the encoded page layout changes; cached
// entries with an older version are treated as misses.
const schemaVersion = 1

// marshalPages encodes extracted pages into the cache value format: a
// schema version, the page count, and per page its metadata followed by its
// runs.
func marshalPages(pages []document.Page) []byte {
	size := varint.Int.Size(schemaVersion) + varint.Int.Size(len(pages))
	for i := range pages {
		size += pageSize(&pages[i])
	}

	bs := make([]byte, size)
	n := varint.Int.Marshal(schemaVersion, bs)
	n += varint.Int.Marshal(len(pages), bs[n:])
	for i := range pages {
		n += marshalPage(&pages[i], bs[n:])
	}
	return bs
}

// unmarshalPages decodes a cache value. A schema version mismatch is an
// error so callers fall back to re-extraction.
func unmarshalPages(bs []byte) ([]document.Page, error) {
	version, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, fmt.Errorf("failed to decode schema version: %w", err)
	}
	if version != schemaVersion {
		return nil, fmt.Errorf("unsupported cache schema version %d", version)
	}

	count, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode page count: %w", err)
	}
	n += m
	if count < 0 {
		return nil, fmt.Errorf("negative page count %d", count)
	}

	pages := make([]document.Page, count)
	for i := range pages {
		m, err := unmarshalPage(&pages[i], bs[n:])
		if err != nil {
			return nil, fmt.Errorf("failed to decode page %d: %w", i+1, err)
		}
		n += m
	}
	return pages, nil
}

func pageSize(p *document.Page) int {
	size := varint.Int.Size(p.Number) +
		float64Size(p.Width) +
		float64Size(p.Height) +
		varint.Int.Size(p.Rotation) +
		varint.Int.Size(len(p.Runs))
	for i := range p.Runs {
		size += runSize(&p.Runs[i])
	}
	return size
}

func marshalPage(p *document.Page, bs []byte) int {
	n := varint.Int.Marshal(p.Number, bs)
	n += marshalFloat64(p.Width, bs[n:])
	n += marshalFloat64(p.Height, bs[n:])
	n += varint.Int.Marshal(p.Rotation, bs[n:])
	n += varint.Int.Marshal(len(p.Runs), bs[n:])
	for i := range p.Runs {
		n += marshalRun(&p.Runs[i], bs[n:])
	}
	return n
}

func unmarshalPage(p *document.Page, bs []byte) (int, error) {
	var err error
	var m int
	n := 0

	if p.Number, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return 0, err
	}
	n += m
	if p.Width, m, err = unmarshalFloat64(bs[n:]); err != nil {
		return 0, err
	}
	n += m
	if p.Height, m, err = unmarshalFloat64(bs[n:]); err != nil {
		return 0, err
	}
	n += m
	if p.Rotation, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return 0, err
	}
	n += m

	count, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return 0, err
	}
	n += m
	if count < 0 {
		return 0, fmt.Errorf("negative run count %d", count)
	}

	p.Runs = make([]document.TextRun, count)
	for i := range p.Runs {
		m, err := unmarshalRun(&p.Runs[i], bs[n:])
		if err != nil {
			return 0, fmt.Errorf("run %d: %w", i, err)
		}
		n += m
	}
	return n, nil
}

func runSize(r *document.TextRun) int {
	return ord.String.Size(r.Text) +
		float64Size(r.X) +
		float64Size(r.Y) +
		float64Size(r.Width) +
		float64Size(r.Height) +
		ord.String.Size(r.Font) +
		float64Size(r.FontSize) +
		ord.Bool.Size(r.HasGeometry)
}

func marshalRun(r *document.TextRun, bs []byte) int {
	n := ord.String.Marshal(r.Text, bs)
	n += marshalFloat64(r.X, bs[n:])
	n += marshalFloat64(r.Y, bs[n:])
	n += marshalFloat64(r.Width, bs[n:])
	n += marshalFloat64(r.Height, bs[n:])
	n += ord.String.Marshal(r.Font, bs[n:])
	n += marshalFloat64(r.FontSize, bs[n:])
	n += ord.Bool.Marshal(r.HasGeometry, bs[n:])
	return n
}

func unmarshalRun(r *document.TextRun, bs []byte) (int, error) {
	var err error
	var m int
	n := 0

	if r.Text, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return 0, err
	}
	n += m
	if r.X, m, err = unmarshalFloat64(bs[n:]); err != nil {
		return 0, err
	}
	n += m
	if r.Y, m, err = unmarshalFloat64(bs[n:]); err != nil {
		return 0, err
	}
	n += m
	if r.Width, m, err = unmarshalFloat64(bs[n:]); err != nil {
		return 0, err
	}
	n += m
	if r.Height, m, err = unmarshalFloat64(bs[n:]); err != nil {
		return 0, err
	}
	n += m
	if r.Font, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return 0, err
	}
	n += m
	if r.FontSize, m, err = unmarshalFloat64(bs[n:]); err != nil {
		return 0, err
	}
	n += m
	if r.HasGeometry, m, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return 0, err
	}
	n += m
	return n, nil
}

// Floats travel as their IEEE 754 bit patterns so the round trip is exact.

func float64Size(v float64) int {
	return varint.Uint64.Size(math.Float64bits(v))
}

func marshalFloat64(v float64, bs []byte) int {
	return varint.Uint64.Marshal(math.Float64bits(v), bs)
}

func unmarshalFloat64(bs []byte) (float64, int, error) {
	bits, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return 0, 0, err
	}
	return math.Float64frombits(bits), n, nil
}
