// Cuts an SVG canvas into a grid of printable tiles.
//
// The grid is computed with ComputeGrid, and each tile is extracted
// by a Splitter as a standalone svgdoc.Document. Run combines both and
// writes one file per tile.
package svgtile

import (
	"errors"
	"fmt"
	"math"

	"seehuhn.de/go/geom/rect"
)

// ErrInvalidConfig is returned for tile sizes or overlaps
// which can't produce a grid.
var ErrInvalidConfig = errors.New("invalid tiling configuration")

// MaxTiles bounds the size of a grid.
const MaxTiles = 1 << 16

// Tile is one cell of the grid, in the canvas frame.
type Tile struct {
	Row, Col int
	// Rect is the area covered by the tile: its content expanded
	// by the overlap on the edges shared with other tiles.
	Rect rect.Rect
	// Content is the part of the canvas owned by this tile only.
	Content rect.Rect
}

// Width returns the width of the tile, overlap included.
func (t Tile) Width() float64 { return t.Rect.URx - t.Rect.LLx }

// Height returns the height of the tile, overlap included.
func (t Tile) Height() float64 { return t.Rect.URy - t.Rect.LLy }

// Name returns the file name of the tile, such as tile_0_2.svg
func (t Tile) Name(ext string) string {
	return fmt.Sprintf("tile_%d_%d.%s", t.Row, t.Col, ext)
}

func (t Tile) String() string { return fmt.Sprintf("(%d, %d)", t.Row, t.Col) }

// Grid is a row-major list of tiles.
type Grid struct {
	Rows, Cols int
	Tiles      []Tile
}

// At returns the tile at the given position.
func (g Grid) At(row, col int) (Tile, bool) {
	if row < 0 || row >= g.Rows || col < 0 || col >= g.Cols {
		return Tile{}, false
	}
	return g.Tiles[row*g.Cols+col], true
}

// ComputeGrid lays out tiles of size tileW x tileH (overlap included)
// over a canvasW x canvasH canvas.
//
// The content regions of the tiles partition the canvas: the first
// one in a row has width tileW-overlap, the middle ones tileW-2*overlap
// and the last one the remainder, which may be narrower. Each tile is
// then expanded by overlap on its interior edges, so that no tile exceeds
// the nominal size. Columns are handled the same way.
//
// The overlap must be non negative and less than half of the smallest
// tile dimension.
func ComputeGrid(canvasW, canvasH, tileW, tileH, overlap float64) (Grid, error) {
	for _, v := range [...]float64{canvasW, canvasH, tileW, tileH, overlap} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Grid{}, fmt.Errorf("%w: non finite value", ErrInvalidConfig)
		}
	}
	if canvasW <= 0 || canvasH <= 0 {
		return Grid{}, fmt.Errorf("%w: canvas size %gx%g", ErrInvalidConfig, canvasW, canvasH)
	}
	if tileW <= 0 || tileH <= 0 {
		return Grid{}, fmt.Errorf("%w: tile size %gx%g", ErrInvalidConfig, tileW, tileH)
	}
	if overlap < 0 || overlap >= math.Min(tileW, tileH)/2 {
		return Grid{}, fmt.Errorf("%w: overlap %g must be in [0, %g)", ErrInvalidConfig, overlap, math.Min(tileW, tileH)/2)
	}

	xs, err := cuts(canvasW, tileW, overlap)
	if err != nil {
		return Grid{}, err
	}
	ys, err := cuts(canvasH, tileH, overlap)
	if err != nil {
		return Grid{}, err
	}
	cols, rows := len(xs)-1, len(ys)-1
	if rows*cols > MaxTiles {
		return Grid{}, fmt.Errorf("%w: %d tiles exceed the limit of %d", ErrInvalidConfig, rows*cols, MaxTiles)
	}

	g := Grid{Rows: rows, Cols: cols, Tiles: make([]Tile, 0, rows*cols)}
	for row := 0; row < rows; row++ {
		y0, y1 := expand(ys, row, overlap)
		for col := 0; col < cols; col++ {
			x0, x1 := expand(xs, col, overlap)
			g.Tiles = append(g.Tiles, Tile{
				Row:     row,
				Col:     col,
				Rect:    rect.Rect{LLx: x0, LLy: y0, URx: x1, URy: y1},
				Content: rect.Rect{LLx: xs[col], LLy: ys[row], URx: xs[col+1], URy: ys[row+1]},
			})
		}
	}
	return g, nil
}

// cuts returns the boundaries of the content regions along one axis,
// starting at 0 and ending at total.
func cuts(total, tile, overlap float64) ([]float64, error) {
	// remainders below eps come from rounding, not from the layout
	eps := 1e-9 * tile
	if total <= tile+eps {
		return []float64{0, total}, nil
	}
	out := []float64{0}
	b := tile - overlap
	step := tile - 2*overlap
	for {
		out = append(out, b)
		if total-b <= tile-overlap+eps {
			break
		}
		if len(out) > MaxTiles {
			return nil, fmt.Errorf("%w: too many tiles", ErrInvalidConfig)
		}
		b += step
	}
	return append(out, total), nil
}

// expand returns the extent of the i-th tile: the content region
// grown by overlap on interior edges.
func expand(bounds []float64, i int, overlap float64) (start, end float64) {
	start, end = bounds[i], bounds[i+1]
	if i > 0 {
		start -= overlap
	}
	if i < len(bounds)-2 {
		end += overlap
	}
	return start, end
}
