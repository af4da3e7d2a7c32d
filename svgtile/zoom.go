package svgtile

import (
	"fmt"
	"math"

	"seehuhn.de/go/geom/rect"
)

// MaxZoom is the deepest supported zoom level.
const MaxZoom = 16

// ZoomTile returns the tile (x, y) of the zoom pyramid at level z.
//
// Level z covers the square of edge max(canvasW, canvasH), anchored
// at the canvas origin, with 2^z x 2^z square tiles without overlap.
// Tiles of the last row or column may extend past the canvas.
func ZoomTile(canvasW, canvasH float64, z, x, y int) (Tile, error) {
	if z < 0 || z > MaxZoom {
		return Tile{}, fmt.Errorf("%w: zoom level %d not in [0, %d]", ErrInvalidConfig, z, MaxZoom)
	}
	n := 1 << z
	if x < 0 || x >= n || y < 0 || y >= n {
		return Tile{}, fmt.Errorf("%w: tile (%d, %d) not in zoom level %d", ErrInvalidConfig, x, y, z)
	}
	if !(canvasW > 0 && canvasH > 0) {
		return Tile{}, fmt.Errorf("%w: canvas size %gx%g", ErrInvalidConfig, canvasW, canvasH)
	}
	edge := math.Max(canvasW, canvasH) / float64(n)
	r := rect.Rect{
		LLx: float64(x) * edge, LLy: float64(y) * edge,
		URx: float64(x+1) * edge, URy: float64(y+1) * edge,
	}
	return Tile{Row: y, Col: x, Rect: r, Content: r}, nil
}

// ZoomGrid returns all the tiles of level z, row-major.
func ZoomGrid(canvasW, canvasH float64, z int) (Grid, error) {
	if z < 0 || z > MaxZoom || 1<<(2*z) > MaxTiles {
		return Grid{}, fmt.Errorf("%w: zoom level %d", ErrInvalidConfig, z)
	}
	n := 1 << z
	g := Grid{Rows: n, Cols: n, Tiles: make([]Tile, 0, n*n)}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			t, err := ZoomTile(canvasW, canvasH, z, x, y)
			if err != nil {
				return Grid{}, err
			}
			g.Tiles = append(g.Tiles, t)
		}
	}
	return g, nil
}
