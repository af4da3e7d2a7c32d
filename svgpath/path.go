// Implements an abstract representation of
// svg paths, with the geometry needed to cut
// them into tiles: affine transforms, exact bounds
// and clipping against axis-aligned rectangles.
package svgpath

import (
	"math"
	"strconv"
	"strings"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// Operation groups the different SVG commands.
// Coordinates are always absolute.
type Operation interface {
	// transform returns a copy of the operation with its points mapped by m
	transform(m matrix.Matrix) Operation
}

type MoveTo vec.Vec2

type LineTo vec.Vec2

type QuadTo [2]vec.Vec2

type CubicTo [3]vec.Vec2

type Close struct{}

func (op MoveTo) transform(m matrix.Matrix) Operation {
	return MoveTo(Apply(m, vec.Vec2(op)))
}

func (op LineTo) transform(m matrix.Matrix) Operation {
	return LineTo(Apply(m, vec.Vec2(op)))
}

func (op QuadTo) transform(m matrix.Matrix) Operation {
	return QuadTo{Apply(m, op[0]), Apply(m, op[1])}
}

func (op CubicTo) transform(m matrix.Matrix) Operation {
	return CubicTo{Apply(m, op[0]), Apply(m, op[1]), Apply(m, op[2])}
}

func (op Close) transform(matrix.Matrix) Operation { return op }

// Path describes a sequence of basic SVG operations.
// Higher-level shapes may be reduced to a path.
type Path []Operation

// Start starts a new curve at the given point.
func (p *Path) Start(a vec.Vec2) {
	*p = append(*p, MoveTo(a))
}

// Line adds a linear segment to the current curve.
func (p *Path) Line(b vec.Vec2) {
	*p = append(*p, LineTo(b))
}

// QuadBezier adds a quadratic segment to the current curve.
func (p *Path) QuadBezier(b, c vec.Vec2) {
	*p = append(*p, QuadTo{b, c})
}

// CubeBezier adds a cubic segment to the current curve.
func (p *Path) CubeBezier(b, c, d vec.Vec2) {
	*p = append(*p, CubicTo{b, c, d})
}

// Stop joins the ends of the path
func (p *Path) Stop(closeLoop bool) {
	if closeLoop {
		*p = append(*p, Close{})
	}
}

// Copy returns a deep copy of the path.
func (p Path) Copy() Path {
	if p == nil {
		return nil
	}
	return append(Path(nil), p...)
}

// Transform returns a new path whose points are mapped by m.
// Affine maps keep the degree of every segment.
func (p Path) Transform(m matrix.Matrix) Path {
	out := make(Path, len(p))
	for i, op := range p {
		out[i] = op.transform(m)
	}
	return out
}

// IsFinite returns false if one coordinate is NaN or infinite.
func (p Path) IsFinite() bool {
	for _, op := range p {
		for _, pt := range points(op) {
			if !isFinite(pt) {
				return false
			}
		}
	}
	return true
}

// HasSegments returns true if the path draws at least one
// line or curve.
func (p Path) HasSegments() bool {
	for _, op := range p {
		switch op.(type) {
		case LineTo, QuadTo, CubicTo:
			return true
		}
	}
	return false
}

// points returns the (absolute) points stored by op.
func points(op Operation) []vec.Vec2 {
	switch op := op.(type) {
	case MoveTo:
		return []vec.Vec2{vec.Vec2(op)}
	case LineTo:
		return []vec.Vec2{vec.Vec2(op)}
	case QuadTo:
		return op[:]
	case CubicTo:
		return op[:]
	}
	return nil
}

func isFinite(v vec.Vec2) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// FormatFloat returns the shortest decimal representation
// of f which parses back to the same value.
func FormatFloat(f float64) string {
	if f == 0 {
		return "0" // avoid "-0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatPoint(sb *strings.Builder, pts ...vec.Vec2) {
	for i, pt := range pts {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(FormatFloat(pt.X))
		sb.WriteByte(',')
		sb.WriteString(FormatFloat(pt.Y))
	}
}

// ToSVGPath returns a string representation of the path,
// suitable for the 'd' attribute.
func (p Path) ToSVGPath() string {
	var sb strings.Builder
	for i, op := range p {
		if i > 0 {
			sb.WriteByte(' ')
		}
		switch op := op.(type) {
		case MoveTo:
			sb.WriteByte('M')
			formatPoint(&sb, vec.Vec2(op))
		case LineTo:
			sb.WriteByte('L')
			formatPoint(&sb, vec.Vec2(op))
		case QuadTo:
			sb.WriteByte('Q')
			formatPoint(&sb, op[:]...)
		case CubicTo:
			sb.WriteByte('C')
			formatPoint(&sb, op[:]...)
		case Close:
			sb.WriteByte('Z')
		}
	}
	return sb.String()
}

// String returns a readable representation of a Path.
func (p Path) String() string {
	return p.ToSVGPath()
}
