package svgpath

import (
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// compute the exact bounding box of a path: for each segment, the extrema
// are reached at the end points or where the derivative vanishes.
//
// Boxes use rect.Rect with LL as the minimum corner (the y axis points down
// in SVG, so LL is the top left corner on screen).

// EmptyRect is the box of nothing. It is the identity of Union
// and intersects no other box.
var EmptyRect = rect.Rect{
	LLx: math.Inf(1), LLy: math.Inf(1),
	URx: math.Inf(-1), URy: math.Inf(-1),
}

// IsEmpty returns true for boxes containing no point.
func IsEmpty(r rect.Rect) bool {
	return !(r.LLx <= r.URx && r.LLy <= r.URy)
}

// Union returns the smallest box containing a and b.
func Union(a, b rect.Rect) rect.Rect {
	if IsEmpty(a) {
		return b
	}
	if IsEmpty(b) {
		return a
	}
	return rect.Rect{
		LLx: math.Min(a.LLx, b.LLx), LLy: math.Min(a.LLy, b.LLy),
		URx: math.Max(a.URx, b.URx), URy: math.Max(a.URy, b.URy),
	}
}

// Intersect returns the largest box contained in a and b,
// or EmptyRect if they are disjoint.
func Intersect(a, b rect.Rect) rect.Rect {
	out := rect.Rect{
		LLx: math.Max(a.LLx, b.LLx), LLy: math.Max(a.LLy, b.LLy),
		URx: math.Min(a.URx, b.URx), URy: math.Min(a.URy, b.URy),
	}
	if IsEmpty(out) {
		return EmptyRect
	}
	return out
}

// ExtendPoint returns the smallest box containing r and p.
func ExtendPoint(r rect.Rect, p vec.Vec2) rect.Rect {
	return Union(r, rect.Rect{LLx: p.X, LLy: p.Y, URx: p.X, URy: p.Y})
}

// Overlaps returns true if the interiors of a and b intersect:
// boxes only sharing an edge do not overlap.
// A degenerate (flat) box overlaps r if it crosses its interior.
func Overlaps(a, r rect.Rect) bool {
	if IsEmpty(a) || IsEmpty(r) {
		return false
	}
	return a.LLx < r.URx && a.URx > r.LLx && a.LLy < r.URy && a.URy > r.LLy
}

// Touches returns true if a and b share at least one point.
func Touches(a, b rect.Rect) bool {
	if IsEmpty(a) || IsEmpty(b) {
		return false
	}
	return a.LLx <= b.URx && a.URx >= b.LLx && a.LLy <= b.URy && a.URy >= b.LLy
}

// ContainsRect returns true if inner lies in outer, enlarged by eps.
func ContainsRect(outer, inner rect.Rect, eps float64) bool {
	if IsEmpty(inner) {
		return true
	}
	return inner.LLx >= outer.LLx-eps && inner.URx <= outer.URx+eps &&
		inner.LLy >= outer.LLy-eps && inner.URy <= outer.URy+eps
}

// ContainsPoint returns true if p lies in the closed box r.
func ContainsPoint(r rect.Rect, p vec.Vec2) bool {
	return p.X >= r.LLx && p.X <= r.URx && p.Y >= r.LLy && p.Y <= r.URy
}

// TransformRect returns the bounding box of the image of r by m.
func TransformRect(m matrix.Matrix, r rect.Rect) rect.Rect {
	if IsEmpty(r) {
		return EmptyRect
	}
	out := EmptyRect
	for _, p := range [4]vec.Vec2{
		{X: r.LLx, Y: r.LLy}, {X: r.URx, Y: r.LLy},
		{X: r.URx, Y: r.URy}, {X: r.LLx, Y: r.URy},
	} {
		out = ExtendPoint(out, Apply(m, p))
	}
	return out
}

// Bounds returns the exact bounding box of the path, once
// transformed by m. A path made only of MoveTo still has bounds
// (its points), an empty path returns EmptyRect.
func (p Path) Bounds(m matrix.Matrix) rect.Rect {
	box := EmptyRect
	var current, start vec.Vec2
	for _, op := range p {
		switch op := op.(type) {
		case MoveTo:
			current = Apply(m, vec.Vec2(op))
			start = current
			box = ExtendPoint(box, current)
		case LineTo:
			b := Apply(m, vec.Vec2(op))
			box = Union(box, computeBoundingBox(line{current, b}))
			current = b
		case QuadTo:
			b, c := Apply(m, op[0]), Apply(m, op[1])
			box = Union(box, computeBoundingBox(quadBezier{current, b, c}))
			current = c
		case CubicTo:
			b, c, d := Apply(m, op[0]), Apply(m, op[1]), Apply(m, op[2])
			box = Union(box, computeBoundingBox(cubicBezier{current, b, c, d}))
			current = d
		case Close:
			current = start
		}
	}
	return box
}

type line [2]vec.Vec2

func (l line) criticalPoints() (tX, tY []float64) {
	return nil, nil
}

func (l line) evaluateCurve(t float64) vec.Vec2 {
	if t == 1 {
		return l[1]
	}
	return vec.Vec2{X: bezierLine(l[0].X, l[1].X, t), Y: bezierLine(l[0].Y, l[1].Y, t)}
}

func bezierLine(p0, p1, t float64) float64 {
	return (p1-p0)*t + p0
}

type quadBezier [3]vec.Vec2

// quadratic polinomial
// x = At^2 + Bt + C
// where
// A = p0 + p2 - 2p1
// B = 2(p1 - p0)
// C = p0
func bezierQuad(p0, p1, p2, t float64) float64 {
	return (p0+p2-2*p1)*t*t + 2*(p1-p0)*t + p0
}

// derivative as at + b where a,b :
func quadraticDerivative(p0, p1, p2 float64) (a, b float64) {
	return 2 * (p2 - p1 - (p1 - p0)), 2 * (p1 - p0)
}

// handle the case where a = 0
func linearRoots(a, b float64) []float64 {
	if a == 0 {
		return nil
	}
	return []float64{-b / a}
}

func (cu quadBezier) criticalPoints() (tX, tY []float64) {
	aX, bX := quadraticDerivative(cu[0].X, cu[1].X, cu[2].X)
	aY, bY := quadraticDerivative(cu[0].Y, cu[1].Y, cu[2].Y)
	return linearRoots(aX, bX), linearRoots(aY, bY)
}

func (cu quadBezier) evaluateCurve(t float64) vec.Vec2 {
	if t == 1 {
		return cu[2]
	}
	return vec.Vec2{
		X: bezierQuad(cu[0].X, cu[1].X, cu[2].X, t),
		Y: bezierQuad(cu[0].Y, cu[1].Y, cu[2].Y, t),
	}
}

type cubicBezier [4]vec.Vec2

func (cu cubicBezier) criticalPoints() (tX, tY []float64) {
	aX, bX, cX := cubicDerivative(cu[0].X, cu[1].X, cu[2].X, cu[3].X)
	aY, bY, cY := cubicDerivative(cu[0].Y, cu[1].Y, cu[2].Y, cu[3].Y)
	return quadraticRoots(aX, bX, cX), quadraticRoots(aY, bY, cY)
}

func (cu cubicBezier) evaluateCurve(t float64) vec.Vec2 {
	if t == 1 {
		return cu[3]
	}
	return vec.Vec2{
		X: bezierSpline(cu[0].X, cu[1].X, cu[2].X, cu[3].X, t),
		Y: bezierSpline(cu[0].Y, cu[1].Y, cu[2].Y, cu[3].Y, t),
	}
}

// cubic polinomial
// x = At^3 + Bt^2 + Ct + D
// where A,B,C,D:
// A = p3 -3 * p2 + 3 * p1 - p0
// B = 3 * p2 - 6 * p1 +3 * p0
// C = 3 * p1 - 3 * p0
// D = p0
func bezierSpline(p0, p1, p2, p3, t float64) float64 {
	return (p3-3*p2+3*p1-p0)*t*t*t +
		(3*p2-6*p1+3*p0)*t*t +
		(3*p1-3*p0)*t +
		(p0)
}

// X' = (3*p3-9*p2+9*p1-3*p0)t^2 + (6*p2-12*p1+6*p0)t + (3*p1-3*p0)
// taken as aX^2 + bX + c  a,b and c are:
func cubicDerivative(p0, p1, p2, p3 float64) (a, b, c float64) {
	return 3*p3 - 9*p2 + 9*p1 - 3*p0, 6*p2 - 12*p1 + 6*p0, 3*p1 - 3*p0
}

// quadraticRoots returns the real roots of at^2 + bt + c,
// degrading to the linear case when a is zero.
func quadraticRoots(a, b, c float64) []float64 {
	if a == 0 {
		return linearRoots(b, c)
	}
	d := b*b - 4*a*c
	if d < 0 {
		return nil
	}
	if d == 0 {
		return []float64{-b / (2 * a)}
	}
	// numerically stable form, avoiding cancellation
	sq := math.Sqrt(d)
	q := -(b + math.Copysign(sq, b)) / 2
	r1 := q / a
	if q == 0 {
		return []float64{r1}
	}
	return []float64{r1, c / q}
}

type bezier interface {
	// compute the t zeroing the derivative
	criticalPoints() (tX, tY []float64)
	// compute the point a time t
	evaluateCurve(t float64) vec.Vec2
}

func computeBoundingBox(curve bezier) rect.Rect {
	resX, resY := curve.criticalPoints()

	box := EmptyRect
	// add begin and end point
	for _, t := range append(append(resX, 0, 1), resY...) {
		// filter invalid value
		if !(0 <= t && t <= 1) {
			continue
		}
		box = ExtendPoint(box, curve.evaluateCurve(t))
	}
	return box
}
