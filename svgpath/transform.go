package svgpath

import (
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// A matrix.Matrix [a b c d e f] maps (x, y) to
// (a*x + c*y + e, b*x + d*y + f), like the SVG matrix() function.

// Compose returns the transform applying child first, then parent.
// The identity is matrix.Identity on both sides, exactly.
func Compose(parent, child matrix.Matrix) matrix.Matrix {
	return matrix.Matrix{
		parent[0]*child[0] + parent[2]*child[1],
		parent[1]*child[0] + parent[3]*child[1],
		parent[0]*child[2] + parent[2]*child[3],
		parent[1]*child[2] + parent[3]*child[3],
		parent[0]*child[4] + parent[2]*child[5] + parent[4],
		parent[1]*child[4] + parent[3]*child[5] + parent[5],
	}
}

// Apply maps the point p by m.
func Apply(m matrix.Matrix, p vec.Vec2) vec.Vec2 {
	if IsTranslation(m) {
		// no multiplication: exact up to the final addition
		return vec.Vec2{X: p.X + m[4], Y: p.Y + m[5]}
	}
	return vec.Vec2{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// ApplyVector maps the vector v by the linear part of m.
func ApplyVector(m matrix.Matrix, v vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: m[0]*v.X + m[2]*v.Y,
		Y: m[1]*v.X + m[3]*v.Y,
	}
}

// Det returns the determinant of the linear part of m.
func Det(m matrix.Matrix) float64 { return m[0]*m[3] - m[1]*m[2] }

// Invert returns the inverse of m, or false if m is singular
// or not finite.
func Invert(m matrix.Matrix) (matrix.Matrix, bool) {
	if IsTranslation(m) {
		return Translate(-m[4], -m[5]), true
	}
	det := Det(m)
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return matrix.Matrix{}, false
	}
	return matrix.Matrix{
		m[3] / det,
		-m[1] / det,
		-m[2] / det,
		m[0] / det,
		(m[2]*m[5] - m[3]*m[4]) / det,
		(m[1]*m[4] - m[0]*m[5]) / det,
	}, true
}

// IsTranslation returns true if the linear part of m is the identity.
func IsTranslation(m matrix.Matrix) bool {
	return m[0] == 1 && m[1] == 0 && m[2] == 0 && m[3] == 1
}

// IsFiniteMatrix returns false if one coefficient is NaN or infinite.
func IsFiniteMatrix(m matrix.Matrix) bool {
	for _, c := range m {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Translate returns the translation by (x, y).
func Translate(x, y float64) matrix.Matrix { return matrix.Matrix{1, 0, 0, 1, x, y} }

// Scale returns the scaling by (sx, sy).
func Scale(sx, sy float64) matrix.Matrix { return matrix.Matrix{sx, 0, 0, sy, 0, 0} }

// Rotate returns the rotation of deg degrees (clockwise on screen,
// as SVG rotate()).
func Rotate(deg float64) matrix.Matrix {
	switch math.Mod(deg, 360) {
	case 0:
		return matrix.Identity
	case 90, -270:
		return matrix.Matrix{0, 1, -1, 0, 0, 0}
	case 180, -180:
		return matrix.Matrix{-1, 0, 0, -1, 0, 0}
	case 270, -90:
		return matrix.Matrix{0, -1, 1, 0, 0, 0}
	}
	sin, cos := math.Sincos(deg * math.Pi / 180)
	return matrix.Matrix{cos, sin, -sin, cos, 0, 0}
}

// SkewX returns the skew along the x axis, of deg degrees.
func SkewX(deg float64) matrix.Matrix {
	return matrix.Matrix{1, 0, math.Tan(deg * math.Pi / 180), 1, 0, 0}
}

// SkewY returns the skew along the y axis, of deg degrees.
func SkewY(deg float64) matrix.Matrix {
	return matrix.Matrix{1, math.Tan(deg * math.Pi / 180), 0, 1, 0, 0}
}

// ScaleFactor returns the mean linear scaling of m,
// used to map stroke widths.
func ScaleFactor(m matrix.Matrix) float64 {
	return math.Sqrt(math.Abs(Det(m)))
}
