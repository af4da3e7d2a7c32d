package svgdoc

import (
	"math"

	"github.com/benoitkugler/svgtile/svgpath"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// BoundingBox returns the tightest box containing the geometry of the node,
// once mapped by its own transform then by m (the accumulated
// transform of its ancestors).
// Empty groups return svgpath.EmptyRect, which is ignored by svgpath.Union.
// Text only contributes its anchor point, and the clip region
// of the node, if any, restricts the box.
func BoundingBox(n *Node, m matrix.Matrix) rect.Rect {
	m = svgpath.Compose(m, n.Transform)
	box := shapeBounds(n, m)
	if n.ClipRegion != nil {
		box = svgpath.Intersect(box, n.ClipRegion.Bounds(m))
	}
	return box
}

// shapeBounds ignores the clip region and the transform of n.
func shapeBounds(n *Node, m matrix.Matrix) rect.Rect {
	switch sh := n.Shape.(type) {
	case *Group:
		box := svgpath.EmptyRect
		for _, c := range sh.Children {
			box = svgpath.Union(box, BoundingBox(c, m))
		}
		return box
	case *Circle:
		return ellipseBounds(m, sh.CX, sh.CY, sh.R, sh.R)
	case *Ellipse:
		return ellipseBounds(m, sh.CX, sh.CY, sh.RX, sh.RY)
	case *Text:
		return svgpath.ExtendPoint(svgpath.EmptyRect, svgpath.Apply(m, vec.Vec2{X: sh.X, Y: sh.Y}))
	case nil:
		return svgpath.EmptyRect
	default:
		return ToPath(n).Bounds(m)
	}
}

// ellipseBounds is the exact extent of the image of an
// axis-aligned ellipse by m.
func ellipseBounds(m matrix.Matrix, cx, cy, rx, ry float64) rect.Rect {
	c := svgpath.Apply(m, vec.Vec2{X: cx, Y: cy})
	// the image is parametrized by c + cos(t)*u + sin(t)*v
	u := svgpath.ApplyVector(m, vec.Vec2{X: rx})
	v := svgpath.ApplyVector(m, vec.Vec2{Y: ry})
	hx := math.Hypot(u.X, v.X)
	hy := math.Hypot(u.Y, v.Y)
	return rect.Rect{LLx: c.X - hx, LLy: c.Y - hy, URx: c.X + hx, URy: c.Y + hy}
}

// ToPath returns the outline of the shape, in its local coordinates.
// It returns nil for groups and texts.
func ToPath(n *Node) svgpath.Path {
	switch sh := n.Shape.(type) {
	case *Path:
		return sh.Data
	case *Rect:
		return svgpath.RectPath(sh.X, sh.Y, sh.W, sh.H, sh.RX, sh.RY)
	case *Circle:
		return svgpath.EllipsePath(sh.CX, sh.CY, sh.R, sh.R)
	case *Ellipse:
		return svgpath.EllipsePath(sh.CX, sh.CY, sh.RX, sh.RY)
	case *Line:
		var p svgpath.Path
		p.Start(vec.Vec2{X: sh.X1, Y: sh.Y1})
		p.Line(vec.Vec2{X: sh.X2, Y: sh.Y2})
		return p
	case *Polyline:
		return polyPath(sh.Points, false)
	case *Polygon:
		return polyPath(sh.Points, true)
	}
	return nil
}

func polyPath(points []vec.Vec2, closed bool) svgpath.Path {
	if len(points) == 0 {
		return nil
	}
	var p svgpath.Path
	p.Start(points[0])
	for _, pt := range points[1:] {
		p.Line(pt)
	}
	p.Stop(closed)
	return p
}
