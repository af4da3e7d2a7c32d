package svgdoc

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/benoitkugler/svgtile/svgpath"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// ClipShape returns the nodes drawing the part of n inside r.
// ctm maps the parent frame of n to the frame of r, and inherited
// is the resolved style of the parent of n.
//
// A node inside r (up to svgpath.Tolerance) is returned as a deep copy,
// a node outside r (or only touching its border) gives no node.
// Otherwise, the shape is converted to a path and clipped: the returned
// node keeps the id, style, attributes and transform of n, so that
// stroke widths are unaffected. With the LeaveOpen policy, a clipped
// closed contour is not filled anymore.
//
// Shapes whose rendering depends on their whole outline (paint servers,
// dash patterns and markers) keep their geometry, and are restricted
// to r by a clip region instead.
//
// Texts are never clipped: they are kept whole if their anchor point is in r.
//
// Shapes with invalid geometry are dropped with an error wrapping
// ErrDegenerate or ErrNonFinite. For groups, the result is the group
// with its clipped children, and the errors of the children are joined.
func ClipShape(n *Node, ctm matrix.Matrix, inherited Style, r rect.Rect, policy svgpath.ClosePolicy) ([]*Node, error) {
	m := svgpath.Compose(ctm, n.Transform)
	if !svgpath.IsFiniteMatrix(m) {
		return nil, fmt.Errorf("%w: transform %v", ErrNonFinite, m)
	}

	switch sh := n.Shape.(type) {
	case *Group:
		var (
			children []*Node
			errs     []error
		)
		style := n.Style.Inherit(inherited)
		for _, c := range sh.Children {
			out, err := ClipShape(c, m, style, r, policy)
			children = append(children, out...)
			if err != nil {
				errs = append(errs, err)
			}
		}
		if len(children) == 0 {
			return nil, errors.Join(errs...)
		}
		g := n.shallowCopy()
		g.Shape = &Group{Children: children}
		return []*Node{g}, errors.Join(errs...)
	case *Text:
		anchor := svgpath.Apply(m, vec.Vec2{X: sh.X, Y: sh.Y})
		if !isFinite(anchor.X, anchor.Y) {
			return nil, fmt.Errorf("%w: text anchor", ErrNonFinite)
		}
		if svgpath.ContainsPoint(r, anchor) {
			return []*Node{n.Clone()}, nil
		}
		return nil, nil
	}

	if err := validate(n); err != nil {
		return nil, err
	}
	if svgpath.Det(m) == 0 {
		return nil, fmt.Errorf("%w: singular transform", ErrDegenerate)
	}

	box := BoundingBox(n, ctm)
	if svgpath.ContainsRect(r, box, svgpath.Tolerance) {
		return []*Node{n.Clone()}, nil
	}
	if !svgpath.Overlaps(box, r) {
		return nil, nil
	}
	if n.ClipRegion != nil || outlineDependent(n.Style.Inherit(inherited)) {
		return maskShape(n, m, r)
	}

	clipped, opened := svgpath.ClipPath(ToPath(n).Transform(m), r, policy)
	if !clipped.HasSegments() {
		return nil, nil
	}
	inv, ok := svgpath.Invert(m)
	if !ok {
		return nil, fmt.Errorf("%w: singular transform", ErrDegenerate)
	}
	out := n.shallowCopy()
	out.Shape = &Path{Data: clipped.Transform(inv)}
	if opened {
		out.setStyle("fill", "none")
	}
	return []*Node{out}, nil
}

// outlineDependent returns true if the rendering of a shape with
// the resolved style s changes when its outline is cut:
// paint servers are mapped on the shape bounds, dash patterns
// and markers are laid out from the start of each contour.
func outlineDependent(s Style) bool {
	for _, k := range [...]string{"fill", "stroke"} {
		if strings.HasPrefix(strings.TrimSpace(s[k]), "url(") {
			return true
		}
	}
	for _, k := range [...]string{"stroke-dasharray", "marker-start", "marker-mid", "marker-end"} {
		if v := strings.TrimSpace(s[k]); v != "" && v != "none" {
			return true
		}
	}
	return false
}

// maskShape returns a copy of n whose rendering is restricted to r.
// m maps the local frame of n to the frame of r.
func maskShape(n *Node, m matrix.Matrix, r rect.Rect) ([]*Node, error) {
	inv, ok := svgpath.Invert(m)
	if !ok {
		return nil, fmt.Errorf("%w: singular transform", ErrDegenerate)
	}
	region := svgpath.RectPath(r.LLx, r.LLy, r.URx-r.LLx, r.URy-r.LLy, 0, 0)
	if n.ClipRegion != nil {
		region, _ = svgpath.ClipPath(n.ClipRegion.Transform(m), r, svgpath.Reclose)
		if !region.HasSegments() {
			return nil, nil
		}
	}
	out := n.Clone()
	out.ClipRegion = region.Transform(inv)
	return []*Node{out}, nil
}

// shallowCopy copies the node attributes, but not its shape.
func (n *Node) shallowCopy() *Node {
	return &Node{
		ID:        n.ID,
		Transform: n.Transform,
		Style:     n.Style.Clone(),
		Attrs:     append(n.Attrs[:0:0], n.Attrs...),

		ClipRegion: n.ClipRegion.Copy(),
	}
}

func isFinite(fs ...float64) bool {
	for _, f := range fs {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func pointsFinite(pts []vec.Vec2) bool {
	for _, p := range pts {
		if !isFinite(p.X, p.Y) {
			return false
		}
	}
	return true
}

// validate checks the geometry of a leaf node.
func validate(n *Node) error {
	switch sh := n.Shape.(type) {
	case *Path:
		if !sh.Data.IsFinite() {
			return fmt.Errorf("%w: path data", ErrNonFinite)
		}
		if !sh.Data.HasSegments() {
			return fmt.Errorf("%w: empty path", ErrDegenerate)
		}
	case *Rect:
		if !isFinite(sh.X, sh.Y, sh.W, sh.H, sh.RX, sh.RY) {
			return fmt.Errorf("%w: rect", ErrNonFinite)
		}
		if sh.W <= 0 || sh.H <= 0 {
			return fmt.Errorf("%w: rect of size %gx%g", ErrDegenerate, sh.W, sh.H)
		}
	case *Circle:
		if !isFinite(sh.CX, sh.CY, sh.R) {
			return fmt.Errorf("%w: circle", ErrNonFinite)
		}
		if sh.R <= 0 {
			return fmt.Errorf("%w: circle of radius %g", ErrDegenerate, sh.R)
		}
	case *Ellipse:
		if !isFinite(sh.CX, sh.CY, sh.RX, sh.RY) {
			return fmt.Errorf("%w: ellipse", ErrNonFinite)
		}
		if sh.RX <= 0 || sh.RY <= 0 {
			return fmt.Errorf("%w: ellipse of radii %g, %g", ErrDegenerate, sh.RX, sh.RY)
		}
	case *Line:
		if !isFinite(sh.X1, sh.Y1, sh.X2, sh.Y2) {
			return fmt.Errorf("%w: line", ErrNonFinite)
		}
		if sh.X1 == sh.X2 && sh.Y1 == sh.Y2 {
			return fmt.Errorf("%w: zero length line", ErrDegenerate)
		}
	case *Polyline:
		if !pointsFinite(sh.Points) {
			return fmt.Errorf("%w: polyline", ErrNonFinite)
		}
		if len(sh.Points) < 2 {
			return fmt.Errorf("%w: polyline with %d points", ErrDegenerate, len(sh.Points))
		}
	case *Polygon:
		if !pointsFinite(sh.Points) {
			return fmt.Errorf("%w: polygon", ErrNonFinite)
		}
		if len(sh.Points) < 2 {
			return fmt.Errorf("%w: polygon with %d points", ErrDegenerate, len(sh.Points))
		}
	case nil:
		return fmt.Errorf("%w: missing shape", ErrDegenerate)
	}
	return nil
}
