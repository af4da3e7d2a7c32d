package svgdoc

import (
	"math"
	"testing"

	"github.com/benoitkugler/svgtile/svgpath"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

func almostEqualRect(a, b rect.Rect, eps float64) bool {
	return math.Abs(a.LLx-b.LLx) <= eps && math.Abs(a.LLy-b.LLy) <= eps &&
		math.Abs(a.URx-b.URx) <= eps && math.Abs(a.URy-b.URy) <= eps
}

func leaf(sh Shape) *Node { return &Node{Transform: matrix.Identity, Shape: sh} }

func group(children ...*Node) *Node {
	return &Node{Transform: matrix.Identity, Shape: &Group{Children: children}}
}

func TestBoundingBox_Shapes(t *testing.T) {
	for _, test := range []struct {
		node *Node
		exp  rect.Rect
	}{
		{leaf(&Rect{X: 1, Y: 2, W: 3, H: 4}), rect.Rect{LLx: 1, LLy: 2, URx: 4, URy: 6}},
		{leaf(&Circle{CX: 5, CY: 5, R: 2}), rect.Rect{LLx: 3, LLy: 3, URx: 7, URy: 7}},
		{leaf(&Line{X1: 4, Y1: 0, X2: 0, Y2: 3}), rect.Rect{LLx: 0, LLy: 0, URx: 4, URy: 3}},
		{leaf(&Polygon{Points: []vec.Vec2{{X: 0, Y: 0}, {X: 2, Y: -1}, {X: 1, Y: 5}}}), rect.Rect{LLx: 0, LLy: -1, URx: 2, URy: 5}},
		{leaf(&Text{X: 3, Y: 4}), rect.Rect{LLx: 3, LLy: 4, URx: 3, URy: 4}},
		{group(leaf(&Rect{W: 1, H: 1}), group(), leaf(&Rect{X: 5, Y: 5, W: 1, H: 1})), rect.Rect{LLx: 0, LLy: 0, URx: 6, URy: 6}},
	} {
		if got := BoundingBox(test.node, matrix.Identity); !almostEqualRect(got, test.exp, 1e-12) {
			t.Errorf("expected %v, got %v", test.exp, got)
		}
	}

	if !svgpath.IsEmpty(BoundingBox(group(group()), matrix.Identity)) {
		t.Fatal("nested empty groups must have empty bounds")
	}
}

func TestBoundingBox_RotatedEllipse(t *testing.T) {
	n := leaf(&Ellipse{RX: 10, RY: 5})
	n.Transform = svgpath.Rotate(90)
	got := BoundingBox(n, svgpath.Translate(100, 0))
	exp := rect.Rect{LLx: 95, LLy: -10, URx: 105, URy: 10}
	if !almostEqualRect(got, exp, 1e-12) {
		t.Fatalf("expected %v, got %v", exp, got)
	}

	// compare with the outline
	n.Transform = svgpath.Rotate(30)
	got = BoundingBox(n, matrix.Identity)
	sampled := svgpath.EllipsePath(0, 0, 10, 5).Bounds(n.Transform)
	if !almostEqualRect(got, sampled, 1e-3) {
		t.Fatalf("expected %v, got %v", sampled, got)
	}
	hx := math.Sqrt(100*0.75 + 25*0.25)
	if math.Abs(got.URx-hx) > 1e-9 {
		t.Fatalf("expected half width %g, got %g", hx, got.URx)
	}
}

func TestBoundingBox_Nested(t *testing.T) {
	inner := leaf(&Rect{W: 10, H: 10})
	inner.Transform = svgpath.Scale(2, 2)
	g := group(inner)
	g.Transform = svgpath.Translate(5, 5)
	got := BoundingBox(group(g), svgpath.Translate(-5, 0))
	exp := rect.Rect{LLx: 0, LLy: 5, URx: 20, URy: 25}
	if got != exp {
		t.Fatalf("expected %v, got %v", exp, got)
	}
}
