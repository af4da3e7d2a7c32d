package svgpath

import (
	"math"
	"reflect"
	"testing"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

func mustParse(t *testing.T, d string) Path {
	t.Helper()
	p, err := ParsePath(d)
	if err != nil {
		t.Fatalf("parsing %q: %v", d, err)
	}
	return p
}

func TestClipPath_Contained(t *testing.T) {
	p := mustParse(t, "M10 10 C 20 0 30 20 40 10 L 40 40 Z")
	r := rect.Rect{LLx: 0, LLy: 0, URx: 50, URy: 50}
	got, opened := ClipPath(p, r, Reclose)
	if opened || !reflect.DeepEqual(got, p) {
		t.Fatalf("contained path must be unchanged, got %v", got)
	}
}

func TestClipPath_Disjoint(t *testing.T) {
	p := mustParse(t, "M0 0 L 10 10")
	for _, r := range []rect.Rect{
		{LLx: 20, LLy: 20, URx: 30, URy: 30},
		{LLx: 10, LLy: 0, URx: 20, URy: 10}, // touching at (10, 10) only
		{LLx: -10, LLy: 0, URx: 0, URy: 10}, // touching edge
	} {
		if got, _ := ClipPath(p, r, Reclose); got != nil {
			t.Fatalf("clipping against %v: expected nothing, got %v", r, got)
		}
	}
}

func TestClipPath_Degenerate(t *testing.T) {
	r := rect.Rect{LLx: 0, LLy: 0, URx: 10, URy: 10}
	if got, _ := ClipPath(nil, r, Reclose); got != nil {
		t.Fatalf("expected nothing, got %v", got)
	}
	p := mustParse(t, "M1 1 L 5 5")
	if got, _ := ClipPath(p, rect.Rect{LLx: 0, LLy: 0, URx: 0, URy: 10}, Reclose); got != nil {
		t.Fatalf("expected nothing for a flat rectangle, got %v", got)
	}
}

func TestClipPath_OpenLine(t *testing.T) {
	p := mustParse(t, "M0 0 L 100 100")
	r := rect.Rect{LLx: 0, LLy: 0, URx: 55, URy: 55}
	got, _ := ClipPath(p, r, Reclose)
	if len(got) != 2 {
		t.Fatalf("expected a single segment, got %v", got)
	}
	end := vec.Vec2(got[1].(LineTo))
	if math.Abs(end.X-55) > 1e-9 || math.Abs(end.Y-55) > 1e-9 {
		t.Fatalf("unexpected end point %v", end)
	}
}

func TestClipPath_OpenStaysOpen(t *testing.T) {
	// a U shape crossing the right border twice
	p := mustParse(t, "M0 0 L 20 0 L 20 10 L 0 10")
	r := rect.Rect{LLx: -5, LLy: -5, URx: 10, URy: 15}
	got, opened := ClipPath(p, r, Reclose)
	want := mustParse(t, "M0 0 L 10 0 M 10 10 L 0 10")
	if opened || !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestClipPath_ClosePolicy(t *testing.T) {
	r := rect.Rect{LLx: 5, LLy: -5, URx: 20, URy: 20}
	for _, src := range []string{
		"M0 0 L 10 0 L 10 10 L 0 10 Z",
		"M10 0 L 10 10 L 0 10 L 0 0 Z", // starts inside: the contour wraps around
	} {
		p := mustParse(t, src)

		got, opened := ClipPath(p, r, Reclose)
		want := mustParse(t, "M5 0 L 10 0 L 10 10 L 5 10 Z")
		if opened || !reflect.DeepEqual(got, want) {
			t.Fatalf("reclose %q: expected %v, got %v", src, want, got)
		}

		got, opened = ClipPath(p, r, LeaveOpen)
		want = mustParse(t, "M5 0 L 10 0 L 10 10 L 5 10")
		if !opened || !reflect.DeepEqual(got, want) {
			t.Fatalf("leave open %q: expected %v, got %v", src, want, got)
		}
	}
}

func TestClipPath_CubicDegree(t *testing.T) {
	p := mustParse(t, "M0 50 C 30 -50 70 150 100 50")
	r := rect.Rect{LLx: 20, LLy: 20, URx: 80, URy: 100}
	got, _ := ClipPath(p, r, Reclose)
	if !got.HasSegments() {
		t.Fatal("expected some output")
	}
	for _, op := range got {
		switch op.(type) {
		case MoveTo, CubicTo:
		default:
			t.Fatalf("degree changed: %T in %v", op, got)
		}
	}
	if box := got.Bounds(matrix.Identity); !ContainsRect(r, box, Tolerance) {
		t.Fatalf("clipped path %v overflows %v", box, r)
	}
}

func TestClipPath_QuadInside(t *testing.T) {
	p := mustParse(t, "M0 0 Q 50 100 100 0")
	r := rect.Rect{LLx: 0, LLy: 0, URx: 100, URy: 30}
	got, _ := ClipPath(p, r, Reclose)
	for _, op := range got {
		if _, ok := op.(LineTo); ok {
			t.Fatalf("degree changed in %v", got)
		}
	}
	if box := got.Bounds(matrix.Identity); !ContainsRect(r, box, Tolerance) {
		t.Fatalf("clipped path %v overflows %v", box, r)
	}
}

func TestClipPath_Idempotent(t *testing.T) {
	r := rect.Rect{LLx: 10, LLy: 10, URx: 60, URy: 45}
	for _, src := range []string{
		"M0 50 C 30 -50 70 150 100 50",
		"M0 0 L 100 100",
		"M-10 20 Q 30 90 70 -5 T 20 30 Z",
		"M 30 30 A 25 15 30 1 0 50 40 Z",
	} {
		p := mustParse(t, src)
		for _, policy := range []ClosePolicy{Reclose, LeaveOpen} {
			once, _ := ClipPath(p, r, policy)
			twice, _ := ClipPath(once, r, policy)
			if !reflect.DeepEqual(once, twice) {
				t.Fatalf("%q (%s): clipping is not idempotent:\n%v\n%v", src, policy, once, twice)
			}
		}
	}
}

func TestSegment_Split(t *testing.T) {
	s := segment{deg: 3, pts: [4]vec.Vec2{{X: 0, Y: 0}, {X: 10, Y: 30}, {X: 20, Y: -10}, {X: 30, Y: 0}}}
	left, right := s.split(0.3)
	if left.end() != right.start() {
		t.Fatalf("pieces must share their cut point")
	}
	for _, u := range []float64{0.1, 0.5, 0.9} {
		a, b := left.at(u), s.at(u*0.3)
		if math.Abs(a.X-b.X) > 1e-9 || math.Abs(a.Y-b.Y) > 1e-9 {
			t.Fatalf("left piece differs from the original curve: %v != %v", a, b)
		}
		a, b = right.at(u), s.at(0.3+u*0.7)
		if math.Abs(a.X-b.X) > 1e-9 || math.Abs(a.Y-b.Y) > 1e-9 {
			t.Fatalf("right piece differs from the original curve: %v != %v", a, b)
		}
	}
}

func TestParseClosePolicy(t *testing.T) {
	for _, p := range []ClosePolicy{Reclose, LeaveOpen} {
		got, err := ParseClosePolicy(p.String())
		if err != nil || got != p {
			t.Errorf("expected %s, got %s (%v)", p, got, err)
		}
	}
	if _, err := ParseClosePolicy("sometimes"); err == nil {
		t.Error("expected an error")
	}
}
