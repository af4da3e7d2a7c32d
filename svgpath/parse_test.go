package svgpath

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

func TestParseNumbers(t *testing.T) {
	for _, test := range []struct {
		in   string
		want []float64
	}{
		{"1 2,3", []float64{1, 2, 3}},
		{"1.5.5-2", []float64{1.5, 0.5, -2}},
		{"-1-2", []float64{-1, -2}},
		{"1e-2 3E+1", []float64{0.01, 30}},
		{"  ", nil},
	} {
		got, err := ParseNumbers(test.in)
		if err != nil {
			t.Fatalf("parsing %q: %v", test.in, err)
		}
		if len(got) != len(test.want) {
			t.Fatalf("parsing %q: expected %v, got %v", test.in, test.want, got)
		}
		for i := range got {
			if got[i] != test.want[i] {
				t.Fatalf("parsing %q: expected %v, got %v", test.in, test.want, got)
			}
		}
	}
}

func TestParsePath_Absolute(t *testing.T) {
	p, err := ParsePath("M 10 20 L 30,40 H 50 V 60 Q 1 2 3 4 C 1 2 3 4 5 6 Z")
	if err != nil {
		t.Fatal(err)
	}
	want := Path{
		MoveTo{X: 10, Y: 20},
		LineTo{X: 30, Y: 40},
		LineTo{X: 50, Y: 40},
		LineTo{X: 50, Y: 60},
		QuadTo{{X: 1, Y: 2}, {X: 3, Y: 4}},
		CubicTo{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}},
		Close{},
	}
	if !reflect.DeepEqual(p, want) {
		t.Fatalf("expected %v, got %v", want, p)
	}
}

func TestParsePath_Relative(t *testing.T) {
	p, err := ParsePath("m10 10 20 0 l0 10h-5v5z l1 1")
	if err != nil {
		t.Fatal(err)
	}
	want := Path{
		MoveTo{X: 10, Y: 10},
		LineTo{X: 30, Y: 10},
		LineTo{X: 30, Y: 20},
		LineTo{X: 25, Y: 20},
		LineTo{X: 25, Y: 25},
		Close{},
		LineTo{X: 11, Y: 11},
	}
	if !reflect.DeepEqual(p, want) {
		t.Fatalf("expected %v, got %v", want, p)
	}
}

func TestParsePath_Smooth(t *testing.T) {
	p, err := ParsePath("M0 0 C 0 10 10 10 10 0 S 20 -10 20 0 M0 0 Q 5 5 10 0 T 20 0")
	if err != nil {
		t.Fatal(err)
	}
	if c := p[2].(CubicTo); c[0] != (vec.Vec2{X: 10, Y: -10}) {
		t.Fatalf("unexpected reflected control point %v", c[0])
	}
	if q := p[5].(QuadTo); q[0] != (vec.Vec2{X: 15, Y: -5}) {
		t.Fatalf("unexpected reflected control point %v", q[0])
	}
}

func TestParsePath_Arc(t *testing.T) {
	p, err := ParsePath("M 0 0 A 10 10 0 0 1 20 0")
	if err != nil {
		t.Fatal(err)
	}
	for _, op := range p[1:] {
		if _, ok := op.(CubicTo); !ok {
			t.Fatalf("arcs must be converted to cubics, got %T", op)
		}
	}
	if last := p[len(p)-1].(CubicTo); last[2] != (vec.Vec2{X: 20, Y: 0}) {
		t.Fatalf("arc must end exactly on its end point, got %v", last[2])
	}
	box := p.Bounds(matrix.Identity)
	// half circle of radius 10 centered at (10, 0), bulging on one side
	if math.Abs(box.URy-box.LLy-10) > 1e-2 {
		t.Fatalf("unexpected arc extent %v", box)
	}
}

func TestParsePath_Errors(t *testing.T) {
	if _, err := ParsePath("M 10"); !errors.Is(err, errParamMismatch) {
		t.Fatalf("expected param mismatch, got %v", err)
	}
	if _, err := ParsePath("M 0 0 X 1 2"); !errors.Is(err, errCommandUnknown) {
		t.Fatalf("expected unknown command, got %v", err)
	}
}

func TestToSVGPath_RoundTrip(t *testing.T) {
	src := "M0.1,0.2 L3,4 Q5,6 7,8 C9,10 11,12 -13,14 Z"
	p, err := ParsePath(src)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.ToSVGPath(); got != src {
		t.Fatalf("expected %q, got %q", src, got)
	}
}
