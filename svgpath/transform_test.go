package svgpath

import (
	"math"
	"math/rand"
	"testing"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

func randMatrix() matrix.Matrix {
	var m matrix.Matrix
	for i := range m {
		m[i] = rand.Float64()*20 - 10
	}
	return m
}

func closeMatrix(a, b matrix.Matrix, eps float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func TestCompose_Identity(t *testing.T) {
	for range [50]int{} {
		m := randMatrix()
		if got := Compose(matrix.Identity, m); got != m {
			t.Fatalf("identity * %v = %v", m, got)
		}
		if got := Compose(m, matrix.Identity); got != m {
			t.Fatalf("%v * identity = %v", m, got)
		}
	}
}

func TestCompose_Associative(t *testing.T) {
	for range [50]int{} {
		a, b, c := randMatrix(), randMatrix(), randMatrix()
		left := Compose(Compose(a, b), c)
		right := Compose(a, Compose(b, c))
		if !closeMatrix(left, right, 1e-9) {
			t.Fatalf("(ab)c = %v, a(bc) = %v", left, right)
		}
	}
}

func TestCompose_Order(t *testing.T) {
	// child first: scale then translate
	m := Compose(Translate(10, 0), Scale(2, 2))
	got := Apply(m, vec.Vec2{X: 1, Y: 1})
	if got != (vec.Vec2{X: 12, Y: 2}) {
		t.Fatalf("unexpected point %v", got)
	}
}

func TestApply_Translation(t *testing.T) {
	p := vec.Vec2{X: 0.1, Y: 0.7}
	if got := Apply(matrix.Identity, p); got != p {
		t.Fatalf("identity moved %v to %v", p, got)
	}
	dx, dy := -0.3, 1e-3
	got := Apply(Translate(dx, dy), p)
	if want := (vec.Vec2{X: p.X + dx, Y: p.Y + dy}); got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
	back := Apply(Translate(-dx, -dy), got)
	if math.Abs(back.X-p.X) > 1e-15 || math.Abs(back.Y-p.Y) > 1e-15 {
		t.Fatalf("round trip drifted: %v", back)
	}
}

func TestApply_General(t *testing.T) {
	m := Compose(Translate(5, 7), Compose(Rotate(90), Scale(2, 3)))
	got := Apply(m, vec.Vec2{X: 1, Y: 1})
	// scale: (2, 3), rotate 90: (-3, 2), translate: (2, 9)
	if got != (vec.Vec2{X: 2, Y: 9}) {
		t.Fatalf("unexpected point %v", got)
	}
	sk := Apply(SkewX(45), vec.Vec2{X: 0, Y: 1})
	if math.Abs(sk.X-1) > 1e-12 || sk.Y != 1 {
		t.Fatalf("unexpected skew %v", sk)
	}
}

func TestInvert(t *testing.T) {
	for range [50]int{} {
		m := randMatrix()
		if math.Abs(Det(m)) < 1 {
			continue // badly conditioned
		}
		inv, ok := Invert(m)
		if !ok {
			t.Fatalf("%v should be invertible", m)
		}
		if got := Compose(m, inv); !closeMatrix(got, matrix.Identity, 1e-6) {
			t.Fatalf("m * m^-1 = %v", got)
		}
	}
	if _, ok := Invert(Scale(0, 1)); ok {
		t.Fatal("singular matrix inverted")
	}
	if _, ok := Invert(matrix.Matrix{math.NaN(), 0, 0, 1, 0, 0}); ok {
		t.Fatal("non finite matrix inverted")
	}
	if inv, _ := Invert(Translate(3, -4)); inv != Translate(-3, 4) {
		t.Fatalf("unexpected translation inverse %v", inv)
	}
}
