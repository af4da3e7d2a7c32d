package svgdoc

import (
	"errors"
	"strings"
	"testing"

	"github.com/benoitkugler/svgtile/svgpath"
	"seehuhn.de/go/geom/matrix"
)

func parseDoc(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := ReadStream(strings.NewReader(src), StrictErrorMode)
	if err != nil {
		t.Fatalf("parsing document: %v", err)
	}
	return doc
}

func findID(n *Node, id string) *Node {
	var out *Node
	walk(n, func(c *Node) bool {
		if c.ID == id {
			out = c
		}
		return out == nil
	})
	return out
}

func TestReadFile_Map(t *testing.T) {
	doc, err := ReadFile("testdata/map.svg", WarnErrorMode)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Width != 200 || doc.Height != 100 || doc.Unit != "mm" || doc.Scale != 1 {
		t.Fatalf("unexpected canvas %vx%v %v%s", doc.Width, doc.Height, doc.Scale, doc.Unit)
	}
	if len(doc.Titles) != 1 || doc.Titles[0] != "Dungeon level 1" {
		t.Fatalf("unexpected titles %q", doc.Titles)
	}
	if !strings.Contains(doc.Defs, `id="water"`) || !strings.Contains(doc.Defs, "<style>") {
		t.Fatalf("definitions not kept: %q", doc.Defs)
	}
	if doc.Namespaces["http://www.inkscape.org/namespaces/inkscape"] != "inkscape" {
		t.Fatalf("unexpected namespaces %v", doc.Namespaces)
	}

	layer := findID(doc.Root, "layer1")
	if layer == nil || len(layer.Children()) != 8 {
		t.Fatalf("unexpected layer %v", layer)
	}
	if layer.Style["fill"] != "#eeeeee" || layer.Style["stroke-width"] != "0.5" {
		t.Fatalf("unexpected style %v", layer.Style)
	}
	if len(layer.Attrs) != 1 || layer.Attrs[0].Name.Local != "label" {
		t.Fatalf("unexpected attributes %v", layer.Attrs)
	}

	hall := findID(doc.Root, "hall")
	if r, ok := hall.Shape.(*Rect); !ok || *r != (Rect{X: 10, Y: 10, W: 60, H: 40, RX: 2}) {
		t.Fatalf("unexpected hall %v", hall.Shape)
	}
	corridor := findID(doc.Root, "corridor")
	if len(corridor.Attrs) != 1 || corridor.Attrs[0].Value != "wall" {
		t.Fatalf("class must be kept: %v", corridor.Attrs)
	}
	pool := findID(doc.Root, "pool")
	if c, ok := pool.Shape.(*Circle); !ok || c.R != 20 {
		t.Fatalf("unexpected pool %v", pool.Shape)
	}

	// style attribute
	g := layer.Children()[2]
	if g.Style["fill"] != "url(#water)" || g.Style["stroke-width"] != "1" {
		t.Fatalf("unexpected style %v", g.Style)
	}
	if g.Transform != svgpath.Translate(130, 10) {
		t.Fatalf("unexpected transform %v", g.Transform)
	}

	// <use> instance
	use := layer.Children()[6]
	if use.Transform != svgpath.Translate(70, 35) || len(use.Children()) != 1 {
		t.Fatalf("unexpected use %v", use)
	}
	door := use.Children()[0]
	if door.ID != "" || door.Style["fill"] != "brown" || len(door.Children()) != 1 {
		t.Fatalf("unexpected door instance %v", door)
	}

	text := layer.Children()[7].Shape.(*Text)
	if text.X != 20 || text.Y != 30 || !strings.Contains(text.Content, "<tspan") {
		t.Fatalf("unexpected text %v", text)
	}
}

func TestReadStream_Invalid(t *testing.T) {
	for _, src := range []string{
		"",
		"not xml at all <",
		`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><g></svg>`,
		`<html><body/></html>`,
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 0 10"/>`,
		`<svg xmlns="http://www.w3.org/2000/svg" width="-5" height="10"/>`,
		`<svg xmlns="http://www.w3.org/2000/svg"/>`,
		`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><text x="1">a <tspan>b</text></svg>`,
	} {
		for _, mode := range []ErrorMode{IgnoreErrorMode, WarnErrorMode} {
			_, err := ReadStream(strings.NewReader(src), mode)
			if !errors.Is(err, ErrInvalidDocument) {
				t.Fatalf("%q (%s): expected an invalid document error, got %v", src, mode, err)
			}
		}
	}
}

func TestReadStream_ErrorMode(t *testing.T) {
	src := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">
		<foreignObject><div/></foreignObject>
		<rect width="2" height="2"/>
	</svg>`
	if _, err := ReadStream(strings.NewReader(src), StrictErrorMode); err == nil {
		t.Fatal("expected an error in strict mode")
	}
	doc, err := ReadStream(strings.NewReader(src), IgnoreErrorMode)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Root.Children()) != 1 {
		t.Fatalf("unknown element must be skipped, got %d children", len(doc.Root.Children()))
	}
}

func TestReadStream_Units(t *testing.T) {
	doc := parseDoc(t, `<svg xmlns="http://www.w3.org/2000/svg" width="1in" height="2in">
		<rect x="50%" width="1in" height="10mm"/>
	</svg>`)
	if doc.Width != 96 || doc.Height != 192 || doc.Unit != "in" || doc.Scale != 1./96 {
		t.Fatalf("unexpected canvas %vx%v %v%s", doc.Width, doc.Height, doc.Scale, doc.Unit)
	}
	r := doc.Root.Children()[0].Shape.(*Rect)
	if r.X != 48 || r.W != 96 || r.H != 10*pixelsPer("mm") {
		t.Fatalf("unexpected rect %v", r)
	}
}

func TestParseTransform(t *testing.T) {
	m, err := ParseTransform("translate(10, 20) scale(2)")
	if err != nil {
		t.Fatal(err)
	}
	if m != (matrix.Matrix{2, 0, 0, 2, 10, 20}) {
		t.Fatalf("unexpected transform %v", m)
	}
	m, err = ParseTransform("rotate(90 10 10)")
	if err != nil {
		t.Fatal(err)
	}
	if m != (matrix.Matrix{0, 1, -1, 0, 20, 0}) {
		t.Fatalf("unexpected transform %v", m)
	}
	if m, _ := ParseTransform(""); m != matrix.Identity {
		t.Fatalf("empty transform must be the identity, got %v", m)
	}
	if _, err := ParseTransform("scale(1 2 3)"); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := ParseTransform("perspective(3)"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestUse_Cycle(t *testing.T) {
	src := `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 10 10">
		<g id="a"><use xlink:href="#a"/></g>
	</svg>`
	_, err := ReadStream(strings.NewReader(src), IgnoreErrorMode)
	if !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected a cycle error, got %v", err)
	}
}

func TestUse_Nested(t *testing.T) {
	doc := parseDoc(t, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">
		<defs>
			<rect id="tile" width="1" height="1"/>
			<g id="pair"><use href="#tile"/><use href="#tile" x="2"/></g>
		</defs>
		<use href="#pair" y="5"/>
	</svg>`)
	use := doc.Root.Children()[0]
	pair := use.Children()[0]
	if len(pair.Children()) != 2 {
		t.Fatalf("unexpected instance %v", pair)
	}
	second := pair.Children()[1]
	if second.Transform != svgpath.Translate(2, 0) || len(second.Children()) != 1 {
		t.Fatalf("nested use not resolved: %v", second)
	}
	box := BoundingBox(doc.Root, matrix.Identity)
	if box.LLx != 0 || box.LLy != 5 || box.URx != 3 || box.URy != 6 {
		t.Fatalf("unexpected bounds %v", box)
	}
}

func TestStyle_Inherit(t *testing.T) {
	outer := Style{"fill": "red", "stroke": "blue", "opacity": "0.5"}
	inner := Style{"fill": "green"}
	got := inner.Inherit(outer)
	if got["fill"] != "green" || got["stroke"] != "blue" {
		t.Fatalf("unexpected resolved style %v", got)
	}
	if _, ok := got["opacity"]; ok {
		t.Fatal("opacity must not be inherited")
	}
}
