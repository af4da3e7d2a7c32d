// Provides an in-memory tree representation of SVG documents,
// with the node level geometry (bounds and clipping) needed to
// cut a document into tiles.
//
// Documents are read with ReadStream or ReadFile, and written
// back with (*Document).WriteTo.
package svgdoc

import (
	"encoding/xml"
	"errors"
	"sort"

	"github.com/benoitkugler/svgtile/svgpath"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

var (
	// ErrInvalidDocument is returned for input which is not a usable SVG
	// document: malformed XML, missing <svg> root or non-positive canvas.
	ErrInvalidDocument = errors.New("invalid svg document")
	// ErrDegenerate marks shapes with zero size, empty geometry or
	// a singular transform.
	ErrDegenerate = errors.New("degenerate geometry")
	// ErrNonFinite marks shapes with NaN or infinite coordinates.
	ErrNonFinite = errors.New("non finite geometry")
)

// ErrorMode is the for setting how the parser reacts to unparsed elements
type ErrorMode uint8

const (
	// IgnoreErrorMode skips unparsed SVG elements
	IgnoreErrorMode ErrorMode = iota

	// WarnErrorMode outputs a warning when an unparsed SVG element is found
	WarnErrorMode

	// StrictErrorMode causes a error when an unparsed SVG element is found
	StrictErrorMode
)

func (m ErrorMode) String() string {
	switch m {
	case IgnoreErrorMode:
		return "ignore"
	case WarnErrorMode:
		return "warn"
	case StrictErrorMode:
		return "strict"
	default:
		return "<unknown ErrorMode>"
	}
}

// ParseErrorMode is the inverse of ErrorMode.String.
func ParseErrorMode(s string) (ErrorMode, error) {
	switch s {
	case "ignore":
		return IgnoreErrorMode, nil
	case "warn", "":
		return WarnErrorMode, nil
	case "strict":
		return StrictErrorMode, nil
	}
	return 0, errors.New("unknown error mode " + s)
}

// Bounds defines a bounding box, such as a viewport
// or a path extent.
type Bounds struct{ X, Y, W, H float64 }

// Document is a parsed SVG file.
//
// The canvas frame has its origin at the top left corner of the viewBox
// and spans Width x Height user units.
type Document struct {
	Width, Height float64
	ViewBox       Bounds

	// Unit is the unit of the root width and height attributes
	// (mm, cm, in, pt, pc, px or empty), and Scale the size
	// of one user unit expressed in Unit.
	Unit  string
	Scale float64

	// Defs is the verbatim content of the <defs> and <style>
	// elements, copied in every tile.
	Defs string

	// Namespaces maps the URI of the namespaces declared on
	// the root element to their prefix.
	Namespaces map[string]string

	Titles       []string // Title elements collect here
	Descriptions []string // Description elements collect here

	Root *Node // a Group
}

// NewDocument returns an empty document of the given size,
// with the same unit and definitions as d.
func (d *Document) NewDocument(width, height float64) *Document {
	return &Document{
		Width:      width,
		Height:     height,
		ViewBox:    Bounds{W: width, H: height},
		Unit:       d.Unit,
		Scale:      d.Scale,
		Defs:       d.Defs,
		Namespaces: d.Namespaces,
		Root:       &Node{Transform: matrix.Identity, Shape: &Group{}},
	}
}

// CanvasTransform maps user coordinates to the canvas frame.
func (d *Document) CanvasTransform() matrix.Matrix {
	return svgpath.Translate(-d.ViewBox.X, -d.ViewBox.Y)
}

// Node is one element of the document tree.
type Node struct {
	ID        string
	Transform matrix.Matrix // local transform, matrix.Identity if none
	Style     Style         // presentation attributes set on the element
	Attrs     []xml.Attr    // other attributes, not inherited
	Shape     Shape

	// ClipRegion, if not nil, is a closed outline restricting the
	// rendering of the node, in its local coordinates (after Transform).
	// It is written as a <clipPath> element.
	ClipRegion svgpath.Path
}

// Shape is the kind of a Node. The set of implementations is closed:
// *Group, *Path, *Rect, *Circle, *Ellipse, *Line, *Polyline, *Polygon
// and *Text.
type Shape interface {
	isShape()
}

type Group struct {
	Children []*Node
}

type Path struct {
	Data svgpath.Path
}

type Rect struct {
	X, Y, W, H, RX, RY float64
}

type Circle struct {
	CX, CY, R float64
}

type Ellipse struct {
	CX, CY, RX, RY float64
}

type Line struct {
	X1, Y1, X2, Y2 float64
}

type Polyline struct {
	Points []vec.Vec2
}

type Polygon struct {
	Points []vec.Vec2
}

// Text is never clipped: its content (character data
// and child elements like <tspan>) is kept verbatim.
type Text struct {
	X, Y    float64
	Content string
}

func (*Group) isShape()    {}
func (*Path) isShape()     {}
func (*Rect) isShape()     {}
func (*Circle) isShape()   {}
func (*Ellipse) isShape()  {}
func (*Line) isShape()     {}
func (*Polyline) isShape() {}
func (*Polygon) isShape()  {}
func (*Text) isShape()     {}

// Style maps presentation attributes to their value.
type Style map[string]string

// properties applying to the element as a whole
var nonInherited = map[string]bool{
	"opacity":   true,
	"clip-path": true,
	"mask":      true,
	"filter":    true,
	"display":   true,
}

// Inherit returns the style resolved from the parent (already resolved) style:
// the values of s win. Properties like opacity are not inherited.
func (s Style) Inherit(parent Style) Style {
	out := make(Style, len(parent)+len(s))
	for k, v := range parent {
		if !nonInherited[k] {
			out[k] = v
		}
	}
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Clone returns a copy of s, or nil if s is empty.
func (s Style) Clone() Style {
	if len(s) == 0 {
		return nil
	}
	out := make(Style, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Keys returns the sorted keys of s.
func (s Style) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	out := &Node{
		ID:         n.ID,
		Transform:  n.Transform,
		Style:      n.Style.Clone(),
		Attrs:      append([]xml.Attr(nil), n.Attrs...),
		ClipRegion: n.ClipRegion.Copy(),
	}
	switch sh := n.Shape.(type) {
	case *Group:
		g := &Group{Children: make([]*Node, len(sh.Children))}
		for i, c := range sh.Children {
			g.Children[i] = c.Clone()
		}
		out.Shape = g
	case *Path:
		out.Shape = &Path{Data: sh.Data.Copy()}
	case *Rect:
		r := *sh
		out.Shape = &r
	case *Circle:
		c := *sh
		out.Shape = &c
	case *Ellipse:
		e := *sh
		out.Shape = &e
	case *Line:
		l := *sh
		out.Shape = &l
	case *Polyline:
		out.Shape = &Polyline{Points: append([]vec.Vec2(nil), sh.Points...)}
	case *Polygon:
		out.Shape = &Polygon{Points: append([]vec.Vec2(nil), sh.Points...)}
	case *Text:
		t := *sh
		out.Shape = &t
	}
	return out
}

// Children returns the children of a group node, nil otherwise.
func (n *Node) Children() []*Node {
	if g, ok := n.Shape.(*Group); ok {
		return g.Children
	}
	return nil
}

// IsGroup returns true for group nodes.
func (n *Node) IsGroup() bool {
	_, ok := n.Shape.(*Group)
	return ok
}

// clearIDs removes the id attributes of the subtree, so that
// an instantiated <use> does not duplicate them.
func (n *Node) clearIDs() {
	n.ID = ""
	for _, c := range n.Children() {
		c.clearIDs()
	}
}

// Tag returns the SVG element name of the node.
func (n *Node) Tag() string {
	switch n.Shape.(type) {
	case *Group:
		return "g"
	case *Path:
		return "path"
	case *Rect:
		return "rect"
	case *Circle:
		return "circle"
	case *Ellipse:
		return "ellipse"
	case *Line:
		return "line"
	case *Polyline:
		return "polyline"
	case *Polygon:
		return "polygon"
	case *Text:
		return "text"
	}
	return ""
}
