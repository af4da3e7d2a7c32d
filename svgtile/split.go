package svgtile

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/benoitkugler/svgtile/svgdoc"
	"github.com/benoitkugler/svgtile/svgpath"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
)

// Options parametrize a Splitter.
type Options struct {
	// Policy applies to closed contours crossing the tile border.
	Policy svgpath.ClosePolicy
	// Logger defaults to slog.Default()
	Logger *slog.Logger
}

// Warning reports a shape dropped from a tile.
type Warning struct {
	Row, Col int
	NodePath string // such as /g[0]/rect[2]
	NodeID   string
	Err      error
}

func (w Warning) Error() string {
	return fmt.Sprintf("tile (%d, %d): node %s: %s", w.Row, w.Col, w.NodePath, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

// Splitter extracts tiles from a document.
// It is safe for concurrent use, as long as the source
// document is not modified.
type Splitter struct {
	doc    *svgdoc.Document
	policy svgpath.ClosePolicy
	log    *slog.Logger

	// bounds of every node of the source, in the canvas frame,
	// filled once by New and read only afterwards
	boxes map[*svgdoc.Node]rect.Rect
}

// everywhere is used for nodes with non finite bounds,
// so that they are reported in every tile.
var everywhere = rect.Rect{
	LLx: math.Inf(-1), LLy: math.Inf(-1),
	URx: math.Inf(1), URy: math.Inf(1),
}

// New prepares the splitting of doc, which must not be modified
// while the Splitter is in use.
func New(doc *svgdoc.Document, opts Options) *Splitter {
	s := &Splitter{
		doc:    doc,
		policy: opts.Policy,
		log:    opts.Logger,
		boxes:  make(map[*svgdoc.Node]rect.Rect),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if doc.Root != nil {
		// the root transform is ignored, as in the writer
		for _, c := range doc.Root.Children() {
			s.measure(c, doc.CanvasTransform())
		}
	}
	return s
}

// Document returns the source document.
func (s *Splitter) Document() *svgdoc.Document { return s.doc }

func (s *Splitter) measure(n *svgdoc.Node, m matrix.Matrix) rect.Rect {
	var box rect.Rect
	if n.IsGroup() {
		box = svgpath.EmptyRect
		m2 := svgpath.Compose(m, n.Transform)
		for _, c := range n.Children() {
			box = svgpath.Union(box, s.measure(c, m2))
		}
	} else {
		box = svgdoc.BoundingBox(n, m)
	}
	if box != svgpath.EmptyRect && !finiteRect(box) {
		box = everywhere
	}
	s.boxes[n] = box
	return box
}

func finiteRect(r rect.Rect) bool {
	for _, v := range [...]float64{r.LLx, r.LLy, r.URx, r.URy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// splitPass holds the state of one Split call.
type splitPass struct {
	*Splitter
	tile     Tile
	clip     rect.Rect // the tile, in its own frame
	warnings []Warning
}

// Split returns a new document of the size of the tile, with the content
// of the source document visible in the tile, expressed in the tile frame.
//
// Shapes crossing the border of the tile are clipped, and groups are kept
// only when they carry an id, style or attributes: the transforms of the other
// groups are folded into their descendants. Shapes with invalid geometry
// are dropped and reported as warnings.
//
// A tile with no content gives an empty, valid document.
func (s *Splitter) Split(tile Tile) (*svgdoc.Document, []Warning) {
	out := s.doc.NewDocument(tile.Width(), tile.Height())
	out.Titles = append(out.Titles, s.doc.Titles...)
	out.Descriptions = append(out.Descriptions, s.doc.Descriptions...)
	if s.doc.Root == nil {
		return out, nil
	}
	out.Root.Style = s.doc.Root.Style.Clone()
	out.Root.Attrs = append(out.Root.Attrs, s.doc.Root.Attrs...)

	pass := splitPass{
		Splitter: s,
		tile:     tile,
		clip:     rect.Rect{URx: tile.Width(), URy: tile.Height()},
	}
	toTile := svgpath.Compose(svgpath.Translate(-tile.Rect.LLx, -tile.Rect.LLy), s.doc.CanvasTransform())
	root := out.Root.Shape.(*svgdoc.Group)
	style := s.doc.Root.Style.Inherit(nil)
	for i, c := range s.doc.Root.Children() {
		root.Children = append(root.Children, pass.visit(c, toTile, toTile, style, "", i)...)
	}
	s.log.Debug("tile split", "tile", tile.String(), "nodes", len(root.Children), "warnings", len(pass.warnings))
	return out, pass.warnings
}

// visit returns the nodes to emit for n. ctm maps the parent
// of n to the tile frame, pending maps it to the frame of
// the closest emitted ancestor, and inherited is its resolved style.
func (p *splitPass) visit(n *svgdoc.Node, ctm, pending matrix.Matrix, inherited svgdoc.Style, parentPath string, index int) []*svgdoc.Node {
	if !svgpath.Touches(p.boxes[n], p.tile.Rect) {
		return nil
	}
	path := parentPath + "/" + n.Tag() + "[" + strconv.Itoa(index) + "]"

	if g, isGroup := n.Shape.(*svgdoc.Group); isGroup {
		m := svgpath.Compose(ctm, n.Transform)
		style := n.Style.Inherit(inherited)
		if !keepGroup(n) {
			var out []*svgdoc.Node
			folded := svgpath.Compose(pending, n.Transform)
			for i, c := range g.Children {
				out = append(out, p.visit(c, m, folded, style, path, i)...)
			}
			return out
		}
		var children []*svgdoc.Node
		for i, c := range g.Children {
			children = append(children, p.visit(c, m, matrix.Identity, style, path, i)...)
		}
		if len(children) == 0 {
			return nil
		}
		kept := &svgdoc.Node{
			ID:        n.ID,
			Transform: svgpath.Compose(pending, n.Transform),
			Style:     n.Style.Clone(),
			Attrs:     append(n.Attrs[:0:0], n.Attrs...),
			Shape:     &svgdoc.Group{Children: children},
		}
		return []*svgdoc.Node{kept}
	}

	out, err := svgdoc.ClipShape(n, ctm, inherited, p.clip, p.policy)
	if err != nil {
		p.warnings = append(p.warnings, Warning{
			Row:      p.tile.Row,
			Col:      p.tile.Col,
			NodePath: path,
			NodeID:   n.ID,
			Err:      err,
		})
	}
	for _, o := range out {
		o.Transform = svgpath.Compose(pending, o.Transform)
	}
	return out
}

// keepGroup returns true if the group may affect
// the rendering of its children, including through
// the style sheets matching its id.
func keepGroup(n *svgdoc.Node) bool {
	return n.ID != "" || len(n.Style) != 0 || len(n.Attrs) != 0
}
