package svgdoc

import (
	"bytes"
	"encoding/xml"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/benoitkugler/svgtile/svgpath"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// WriteTo writes the document as a standalone SVG file.
// The output is deterministic: identical trees give identical bytes.
// Style properties are written as presentation attributes, in
// sorted order; properties without attribute form go in a style attribute.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var b svgWriter
	b.ns = d.Namespaces
	clipped := b.nameClips(d)
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<svg xmlns="` + svgNamespace + `" xmlns:xlink="` + xlinkNamespace + `"`)
	uris := make([]string, 0, len(d.Namespaces))
	for uri := range d.Namespaces {
		if uri != xlinkNamespace && uri != xmlNamespace {
			uris = append(uris, uri)
		}
	}
	sort.Strings(uris)
	for _, uri := range uris {
		b.attr("xmlns:"+d.Namespaces[uri], uri)
	}
	scale := d.Scale
	if scale == 0 {
		scale = 1
	}
	b.attr("width", svgpath.FormatFloat(d.Width*scale)+d.Unit)
	b.attr("height", svgpath.FormatFloat(d.Height*scale)+d.Unit)
	vb := d.ViewBox
	b.attr("viewBox", formatList(vb.X, vb.Y, vb.W, vb.H))
	if d.Root != nil {
		b.style(d.Root.Style)
		b.attrs(d.Root.Attrs)
	}
	b.WriteString(">\n")

	for _, t := range d.Titles {
		b.WriteString("<title>")
		xml.EscapeText(&b, []byte(t))
		b.WriteString("</title>\n")
	}
	for _, t := range d.Descriptions {
		b.WriteString("<desc>")
		xml.EscapeText(&b, []byte(t))
		b.WriteString("</desc>\n")
	}
	if d.Defs != "" || len(clipped) != 0 {
		b.WriteString("<defs>" + d.Defs)
		for _, n := range clipped {
			b.WriteString(`<clipPath id="` + b.clips[n] + `"><path d="` + n.ClipRegion.ToSVGPath() + `"/></clipPath>`)
		}
		b.WriteString("</defs>\n")
	}
	if d.Root != nil {
		for _, c := range d.Root.Children() {
			b.node(c, 1)
		}
	}
	b.WriteString("</svg>\n")
	return b.WriteTo(w)
}

type svgWriter struct {
	bytes.Buffer
	ns    map[string]string
	clips map[*Node]string // ids of the <clipPath> elements
}

// nameClips returns the nodes with a clip region, in document order,
// and chooses an id for each of them, distinct from the ids
// of the document.
func (b *svgWriter) nameClips(d *Document) []*Node {
	if d.Root == nil {
		return nil
	}
	used := map[string]bool{}
	var clipped []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.ID != "" {
			used[n.ID] = true
		}
		if n.ClipRegion != nil {
			clipped = append(clipped, n)
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(d.Root)

	b.clips = make(map[*Node]string, len(clipped))
	next := 1
	for _, n := range clipped {
		for {
			id := "tile-clip-" + strconv.Itoa(next)
			next++
			if !used[id] && !strings.Contains(d.Defs, `"`+id+`"`) {
				b.clips[n] = id
				break
			}
		}
	}
	return clipped
}

func formatList(fs ...float64) string {
	chunks := make([]string, len(fs))
	for i, f := range fs {
		chunks[i] = svgpath.FormatFloat(f)
	}
	return strings.Join(chunks, " ")
}

func formatPoints(pts []vec.Vec2) string {
	chunks := make([]string, len(pts))
	for i, p := range pts {
		chunks[i] = svgpath.FormatFloat(p.X) + "," + svgpath.FormatFloat(p.Y)
	}
	return strings.Join(chunks, " ")
}

func (b *svgWriter) attr(name, value string) {
	b.WriteString(" " + name + `="`)
	xml.EscapeText(b, []byte(value))
	b.WriteByte('"')
}

func (b *svgWriter) num(name string, f float64) {
	b.attr(name, svgpath.FormatFloat(f))
}

// attrName returns the qualified name of an attribute, or false
// for namespaces without known prefix.
func (b *svgWriter) attrName(n xml.Name) (string, bool) {
	switch {
	case n.Space == "":
		return n.Local, true
	case isXlink(n.Space):
		return "xlink:" + n.Local, true
	case n.Space == xmlNamespace || n.Space == "xml":
		return "xml:" + n.Local, true
	}
	if prefix, ok := b.ns[n.Space]; ok {
		return prefix + ":" + n.Local, true
	}
	for _, prefix := range b.ns {
		if prefix == n.Space { // already a prefix
			return n.Space + ":" + n.Local, true
		}
	}
	return "", false
}

func (b *svgWriter) attrs(attrs []xml.Attr) {
	for _, a := range attrs {
		if name, ok := b.attrName(a.Name); ok {
			b.attr(name, a.Value)
		}
	}
}

func (b *svgWriter) style(s Style) {
	var css []string
	for _, k := range s.Keys() {
		if isPresentationAttr(k) {
			b.attr(k, s[k])
		} else {
			css = append(css, k+":"+s[k])
		}
	}
	if len(css) > 0 {
		b.attr("style", strings.Join(css, ";"))
	}
}

func (b *svgWriter) node(n *Node, depth int) {
	if id, ok := b.clips[n]; ok {
		// the clip region is expressed after the transform of n
		b.WriteString(strings.Repeat("  ", depth) + "<g")
		if tr := formatTransform(n.Transform); tr != "" {
			b.attr("transform", tr)
		}
		b.attr("clip-path", "url(#"+id+")")
		b.WriteString(">\n")
		inner := *n
		inner.Transform = matrix.Identity
		inner.ClipRegion = nil
		b.node(&inner, depth+1)
		b.WriteString(strings.Repeat("  ", depth) + "</g>\n")
		return
	}
	b.WriteString(strings.Repeat("  ", depth) + "<" + n.Tag())
	if n.ID != "" {
		b.attr("id", n.ID)
	}
	if tr := formatTransform(n.Transform); tr != "" {
		b.attr("transform", tr)
	}
	switch sh := n.Shape.(type) {
	case *Path:
		b.attr("d", sh.Data.ToSVGPath())
	case *Rect:
		b.num("x", sh.X)
		b.num("y", sh.Y)
		b.num("width", sh.W)
		b.num("height", sh.H)
		if sh.RX != 0 {
			b.num("rx", sh.RX)
		}
		if sh.RY != 0 {
			b.num("ry", sh.RY)
		}
	case *Circle:
		b.num("cx", sh.CX)
		b.num("cy", sh.CY)
		b.num("r", sh.R)
	case *Ellipse:
		b.num("cx", sh.CX)
		b.num("cy", sh.CY)
		b.num("rx", sh.RX)
		b.num("ry", sh.RY)
	case *Line:
		b.num("x1", sh.X1)
		b.num("y1", sh.Y1)
		b.num("x2", sh.X2)
		b.num("y2", sh.Y2)
	case *Polyline:
		b.attr("points", formatPoints(sh.Points))
	case *Polygon:
		b.attr("points", formatPoints(sh.Points))
	case *Text:
		b.num("x", sh.X)
		b.num("y", sh.Y)
	}
	b.style(n.Style)
	b.attrs(n.Attrs)

	switch sh := n.Shape.(type) {
	case *Group:
		if len(sh.Children) == 0 {
			b.WriteString("/>\n")
			return
		}
		b.WriteString(">\n")
		for _, c := range sh.Children {
			b.node(c, depth+1)
		}
		b.WriteString(strings.Repeat("  ", depth) + "</g>\n")
	case *Text:
		b.WriteString(">" + sh.Content + "</text>\n")
	default:
		b.WriteString("/>\n")
	}
}
