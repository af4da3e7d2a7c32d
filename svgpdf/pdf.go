// Implements a PDF backend to render tile documents,
// by wrapping github.com/jung-kurt/gofpdf.
//
// Only the geometry, the clip regions of the tiles and the plain colors
// are rendered: paint servers (gradients, patterns) use their fallback
// color, and texts are written with a core font, without embedding.
package svgpdf

import (
	"encoding/xml"
	"io"
	"math"
	"strings"

	"github.com/benoitkugler/svgtile/svgdoc"
	"github.com/benoitkugler/svgtile/svgpath"
	"github.com/jung-kurt/gofpdf"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// Renderer draws documents on a gofpdf page.
type Renderer struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string // UTF-8 to the core font encoding
}

// pather sends the path commands to the pdf,
// the points being already transformed.
type pather struct {
	pdf *gofpdf.Fpdf
}

// NewRenderer return a renderer which will
// write to the given `pdf`.
func NewRenderer(pdf *gofpdf.Fpdf) Renderer {
	return Renderer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

// pageUnit returns the gofpdf unit of the page, and the
// size of one document unit in this page unit.
func pageUnit(unit string) (string, float64) {
	switch unit {
	case "mm", "cm", "in", "pt":
		return unit, 1
	case "pc":
		return "pt", 12
	default: // px and unitless
		return "pt", 0.75
	}
}

// newPDF returns a one page pdf of the size of the document,
// and the transform from user units to page units.
func newPDF(doc *svgdoc.Document) (*gofpdf.Fpdf, matrix.Matrix) {
	unit, factor := pageUnit(doc.Unit)
	scale := doc.Scale
	if scale == 0 {
		scale = 1
	}
	k := scale * factor
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        unit,
		Size:           gofpdf.SizeType{Wd: doc.Width * k, Ht: doc.Height * k},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	m := svgpath.Compose(svgpath.Scale(k, k), doc.CanvasTransform())
	return pdf, m
}

// Render writes the document as a one page PDF file.
func Render(doc *svgdoc.Document, w io.Writer) error {
	pdf, m := newPDF(doc)
	r := NewRenderer(pdf)
	r.Draw(doc, m)
	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

// WriteFile renders the document into the named file.
func WriteFile(doc *svgdoc.Document, name string) error {
	pdf, m := newPDF(doc)
	r := NewRenderer(pdf)
	r.Draw(doc, m)
	return pdf.OutputFileAndClose(name)
}

// Draw renders the document content, mapped by m.
func (r Renderer) Draw(doc *svgdoc.Document, m matrix.Matrix) {
	if doc.Root == nil {
		return
	}
	style := doc.Root.Style.Inherit(nil)
	for _, c := range doc.Root.Children() {
		r.drawNode(c, m, style, 1)
	}
}

// drawNode draws n and its children. parentStyle is already
// resolved and opacity is the product of the group opacities.
func (r Renderer) drawNode(n *svgdoc.Node, m matrix.Matrix, parentStyle svgdoc.Style, opacity float64) {
	style := n.Style.Inherit(parentStyle)
	if style["display"] == "none" {
		return
	}
	if v, ok := n.Style["opacity"]; ok {
		opacity *= parseOpacity(v)
	}
	m = svgpath.Compose(m, n.Transform)
	if n.ClipRegion != nil {
		r.pdf.ClipPolygon(polygon(n.ClipRegion.Transform(m)), false)
		defer r.pdf.ClipEnd()
	}

	switch sh := n.Shape.(type) {
	case *svgdoc.Group:
		for _, c := range sh.Children {
			r.drawNode(c, m, style, opacity)
		}
	case *svgdoc.Text:
		if style["visibility"] != "hidden" {
			r.drawText(sh, m, style, opacity)
		}
	default:
		if style["visibility"] == "hidden" {
			return
		}
		p := svgdoc.ToPath(n)
		if len(p) == 0 {
			return
		}
		p = p.Transform(m)
		_, isLine := sh.(*svgdoc.Line)
		if !isLine {
			r.fill(p, style, opacity)
		}
		r.stroke(p, style, opacity, svgpath.ScaleFactor(m))
	}
}

// polygon returns the vertices of a clip region,
// made of line segments only.
func polygon(path svgpath.Path) []gofpdf.PointType {
	var out []gofpdf.PointType
	for _, op := range path {
		switch op := op.(type) {
		case svgpath.MoveTo:
			out = append(out, gofpdf.PointType{X: op.X, Y: op.Y})
		case svgpath.LineTo:
			out = append(out, gofpdf.PointType{X: op.X, Y: op.Y})
		}
	}
	return out
}

func (p pather) drawPath(path svgpath.Path) {
	for _, op := range path {
		switch op := op.(type) {
		case svgpath.MoveTo:
			p.pdf.MoveTo(op.X, op.Y)
		case svgpath.LineTo:
			p.pdf.LineTo(op.X, op.Y)
		case svgpath.QuadTo:
			p.pdf.CurveTo(op[0].X, op[0].Y, op[1].X, op[1].Y)
		case svgpath.CubicTo:
			p.pdf.CurveBezierCubicTo(op[0].X, op[0].Y, op[1].X, op[1].Y, op[2].X, op[2].Y)
		case svgpath.Close:
			p.pdf.ClosePath()
		}
	}
}

func (r Renderer) fill(path svgpath.Path, style svgdoc.Style, opacity float64) {
	fillColor, ok := style["fill"]
	if !ok {
		fillColor = "black"
	}
	c, ok := resolvePaint(fillColor, style)
	if !ok {
		return
	}
	r.pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
	r.pdf.SetAlpha(opacity*parseOpacity(style["fill-opacity"])*float64(c.A)/255, "")

	pather{r.pdf}.drawPath(path)
	styleStr := "F"
	if style["fill-rule"] == "evenodd" {
		styleStr = "F*"
	}
	r.pdf.DrawPath(styleStr)
}

func (r Renderer) stroke(path svgpath.Path, style svgdoc.Style, opacity, scale float64) {
	c, ok := resolvePaint(style["stroke"], style)
	if !ok {
		return
	}
	opts := readStrokeOptions(style)
	if opts.Width <= 0 {
		return
	}
	r.pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
	r.pdf.SetAlpha(opacity*parseOpacity(style["stroke-opacity"])*float64(c.A)/255, "")
	r.pdf.SetLineWidth(opts.Width * scale)
	r.pdf.SetLineCapStyle(opts.Cap)
	r.pdf.SetLineJoinStyle(opts.Join)
	dashes := make([]float64, len(opts.Dash))
	for i, d := range opts.Dash {
		dashes[i] = d * scale
	}
	r.pdf.SetDashPattern(dashes, opts.DashOffset*scale)

	pather{r.pdf}.drawPath(path)
	r.pdf.DrawPath("D")
}

func (r Renderer) drawText(t *svgdoc.Text, m matrix.Matrix, style svgdoc.Style, opacity float64) {
	content := textContent(t.Content)
	if content == "" {
		return
	}
	fillColor, ok := style["fill"]
	if !ok {
		fillColor = "black"
	}
	c, ok := resolvePaint(fillColor, style)
	if !ok {
		return
	}
	size := 16.
	if v, err := parseLength(style["font-size"]); err == nil && v > 0 {
		size = v
	}
	r.pdf.SetFont(fontFamily(style["font-family"]), fontStyle(style), 0)
	r.pdf.SetFontUnitSize(size * svgpath.ScaleFactor(m))
	r.pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
	r.pdf.SetAlpha(opacity*parseOpacity(style["fill-opacity"])*float64(c.A)/255, "")

	s := r.tr(content)
	anchor := svgpath.Apply(m, vec.Vec2{X: t.X, Y: t.Y})
	switch style["text-anchor"] {
	case "middle":
		anchor.X -= r.pdf.GetStringWidth(s) / 2
	case "end":
		anchor.X -= r.pdf.GetStringWidth(s)
	}
	r.pdf.Text(anchor.X, anchor.Y, s)
}

// textContent returns the character data of the text element content,
// with its white spaces collapsed.
func textContent(inner string) string {
	dec := xml.NewDecoder(strings.NewReader("<t>" + inner + "</t>"))
	dec.Strict = false
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			sb.Write(cd)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// fontFamily maps the CSS family to a core font.
func fontFamily(v string) string {
	v = strings.ToLower(v)
	switch {
	case strings.Contains(v, "courier"), strings.Contains(v, "mono"):
		return "Courier"
	case strings.Contains(v, "times"), strings.Contains(v, "serif") && !strings.Contains(v, "sans"):
		return "Times"
	default:
		return "Helvetica"
	}
}

func fontStyle(style svgdoc.Style) string {
	out := ""
	switch w := style["font-weight"]; w {
	case "bold", "bolder", "600", "700", "800", "900":
		out += "B"
	}
	switch style["font-style"] {
	case "italic", "oblique":
		out += "I"
	}
	return out
}

func parseOpacity(v string) float64 {
	if v == "" {
		return 1
	}
	f, err := parseLength(v)
	if err != nil {
		return 1
	}
	if strings.HasSuffix(strings.TrimSpace(v), "%") {
		f /= 100
	}
	return math.Max(0, math.Min(1, f))
}
