package svgdoc

import (
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/benoitkugler/svgtile/svgpath"
	"seehuhn.de/go/geom/vec"
)

// svgFunc fills the node from the element, and returns the
// attributes it has consumed.
type svgFunc func(c *docCursor, n *Node, se xml.StartElement) (map[string]bool, error)

var drawFuncs = map[string]svgFunc{
	"g":        groupF,
	"a":        groupF, // links are kept as groups
	"use":      useF,
	"line":     lineF,
	"rect":     rectF,
	"circle":   circleF,
	"ellipse":  ellipseF,
	"polyline": polylineF,
	"polygon":  polygonF,
	"path":     pathF,
	"text":     textF,
}

var (
	rectAttrs    = map[string]bool{"x": true, "y": true, "width": true, "height": true, "rx": true, "ry": true}
	circleAttrs  = map[string]bool{"cx": true, "cy": true, "r": true}
	ellipseAttrs = map[string]bool{"cx": true, "cy": true, "rx": true, "ry": true}
	lineAttrs    = map[string]bool{"x1": true, "y1": true, "x2": true, "y2": true}
	pointsAttrs  = map[string]bool{"points": true}
	pathAttrs    = map[string]bool{"d": true}
	textAttrs    = map[string]bool{"x": true, "y": true}
	useAttrs     = map[string]bool{"href": true, "x": true, "y": true, "width": true, "height": true}
)

// presentation attributes, stored in Node.Style
var presentationAttrs = map[string]bool{
	"fill": true, "fill-opacity": true, "fill-rule": true,
	"stroke": true, "stroke-width": true, "stroke-opacity": true,
	"stroke-linecap": true, "stroke-linejoin": true, "stroke-miterlimit": true,
	"stroke-dasharray": true, "stroke-dashoffset": true,
	"opacity": true, "color": true, "display": true, "visibility": true,
	"font-family": true, "font-size": true, "font-weight": true,
	"font-style": true, "font-variant": true, "font-stretch": true,
	"text-anchor": true, "dominant-baseline": true, "alignment-baseline": true,
	"letter-spacing": true, "word-spacing": true, "text-decoration": true,
	"clip-rule": true, "clip-path": true, "mask": true, "filter": true,
	"marker-start": true, "marker-mid": true, "marker-end": true,
	"vector-effect": true, "shape-rendering": true, "paint-order": true,
}

func isPresentationAttr(k string) bool { return presentationAttrs[k] }

const (
	widthPercentage = iota
	heightPercentage
	diagPercentage
)

// pixelsPer returns the number of CSS pixels (user units) in one unit.
func pixelsPer(unit string) float64 {
	switch unit {
	case "mm":
		return 96 / 25.4
	case "cm":
		return 96 / 2.54
	case "in":
		return 96
	case "pt":
		return 96. / 72
	case "pc":
		return 16
	default: // px and unitless
		return 1
	}
}

// splitUnit parses a length into its number and unit suffix.
func splitUnit(v string) (float64, string, error) {
	v = strings.TrimSpace(v)
	unit := ""
	for _, u := range [...]string{"%", "mm", "cm", "in", "pt", "pc", "px"} {
		if strings.HasSuffix(v, u) {
			unit = u
			v = strings.TrimSpace(strings.TrimSuffix(v, u))
			break
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, unit, err
}

// parseUnit converts a length to user units, resolving percentages
// against the viewBox.
func (c *docCursor) parseUnit(v string, percentageReference int) (float64, error) {
	f, unit, err := splitUnit(v)
	if err != nil {
		return 0, err
	}
	if unit != "%" {
		return f * pixelsPer(unit), nil
	}
	vb := c.doc.ViewBox
	switch percentageReference {
	case widthPercentage:
		return f / 100 * vb.W, nil
	case heightPercentage:
		return f / 100 * vb.H, nil
	default:
		return f / 100 * math.Sqrt(vb.W*vb.W+vb.H*vb.H) / math.Sqrt2, nil
	}
}

func parseNumberList(v string) ([]float64, error) {
	return svgpath.ParseNumbers(v)
}

// firstNumber reads x and y on <text>, which may be lists.
func firstNumber(c *docCursor, v string, ref int) (float64, error) {
	if fields := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }); len(fields) > 0 {
		v = fields[0]
	}
	return c.parseUnit(v, ref)
}

func groupF(_ *docCursor, n *Node, _ xml.StartElement) (map[string]bool, error) {
	n.Shape = &Group{}
	return nil, nil
}

func rectF(c *docCursor, n *Node, se xml.StartElement) (map[string]bool, error) {
	var r Rect
	var err error
	for _, attr := range se.Attr {
		if attr.Name.Space != "" {
			continue
		}
		switch attr.Name.Local {
		case "x":
			r.X, err = c.parseUnit(attr.Value, widthPercentage)
		case "y":
			r.Y, err = c.parseUnit(attr.Value, heightPercentage)
		case "width":
			r.W, err = c.parseUnit(attr.Value, widthPercentage)
		case "height":
			r.H, err = c.parseUnit(attr.Value, heightPercentage)
		case "rx":
			r.RX, err = c.parseUnit(attr.Value, widthPercentage)
		case "ry":
			r.RY, err = c.parseUnit(attr.Value, heightPercentage)
		}
		if err != nil {
			return nil, err
		}
	}
	n.Shape = &r
	return rectAttrs, nil
}

func circleF(c *docCursor, n *Node, se xml.StartElement) (map[string]bool, error) {
	var ci Circle
	var err error
	for _, attr := range se.Attr {
		if attr.Name.Space != "" {
			continue
		}
		switch attr.Name.Local {
		case "cx":
			ci.CX, err = c.parseUnit(attr.Value, widthPercentage)
		case "cy":
			ci.CY, err = c.parseUnit(attr.Value, heightPercentage)
		case "r":
			ci.R, err = c.parseUnit(attr.Value, diagPercentage)
		}
		if err != nil {
			return nil, err
		}
	}
	n.Shape = &ci
	return circleAttrs, nil
}

func ellipseF(c *docCursor, n *Node, se xml.StartElement) (map[string]bool, error) {
	var e Ellipse
	var err error
	for _, attr := range se.Attr {
		if attr.Name.Space != "" {
			continue
		}
		switch attr.Name.Local {
		case "cx":
			e.CX, err = c.parseUnit(attr.Value, widthPercentage)
		case "cy":
			e.CY, err = c.parseUnit(attr.Value, heightPercentage)
		case "rx":
			e.RX, err = c.parseUnit(attr.Value, widthPercentage)
		case "ry":
			e.RY, err = c.parseUnit(attr.Value, heightPercentage)
		}
		if err != nil {
			return nil, err
		}
	}
	n.Shape = &e
	return ellipseAttrs, nil
}

func lineF(c *docCursor, n *Node, se xml.StartElement) (map[string]bool, error) {
	var l Line
	var err error
	for _, attr := range se.Attr {
		if attr.Name.Space != "" {
			continue
		}
		switch attr.Name.Local {
		case "x1":
			l.X1, err = c.parseUnit(attr.Value, widthPercentage)
		case "x2":
			l.X2, err = c.parseUnit(attr.Value, widthPercentage)
		case "y1":
			l.Y1, err = c.parseUnit(attr.Value, heightPercentage)
		case "y2":
			l.Y2, err = c.parseUnit(attr.Value, heightPercentage)
		}
		if err != nil {
			return nil, err
		}
	}
	n.Shape = &l
	return lineAttrs, nil
}

func readPoints(se xml.StartElement) ([]vec.Vec2, error) {
	for _, attr := range se.Attr {
		if attr.Name.Space == "" && attr.Name.Local == "points" {
			coords, err := parseNumberList(attr.Value)
			if err != nil {
				return nil, err
			}
			if len(coords)%2 != 0 {
				return nil, errors.New("polygon has odd number of points")
			}
			out := make([]vec.Vec2, len(coords)/2)
			for i := range out {
				out[i] = vec.Vec2{X: coords[2*i], Y: coords[2*i+1]}
			}
			return out, nil
		}
	}
	return nil, nil
}

func polylineF(_ *docCursor, n *Node, se xml.StartElement) (map[string]bool, error) {
	pts, err := readPoints(se)
	if err != nil {
		return nil, err
	}
	n.Shape = &Polyline{Points: pts}
	return pointsAttrs, nil
}

func polygonF(_ *docCursor, n *Node, se xml.StartElement) (map[string]bool, error) {
	pts, err := readPoints(se)
	if err != nil {
		return nil, err
	}
	n.Shape = &Polygon{Points: pts}
	return pointsAttrs, nil
}

func pathF(_ *docCursor, n *Node, se xml.StartElement) (map[string]bool, error) {
	var p svgpath.Path
	for _, attr := range se.Attr {
		if attr.Name.Space == "" && attr.Name.Local == "d" {
			var err error
			p, err = svgpath.ParsePath(attr.Value)
			if err != nil {
				return nil, err
			}
		}
	}
	n.Shape = &Path{Data: p}
	return pathAttrs, nil
}

// textF consumes the whole element: its content is
// kept verbatim.
func textF(c *docCursor, n *Node, se xml.StartElement) (map[string]bool, error) {
	var content struct {
		Inner string `xml:",innerxml"`
	}
	if err := c.decoder.DecodeElement(&content, &se); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDocument, err)
	}
	t := &Text{Content: content.Inner}
	n.Shape = t
	var err error
	for _, attr := range se.Attr {
		if attr.Name.Space != "" {
			continue
		}
		switch attr.Name.Local {
		case "x":
			t.X, err = firstNumber(c, attr.Value, widthPercentage)
		case "y":
			t.Y, err = firstNumber(c, attr.Value, heightPercentage)
		}
		if err != nil {
			return nil, err
		}
	}
	return textAttrs, nil
}

// useF creates a group, filled with a copy of the target
// once the whole document is read.
func useF(c *docCursor, n *Node, se xml.StartElement) (map[string]bool, error) {
	ref := &useRef{}
	var err error
	for _, attr := range se.Attr {
		if attr.Name.Space != "" && !isXlink(attr.Name.Space) {
			continue
		}
		switch attr.Name.Local {
		case "href":
			ref.href = attr.Value
		case "x":
			ref.x, err = c.parseUnit(attr.Value, widthPercentage)
		case "y":
			ref.y, err = c.parseUnit(attr.Value, heightPercentage)
		}
		if err != nil {
			return nil, err
		}
	}
	if ref.href == "" {
		return nil, errors.New("only use tags with href is supported")
	}
	if !strings.HasPrefix(ref.href, "#") {
		return nil, errors.New("only the ID CSS selector is supported")
	}
	n.Shape = &Group{}
	c.uses[n] = ref
	return useAttrs, nil
}
