package svgdoc

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/benoitkugler/svgtile/svgpath"
	"golang.org/x/net/html/charset"
	"seehuhn.de/go/geom/matrix"
)

var errParamMismatch = errors.New("param mismatch")

const (
	svgNamespace   = "http://www.w3.org/2000/svg"
	xlinkNamespace = "http://www.w3.org/1999/xlink"
	xmlNamespace   = "http://www.w3.org/XML/1998/namespace"
)

// docCursor is used while parsing SVG files
type docCursor struct {
	doc       *Document
	errorMode ErrorMode
	decoder   *xml.Decoder

	stack                   []*Node // open groups, the root first
	inTitleText, inDescText bool
	seenSVG                 bool

	ids  map[string]*Node
	uses map[*Node]*useRef
	// used for <defs> content: nodes are registered
	// but not added to the tree
	detached bool
}

// useRef is a <use> element waiting for its target.
type useRef struct {
	href     string
	x, y     float64
	resolved bool
	visiting bool
}

func newCursor(doc *Document, mode ErrorMode) *docCursor {
	return &docCursor{
		doc:       doc,
		errorMode: mode,
		ids:       make(map[string]*Node),
		uses:      make(map[*Node]*useRef),
	}
}

// handleError reports an unsupported construct, following the error mode.
func (c *docCursor) handleError(errStr string) error {
	switch c.errorMode {
	case StrictErrorMode:
		return errors.New(errStr)
	case WarnErrorMode:
		slog.Warn("svg parsing", "problem", errStr)
	}
	return nil
}

// ReadStream reads the document from the given io.Reader.
// This only supports a sub-set of SVG: shapes, groups, texts and <use> elements.
// errMode determines if the reader ignores, errors out, or logs a warning
// if it does not handle an element found in the file.
// Structural problems return an error wrapping ErrInvalidDocument.
func ReadStream(stream io.Reader, errMode ErrorMode) (*Document, error) {
	doc := &Document{Scale: 1, Namespaces: make(map[string]string)}
	cursor := newCursor(doc, errMode)
	decoder := xml.NewDecoder(stream)
	decoder.CharsetReader = charset.NewReaderLabel
	cursor.decoder = decoder
	if err := cursor.run(); err != nil {
		return nil, err
	}
	if !cursor.seenSVG {
		return nil, fmt.Errorf("%w: no <svg> root element", ErrInvalidDocument)
	}
	if !(doc.Width > 0 && doc.Height > 0) {
		return nil, fmt.Errorf("%w: non-positive canvas %gx%g", ErrInvalidDocument, doc.Width, doc.Height)
	}
	if err := cursor.resolveUses(); err != nil {
		return nil, err
	}
	return doc, nil
}

// ReadFile reads the document from the named file.
// See ReadStream for the supported subset.
func ReadFile(name string, errMode ErrorMode) (*Document, error) {
	fin, errf := os.Open(name)
	if errf != nil {
		return nil, errf
	}
	defer fin.Close()
	return ReadStream(fin, errMode)
}

func (c *docCursor) run() error {
	for {
		t, err := c.decoder.Token()
		if err != nil {
			if err == io.EOF {
				if len(c.stack) > 0 && !c.detached {
					return fmt.Errorf("%w: unexpected end of file", ErrInvalidDocument)
				}
				return nil
			}
			return fmt.Errorf("%w: %s", ErrInvalidDocument, err)
		}
		// Inspect the type of the XML token
		switch se := t.(type) {
		case xml.StartElement:
			if err = c.readStartElement(se); err != nil {
				return err
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "title":
				c.inTitleText = false
			case "desc":
				c.inDescText = false
			default:
				// only groups stay open
				if len(c.stack) > 0 {
					c.stack = c.stack[:len(c.stack)-1]
				}
			}
		case xml.CharData:
			if c.inTitleText {
				c.doc.Titles[len(c.doc.Titles)-1] += string(se)
			}
			if c.inDescText {
				c.doc.Descriptions[len(c.doc.Descriptions)-1] += string(se)
			}
		}
	}
}

func (c *docCursor) readStartElement(se xml.StartElement) error {
	if se.Name.Space != "" && se.Name.Space != svgNamespace {
		// foreign elements, such as editor metadata
		return c.decoder.Skip()
	}
	if !c.seenSVG && !c.detached {
		if se.Name.Local != "svg" {
			return fmt.Errorf("%w: root element is <%s>", ErrInvalidDocument, se.Name.Local)
		}
		c.seenSVG = true
		return c.svgRoot(se)
	}

	switch se.Name.Local {
	case "title":
		c.inTitleText = true
		c.doc.Titles = append(c.doc.Titles, "")
		return nil
	case "desc":
		c.inDescText = true
		c.doc.Descriptions = append(c.doc.Descriptions, "")
		return nil
	case "defs":
		return c.readDefs(se, false)
	case "style":
		return c.readDefs(se, true)
	case "metadata":
		return c.decoder.Skip()
	}

	df, ok := drawFuncs[se.Name.Local]
	if !ok {
		if err := c.handleError("Cannot process svg element " + se.Name.Local); err != nil {
			return err
		}
		return c.decoder.Skip()
	}

	node := &Node{Transform: matrix.Identity}
	consumed, err := df(c, node, se)
	if err == nil {
		err = c.readCommonAttrs(node, se.Attr, consumed)
	}
	if errors.Is(err, ErrInvalidDocument) {
		return err // the decoder can't recover
	}
	if err != nil {
		if err := c.handleError(fmt.Sprintf("invalid <%s>: %s", se.Name.Local, err)); err != nil {
			return err
		}
		if _, isText := node.Shape.(*Text); isText {
			return nil // already consumed
		}
		return c.decoder.Skip()
	}

	c.appendNode(node)
	switch node.Shape.(type) {
	case *Group:
		c.stack = append(c.stack, node)
	case *Text:
		// the end element has been consumed with the content
	default:
		// leaves are closed by their end element
		c.stack = append(c.stack, node)
	}
	return nil
}

// appendNode adds the node to the current group and registers its id.
func (c *docCursor) appendNode(node *Node) {
	if node.ID != "" {
		if _, dup := c.ids[node.ID]; !dup {
			c.ids[node.ID] = node
		}
	}
	if len(c.stack) == 0 {
		return
	}
	parent := c.stack[len(c.stack)-1]
	if g, ok := parent.Shape.(*Group); ok {
		g.Children = append(g.Children, node)
	}
}

// readCommonAttrs dispatches the attributes not consumed by the element
// function: id, transform, presentation attributes (including the style attribute)
// and the remaining ones.
func (c *docCursor) readCommonAttrs(node *Node, attrs []xml.Attr, consumed map[string]bool) error {
	var styleAttr string
	for _, attr := range attrs {
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" && attr.Name.Space == "" {
			continue
		}
		if (attr.Name.Space == "" || isXlink(attr.Name.Space)) && consumed[attr.Name.Local] {
			continue
		}
		if attr.Name.Space != "" {
			node.Attrs = append(node.Attrs, attr)
			continue
		}
		switch k := attr.Name.Local; {
		case k == "id":
			node.ID = attr.Value
		case k == "transform":
			m, err := ParseTransform(attr.Value)
			if err != nil {
				return err
			}
			node.Transform = m
		case k == "style":
			styleAttr = attr.Value
		case isPresentationAttr(k):
			node.setStyle(k, strings.TrimSpace(attr.Value))
		default:
			node.Attrs = append(node.Attrs, attr)
		}
	}
	// the style attribute has precedence over presentation attributes
	for _, pair := range strings.Split(styleAttr, ";") {
		kv := strings.SplitN(pair, ":", 2)
		if len(kv) != 2 {
			continue
		}
		k := strings.ToLower(strings.TrimSpace(kv[0]))
		v := strings.TrimSpace(kv[1])
		if k == "" {
			continue
		}
		node.setStyle(k, v)
	}
	return nil
}

func (n *Node) setStyle(k, v string) {
	if n.Style == nil {
		n.Style = make(Style)
	}
	n.Style[k] = v
}

// readDefs stores the verbatim content of the element, and registers
// the elements it defines, so that they may be referenced by <use>.
func (c *docCursor) readDefs(se xml.StartElement, isStyle bool) error {
	var content struct {
		Inner string `xml:",innerxml"`
	}
	if err := c.decoder.DecodeElement(&content, &se); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDocument, err)
	}
	if isStyle {
		c.doc.Defs += "<style>" + content.Inner + "</style>"
		return nil
	}
	c.doc.Defs += content.Inner

	// parse the definitions in a detached group
	sub := &docCursor{
		doc:       &Document{ViewBox: c.doc.ViewBox},
		errorMode: IgnoreErrorMode,
		decoder:   xml.NewDecoder(strings.NewReader(content.Inner)),
		stack:     []*Node{{Transform: matrix.Identity, Shape: &Group{}}},
		ids:       c.ids,
		uses:      c.uses,
		detached:  true,
	}
	sub.decoder.Strict = false
	if err := sub.run(); err != nil {
		return c.handleError("invalid <defs> content: " + err.Error())
	}
	return nil
}

// svgRoot reads the root <svg> element: canvas size, units and
// namespace declarations. Its style applies to the root group.
func (c *docCursor) svgRoot(se xml.StartElement) error {
	var (
		width, height       float64
		wUnit, hUnit        string
		hasWidth, hasHeight bool
		hasViewBox          bool
		err                 error
	)
	consumed := map[string]bool{
		"width": true, "height": true, "viewBox": true, "version": true,
		"x": true, "y": true, "preserveAspectRatio": true, "baseProfile": true,
	}
	vb := &c.doc.ViewBox
	for _, attr := range se.Attr {
		if attr.Name.Space == "xmlns" && attr.Value != svgNamespace {
			c.doc.Namespaces[attr.Value] = attr.Name.Local
		}
		if attr.Name.Space != "" {
			continue
		}
		switch attr.Name.Local {
		case "viewBox":
			var points []float64
			points, err = parseNumberList(attr.Value)
			if err == nil && len(points) != 4 {
				err = errParamMismatch
			}
			if err == nil {
				vb.X, vb.Y, vb.W, vb.H = points[0], points[1], points[2], points[3]
				hasViewBox = true
			}
		case "width":
			width, wUnit, err = splitUnit(attr.Value)
			hasWidth = err == nil && wUnit != "%"
		case "height":
			height, hUnit, err = splitUnit(attr.Value)
			hasHeight = err == nil && hUnit != "%"
		}
		if err != nil {
			return fmt.Errorf("%w: <svg> %s: %s", ErrInvalidDocument, attr.Name.Local, err)
		}
	}

	switch {
	case hasViewBox:
	case hasWidth && hasHeight:
		// user units are pixels
		vb.W, vb.H = width*pixelsPer(wUnit), height*pixelsPer(hUnit)
	default:
		return fmt.Errorf("%w: missing canvas size", ErrInvalidDocument)
	}
	c.doc.Width, c.doc.Height = vb.W, vb.H

	switch {
	case hasWidth && vb.W > 0:
		c.doc.Unit = wUnit
		c.doc.Scale = width / vb.W
	case hasHeight && vb.H > 0:
		c.doc.Unit = hUnit
		c.doc.Scale = height / vb.H
	}

	root := &Node{Transform: matrix.Identity, Shape: &Group{}}
	if err := c.readCommonAttrs(root, se.Attr, consumed); err != nil {
		return fmt.Errorf("%w: <svg>: %s", ErrInvalidDocument, err)
	}
	root.Transform = matrix.Identity // not allowed on <svg> in SVG 1.1
	c.doc.Root = root
	c.stack = append(c.stack, root)
	return nil
}

// resolveUses instantiates the <use> elements, once the whole
// document has been read. Elements referencing themselves
// (directly or not) are reported as errors.
func (c *docCursor) resolveUses() error {
	for node := range c.uses {
		if err := c.resolveUse(node); err != nil {
			return err
		}
	}
	return nil
}

func (c *docCursor) resolveUse(node *Node) error {
	ref := c.uses[node]
	if ref.resolved {
		return nil
	}
	if ref.visiting {
		return fmt.Errorf("%w: circular reference to %s", ErrInvalidDocument, ref.href)
	}
	ref.visiting = true
	defer func() { ref.visiting = false }()

	target, ok := c.ids[strings.TrimPrefix(ref.href, "#")]
	if !strings.HasPrefix(ref.href, "#") || !ok {
		ref.resolved = true
		return c.handleError("href " + ref.href + " in <use> was not found")
	}
	// nested <use> must be instantiated first
	var err error
	walk(target, func(n *Node) bool {
		if err != nil {
			return false
		}
		if _, isUse := c.uses[n]; isUse {
			err = c.resolveUse(n)
		}
		return err == nil
	})
	if err != nil {
		return err
	}

	inst := target.Clone()
	inst.clearIDs()
	g := node.Shape.(*Group)
	g.Children = []*Node{inst}
	node.Transform = svgpath.Compose(node.Transform, svgpath.Translate(ref.x, ref.y))
	ref.resolved = true
	return nil
}

// isXlink accepts the prefix itself, found in <defs> content
// read out of the scope of its declaration.
func isXlink(space string) bool { return space == xlinkNamespace || space == "xlink" }

// walk calls fn on the subtree in document order, stopping
// the descent when fn returns false.
func walk(n *Node, fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		walk(c, fn)
	}
}
