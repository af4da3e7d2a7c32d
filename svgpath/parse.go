package svgpath

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"unicode"

	"seehuhn.de/go/geom/vec"
)

var (
	errParamMismatch  = errors.New("param mismatch")
	errCommandUnknown = errors.New("unknown command")
)

// pathCursor is used to parse SVG format path strings into a Path
type pathCursor struct {
	path          Path
	placeX        float64
	placeY        float64
	cntlPtX       float64
	cntlPtY       float64
	pathStartX    float64
	pathStartY    float64
	points        []float64
	lastKey       uint8
	inPath        bool
	hasQuadCntrl  bool
	hasCubicCntrl bool
}

func (c *pathCursor) init() {
	c.placeX = 0.0
	c.placeY = 0.0
	c.points = c.points[0:0]
	c.lastKey = ' '
	c.path = nil
	c.inPath = false
}

// ParsePath parses the content of a 'd' attribute. The returned path
// only contains absolute MoveTo, LineTo, QuadTo, CubicTo and Close
// operations: arcs are approximated by cubic Béziers.
func ParsePath(svgPath string) (Path, error) {
	var c pathCursor
	if err := c.compile(svgPath); err != nil {
		return nil, err
	}
	return c.path, nil
}

// ParseNumbers reads a list of numbers separated by spaces and/or
// commas. As in path data, a sign or a second decimal point starts
// a new number: "1.5.5-2" is [1.5 .5 -2].
func ParseNumbers(s string) ([]float64, error) {
	var c pathCursor
	if err := c.getPoints(s); err != nil {
		return nil, err
	}
	return c.points, nil
}

// compile translates the svgPath description string into a path.
// The resulting path element is stored in the pathCursor.
func (c *pathCursor) compile(svgPath string) error {
	c.init()
	lastIndex := -1
	for i, v := range svgPath {
		if unicode.IsLetter(v) && v != 'e' && v != 'E' {
			if lastIndex != -1 {
				if err := c.addSeg(svgPath[lastIndex:i]); err != nil {
					return err
				}
			}
			lastIndex = i
		}
	}
	if lastIndex != -1 {
		if err := c.addSeg(svgPath[lastIndex:]); err != nil {
			return err
		}
	}
	return nil
}

func (c *pathCursor) readFloat(numStr string) error {
	last := 0
	isFirst := true
	for i, n := range numStr {
		if n == '.' {
			if isFirst {
				isFirst = false
				continue
			}
			f, err := strconv.ParseFloat(numStr[last:i], 64)
			if err != nil {
				return err
			}
			c.points = append(c.points, f)
			last = i
		}
	}
	f, err := strconv.ParseFloat(numStr[last:], 64)
	if err != nil {
		return err
	}
	c.points = append(c.points, f)
	return nil
}

// getPoints reads a set of floating point values from the SVG format number string,
// and add them to the cursor's points slice.
func (c *pathCursor) getPoints(dataPoints string) error {
	lastIndex := -1
	c.points = c.points[0:0]
	lr := ' '
	for i, r := range dataPoints {
		if !unicode.IsNumber(r) && r != '.' && !((r == '-' || r == '+') && (lr == 'e' || lr == 'E')) && r != 'e' && r != 'E' {
			if lastIndex != -1 {
				if err := c.readFloat(dataPoints[lastIndex:i]); err != nil {
					return err
				}
			}
			if r == '-' {
				lastIndex = i
			} else {
				lastIndex = -1
			}
		} else if lastIndex == -1 {
			lastIndex = i
		}
		lr = r
	}
	if lastIndex != -1 && lastIndex != len(dataPoints) {
		if err := c.readFloat(dataPoints[lastIndex:]); err != nil {
			return err
		}
	}
	return nil
}

// reflectControlQuad updates the control point for smooth quadratic curves
func (c *pathCursor) reflectControlQuad() {
	if c.hasQuadCntrl {
		c.cntlPtX, c.cntlPtY = 2*c.placeX-c.cntlPtX, 2*c.placeY-c.cntlPtY
	} else {
		c.cntlPtX, c.cntlPtY = c.placeX, c.placeY
	}
	c.hasQuadCntrl = true
}

// reflectControlCube updates the control point for smooth cubic curves
func (c *pathCursor) reflectControlCube() {
	if c.hasCubicCntrl {
		c.cntlPtX, c.cntlPtY = 2*c.placeX-c.cntlPtX, 2*c.placeY-c.cntlPtY
	} else {
		c.cntlPtX, c.cntlPtY = c.placeX, c.placeY
	}
	c.hasCubicCntrl = true
}

// checks the number of points, in multiple of n
func (c *pathCursor) checkPoints(k uint8, n int) error {
	l := len(c.points)
	if l < n || l%n != 0 {
		return fmt.Errorf("%w: command %c expects multiples of %d values, got %d",
			errParamMismatch, k, n, l)
	}
	return nil
}

// addSeg decodes an SVG seqment string into equivalent raster path commands saved
// in the cursor's Path
func (c *pathCursor) addSeg(segString string) error {
	// Parse the string describing the numeric points in SVG format
	if err := c.getPoints(segString[1:]); err != nil {
		return err
	}
	l := len(c.points)
	k := segString[0]
	rel := false
	switch k {
	case 'z', 'Z':
		if l != 0 {
			return fmt.Errorf("%w: command %c expects no values", errParamMismatch, k)
		}
		if c.inPath {
			c.path.Stop(true)
			c.placeX = c.pathStartX
			c.placeY = c.pathStartY
			c.inPath = false
		}
	case 'm':
		rel = true
		fallthrough
	case 'M':
		if err := c.checkPoints(k, 2); err != nil {
			return err
		}
		c.pathStartX, c.pathStartY = c.points[0], c.points[1]
		c.inPath = true
		if rel {
			c.pathStartX += c.placeX
			c.pathStartY += c.placeY
		}
		c.path.Start(vec.Vec2{X: c.pathStartX, Y: c.pathStartY})
		c.placeX, c.placeY = c.pathStartX, c.pathStartY
		// subsequent pairs are implicit lines
		for i := 2; i < l-1; i += 2 {
			if rel {
				c.placeX += c.points[i]
				c.placeY += c.points[i+1]
			} else {
				c.placeX = c.points[i]
				c.placeY = c.points[i+1]
			}
			c.path.Line(vec.Vec2{X: c.placeX, Y: c.placeY})
		}
	case 'l':
		rel = true
		fallthrough
	case 'L':
		if err := c.checkPoints(k, 2); err != nil {
			return err
		}
		for i := 0; i < l-1; i += 2 {
			if rel {
				c.placeX += c.points[i]
				c.placeY += c.points[i+1]
			} else {
				c.placeX = c.points[i]
				c.placeY = c.points[i+1]
			}
			c.path.Line(vec.Vec2{X: c.placeX, Y: c.placeY})
		}
	case 'v':
		rel = true
		fallthrough
	case 'V':
		if err := c.checkPoints(k, 1); err != nil {
			return err
		}
		for _, p := range c.points {
			if rel {
				c.placeY += p
			} else {
				c.placeY = p
			}
			c.path.Line(vec.Vec2{X: c.placeX, Y: c.placeY})
		}
	case 'h':
		rel = true
		fallthrough
	case 'H':
		if err := c.checkPoints(k, 1); err != nil {
			return err
		}
		for _, p := range c.points {
			if rel {
				c.placeX += p
			} else {
				c.placeX = p
			}
			c.path.Line(vec.Vec2{X: c.placeX, Y: c.placeY})
		}
	case 'q':
		rel = true
		fallthrough
	case 'Q':
		if err := c.checkPoints(k, 4); err != nil {
			return err
		}
		for i := 0; i < l-3; i += 4 {
			if rel {
				c.points[i] += c.placeX
				c.points[i+1] += c.placeY
				c.points[i+2] += c.placeX
				c.points[i+3] += c.placeY
			}
			c.path.QuadBezier(vec.Vec2{X: c.points[i], Y: c.points[i+1]},
				vec.Vec2{X: c.points[i+2], Y: c.points[i+3]})
			c.cntlPtX, c.cntlPtY = c.points[i], c.points[i+1]
			c.placeX = c.points[i+2]
			c.placeY = c.points[i+3]
		}
	case 't':
		rel = true
		fallthrough
	case 'T':
		if err := c.checkPoints(k, 2); err != nil {
			return err
		}
		for i := 0; i < l-1; i += 2 {
			c.reflectControlQuad()
			if rel {
				c.points[i] += c.placeX
				c.points[i+1] += c.placeY
			}
			c.path.QuadBezier(vec.Vec2{X: c.cntlPtX, Y: c.cntlPtY},
				vec.Vec2{X: c.points[i], Y: c.points[i+1]})
			c.lastKey = k
			c.placeX = c.points[i]
			c.placeY = c.points[i+1]
		}
	case 'c':
		rel = true
		fallthrough
	case 'C':
		if err := c.checkPoints(k, 6); err != nil {
			return err
		}
		for i := 0; i < l-5; i += 6 {
			if rel {
				for j := 0; j < 6; j += 2 {
					c.points[i+j] += c.placeX
					c.points[i+j+1] += c.placeY
				}
			}
			c.path.CubeBezier(vec.Vec2{X: c.points[i], Y: c.points[i+1]},
				vec.Vec2{X: c.points[i+2], Y: c.points[i+3]},
				vec.Vec2{X: c.points[i+4], Y: c.points[i+5]})
			c.cntlPtX, c.cntlPtY = c.points[i+2], c.points[i+3]
			c.placeX = c.points[i+4]
			c.placeY = c.points[i+5]
		}
	case 's':
		rel = true
		fallthrough
	case 'S':
		if err := c.checkPoints(k, 4); err != nil {
			return err
		}
		for i := 0; i < l-3; i += 4 {
			c.reflectControlCube()
			if rel {
				c.points[i] += c.placeX
				c.points[i+1] += c.placeY
				c.points[i+2] += c.placeX
				c.points[i+3] += c.placeY
			}
			c.path.CubeBezier(vec.Vec2{X: c.cntlPtX, Y: c.cntlPtY},
				vec.Vec2{X: c.points[i], Y: c.points[i+1]},
				vec.Vec2{X: c.points[i+2], Y: c.points[i+3]})
			c.lastKey = k
			c.cntlPtX, c.cntlPtY = c.points[i], c.points[i+1]
			c.placeX = c.points[i+2]
			c.placeY = c.points[i+3]
		}
	case 'a', 'A':
		if err := c.checkPoints(k, 7); err != nil {
			return err
		}
		for i := 0; i < l-6; i += 7 {
			if k == 'a' {
				c.points[i+5] += c.placeX
				c.points[i+6] += c.placeY
			}
			c.addArcTo(c.points[i : i+7])
		}
	default:
		return fmt.Errorf("%w: %c", errCommandUnknown, k)
	}
	// smooth curves only reflect the control point of the previous
	// command of the same family
	switch k {
	case 'q', 'Q', 't', 'T':
		c.hasQuadCntrl, c.hasCubicCntrl = true, false
	case 'c', 'C', 's', 'S':
		c.hasQuadCntrl, c.hasCubicCntrl = false, true
	default:
		c.hasQuadCntrl, c.hasCubicCntrl = false, false
	}
	c.lastKey = k
	return nil
}

// addArcTo adds the arc described by points (absolute end point),
// starting at the current position.
func (c *pathCursor) addArcTo(points []float64) {
	rx, ry := math.Abs(points[0]), math.Abs(points[1])
	endX, endY := points[5], points[6]
	if endX == c.placeX && endY == c.placeY {
		return // an arc with identical ends is omitted
	}
	if rx == 0 || ry == 0 {
		// degenerates into a straight line
		c.path.Line(vec.Vec2{X: endX, Y: endY})
		c.placeX, c.placeY = endX, endY
		return
	}
	rotX := points[2] * math.Pi / 180
	cx, cy := findEllipseCenter(&rx, &ry, rotX, c.placeX, c.placeY, endX, endY,
		points[4] != 0, points[3] == 0)
	arc := [7]float64{rx, ry, points[2], points[3], points[4], endX, endY}
	c.placeX, c.placeY = c.path.addArc(arc[:], cx, cy, c.placeX, c.placeY)
}
