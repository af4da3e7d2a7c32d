package svgpath

import (
	"math"

	"seehuhn.de/go/geom/vec"
)

// This file implements the transformation from
// high level shapes to their path equivalent

// maxDx is the maximum radians a cubic splice is allowed to span
// in ellipse parametric when approximating an off-axis ellipse.
const maxDx float64 = math.Pi / 8

// RectPath returns the outline of the rectangle at (x, y) with
// size w x h and corners rounded with radii rx, ry.
// Following SVG, a missing radius (<= 0) takes the value of the other one.
func RectPath(x, y, w, h, rx, ry float64) Path {
	if rx <= 0 {
		rx = ry
	}
	if ry <= 0 {
		ry = rx
	}
	var p Path
	p.addRoundRect(x, y, x+w, y+h, rx, ry)
	return p
}

// EllipsePath returns the outline of the axis-aligned ellipse
// centered at (cx, cy), approximated by cubic Béziers.
func EllipsePath(cx, cy, rx, ry float64) Path {
	var p Path
	p.ellipseAt(cx, cy, rx, ry)
	return p
}

func (p *Path) addRect(minX, minY, maxX, maxY float64) {
	p.Start(vec.Vec2{X: minX, Y: minY})
	p.Line(vec.Vec2{X: maxX, Y: minY})
	p.Line(vec.Vec2{X: maxX, Y: maxY})
	p.Line(vec.Vec2{X: minX, Y: maxY})
	p.Stop(true)
}

// addRoundRect adds a rectangle with rounded corners of radius
// rx in the x axis and ry in the y axis. Each corner is a quarter
// of ellipse.
func (p *Path) addRoundRect(minX, minY, maxX, maxY, rx, ry float64) {
	if rx <= 0 || ry <= 0 {
		p.addRect(minX, minY, maxX, maxY)
		return
	}
	w := maxX - minX
	if w < rx*2 {
		rx = w / 2
	}
	h := maxY - minY
	if h < ry*2 {
		ry = h / 2
	}

	p.Start(vec.Vec2{X: minX + rx, Y: minY})
	p.Line(vec.Vec2{X: maxX - rx, Y: minY})
	p.quarter(maxX-rx, minY+ry, rx, ry, -math.Pi/2)
	p.Line(vec.Vec2{X: maxX, Y: maxY - ry})
	p.quarter(maxX-rx, maxY-ry, rx, ry, 0)
	p.Line(vec.Vec2{X: minX + rx, Y: maxY})
	p.quarter(minX+rx, maxY-ry, rx, ry, math.Pi/2)
	p.Line(vec.Vec2{X: minX, Y: minY + ry})
	p.quarter(minX+rx, minY+ry, rx, ry, math.Pi)
	p.Stop(true)
}

// quarter adds the quarter of ellipse centered at (cx, cy) starting at
// the parametric angle eta, in the direction of increasing angles.
func (p *Path) quarter(cx, cy, rx, ry, eta float64) {
	p.arcSegments(cx, cy, rx, ry, 0, 1, eta, math.Pi/2)
}

// ellipseAt adds an ellipse centered at (cx, cy), starting at
// the right-most point.
func (p *Path) ellipseAt(cx, cy, rx, ry float64) {
	p.Start(vec.Vec2{X: cx + rx, Y: cy})
	p.arcSegments(cx, cy, rx, ry, 0, 1, 0, 2*math.Pi)
	p.setLastPoint(vec.Vec2{X: cx + rx, Y: cy})
	p.Stop(true)
}

// arcSegments approximates the elliptic arc from eta to eta+deltaEta
// using a set of cubic bezier curves by the method of
// L. Maisonobe, "Drawing an elliptical arc using polylines, quadratic
// or cubic Bezier curves", 2003
// https://www.spaceroots.org/documents/elllipse/elliptical-arc.pdf
func (p *Path) arcSegments(cx, cy, rx, ry, sinTheta, cosTheta, etaStart, deltaEta float64) vec.Vec2 {
	// Round up to determine number of cubic splines to approximate bezier curve
	segs := int(math.Abs(deltaEta)/maxDx) + 1
	dEta := deltaEta / float64(segs) // span of each segment
	tde := math.Tan(dEta / 2)
	alpha := math.Sin(dEta) * (math.Sqrt(4+3*tde*tde) - 1) / 3 // Math is fun!
	lx, ly := ellipsePointAt(rx, ry, sinTheta, cosTheta, etaStart, cx, cy)
	ldx, ldy := ellipsePrime(rx, ry, sinTheta, cosTheta, etaStart, cx, cy)
	for i := 1; i <= segs; i++ {
		eta := etaStart + dEta*float64(i)
		px, py := ellipsePointAt(rx, ry, sinTheta, cosTheta, eta, cx, cy)
		dx, dy := ellipsePrime(rx, ry, sinTheta, cosTheta, eta, cx, cy)
		p.CubeBezier(vec.Vec2{X: lx + alpha*ldx, Y: ly + alpha*ldy},
			vec.Vec2{X: px - alpha*dx, Y: py - alpha*dy}, vec.Vec2{X: px, Y: py})
		lx, ly, ldx, ldy = px, py, dx, dy
	}
	return vec.Vec2{X: lx, Y: ly}
}

// addArc adds the SVG elliptical arc starting at the current point (px, py):
// points are rx, ry, x-axis-rotation, large-arc-flag, sweep-flag, x, y.
func (p *Path) addArc(points []float64, cx, cy, px, py float64) (lx, ly float64) {
	rotX := points[2] * math.Pi / 180 // Convert degress to radians
	largeArc := points[3] != 0
	sweep := points[4] != 0
	startAngle := math.Atan2(py-cy, px-cx) - rotX
	endAngle := math.Atan2(points[6]-cy, points[5]-cx) - rotX
	deltaTheta := endAngle - startAngle
	arcBig := math.Abs(deltaTheta) > math.Pi

	etaStart := math.Atan2(math.Sin(startAngle)/points[1], math.Cos(startAngle)/points[0])
	etaEnd := math.Atan2(math.Sin(endAngle)/points[1], math.Cos(endAngle)/points[0])
	deltaEta := etaEnd - etaStart
	if arcBig != largeArc {
		if deltaEta < 0 {
			deltaEta += math.Pi * 2
		} else {
			deltaEta -= math.Pi * 2
		}
	}
	// This check might be needed if the center point of the elipse is
	// at the midpoint of the start and end lines.
	if deltaEta < 0 && sweep {
		deltaEta += math.Pi * 2
	} else if deltaEta >= 0 && !sweep {
		deltaEta -= math.Pi * 2
	}

	sinTheta, cosTheta := math.Sin(rotX), math.Cos(rotX)
	p.arcSegments(cx, cy, points[0], points[1], sinTheta, cosTheta, etaStart, deltaEta)
	// Just makes the end point exact; no roundoff error
	p.setLastPoint(vec.Vec2{X: points[5], Y: points[6]})
	return points[5], points[6]
}

// setLastPoint replaces the end point of the last cubic segment.
func (p *Path) setLastPoint(v vec.Vec2) {
	if c, ok := (*p)[len(*p)-1].(CubicTo); ok {
		c[2] = v
		(*p)[len(*p)-1] = c
	}
}

// ellipsePrime gives tangent vectors for parameterized elipse; a, b, radii, eta parameter, center cx, cy
func ellipsePrime(a, b, sinTheta, cosTheta, eta, cx, cy float64) (px, py float64) {
	bCosEta := b * math.Cos(eta)
	aSinEta := a * math.Sin(eta)
	px = -aSinEta*cosTheta - bCosEta*sinTheta
	py = -aSinEta*sinTheta + bCosEta*cosTheta
	return
}

// ellipsePointAt gives points for parameterized elipse; a, b, radii, eta parameter, center cx, cy
func ellipsePointAt(a, b, sinTheta, cosTheta, eta, cx, cy float64) (px, py float64) {
	aCosEta := a * math.Cos(eta)
	bSinEta := b * math.Sin(eta)
	px = cx + aCosEta*cosTheta - bSinEta*sinTheta
	py = cy + aCosEta*sinTheta + bSinEta*cosTheta
	return
}

// findEllipseCenter locates the center of the Ellipse if it exists. If it does not exist,
// the radius values will be increased minimally for a solution to be possible
// while preserving the ra to rb ratio.  ra and rb arguments are pointers that can be
// checked after the call to see if the values changed. This method uses coordinate transformations
// to reduce the problem to finding the center of a circle that includes the origin
// and an arbitrary point. The center of the circle is then transformed
// back to the original coordinates and returned.
func findEllipseCenter(ra, rb *float64, rotX, startX, startY, endX, endY float64, sweep, smallArc bool) (cx, cy float64) {
	cos, sin := math.Cos(rotX), math.Sin(rotX)

	// Move origin to start point
	nx, ny := endX-startX, endY-startY

	// Rotate ellipse x-axis to coordinate x-axis
	nx, ny = nx*cos+ny*sin, -nx*sin+ny*cos
	// Scale X dimension so that ra = rb
	nx *= *rb / *ra // Now the ellipse is a circle radius rb; therefore foci and center coincide

	midX, midY := nx/2, ny/2
	midlenSq := midX*midX + midY*midY

	var hr float64
	if *rb**rb < midlenSq {
		// Requested ellipse does not exist; scale ra, rb to fit. Length of
		// span is greater than max width of ellipse, must scale *ra, *rb
		nrb := math.Sqrt(midlenSq)
		if *ra == *rb {
			*ra = nrb // prevents roundoff
		} else {
			*ra = *ra * nrb / *rb
		}
		*rb = nrb
	} else {
		hr = math.Sqrt(*rb**rb-midlenSq) / math.Sqrt(midlenSq)
	}
	// Notice that if hr is zero, both answers are the same.
	if (sweep && smallArc) || (!sweep && !smallArc) {
		cx = midX + midY*hr
		cy = midY - midX*hr
	} else {
		cx = midX - midY*hr
		cy = midY + midX*hr
	}

	// reverse scale
	cx *= *ra / *rb
	//Reverse rotate and translate back to original coordinates
	return cx*cos - cy*sin + startX, cx*sin + cy*cos + startY
}
