package svgpath

import (
	"errors"
	"math"
	"sort"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// This file implements the clipping of a path against an axis-aligned
// rectangle, as four successive half-plane passes. Segments are cut where
// they cross the boundary line and the inside pieces are kept with their
// original degree.

// ClosePolicy decides what happens to a closed subpath which is cut
// by the clip rectangle.
type ClosePolicy uint8

const (
	// Reclose joins the cut ends along the clip boundary so the
	// fill of the contour is preserved.
	Reclose ClosePolicy = iota
	// LeaveOpen keeps the inside pieces as open subpaths.
	LeaveOpen
)

func (c ClosePolicy) String() string {
	switch c {
	case Reclose:
		return "reclose"
	case LeaveOpen:
		return "open"
	default:
		return "<unknown ClosePolicy>"
	}
}

// ParseClosePolicy is the inverse of ClosePolicy.String.
// The empty string selects Reclose.
func ParseClosePolicy(s string) (ClosePolicy, error) {
	switch s {
	case "reclose", "":
		return Reclose, nil
	case "open":
		return LeaveOpen, nil
	}
	return 0, errors.New("unknown close policy " + s)
}

// Tolerance is the distance, in user units, under which a path is
// considered inside a clip rectangle. It makes clipping idempotent.
const Tolerance = 1e-7

// parameters closer than this to a segment end are not cut
const tEpsilon = 1e-9

type segment struct {
	deg int // 1 (line), 2 (quadratic) or 3 (cubic)
	pts [4]vec.Vec2
}

func (s segment) start() vec.Vec2 { return s.pts[0] }
func (s segment) end() vec.Vec2   { return s.pts[s.deg] }

func (s segment) curve() bezier {
	switch s.deg {
	case 1:
		return line{s.pts[0], s.pts[1]}
	case 2:
		return quadBezier{s.pts[0], s.pts[1], s.pts[2]}
	default:
		return s.asCubic()
	}
}

func (s segment) asCubic() cubicBezier { return cubicBezier(s.pts) }

func (s segment) at(t float64) vec.Vec2 { return s.curve().evaluateCurve(t) }

// split uses de Casteljau's algorithm to cut the segment at t.
func (s segment) split(t float64) (left, right segment) {
	left.deg, right.deg = s.deg, s.deg
	var work [4]vec.Vec2
	copy(work[:], s.pts[:s.deg+1])
	left.pts[0] = work[0]
	right.pts[s.deg] = work[s.deg]
	for level := 1; level <= s.deg; level++ {
		for i := 0; i <= s.deg-level; i++ {
			work[i] = lerp(work[i], work[i+1], t)
		}
		left.pts[level] = work[0]
		right.pts[s.deg-level] = work[s.deg-level]
	}
	return left, right
}

func lerp(a, b vec.Vec2, t float64) vec.Vec2 {
	return vec.Vec2{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

func (s segment) appendTo(p *Path) {
	switch s.deg {
	case 1:
		p.Line(s.pts[1])
	case 2:
		p.QuadBezier(s.pts[1], s.pts[2])
	case 3:
		p.CubeBezier(s.pts[1], s.pts[2], s.pts[3])
	}
}

type subpath struct {
	segs   []segment
	closed bool
}

func (sp subpath) start() vec.Vec2 { return sp.segs[0].start() }
func (sp subpath) end() vec.Vec2   { return sp.segs[len(sp.segs)-1].end() }

// toSubpaths splits the path into drawing subpaths. Closed subpaths
// carry their closing line as a regular segment. Subpaths drawing
// nothing are dropped.
func toSubpaths(p Path) []subpath {
	var (
		out            []subpath
		cur            subpath
		current, start vec.Vec2
		inPath         bool
	)
	flush := func() {
		if len(cur.segs) > 0 {
			out = append(out, cur)
		}
		cur = subpath{}
	}
	add := func(s segment) {
		if !inPath {
			// drawing after a Close restarts at the subpath start
			flush()
			inPath = true
		}
		s.pts[0] = current
		cur.segs = append(cur.segs, s)
		current = s.end()
	}
	for _, op := range p {
		switch op := op.(type) {
		case MoveTo:
			flush()
			current, start = vec.Vec2(op), vec.Vec2(op)
			inPath = true
		case LineTo:
			add(segment{deg: 1, pts: [4]vec.Vec2{{}, vec.Vec2(op)}})
		case QuadTo:
			add(segment{deg: 2, pts: [4]vec.Vec2{{}, op[0], op[1]}})
		case CubicTo:
			add(segment{deg: 3, pts: [4]vec.Vec2{{}, op[0], op[1], op[2]}})
		case Close:
			if !inPath || len(cur.segs) == 0 {
				inPath = false
				current = start
				continue
			}
			if current != start {
				cur.segs = append(cur.segs, segment{deg: 1, pts: [4]vec.Vec2{current, start}})
			}
			cur.closed = true
			flush()
			inPath = false
			current = start
		}
	}
	flush()
	return out
}

func fromSubpaths(sps []subpath) Path {
	var out Path
	for _, sp := range sps {
		if len(sp.segs) == 0 {
			continue
		}
		segs := sp.segs
		out.Start(sp.start())
		if sp.closed && len(segs) > 1 {
			// the closing line is implied by Z
			if last := segs[len(segs)-1]; last.deg == 1 && last.end() == sp.start() {
				segs = segs[:len(segs)-1]
			}
		}
		for _, s := range segs {
			s.appendTo(&out)
		}
		out.Stop(sp.closed)
	}
	return out
}

// halfPlane is {v | v[axis] >= bound} when keepAbove,
// {v | v[axis] <= bound} otherwise.
type halfPlane struct {
	axis      int // 0 for x, 1 for y
	bound     float64
	keepAbove bool
}

func coord(v vec.Vec2, axis int) float64 {
	if axis == 0 {
		return v.X
	}
	return v.Y
}

func (h halfPlane) contains(v vec.Vec2) bool {
	c := coord(v, h.axis)
	if h.keepAbove {
		return c >= h.bound
	}
	return c <= h.bound
}

// snap moves v on the boundary line.
func (h halfPlane) snap(v vec.Vec2) vec.Vec2 {
	if h.axis == 0 {
		v.X = h.bound
	} else {
		v.Y = h.bound
	}
	return v
}

func clipHalfPlanes(r rect.Rect) [4]halfPlane {
	return [4]halfPlane{
		{axis: 0, bound: r.LLx, keepAbove: true},
		{axis: 0, bound: r.URx, keepAbove: false},
		{axis: 1, bound: r.LLy, keepAbove: true},
		{axis: 1, bound: r.URy, keepAbove: false},
	}
}

// crossings returns the sorted parameters in (0, 1) where the segment
// crosses the boundary line of h. The coordinate is monotonic between
// two critical points, so each root is isolated and found by bisection.
func (h halfPlane) crossings(s segment) []float64 {
	c := s.curve()
	tX, tY := c.criticalPoints()
	crit := tX
	if h.axis == 1 {
		crit = tY
	}
	knots := []float64{0}
	for _, t := range crit {
		if t > 0 && t < 1 {
			knots = append(knots, t)
		}
	}
	knots = append(knots, 1)
	sort.Float64s(knots)

	f := func(t float64) float64 { return coord(c.evaluateCurve(t), h.axis) - h.bound }
	var roots []float64
	for i := 0; i+1 < len(knots); i++ {
		lo, hi := knots[i], knots[i+1]
		flo, fhi := f(lo), f(hi)
		if i > 0 && flo == 0 {
			roots = append(roots, lo) // boundary reached at a critical point
			continue
		}
		if flo*fhi >= 0 {
			continue
		}
		for it := 0; it < 200 && hi-lo > 1e-16; it++ {
			mid := (lo + hi) / 2
			fm := f(mid)
			if fm == 0 {
				lo, hi = mid, mid
				break
			}
			if (fm < 0) == (flo < 0) {
				lo, flo = mid, fm
			} else {
				hi = mid
			}
		}
		roots = append(roots, (lo+hi)/2)
	}

	var out []float64
	for _, t := range roots {
		if t <= tEpsilon || t >= 1-tEpsilon {
			continue
		}
		if len(out) > 0 && t-out[len(out)-1] <= tEpsilon {
			continue
		}
		out = append(out, t)
	}
	return out
}

type piece struct {
	seg    segment
	inside bool
}

// cut splits s at its crossings with the boundary of h, classifying each
// piece. Cut points are snapped on the boundary line so that adjacent
// pieces share the exact same point.
func (h halfPlane) cut(s segment) []piece {
	ts := h.crossings(s)
	if len(ts) == 0 {
		return []piece{{seg: s, inside: h.contains(s.at(0.5))}}
	}
	out := make([]piece, 0, len(ts)+1)
	rest, t0 := s, 0.
	for _, t := range ts {
		// re-parametrize t in the remaining part [t0, 1]
		left, right := rest.split((t - t0) / (1 - t0))
		p := h.snap(left.end())
		left.pts[left.deg] = p
		right.pts[0] = p
		out = append(out, piece{seg: left, inside: h.contains(s.at((t0 + t) / 2))})
		rest, t0 = right, t
	}
	out = append(out, piece{seg: rest, inside: h.contains(s.at((t0 + 1) / 2))})
	return out
}

// clip returns the parts of sp inside h. The second value is true if a
// closed subpath has been cut and left open.
func (h halfPlane) clip(sp subpath, policy ClosePolicy) ([]subpath, bool) {
	var pieces []piece
	allIn, allOut := true, true
	for _, s := range sp.segs {
		for _, p := range h.cut(s) {
			pieces = append(pieces, p)
			allIn = allIn && p.inside
			allOut = allOut && !p.inside
		}
	}
	if allIn {
		return []subpath{sp}, false
	}
	if allOut {
		return nil, false
	}

	var runs [][]segment
	var cur []segment
	for _, p := range pieces {
		if p.inside {
			cur = append(cur, p.seg)
		} else if len(cur) > 0 {
			runs = append(runs, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}

	if !sp.closed {
		out := make([]subpath, len(runs))
		for i, run := range runs {
			out[i] = subpath{segs: run}
		}
		return out, false
	}

	// a closed contour wraps around: the last run continues into the first one
	if len(runs) > 1 && pieces[0].inside && pieces[len(pieces)-1].inside {
		last := runs[len(runs)-1]
		runs[0] = append(last, runs[0]...)
		runs = runs[:len(runs)-1]
	}

	if policy == LeaveOpen {
		out := make([]subpath, len(runs))
		for i, run := range runs {
			out[i] = subpath{segs: run}
		}
		return out, true
	}

	// Reclose: consecutive runs exit and re-enter on the same boundary
	// line, so joining them follows the clip edge.
	var joined []segment
	for _, run := range runs {
		if len(joined) > 0 {
			if from, to := joined[len(joined)-1].end(), run[0].start(); from != to {
				joined = append(joined, segment{deg: 1, pts: [4]vec.Vec2{from, to}})
			}
		}
		joined = append(joined, run...)
	}
	if from, to := joined[len(joined)-1].end(), joined[0].start(); from != to {
		joined = append(joined, segment{deg: 1, pts: [4]vec.Vec2{from, to}})
	}
	return []subpath{{segs: joined, closed: true}}, false
}

// ClipPath returns the part of p inside the closed rectangle r.
// A path whose bounds only touch the border of r is outside.
// Open subpaths stay open; closed subpaths crossing r follow policy.
// The boolean result is true if a closed subpath has been left open.
// A path already inside r (up to Tolerance) is returned unchanged.
func ClipPath(p Path, r rect.Rect, policy ClosePolicy) (Path, bool) {
	box := p.Bounds(matrix.Identity)
	if IsEmpty(box) || isDegenerateRect(r) {
		return nil, false
	}
	if ContainsRect(r, box, Tolerance) {
		return p.Copy(), false
	}
	if !Overlaps(box, r) {
		return nil, false
	}

	sps := toSubpaths(p)
	opened := false
	for _, h := range clipHalfPlanes(r) {
		var next []subpath
		for _, sp := range sps {
			parts, o := h.clip(sp, policy)
			opened = opened || o
			next = append(next, parts...)
		}
		sps = next
		if len(sps) == 0 {
			return nil, opened
		}
	}
	return fromSubpaths(sps), opened
}

// isDegenerateRect returns true for rectangles with no area or
// non finite coordinates.
func isDegenerateRect(r rect.Rect) bool {
	for _, c := range [4]float64{r.LLx, r.LLy, r.URx, r.URy} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return true
		}
	}
	return r.URx <= r.LLx || r.URy <= r.LLy
}
