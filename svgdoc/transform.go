package svgdoc

import (
	"fmt"
	"strings"

	"github.com/benoitkugler/svgtile/svgpath"
	"seehuhn.de/go/geom/matrix"
)

func readTransformAttr(m1 matrix.Matrix, k string, points []float64) (matrix.Matrix, error) {
	ln := len(points)
	var t matrix.Matrix
	switch k {
	case "rotate":
		if ln == 1 {
			t = svgpath.Rotate(points[0])
		} else if ln == 3 {
			t = svgpath.Compose(svgpath.Translate(points[1], points[2]),
				svgpath.Compose(svgpath.Rotate(points[0]), svgpath.Translate(-points[1], -points[2])))
		} else {
			return m1, errParamMismatch
		}
	case "translate":
		if ln == 1 {
			t = svgpath.Translate(points[0], 0)
		} else if ln == 2 {
			t = svgpath.Translate(points[0], points[1])
		} else {
			return m1, errParamMismatch
		}
	case "skewx":
		if ln == 1 {
			t = svgpath.SkewX(points[0])
		} else {
			return m1, errParamMismatch
		}
	case "skewy":
		if ln == 1 {
			t = svgpath.SkewY(points[0])
		} else {
			return m1, errParamMismatch
		}
	case "scale":
		if ln == 1 {
			t = svgpath.Scale(points[0], points[0])
		} else if ln == 2 {
			t = svgpath.Scale(points[0], points[1])
		} else {
			return m1, errParamMismatch
		}
	case "matrix":
		if ln == 6 {
			t = matrix.Matrix{points[0], points[1], points[2], points[3], points[4], points[5]}
		} else {
			return m1, errParamMismatch
		}
	default:
		return m1, fmt.Errorf("unsupported transform %q", k)
	}
	// the rightmost transform of the list applies first
	return svgpath.Compose(m1, t), nil
}

// ParseTransform parses the value of a transform attribute.
// An empty list is the identity.
func ParseTransform(v string) (matrix.Matrix, error) {
	ts := strings.Split(v, ")")
	m1 := matrix.Identity
	for _, t := range ts {
		t = strings.Trim(t, " \t\n\r,")
		if len(t) == 0 {
			continue
		}
		d := strings.Split(t, "(")
		if len(d) != 2 || len(d[1]) < 1 {
			return m1, errParamMismatch // badly formed transformation
		}
		points, err := svgpath.ParseNumbers(d[1])
		if err != nil {
			return m1, err
		}
		m1, err = readTransformAttr(m1, strings.ToLower(strings.TrimSpace(d[0])), points)
		if err != nil {
			return m1, err
		}
	}
	return m1, nil
}

// formatTransform returns the shortest transform attribute
// value for m, or an empty string for the identity.
func formatTransform(m matrix.Matrix) string {
	if m == matrix.Identity {
		return ""
	}
	f := svgpath.FormatFloat
	if svgpath.IsTranslation(m) {
		return "translate(" + f(m[4]) + " " + f(m[5]) + ")"
	}
	return "matrix(" + f(m[0]) + " " + f(m[1]) + " " + f(m[2]) + " " +
		f(m[3]) + " " + f(m[4]) + " " + f(m[5]) + ")"
}
