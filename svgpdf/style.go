package svgpdf

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/benoitkugler/svgtile/svgdoc"
	"golang.org/x/image/colornames"
)

var errColor = errors.New("invalid color")

// StrokeOptions is the resolved stroking style of a shape,
// in user units.
type StrokeOptions struct {
	Width      float64
	Cap        string // gofpdf cap style: butt, round or square
	Join       string // gofpdf join style: miter, round or bevel
	Dash       []float64
	DashOffset float64
}

func readStrokeOptions(style svgdoc.Style) StrokeOptions {
	opts := StrokeOptions{Width: 1, Cap: "butt", Join: "miter"}
	if v, ok := style["stroke-width"]; ok {
		if w, err := parseLength(v); err == nil {
			opts.Width = w
		}
	}
	switch style["stroke-linecap"] {
	case "round":
		opts.Cap = "round"
	case "square":
		opts.Cap = "square"
	}
	switch style["stroke-linejoin"] {
	case "round", "arc":
		opts.Join = "round"
	case "bevel":
		opts.Join = "bevel"
	}
	if v := style["stroke-dasharray"]; v != "" && v != "none" {
		var dashes []float64
		for _, d := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
			f, err := parseLength(d)
			if err != nil || f < 0 {
				dashes = nil
				break
			}
			dashes = append(dashes, f)
		}
		if len(dashes)%2 == 1 {
			dashes = append(dashes, dashes...)
		}
		opts.Dash = dashes
	}
	if v, ok := style["stroke-dashoffset"]; ok {
		opts.DashOffset, _ = parseLength(v)
	}
	return opts
}

// parseLength reads a number, ignoring a px or % suffix.
func parseLength(v string) (float64, error) {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, "px")
	v = strings.TrimSuffix(v, "%")
	return strconv.ParseFloat(strings.TrimSpace(v), 64)
}

// resolvePaint returns the color of a fill or stroke value, or false
// for none. Paint servers are replaced by their fallback.
func resolvePaint(v string, style svgdoc.Style) (color.RGBA, bool) {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "url(") {
		end := strings.IndexByte(v, ')')
		if end == -1 {
			return color.RGBA{}, false
		}
		v = strings.TrimSpace(v[end+1:])
	}
	if v == "currentColor" {
		v = style["color"]
	}
	if v == "" || v == "none" {
		return color.RGBA{}, false
	}
	c, err := ParseColor(v)
	if err != nil {
		return color.RGBA{}, false
	}
	return c, true
}

// ParseColor reads a CSS color: hexadecimal, rgb() or rgba() notation,
// or one of the SVG color keywords.
func ParseColor(v string) (color.RGBA, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "transparent" {
		return color.RGBA{}, nil
	}
	if c, ok := colornames.Map[v]; ok {
		return c, nil
	}
	if strings.HasPrefix(v, "#") {
		return parseHexColor(v[1:])
	}
	for _, prefix := range [...]string{"rgba(", "rgb("} {
		if strings.HasPrefix(v, prefix) && strings.HasSuffix(v, ")") {
			return parseRGB(strings.TrimSuffix(strings.TrimPrefix(v, prefix), ")"))
		}
	}
	return color.RGBA{}, fmt.Errorf("%w: %q", errColor, v)
}

func parseHexColor(v string) (color.RGBA, error) {
	switch len(v) {
	case 3, 4:
		var expanded strings.Builder
		for _, r := range v {
			expanded.WriteRune(r)
			expanded.WriteRune(r)
		}
		v = expanded.String()
	case 6, 8:
	default:
		return color.RGBA{}, fmt.Errorf("%w: #%s", errColor, v)
	}
	n, err := strconv.ParseUint(v, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: #%s", errColor, v)
	}
	if len(v) == 6 {
		return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 0xff}, nil
	}
	return color.RGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}

// parseRGB reads the arguments of rgb(): three numbers or percentages,
// and an optional alpha.
func parseRGB(args string) (color.RGBA, error) {
	fields := strings.FieldsFunc(args, func(r rune) bool { return r == ',' || r == ' ' || r == '/' })
	if len(fields) != 3 && len(fields) != 4 {
		return color.RGBA{}, fmt.Errorf("%w: rgb(%s)", errColor, args)
	}
	var comps [4]uint8
	comps[3] = 0xff
	for i, f := range fields {
		isPercent := strings.HasSuffix(f, "%")
		x, err := strconv.ParseFloat(strings.TrimSuffix(f, "%"), 64)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("%w: rgb(%s)", errColor, args)
		}
		switch {
		case isPercent:
			x = x * 255 / 100
		case i == 3: // alpha in [0, 1]
			x *= 255
		}
		if x < 0 {
			x = 0
		} else if x > 255 {
			x = 255
		}
		comps[i] = uint8(x + 0.5)
	}
	return color.RGBA{R: comps[0], G: comps[1], B: comps[2], A: comps[3]}, nil
}
