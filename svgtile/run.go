package svgtile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/benoitkugler/svgtile/svgdoc"
	"github.com/benoitkugler/svgtile/svgpath"
	"github.com/benoitkugler/svgtile/svgpdf"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrPartial is returned when some tiles could not be written.
// The other tiles and the manifest are written anyway.
var ErrPartial = errors.New("some tiles could not be written")

// Output formats
const (
	FormatSVG = "svg"
	FormatPDF = "pdf"
)

// ManifestName is the name of the run summary, written
// next to the tiles.
const ManifestName = "manifest.json"

// RunConfig describes a complete split of one file.
type RunConfig struct {
	Input     string // the SVG file to split
	OutputDir string

	TileWidth, TileHeight float64 // in user units, overlap included
	Overlap               float64

	Format    string // FormatSVG (default) or FormatPDF
	Workers   int    // defaults to runtime.NumCPU()
	Policy    svgpath.ClosePolicy
	ErrorMode svgdoc.ErrorMode

	Logger *slog.Logger
}

func (cfg RunConfig) validate() error {
	switch cfg.Format {
	case "", FormatSVG, FormatPDF:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, cfg.Format)
	}
	if cfg.OutputDir == "" {
		return fmt.Errorf("%w: missing output directory", ErrInvalidConfig)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("%w: negative number of workers", ErrInvalidConfig)
	}
	return nil
}

func (cfg RunConfig) format() string {
	if cfg.Format == "" {
		return FormatSVG
	}
	return cfg.Format
}

func (cfg RunConfig) workers() int {
	if cfg.Workers == 0 {
		return runtime.NumCPU()
	}
	return cfg.Workers
}

func (cfg RunConfig) logger() *slog.Logger {
	if cfg.Logger == nil {
		return slog.Default()
	}
	return cfg.Logger
}

// TileReport describes one output file.
type TileReport struct {
	Row     int     `json:"row"`
	Col     int     `json:"col"`
	File    string  `json:"file"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Empty   bool    `json:"empty"`
	Written bool    `json:"written"`
}

// Failure is a tile which could not be written.
type Failure struct {
	Row int   `json:"row"`
	Col int   `json:"col"`
	Err error `json:"-"`
}

func (f Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Row   int    `json:"row"`
		Col   int    `json:"col"`
		Error string `json:"error"`
	}{f.Row, f.Col, f.Err.Error()})
}

func (w Warning) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Row   int    `json:"row"`
		Col   int    `json:"col"`
		Node  string `json:"node"`
		ID    string `json:"id,omitempty"`
		Error string `json:"error"`
	}{w.Row, w.Col, w.NodePath, w.NodeID, w.Err.Error()})
}

// Report summarizes a run. It is also written as the manifest.
type Report struct {
	RunID    string    `json:"run_id"`
	Input    string    `json:"input,omitempty"`
	Started  time.Time `json:"started"`
	Duration string    `json:"duration"`

	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit,omitempty"`
	Format string  `json:"format"`

	Rows     int          `json:"rows"`
	Cols     int          `json:"cols"`
	Tiles    []TileReport `json:"tiles"`
	Warnings []Warning    `json:"warnings"`
	Failures []Failure    `json:"failures"`
}

// Run reads the input file and writes its tiles and the manifest
// in the output directory. See RunDocument.
func Run(ctx context.Context, cfg RunConfig) (*Report, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	doc, err := svgdoc.ReadFile(cfg.Input, cfg.ErrorMode)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", cfg.Input, err)
	}
	return RunDocument(ctx, doc, cfg)
}

// RunDocument splits doc on a pool of cfg.Workers goroutines and writes
// one file per tile, named after its position in the grid, and the manifest.
//
// Invalid configurations are reported before any file is written.
// A tile which can't be written does not stop the others: the run then
// returns an error wrapping ErrPartial, with a complete report.
// Cancelling ctx stops the scheduling of the remaining tiles; the tiles
// already written are kept.
func RunDocument(ctx context.Context, doc *svgdoc.Document, cfg RunConfig) (*Report, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log := cfg.logger()
	grid, err := ComputeGrid(doc.Width, doc.Height, cfg.TileWidth, cfg.TileHeight, cfg.Overlap)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	report := &Report{
		RunID:   uuid.New().String(),
		Input:   cfg.Input,
		Started: time.Now(),
		Width:   doc.Width,
		Height:  doc.Height,
		Unit:    doc.Unit,
		Format:  cfg.format(),
		Rows:    grid.Rows,
		Cols:    grid.Cols,
		Tiles:   make([]TileReport, len(grid.Tiles)),

		Warnings: []Warning{},
		Failures: []Failure{},
	}
	log.Info("splitting document", "run_id", report.RunID, "input", cfg.Input,
		"rows", grid.Rows, "cols", grid.Cols, "workers", cfg.workers())

	splitter := New(doc, Options{Policy: cfg.Policy, Logger: log})
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(cfg.workers())
	for i, tile := range grid.Tiles {
		report.Tiles[i] = TileReport{
			Row:    tile.Row,
			Col:    tile.Col,
			File:   tile.Name(report.Format),
			X:      tile.Rect.LLx,
			Y:      tile.Rect.LLy,
			Width:  tile.Width(),
			Height: tile.Height(),
		}
		if ctx.Err() != nil {
			continue
		}
		g.Go(func() error {
			empty, warnings, err := writeTile(splitter, tile, filepath.Join(cfg.OutputDir, report.Tiles[i].File), report.Format)
			for _, w := range warnings {
				log.Warn("shape dropped", "tile", tile.String(), "node", w.NodePath, "id", w.NodeID, "error", w.Err)
			}
			if err != nil {
				log.Error("writing tile", "tile", tile.String(), "error", err)
			}

			mu.Lock()
			defer mu.Unlock()
			report.Warnings = append(report.Warnings, warnings...)
			if err != nil {
				report.Failures = append(report.Failures, Failure{Row: tile.Row, Col: tile.Col, Err: err})
				return nil // siblings go on
			}
			report.Tiles[i].Empty = empty
			report.Tiles[i].Written = true
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(report.Warnings, func(i, j int) bool {
		return tileLess(report.Warnings[i].Row, report.Warnings[i].Col, report.Warnings[j].Row, report.Warnings[j].Col)
	})
	sort.Slice(report.Failures, func(i, j int) bool {
		return tileLess(report.Failures[i].Row, report.Failures[i].Col, report.Failures[j].Row, report.Failures[j].Col)
	})
	report.Duration = time.Since(report.Started).String()
	if err := writeManifest(report, filepath.Join(cfg.OutputDir, ManifestName)); err != nil {
		return report, err
	}

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("split interrupted: %w", err)
	}
	if len(report.Failures) != 0 {
		return report, fmt.Errorf("%w: %d of %d tiles failed", ErrPartial, len(report.Failures), len(grid.Tiles))
	}
	log.Info("document split", "run_id", report.RunID, "tiles", len(grid.Tiles),
		"warnings", len(report.Warnings), "duration", report.Duration)
	return report, nil
}

func tileLess(r1, c1, r2, c2 int) bool {
	if r1 != r2 {
		return r1 < r2
	}
	return c1 < c2
}

// writeTile splits and writes one tile.
func writeTile(s *Splitter, tile Tile, name, format string) (empty bool, warnings []Warning, err error) {
	doc, warnings := s.Split(tile)
	empty = len(doc.Root.Children()) == 0

	f, err := os.Create(name)
	if err != nil {
		return empty, warnings, err
	}
	defer func() {
		if errc := f.Close(); err == nil {
			err = errc
		}
	}()
	if err := Encode(f, doc, format); err != nil {
		return empty, warnings, fmt.Errorf("writing %s: %w", name, err)
	}
	return empty, warnings, nil
}

// Encode serializes the tile document in the given format.
func Encode(w io.Writer, doc *svgdoc.Document, format string) error {
	switch format {
	case "", FormatSVG:
		_, err := doc.WriteTo(w)
		return err
	case FormatPDF:
		return svgpdf.Render(doc, w)
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, format)
	}
}

func writeManifest(report *Report, name string) error {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(name, b, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
