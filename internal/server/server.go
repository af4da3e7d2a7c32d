// Package server serves the tiles of one document over HTTP,
// splitting each tile on its first request.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/benoitkugler/svgtile/svgdoc"
	"github.com/benoitkugler/svgtile/svgtile"
)

var contentTypes = map[string]string{
	svgtile.FormatSVG: "image/svg+xml",
	svgtile.FormatPDF: "application/pdf",
}

// Server renders the tiles of a grid, and of the zoom pyramid.
// It is safe for concurrent use.
type Server struct {
	splitter *svgtile.Splitter
	grid     svgtile.Grid
	log      *slog.Logger

	flight    singleflight.Group
	mu        sync.Mutex
	cache     map[string][]byte
	cacheSize int
}

// New returns a server for the tiles of grid, split from the source
// of s. At most cacheSize tiles are kept in memory (0 disables the cache).
func New(s *svgtile.Splitter, grid svgtile.Grid, cacheSize int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		splitter:  s,
		grid:      grid,
		log:       logger,
		cache:     make(map[string][]byte),
		cacheSize: cacheSize,
	}
}

// Routes mounts the tile endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/grid", s.getGrid)
	r.Get("/tiles/{row}/{col}.{format}", s.getTile)
	r.Get("/zoom/{z}/{x}/{y}.{format}", s.getZoomTile)
}

type tileDTO struct {
	svgtile.TileReport
	URL string `json:"url"`
}

type gridDTO struct {
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	Unit   string    `json:"unit,omitempty"`
	Rows   int       `json:"rows"`
	Cols   int       `json:"cols"`
	Tiles  []tileDTO `json:"tiles"`
}

func (s *Server) getGrid(w http.ResponseWriter, _ *http.Request) {
	doc := s.splitter.Document()
	out := gridDTO{
		Width:  doc.Width,
		Height: doc.Height,
		Unit:   doc.Unit,
		Rows:   s.grid.Rows,
		Cols:   s.grid.Cols,
		Tiles:  make([]tileDTO, len(s.grid.Tiles)),
	}
	for i, tile := range s.grid.Tiles {
		out.Tiles[i] = tileDTO{
			TileReport: svgtile.TileReport{
				Row:    tile.Row,
				Col:    tile.Col,
				File:   tile.Name(svgtile.FormatSVG),
				X:      tile.Rect.LLx,
				Y:      tile.Rect.LLy,
				Width:  tile.Width(),
				Height: tile.Height(),
			},
			URL: fmt.Sprintf("/tiles/%d/%d.svg", tile.Row, tile.Col),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getTile(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	row, errR := strconv.Atoi(chi.URLParam(r, "row"))
	col, errC := strconv.Atoi(chi.URLParam(r, "col"))
	if errR != nil || errC != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid tile position"))
		return
	}
	tile, ok := s.grid.At(row, col)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody(fmt.Sprintf("no tile at (%d, %d)", row, col)))
		return
	}
	s.serveTile(w, "grid/"+tile.Name(format), tile, format)
}

func (s *Server) getZoomTile(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	z, errZ := strconv.Atoi(chi.URLParam(r, "z"))
	x, errX := strconv.Atoi(chi.URLParam(r, "x"))
	y, errY := strconv.Atoi(chi.URLParam(r, "y"))
	if errZ != nil || errX != nil || errY != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid tile coordinates"))
		return
	}
	doc := s.splitter.Document()
	tile, err := svgtile.ZoomTile(doc.Width, doc.Height, z, x, y)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
		return
	}
	s.serveTile(w, fmt.Sprintf("zoom/%d/%d/%d.%s", z, x, y, format), tile, format)
}

func (s *Server) serveTile(w http.ResponseWriter, key string, tile svgtile.Tile, format string) {
	contentType, ok := contentTypes[format]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody(fmt.Sprintf("unsupported format %q", format)))
		return
	}
	b, err := s.render(key, tile, format)
	if err != nil {
		s.log.Error("rendering tile", slog.String("tile", key), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("tile rendering failed"))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// render returns the cached tile, or splits it. Concurrent requests
// for the same tile share one split.
func (s *Server) render(key string, tile svgtile.Tile, format string) ([]byte, error) {
	s.mu.Lock()
	b, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		return b, nil
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		doc, warnings := s.splitter.Split(tile)
		for _, w := range warnings {
			s.log.Warn("shape dropped", slog.String("tile", key), slog.String("node", w.NodePath), slog.String("error", w.Err.Error()))
		}
		var buf bytes.Buffer
		if err := svgtile.Encode(&buf, doc, format); err != nil {
			return nil, err
		}
		b := buf.Bytes()
		s.store(key, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *Server) store(key string, b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cache) >= s.cacheSize {
		return
	}
	s.cache[key] = b
}

// Cached returns the number of tiles in the cache.
func (s *Server) Cached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

var errNoDocument = errors.New("no document")

// NewFromDocument computes the grid of doc and returns its server.
func NewFromDocument(doc *svgdoc.Document, tileW, tileH, overlap float64, opts svgtile.Options, cacheSize int) (*Server, error) {
	if doc == nil || doc.Root == nil {
		return nil, errNoDocument
	}
	grid, err := svgtile.ComputeGrid(doc.Width, doc.Height, tileW, tileH, overlap)
	if err != nil {
		return nil, err
	}
	return New(svgtile.New(doc, opts), grid, cacheSize, opts.Logger), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}
