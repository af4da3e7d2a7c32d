package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/benoitkugler/svgtile/svgdoc"
	"github.com/benoitkugler/svgtile/svgtile"
)

const source = `<svg xmlns="http://www.w3.org/2000/svg" width="90mm" height="60mm" viewBox="0 0 90 60">
	<rect x="10" y="10" width="40" height="20" fill="navy"/>
	<circle cx="70" cy="45" r="10" stroke="red"/>
</svg>`

func newTestServer(t *testing.T, cacheSize int) (*Server, *httptest.Server) {
	t.Helper()
	doc, err := svgdoc.ReadStream(strings.NewReader(source), svgdoc.StrictErrorMode)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewFromDocument(doc, 30, 30, 0, svgtile.Options{Logger: logger}, cacheSize)
	if err != nil {
		t.Fatal(err)
	}
	r := chi.NewRouter()
	s.Routes(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, b
}

func TestServer_Grid(t *testing.T) {
	_, ts := newTestServer(t, 10)
	resp, b := get(t, ts.URL+"/grid")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var grid gridDTO
	if err := json.Unmarshal(b, &grid); err != nil {
		t.Fatal(err)
	}
	if grid.Rows != 2 || grid.Cols != 3 || len(grid.Tiles) != 6 || grid.Unit != "mm" {
		t.Fatalf("unexpected grid %s", b)
	}
	if grid.Tiles[4].URL != "/tiles/1/1.svg" || grid.Tiles[4].X != 30 || grid.Tiles[4].Y != 30 {
		t.Fatalf("unexpected tile %+v", grid.Tiles[4])
	}
}

func TestServer_Tile(t *testing.T) {
	s, ts := newTestServer(t, 10)
	resp, b := get(t, ts.URL+"/tiles/0/0.svg")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, b)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Fatalf("unexpected content type %s", ct)
	}
	doc, err := svgdoc.ReadStream(bytes.NewReader(b), svgdoc.StrictErrorMode)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Width != 30 || doc.Unit != "mm" || len(doc.Root.Children()) != 1 {
		t.Fatalf("unexpected tile %s", b)
	}

	// served from the cache
	_, b2 := get(t, ts.URL+"/tiles/0/0.svg")
	if !bytes.Equal(b, b2) || s.Cached() != 1 {
		t.Fatalf("expected a cached tile, got %d", s.Cached())
	}

	resp, b = get(t, ts.URL+"/tiles/1/2.pdf")
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if s.Cached() != 2 {
		t.Fatalf("unexpected cache size %d", s.Cached())
	}
}

func TestServer_Errors(t *testing.T) {
	_, ts := newTestServer(t, 10)
	for _, test := range []struct {
		path   string
		status int
	}{
		{"/tiles/2/0.svg", http.StatusNotFound},
		{"/tiles/x/0.svg", http.StatusBadRequest},
		{"/tiles/0/0.png", http.StatusNotFound},
		{"/zoom/1/2/0.svg", http.StatusNotFound},
		{"/zoom/a/0/0.svg", http.StatusBadRequest},
		{"/zoom/40/0/0.svg", http.StatusNotFound},
	} {
		resp, b := get(t, ts.URL+test.path)
		if resp.StatusCode != test.status {
			t.Errorf("%s: expected %d, got %d", test.path, test.status, resp.StatusCode)
		}
		if !strings.Contains(string(b), `"error"`) {
			t.Errorf("%s: unexpected body %s", test.path, b)
		}
	}
}

func TestServer_Zoom(t *testing.T) {
	_, ts := newTestServer(t, 0)
	resp, b := get(t, ts.URL+"/zoom/1/1/0.svg")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, b)
	}
	doc, err := svgdoc.ReadStream(bytes.NewReader(b), svgdoc.StrictErrorMode)
	if err != nil {
		t.Fatal(err)
	}
	// the zoom tiles are squares of half the largest side
	if doc.Width != 45 || doc.Height != 45 {
		t.Fatalf("unexpected tile size %gx%g", doc.Width, doc.Height)
	}
}

func TestServer_Concurrent(t *testing.T) {
	s, ts := newTestServer(t, 10)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Get(ts.URL + "/tiles/1/1.svg")
			if err != nil {
				t.Error(err)
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()
	if s.Cached() != 1 {
		t.Fatalf("unexpected cache size %d", s.Cached())
	}
}
