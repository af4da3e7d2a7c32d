package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	pkgconfig "github.com/benoitkugler/svgtile/pkg/config"
	"github.com/benoitkugler/svgtile/svgdoc"
	"github.com/benoitkugler/svgtile/svgpath"
)

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Split.TileWidth = 210
	cfg.Split.TileHeight = 297
	return cfg
}

func TestDefaultConfig_MissingTileSize(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("tile size is required")
	}
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestSplitConfig_Invalid(t *testing.T) {
	for _, modify := range []func(*SplitConfig){
		func(c *SplitConfig) { c.TileWidth = -1 },
		func(c *SplitConfig) { c.Overlap = -2 },
		func(c *SplitConfig) { c.Format = "png" },
		func(c *SplitConfig) { c.ClosePolicy = "sometimes" },
		func(c *SplitConfig) { c.ErrorMode = "loud" },
		func(c *SplitConfig) { c.Workers = -3 },
		func(c *SplitConfig) { c.OutputDirectory = "" },
	} {
		cfg := validConfig()
		modify(&cfg.Split)
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected an error for %+v", cfg.Split)
		}
	}
}

func TestHTTPConfig_Port(t *testing.T) {
	cfg := validConfig()
	cfg.App.HTTP.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid port accepted")
	}
	cfg.App.HTTP.Port = 9000
	if got := cfg.App.HTTP.Address(); got != ":9000" {
		t.Fatalf("address = %q", got)
	}
}

func TestConfig_LoadAndEnv(t *testing.T) {
	name := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  log_level: debug
split:
  tile_width: 100
  tile_height: ${TEST_TILE_HEIGHT}
  close_policy: open
`
	if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_TILE_HEIGHT", "150")
	t.Setenv("SVGTILE_SPLIT_OVERLAP", "2.5")
	t.Setenv("SVGTILE_APP_HTTP_PORT", "9090")

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(name, cfg); err != nil {
		t.Fatal(err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatal(err)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.Split.TileWidth != 100 || cfg.Split.TileHeight != 150 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Split.Overlap != 2.5 || cfg.App.HTTP.Port != 9090 {
		t.Fatalf("environment not applied: %+v", cfg)
	}
	// untouched values keep their default
	if cfg.Split.Format != "svg" || cfg.Split.OutputDirectory != "tiles" {
		t.Fatalf("defaults lost: %+v", cfg.Split)
	}

	rc, err := cfg.Split.RunConfig("plan.svg", nil)
	if err != nil {
		t.Fatal(err)
	}
	if rc.Input != "plan.svg" || rc.Policy != svgpath.LeaveOpen || rc.ErrorMode != svgdoc.WarnErrorMode || rc.Overlap != 2.5 {
		t.Fatalf("unexpected run config %+v", rc)
	}
}
