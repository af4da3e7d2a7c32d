package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kelseyhightower/envconfig"

	"github.com/benoitkugler/svgtile/svgdoc"
	"github.com/benoitkugler/svgtile/svgpath"
	"github.com/benoitkugler/svgtile/svgtile"
)

// EnvPrefix is the prefix of the environment variables overriding
// the configuration file, such as SVGTILE_SPLIT_TILE_WIDTH.
const EnvPrefix = "SVGTILE"

// Config represents the application configuration.
type Config struct {
	App   ApplicationConfig `yaml:"app"`
	Split SplitConfig       `yaml:"split"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	return c.Split.Validate()
}

// ApplyEnv overrides the configuration with the SVGTILE_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" envconfig:"log_level"`
	HTTP     HTTPConfig `yaml:"http" envconfig:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds the tile server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" envconfig:"port"`
	// CacheSize is the maximum number of rendered tiles kept in memory.
	CacheSize int `yaml:"cache_size" envconfig:"cache_size"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.CacheSize, validation.Min(0)),
	)
}

// SplitConfig holds the tiling parameters. Lengths are in user units
// of the source document.
type SplitConfig struct {
	TileWidth       float64 `yaml:"tile_width" envconfig:"tile_width"`
	TileHeight      float64 `yaml:"tile_height" envconfig:"tile_height"`
	Overlap         float64 `yaml:"overlap" envconfig:"overlap"`
	OutputDirectory string  `yaml:"output_directory" envconfig:"output_directory"`
	Format          string  `yaml:"format" envconfig:"format"`
	Workers         int     `yaml:"workers" envconfig:"workers"`
	ClosePolicy     string  `yaml:"close_policy" envconfig:"close_policy"`
	ErrorMode       string  `yaml:"error_mode" envconfig:"error_mode"`
}

func validPolicy(v any) error {
	_, err := svgpath.ParseClosePolicy(v.(string))
	return err
}

func validErrorMode(v any) error {
	_, err := svgdoc.ParseErrorMode(v.(string))
	return err
}

// Validate validates the split configuration. The relation between
// tile size and overlap is checked by svgtile.ComputeGrid.
func (c *SplitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TileWidth, validation.Required, validation.Min(0.)),
		validation.Field(&c.TileHeight, validation.Required, validation.Min(0.)),
		validation.Field(&c.Overlap, validation.Min(0.)),
		validation.Field(&c.OutputDirectory, validation.Required),
		validation.Field(&c.Format, validation.In(svgtile.FormatSVG, svgtile.FormatPDF)),
		validation.Field(&c.Workers, validation.Min(0)),
		validation.Field(&c.ClosePolicy, validation.By(validPolicy)),
		validation.Field(&c.ErrorMode, validation.By(validErrorMode)),
	)
}

// RunConfig returns the parameters of a split of input.
func (c *SplitConfig) RunConfig(input string, logger *slog.Logger) (svgtile.RunConfig, error) {
	policy, err := svgpath.ParseClosePolicy(c.ClosePolicy)
	if err != nil {
		return svgtile.RunConfig{}, err
	}
	mode, err := svgdoc.ParseErrorMode(c.ErrorMode)
	if err != nil {
		return svgtile.RunConfig{}, err
	}
	return svgtile.RunConfig{
		Input:      input,
		OutputDir:  c.OutputDirectory,
		TileWidth:  c.TileWidth,
		TileHeight: c.TileHeight,
		Overlap:    c.Overlap,
		Format:     c.Format,
		Workers:    c.Workers,
		Policy:     policy,
		ErrorMode:  mode,
		Logger:     logger,
	}, nil
}

// NewDefaultConfig returns a new Config with sensible default values.
// The tile size has no default: a run must provide it.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:      8080,
				CacheSize: 1024,
			},
		},
		Split: SplitConfig{
			Overlap:         1,
			OutputDirectory: "tiles",
			Format:          svgtile.FormatSVG,
			ClosePolicy:     svgpath.Reclose.String(),
			ErrorMode:       svgdoc.WarnErrorMode.String(),
		},
	}
}
