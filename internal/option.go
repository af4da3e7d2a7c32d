package internal

import "io"

// Mode selects what Run does with the input document.
type Mode string

// Supported modes.
const (
	ModeSplit Mode = "split" // write the tiles once
	ModeServe Mode = "serve" // serve the tiles over HTTP
	ModeWatch Mode = "watch" // write the tiles, then again on each change
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	mode      Mode
	input     string
	logOutput io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode sets the run mode, ModeSplit by default.
func WithMode(mode Mode) Option {
	return func(a *application) {
		a.mode = mode
	}
}

// WithInput sets the SVG file to split.
func WithInput(name string) Option {
	return func(a *application) {
		a.input = name
	}
}

// WithLogOutput redirects the JSON logs, written to stdout by default.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}
