package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/benoitkugler/svgtile/internal"
	pkgconfig "github.com/benoitkugler/svgtile/pkg/config"
	"github.com/benoitkugler/svgtile/svgtile"
)

// Exit codes
const (
	exitFatal   = 1
	exitPartial = 2
)

// loadConfig merges, by increasing priority, the defaults, the config file,
// the SVGTILE_* environment variables and the command line flags.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.ReadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	split := &cfg.Split
	if cmd.IsSet("tile-width") {
		split.TileWidth = cmd.Float("tile-width")
	}
	if cmd.IsSet("tile-height") {
		split.TileHeight = cmd.Float("tile-height")
	}
	if cmd.IsSet("overlap") {
		split.Overlap = cmd.Float("overlap")
	}
	if cmd.IsSet("out") {
		split.OutputDirectory = cmd.String("out")
	}
	if cmd.IsSet("format") {
		split.Format = cmd.String("format")
	}
	if cmd.IsSet("workers") {
		split.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("reclose") {
		split.ClosePolicy = "open"
		if cmd.Bool("reclose") {
			split.ClosePolicy = "reclose"
		}
	}
	if cmd.IsSet("error-mode") {
		split.ErrorMode = cmd.String("error-mode")
	}
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}

	if err := pkgconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s", svgtile.ErrInvalidConfig, err)
	}
	return cfg, nil
}

func runMode(mode internal.Mode) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if cmd.Args().Len() != 1 {
			return fmt.Errorf("%w: expected one input file, got %d arguments", svgtile.ErrInvalidConfig, cmd.Args().Len())
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithMode(mode),
			internal.WithInput(cmd.Args().First()),
		}

		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}

		return nil
	}
}

func splitFlags() []cli.Flag {
	return []cli.Flag{
		&cli.FloatFlag{
			Name:  "tile-width",
			Usage: "Width of the tiles, overlap included, in user units",
		},
		&cli.FloatFlag{
			Name:  "tile-height",
			Usage: "Height of the tiles, overlap included, in user units",
		},
		&cli.FloatFlag{
			Name:        "overlap",
			Usage:       "Overlap added on the interior edges of the tiles",
			DefaultText: "1",
		},
		&cli.StringFlag{
			Name:        "out",
			Aliases:     []string{"o"},
			Usage:       "Output directory",
			DefaultText: "tiles",
		},
		&cli.StringFlag{
			Name:        "format",
			Usage:       "Tile format: svg or pdf",
			DefaultText: "svg",
		},
		&cli.IntFlag{
			Name:        "workers",
			Usage:       "Number of tiles written concurrently",
			DefaultText: "number of CPUs",
		},
		&cli.BoolFlag{
			Name:        "reclose",
			Usage:       "Close the clipped contours along the tile border",
			DefaultText: "true",
		},
		&cli.StringFlag{
			Name:        "error-mode",
			Usage:       "Reaction to unsupported elements: ignore, warn or strict",
			DefaultText: "warn",
		},
	}
}

// boolFlags do not consume the next argument.
var boolFlags = map[string]bool{"reclose": true, "help": true, "h": true}

// interspersed moves the flags of the subcommand before its positional
// arguments, so that both "split plan.svg --tile-width 200" and
// "split --tile-width 200 plan.svg" are accepted.
func interspersed(args []string) []string {
	isFlag := func(a string) bool { return len(a) > 1 && a[0] == '-' }
	takesValue := func(a string) bool {
		name := strings.TrimLeft(a, "-")
		return !strings.Contains(name, "=") && !boolFlags[name]
	}

	// program, global flags and subcommand name
	i := 1
	for i < len(args) && isFlag(args[i]) {
		if takesValue(args[i]) {
			i++
		}
		i++
	}
	if i >= len(args) {
		return args
	}
	out := append([]string(nil), args[:i+1]...)

	var positional []string
	for j := i + 1; j < len(args); j++ {
		a := args[j]
		switch {
		case a == "--":
			positional = append(positional, args[j+1:]...)
			j = len(args)
		case isFlag(a):
			out = append(out, a)
			if takesValue(a) && j+1 < len(args) {
				j++
				out = append(out, args[j])
			}
		default:
			positional = append(positional, a)
		}
	}
	if len(positional) != 0 {
		out = append(out, "--")
		out = append(out, positional...)
	}
	return out
}

func main() {
	cmd := &cli.Command{
		Name:  "svgtile",
		Usage: "Split a large SVG drawing into printable tiles",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "split",
				Usage:     "Write the tiles of the input file",
				ArgsUsage: "<input.svg>",
				Flags:     splitFlags(),
				Action:    runMode(internal.ModeSplit),
			},
			{
				Name:      "watch",
				Usage:     "Write the tiles, then again each time the input file changes",
				ArgsUsage: "<input.svg>",
				Flags:     splitFlags(),
				Action:    runMode(internal.ModeWatch),
			},
			{
				Name:      "serve",
				Usage:     "Serve the tiles of the input file over HTTP",
				ArgsUsage: "<input.svg>",
				Flags: append(splitFlags(), &cli.IntFlag{
					Name:        "port",
					Aliases:     []string{"p"},
					Usage:       "HTTP port",
					DefaultText: "8080",
				}),
				Action: runMode(internal.ModeServe),
			},
		},
	}

	if err := cmd.Run(context.Background(), interspersed(os.Args)); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		if errors.Is(err, svgtile.ErrPartial) {
			os.Exit(exitPartial)
		}
		os.Exit(exitFatal)
	}
}
