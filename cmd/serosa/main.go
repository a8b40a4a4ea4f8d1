// serosa compresses files with Huffman or Shannon-Fano coding and
// analyzes how well they can be compressed.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

var (
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
)

const configKey = "config"

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "serosa"
	app.Usage = "entropy coding archiver"
	app.Flags = []cli.Flag{verbosityFlag, configFlag}
	app.Commands = []*cli.Command{
		compressCommand,
		decompressCommand,
		analyzeCommand,
		inspectCommand,
		formatsCommand,
		dumpConfigCommand,
	}
	app.Before = setup
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and installs the logger.
func setup(ctx *cli.Context) error {
	cfg := defaultConfig()
	if path := ctx.String(configFlag.Name); path != "" {
		var err error
		cfg, err = loadConfig(path)
		if err != nil {
			return err
		}
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Verbosity = ctx.Int(verbosityFlag.Name)
	}

	if ctx.App.Metadata == nil {
		ctx.App.Metadata = map[string]interface{}{}
	}
	ctx.App.Metadata[configKey] = &cfg

	setDefaultLogger(ctx.App.ErrWriter, cfg.Verbosity)
	return nil
}

func setDefaultLogger(w io.Writer, verbosity int) {
	if w == nil {
		w = os.Stderr
	}
	usecolor := false
	if f, ok := w.(*os.File); ok {
		usecolor = (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) && os.Getenv("TERM") != "dumb"
		if usecolor {
			w = colorable.NewColorable(f)
		}
	}

	glogger := log.NewGlogHandler(log.NewTerminalHandler(w, usecolor))
	glogger.Verbosity(log.FromLegacyLevel(verbosity))
	log.SetDefault(log.NewLogger(glogger))
}

func configFrom(ctx *cli.Context) *Config {
	if cfg, ok := ctx.App.Metadata[configKey].(*Config); ok {
		return cfg
	}
	cfg := defaultConfig()
	return &cfg
}
