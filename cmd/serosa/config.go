package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/egonelbre/exp-entropy-archive/archive"
	"github.com/egonelbre/exp-entropy-archive/freqtable"
)

// Config holds the defaults of the compress, decompress and analyze
// commands.
// Values from the file given by --config replace these, and flags
// replace both.
type Config struct {
	Algorithm string `toml:"algorithm"`
	Layout    string `toml:"layout"`
	Bits      int    `toml:"bits"`
	Widths    []int  `toml:"widths"`
	Verify    bool   `toml:"verify"`
	Verbosity int    `toml:"verbosity"`
	MaxSize   uint64 `toml:"max_size"`
}

func defaultConfig() Config {
	return Config{
		Algorithm: "huffman",
		Layout:    "current",
		Widths:    append([]int(nil), freqtable.Widths...),
		Verbosity: 3,
		MaxSize:   archive.DefaultMaxOriginalSize,
	}
}

// loadConfig reads the TOML file at path on top of the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return cfg, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.check()
}

func (cfg *Config) check() error {
	if _, err := archive.ParseAlgorithm(cfg.Algorithm); err != nil {
		return err
	}
	if _, err := archive.ParseLayout(cfg.Layout); err != nil {
		return err
	}
	if cfg.Bits != 0 && !freqtable.SupportedWidth(cfg.Bits) {
		return fmt.Errorf("%w: %d", archive.ErrUnsupportedBitWidth, cfg.Bits)
	}
	for _, w := range cfg.Widths {
		if !freqtable.SupportedWidth(w) {
			return fmt.Errorf("%w: %d", archive.ErrUnsupportedBitWidth, w)
		}
	}
	return nil
}

// options converts the configuration into archive options.
func (cfg *Config) options() ([]archive.Option, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	alg, _ := archive.ParseAlgorithm(cfg.Algorithm)
	layout, _ := archive.ParseLayout(cfg.Layout)

	opts := []archive.Option{
		archive.WithAlgorithm(alg),
		archive.WithLayout(layout),
		archive.WithFrequencyBits(cfg.Bits),
	}
	if len(cfg.Widths) > 0 {
		opts = append(opts, archive.WithCandidateWidths(cfg.Widths...))
	}
	return opts, nil
}

func (cfg *Config) dump(w io.Writer) error {
	return toml.NewEncoder(w).Encode(cfg)
}
