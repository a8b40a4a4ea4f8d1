package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/egonelbre/exp-entropy-archive/analysis"
	"github.com/egonelbre/exp-entropy-archive/archive"
)

var (
	algorithmFlag = &cli.StringFlag{
		Name:  "algorithm",
		Usage: "Coding algorithm: huffman, shannon-fano or none",
	}
	layoutFlag = &cli.StringFlag{
		Name:  "layout",
		Usage: "Header layout: current, legacy2 or legacy1",
	}
	bitsFlag = &cli.IntFlag{
		Name:  "bits",
		Usage: "Frequency table width (4, 8, 32 or 64), 0 picks the smallest archive",
	}
	verifyFlag = &cli.BoolFlag{
		Name:  "verify",
		Usage: "Decompress the archive and compare it with the input before writing",
	}
	topFlag = &cli.IntFlag{
		Name:  "top",
		Usage: "Number of most frequent symbols to list, -1 for all",
		Value: analysis.DefaultTop,
	}
	maxSizeFlag = &cli.Uint64Flag{
		Name:  "max-size",
		Usage: "Largest original size in bytes an archive may declare",
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "Print the report as JSON",
	}
)

var errVerify = errors.New("verification failed")

var compressCommand = &cli.Command{
	Name:      "compress",
	Usage:     "Compress a file",
	ArgsUsage: "<input> <output>",
	Flags:     []cli.Flag{algorithmFlag, layoutFlag, bitsFlag, verifyFlag},
	Action:    compress,
}

var decompressCommand = &cli.Command{
	Name:      "decompress",
	Usage:     "Decompress an archive",
	ArgsUsage: "<archive> <output>",
	Flags:     []cli.Flag{maxSizeFlag},
	Action:    decompress,
}

var analyzeCommand = &cli.Command{
	Name:      "analyze",
	Usage:     "Report the information content of a file and the cost of each coder",
	ArgsUsage: "<input>",
	Flags:     []cli.Flag{topFlag, jsonFlag},
	Action:    analyze,
}

var inspectCommand = &cli.Command{
	Name:      "inspect",
	Usage:     "Print the header of an archive",
	ArgsUsage: "<archive>",
	Action:    inspect,
}

var formatsCommand = &cli.Command{
	Name:   "formats",
	Usage:  "List the supported header layouts",
	Action: formats,
}

var dumpConfigCommand = &cli.Command{
	Name:   "dumpconfig",
	Usage:  "Print the effective configuration as TOML",
	Action: dumpConfig,
}

func args(ctx *cli.Context, names ...string) ([]string, error) {
	if ctx.NArg() != len(names) {
		return nil, fmt.Errorf("%s: expected %s", ctx.Command.Name, strings.Join(names, " "))
	}
	return ctx.Args().Slice(), nil
}

func compress(ctx *cli.Context) error {
	paths, err := args(ctx, "<input>", "<output>")
	if err != nil {
		return err
	}

	cfg := *configFrom(ctx)
	if ctx.IsSet(algorithmFlag.Name) {
		cfg.Algorithm = ctx.String(algorithmFlag.Name)
	}
	if ctx.IsSet(layoutFlag.Name) {
		cfg.Layout = ctx.String(layoutFlag.Name)
	}
	if ctx.IsSet(bitsFlag.Name) {
		cfg.Bits = ctx.Int(bitsFlag.Name)
	}
	if ctx.IsSet(verifyFlag.Name) {
		cfg.Verify = ctx.Bool(verifyFlag.Name)
	}
	opts, err := cfg.options()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	hdr, err := archive.CompressTo(&buf, data, opts...)
	if err != nil {
		return err
	}
	if cfg.Verify {
		if err := verify(buf.Bytes(), data); err != nil {
			return err
		}
	}
	if err := writeFileAtomic(paths[1], buf.Bytes()); err != nil {
		return err
	}

	log.Info("Compressed file", "input", paths[0], "output", paths[1],
		"algorithm", hdr.Algorithm, "layout", hdr.Layout, "bits", hdr.FrequencyBits,
		"original", len(data), "archive", buf.Len())
	return nil
}

// verify decodes compressed and compares its digest with the original.
func verify(compressed, original []byte) error {
	decoded, err := archive.DecompressBytes(compressed, archive.WithMaxOriginalSize(uint64(len(original))))
	if err != nil {
		return fmt.Errorf("%w: %w", errVerify, err)
	}
	want, got := xxhash.Sum64(original), xxhash.Sum64(decoded)
	if want != got || len(decoded) != len(original) {
		return fmt.Errorf("%w: digest %016x, expected %016x", errVerify, got, want)
	}
	log.Debug("Verified archive", "digest", fmt.Sprintf("%016x", got))
	return nil
}

func decompress(ctx *cli.Context) error {
	paths, err := args(ctx, "<archive>", "<output>")
	if err != nil {
		return err
	}

	maxSize := configFrom(ctx).MaxSize
	if ctx.IsSet(maxSizeFlag.Name) {
		maxSize = ctx.Uint64(maxSizeFlag.Name)
	}

	f, err := os.Open(paths[0])
	if err != nil {
		return err
	}
	defer f.Close()

	hdr, data, err := archive.Decompress(f, archive.WithMaxOriginalSize(maxSize))
	if err != nil {
		return fmt.Errorf("%s: %w", paths[0], err)
	}
	if err := writeFileAtomic(paths[1], data); err != nil {
		return err
	}

	log.Info("Decompressed file", "archive", paths[0], "output", paths[1],
		"layout", hdr.Layout, "version", hdr.Version(), "algorithm", hdr.Algorithm, "size", len(data))
	return nil
}

func analyze(ctx *cli.Context) error {
	paths, err := args(ctx, "<input>")
	if err != nil {
		return err
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		return err
	}

	opts := analysis.DefaultOptions()
	opts.Top = ctx.Int(topFlag.Name)
	if widths := configFrom(ctx).Widths; len(widths) > 0 {
		opts.Widths = widths
	}

	report, err := analysis.Analyze(data, opts)
	if err != nil {
		return err
	}
	if ctx.Bool(jsonFlag.Name) {
		return report.WriteJSON(ctx.App.Writer)
	}
	return report.WriteText(ctx.App.Writer, paths[0])
}

func inspect(ctx *cli.Context) error {
	paths, err := args(ctx, "<archive>")
	if err != nil {
		return err
	}

	f, err := os.Open(paths[0])
	if err != nil {
		return err
	}
	defer f.Close()

	hdr, err := archive.Inspect(f)
	if err != nil {
		return fmt.Errorf("%s: %w", paths[0], err)
	}

	format, _ := archive.FormatOf(hdr.Layout)
	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.Append([]string{"Format", format.Name})
	table.Append([]string{"Version", hdr.Version()})
	table.Append([]string{"Algorithm", hdr.Algorithm.String()})
	if hdr.FrequencyBits != 0 {
		table.Append([]string{"Frequency bits", strconv.Itoa(hdr.FrequencyBits)})
	}
	if hdr.TreeLeaves != 0 {
		table.Append([]string{"Tree leaves", strconv.Itoa(int(hdr.TreeLeaves))})
	}
	table.Append([]string{"Header size", strconv.Itoa(hdr.Size()) + " bytes"})
	table.Append([]string{"Original size", strconv.FormatUint(hdr.OriginalSize, 10) + " bytes"})
	table.Append([]string{"Compressed size", strconv.FormatUint(hdr.CompressedSize, 10) + " " + hdr.CompressedUnit.String()})
	if err := hdr.Validate(); err != nil {
		table.Append([]string{"Status", err.Error()})
	} else {
		table.Append([]string{"Status", "ok"})
	}
	table.Render()
	return nil
}

func formats(ctx *cli.Context) error {
	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"Name", "Layout", "Algorithms", "Description"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetColWidth(60)
	for _, f := range archive.Formats {
		algs := make([]string, 0, len(f.Algorithms))
		for _, a := range f.Algorithms {
			algs = append(algs, a.String())
		}
		table.Append([]string{f.Name, f.Layout.String(), strings.Join(algs, ", "), f.Description})
	}
	table.Render()
	return nil
}

func dumpConfig(ctx *cli.Context) error {
	return configFrom(ctx).dump(ctx.App.Writer)
}
