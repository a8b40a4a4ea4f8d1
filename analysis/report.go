package analysis

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	bestColor    = color.New(color.FgGreen, color.Bold).SprintfFunc()
	verdictYes   = color.New(color.FgGreen).SprintFunc()
	verdictNo    = color.New(color.FgRed).SprintFunc()
	sectionColor = color.New(color.Bold).SprintFunc()
)

func yesNo(v bool) string {
	if v {
		return verdictYes("YES")
	}
	return verdictNo("NO")
}

// WriteText writes a human readable report for the input called name.
func (r *Report) WriteText(w io.Writer, name string) error {
	if r.Empty() {
		_, err := fmt.Fprintf(w, "%s: empty input\n", name)
		return err
	}

	fmt.Fprintln(w, sectionColor(fmt.Sprintf("=== %s ===", name)))
	fmt.Fprintf(w, "Size:        %d bytes (%d bits)\n", r.Size, r.Size*8)
	fmt.Fprintf(w, "Distinct:    %d symbols\n", r.Distinct)
	fmt.Fprintf(w, "Fingerprint: %016x\n\n", r.Fingerprint)

	symbols := tablewriter.NewWriter(w)
	symbols.SetHeader([]string{"Hex", "Count", "Probability", "Information (bits)"})
	symbols.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, s := range r.Symbols {
		symbols.Append([]string{
			fmt.Sprintf("0x%02X", s.Symbol),
			strconv.FormatUint(s.Count, 10),
			fmt.Sprintf("%.6f", s.Probability),
			fmt.Sprintf("%.6f", s.Information),
		})
	}
	symbols.Render()

	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionColor("Information"))
	fmt.Fprintf(w, "I [bits]:   %.2f\n", r.InformationBits)
	fmt.Fprintf(w, "{I}:        %.2e\n", r.Fraction)
	fmt.Fprintf(w, "I [bytes]:  %.2f\n", r.InformationBytes)
	fmt.Fprintf(w, "E [bytes]:   %d\n", r.E)
	fmt.Fprintf(w, "G64 [bytes]: %d\n", r.G64)
	fmt.Fprintf(w, "G8 [bytes]:  %d\n", r.G8)
	fmt.Fprintf(w, "Compression beneficial:         %s\n", yesNo(r.CompressionBeneficial))
	fmt.Fprintf(w, "Frequency normalization useful: %s\n\n", yesNo(r.NormalizationUseful))

	widths := tablewriter.NewWriter(w)
	widths.SetHeader([]string{"Coder", "Bits", "EB (bytes)", "GB (bytes)", "Overhead"})
	widths.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, c := range r.Coders {
		for _, row := range c.Rows {
			widths.Append([]string{
				c.Algorithm.String(),
				strconv.Itoa(row.Bits),
				strconv.FormatUint(row.EB, 10),
				strconv.FormatUint(row.GB, 10),
				fmt.Sprintf("%.2f%%", row.Overhead),
			})
		}
	}
	widths.Render()
	fmt.Fprintln(w)

	for _, c := range r.Coders {
		fmt.Fprintln(w, bestColor("%-13s best bits %d (GB = %d bytes, %.3f bits/symbol)",
			c.Algorithm.String()+":", c.Best.Bits, c.Best.GB, c.BitsPerSymbol))
	}
	_, err := fmt.Fprintf(w, "Arithmetic reference: %d bytes (%.3f bits/symbol)\n",
		r.ArithmeticBytes(), float64(r.ArithmeticBits)/float64(r.Size))
	return err
}

// Proto converts the report into a protobuf Struct.
func (r *Report) Proto() (*structpb.Struct, error) {
	symbols := make([]any, 0, len(r.Symbols))
	for _, s := range r.Symbols {
		symbols = append(symbols, map[string]any{
			"symbol":      int(s.Symbol),
			"count":       s.Count,
			"probability": s.Probability,
			"information": s.Information,
		})
	}

	coders := make([]any, 0, len(r.Coders))
	for _, c := range r.Coders {
		rows := make([]any, 0, len(c.Rows))
		for _, row := range c.Rows {
			rows = append(rows, widthRowFields(row))
		}
		coders = append(coders, map[string]any{
			"algorithm":     c.Algorithm.String(),
			"widths":        rows,
			"best":          widthRowFields(c.Best),
			"bitsPerSymbol": c.BitsPerSymbol,
		})
	}

	return structpb.NewStruct(map[string]any{
		"size":                  r.Size,
		"distinct":              r.Distinct,
		"fingerprint":           fmt.Sprintf("%016x", r.Fingerprint),
		"symbols":               symbols,
		"informationBits":       r.InformationBits,
		"informationBytes":      r.InformationBytes,
		"fraction":              r.Fraction,
		"e":                     r.E,
		"g64":                   r.G64,
		"g8":                    r.G8,
		"compressionBeneficial": r.CompressionBeneficial,
		"normalizationUseful":   r.NormalizationUseful,
		"coders":                coders,
		"arithmeticBits":        r.ArithmeticBits,
		"arithmeticBytes":       r.ArithmeticBytes(),
	})
}

func widthRowFields(row WidthRow) map[string]any {
	return map[string]any{
		"bits":        row.Bits,
		"payloadBits": row.PayloadBits,
		"eb":          row.EB,
		"gb":          row.GB,
		"overhead":    row.Overhead,
	}
}

// MarshalJSON implements json.Marshaler through the protobuf form.
func (r *Report) MarshalJSON() ([]byte, error) {
	pb, err := r.Proto()
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(pb)
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	pb, err := r.Proto()
	if err != nil {
		return err
	}
	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(pb)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
