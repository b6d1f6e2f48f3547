package main

import (
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/calcfields/internal/core"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <workbook.xml>",
	Short: "Write the calculated field report for a workbook as CSV",
	Long: `Convert parses a workbook XML file and writes the CSV report
(Caption, Formula, Data Type, Label, Datasource) to stdout or to --output.
Use "-" to read the workbook from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringP("output", "o", "", "output CSV path (default: stdout)")
	convertCmd.Flags().String("max-size", "50MiB", "maximum input size")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	maxSizeStr, _ := cmd.Flags().GetString("max-size")
	maxSize, err := humanize.ParseBytes(maxSizeStr)
	if err != nil {
		return fmt.Errorf("invalid --max-size: %w", err)
	}

	records, err := readRecords(cmd.InOrStdin(), args[0], int64(maxSize))
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		return core.WriteReport(cmd.OutOrStdout(), records)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := core.WriteReport(f, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	counts := core.CountByLabel(records)
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d records (%d calculated fields, %d parameters) to %s\n",
		len(records), counts[core.LabelCalculatedField], counts[core.LabelParameter], out)
	return nil
}

// readRecords loads path ("-" for stdin) and extracts its records.
func readRecords(stdin io.Reader, path string, maxSize int64) ([]core.Record, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		defer f.Close()
		r = f
	}

	data, _, err := core.ReadDocument(r, maxSize)
	if err != nil {
		return nil, err
	}
	return core.ExtractBytes(data)
}
