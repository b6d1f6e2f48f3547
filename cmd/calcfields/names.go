package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/JonMunkholm/calcfields/internal/core"
	"github.com/spf13/cobra"
)

var namesCmd = &cobra.Command{
	Use:   "names <workbook.xml>",
	Short: "List the internal field names and the captions they resolve to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open workbook: %w", err)
		}
		defer f.Close()

		data, _, err := core.ReadDocument(f, 0)
		if err != nil {
			return err
		}
		root, err := core.ParseDocument(data)
		if err != nil {
			return err
		}

		names := core.BuildNameMap(core.ReadWorkbook(root))
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tCAPTION")
		for _, name := range names.Names() {
			caption, _ := names.Lookup(name)
			if caption == "" {
				caption = "(none)"
			}
			fmt.Fprintf(tw, "%s\t%s\n", name, caption)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(namesCmd)
}
