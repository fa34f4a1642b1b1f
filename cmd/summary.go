package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/quickeda-cli/internal/analysis"
	"github.com/KaramelBytes/quickeda-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	sumIn      inputFlags
	sumColumns []string
)

var summaryCmd = &cobra.Command{
	Use:   "summary <file>",
	Short: "Print the five point summary of numeric columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := sumIn.outputFormat()
		if err != nil {
			return err
		}
		t, err := sumIn.load(args[0])
		if err != nil {
			return err
		}
		columns := sumColumns
		if len(columns) == 0 {
			columns = t.NumericColumns()
		}
		if len(columns) == 0 {
			return fmt.Errorf("no numeric columns to summarize")
		}
		var (
			sections  []string
			summaries []analysis.Summary
		)
		for _, col := range columns {
			s, err := analysis.Describe(t, col)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: column %q: %v\n", col, err)
				continue
			}
			summaries = append(summaries, s)
			sections = append(sections, analysis.SummaryMarkdown(s))
		}
		if len(summaries) == 0 {
			return fmt.Errorf("no column could be summarized")
		}
		return utils.Render(cmd.OutOrStdout(), format, strings.Join(sections, "\n"), summaries)
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	sumIn.register(summaryCmd)
	summaryCmd.Flags().StringSliceVarP(&sumColumns, "columns", "c", nil, "columns to summarize (default: all numeric columns)")
}
