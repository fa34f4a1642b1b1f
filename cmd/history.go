package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/quickeda-cli/internal/journal"
	"github.com/KaramelBytes/quickeda-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	histDataset string
	histLimit   int
	histFormat  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List handled columns recorded in the run journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := utils.ParseFormat(histFormat)
		if err != nil {
			return err
		}
		j, err := journal.Open(currentConfig().JournalPath)
		if err != nil {
			return err
		}
		defer j.Close()
		dataset := histDataset
		if dataset != "" {
			dataset = utils.DatasetLabel(dataset)
		}
		entries, err := j.List(dataset, histLimit)
		if err != nil {
			return err
		}
		if entries == nil {
			entries = []journal.Entry{}
		}
		return utils.Render(cmd.OutOrStdout(), format, historyText(entries), entries)
	},
}

func historyText(entries []journal.Entry) string {
	if len(entries) == 0 {
		return "No runs recorded"
	}
	var b strings.Builder
	b.WriteString("[HISTORY]\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s  %s.%s  %s via %s: %d handled, %d affected",
			e.At.Local().Format("2006-01-02 15:04:05"), e.Dataset, e.Column, e.Action, e.Method, e.Handled, e.Affected)
		if e.Lower != nil && e.Upper != nil {
			fmt.Fprintf(&b, " [%g, %g]", *e.Lower, *e.Upper)
		}
		if e.Substituted {
			b.WriteString(" (Z score fallback)")
		}
		if e.Output != "" {
			fmt.Fprintf(&b, " -> %s", e.Output)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVarP(&histDataset, "dataset", "d", "", "only show runs on this dataset (file name or path)")
	historyCmd.Flags().IntVarP(&histLimit, "limit", "n", 20, "maximum entries to show (0 = all)")
	historyCmd.Flags().StringVar(&histFormat, "format", "text", "output format: text|json|yaml")
}
