package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/quickeda-cli/internal/analysis"
	"github.com/KaramelBytes/quickeda-cli/internal/journal"
	"github.com/KaramelBytes/quickeda-cli/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	hdlIn        inputFlags
	hdlColumns   []string
	hdlMethod    string
	hdlAction    string
	hdlLower     float64
	hdlUpper     float64
	hdlStrict    bool
	hdlOutput    string
	hdlBins      int
	hdlNoJournal bool
)

var handleCmd = &cobra.Command{
	Use:   "handle <file>",
	Short: "Compress or remove outliers and write the cleaned dataset",
	Long: `Handle outliers column by column.

compress clips every value of the column into the computed limits; remove
drops the rows flagged as outliers. Columns are handled in order, so later
columns see rows removed by earlier ones. Use --output to write the
resulting table as CSV; each handled column is recorded in the run journal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		c := currentConfig()
		format, err := hdlIn.outputFormat()
		if err != nil {
			return err
		}
		method, err := parseMethod(hdlMethod)
		if err != nil {
			return err
		}
		actionName := hdlAction
		if strings.TrimSpace(actionName) == "" {
			actionName = c.DefaultAction
		}
		action, err := analysis.ParseAction(actionName)
		if err != nil {
			return err
		}
		bins := hdlBins
		if bins <= 0 {
			bins = c.HistogramBins
		}
		load := hdlIn.load
		if hdlOutput != "" {
			load = hdlIn.loadComplete
		}
		t, err := load(path)
		if err != nil {
			return err
		}
		opt := analysis.OutlierOptions{
			Method:       method,
			Custom:       customInterval(cmd, hdlLower, hdlUpper),
			StrictCustom: hdlStrict || c.StrictCustom,
		}
		rowsBefore := t.Len()
		results := analysis.HandleOutliers(t, hdlColumns, opt, action)
		failErr := warnFailures(cmd, results)
		log.WithFields(logrus.Fields{"action": action, "rows_before": rowsBefore, "rows_after": t.Len()}).Debug("handled outliers")

		var sections []string
		for _, r := range results {
			if r.Err != nil {
				sections = append(sections, analysis.OutliersMarkdown(r, method))
				continue
			}
			sections = append(sections, analysis.HandledMarkdown(r.Report, bins))
		}
		if len(results) > 0 {
			if err := utils.Render(cmd.OutOrStdout(), format, strings.Join(sections, "\n"), toOutputs(results)); err != nil {
				return err
			}
		}
		if failErr != nil {
			return failErr
		}

		if hdlOutput != "" {
			if err := writeTable(t, hdlOutput); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote handled table to %s\n", hdlOutput)
		}
		if c.Journal && !hdlNoJournal {
			if err := recordRun(c.JournalPath, path, hdlOutput, results); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: journal: %v\n", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(handleCmd)
	hdlIn.register(handleCmd)
	handleCmd.Flags().StringSliceVarP(&hdlColumns, "columns", "c", nil, "columns to handle (default: all numeric columns)")
	handleCmd.Flags().StringVarP(&hdlMethod, "method", "m", "", "detection method: z|iqr|custom (default from config)")
	handleCmd.Flags().StringVarP(&hdlAction, "action", "a", "", "action: compress|remove (default from config)")
	handleCmd.Flags().Float64Var(&hdlLower, "lower", 0, "custom interval lower limit")
	handleCmd.Flags().Float64Var(&hdlUpper, "upper", 0, "custom interval upper limit")
	handleCmd.Flags().BoolVar(&hdlStrict, "strict-custom", false, "fail instead of falling back to Z score when no custom interval is given")
	handleCmd.Flags().StringVarP(&hdlOutput, "output", "o", "", "path to write the handled table (CSV, or TSV for .tsv)")
	handleCmd.Flags().IntVar(&hdlBins, "bins", 0, "histogram bins for the before/after comparison (default from config)")
	handleCmd.Flags().BoolVar(&hdlNoJournal, "no-journal", false, "do not record this run in the journal")
}

// writeTable writes t atomically; a .tsv path gets tab separators.
func writeTable(t *analysis.Table, path string) error {
	delim := ','
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		delim = '\t'
	}
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf, delim); err != nil {
		return fmt.Errorf("encode table: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// recordRun appends one journal entry per successfully handled column.
func recordRun(journalPath, dataset, output string, results []analysis.ColumnResult) error {
	var entries []journal.Entry
	for _, r := range results {
		if r.Err != nil || r.Report == nil {
			continue
		}
		lower, upper := r.Report.Bounds.Lower, r.Report.Bounds.Upper
		entries = append(entries, journal.Entry{
			Dataset:     utils.DatasetLabel(dataset),
			Output:      output,
			Column:      r.Column,
			Method:      methodKey(r.Report.Bounds.Method),
			Action:      r.Report.Action.String(),
			Lower:       &lower,
			Upper:       &upper,
			Handled:     r.Report.Handled.Len(),
			Affected:    r.Report.Affected,
			Substituted: r.Report.Bounds.Substituted,
		})
	}
	if len(entries) == 0 {
		return nil
	}
	j, err := journal.Open(journalPath)
	if err != nil {
		return err
	}
	defer j.Close()
	stored, err := j.Append(entries...)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"entries": len(stored), "journal": journalPath}).Debug("recorded run")
	return nil
}

func methodKey(m analysis.Method) string {
	b, _ := m.MarshalText()
	return string(b)
}
