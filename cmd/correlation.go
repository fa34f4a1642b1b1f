package cmd

import (
	"strings"

	"github.com/KaramelBytes/quickeda-cli/internal/analysis"
	"github.com/KaramelBytes/quickeda-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	corrIn     inputFlags
	corrMethod string
)

var correlationCmd = &cobra.Command{
	Use:   "correlation <file>",
	Short: "Correlation matrix of numeric columns (Pearson, Spearman or both)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := corrIn.outputFormat()
		if err != nil {
			return err
		}
		var methods []analysis.CorrMethod
		if strings.EqualFold(strings.TrimSpace(corrMethod), "both") {
			methods = []analysis.CorrMethod{analysis.CorrPearson, analysis.CorrSpearman}
		} else {
			m, err := analysis.ParseCorrMethod(corrMethod)
			if err != nil {
				return err
			}
			methods = []analysis.CorrMethod{m}
		}
		t, err := corrIn.load(args[0])
		if err != nil {
			return err
		}
		var (
			sections []string
			matrices []*analysis.CorrMatrix
		)
		for _, m := range methods {
			cm := analysis.Correlation(t, m)
			matrices = append(matrices, cm)
			sections = append(sections, cm.Markdown())
		}
		return utils.Render(cmd.OutOrStdout(), format, strings.Join(sections, "\n"), matrices)
	},
}

func init() {
	rootCmd.AddCommand(correlationCmd)
	corrIn.register(correlationCmd)
	correlationCmd.Flags().StringVarP(&corrMethod, "method", "m", "both", "correlation method: pearson|spearman|both")
}
