package cmd

import (
	"github.com/KaramelBytes/quickeda-cli/internal/analysis"
	"github.com/KaramelBytes/quickeda-cli/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	miIn        inputFlags
	miTarget    string
	miLimit     int
	miNeighbors int
)

var mutualInfoCmd = &cobra.Command{
	Use:   "mutual-info <file>",
	Short: "Rank columns by mutual information with a numeric target",
	Long: `Estimate the mutual information between every column and a numeric
target with k-nearest-neighbour estimators. Text columns are label encoded
and, like integral columns, treated as discrete.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := miIn.outputFormat()
		if err != nil {
			return err
		}
		c := currentConfig()
		opt := analysis.MIOptions{Neighbors: c.MINeighbors, MaxRows: c.MIMaxRows, Limit: c.MILimit}
		if miLimit > 0 {
			opt.Limit = miLimit
		}
		if miNeighbors > 0 {
			opt.Neighbors = miNeighbors
		}
		t, err := miIn.load(args[0])
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"target": miTarget, "k": opt.Neighbors, "max_rows": opt.MaxRows}).Debug("scoring mutual information")
		scores, err := analysis.MutualInfo(t, miTarget, opt)
		if err != nil {
			return err
		}
		return utils.Render(cmd.OutOrStdout(), format, analysis.MutualInfoMarkdown(miTarget, scores), scores)
	},
}

func init() {
	rootCmd.AddCommand(mutualInfoCmd)
	miIn.register(mutualInfoCmd)
	mutualInfoCmd.Flags().StringVarP(&miTarget, "target", "t", "", "numeric target column")
	mutualInfoCmd.Flags().IntVarP(&miLimit, "limit", "l", 0, "number of top features to show (default from config)")
	mutualInfoCmd.Flags().IntVar(&miNeighbors, "neighbors", 0, "k for the nearest-neighbour estimators (default from config)")
	_ = mutualInfoCmd.MarkFlagRequired("target")
}
