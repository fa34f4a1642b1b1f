package cmd

import (
	"strings"

	"github.com/KaramelBytes/quickeda-cli/internal/analysis"
	"github.com/KaramelBytes/quickeda-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	outIn      inputFlags
	outColumns []string
	outMethod  string
	outLower   float64
	outUpper   float64
	outStrict  bool
)

var outliersCmd = &cobra.Command{
	Use:   "outliers <file>",
	Short: "Detect outliers via Z score, IQR or a custom interval",
	Long: `Detect outliers in numeric columns without modifying the dataset.

Z score flags values with |z| > 3 (population deviation); IQR flags values
outside [Q1 - 1.5*IQR, Q3 + 1.5*IQR]; custom uses --lower/--upper, taking
the observed min/max for an omitted side. Without --columns every numeric
column is analyzed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outIn.outputFormat()
		if err != nil {
			return err
		}
		method, err := parseMethod(outMethod)
		if err != nil {
			return err
		}
		t, err := outIn.load(args[0])
		if err != nil {
			return err
		}
		opt := analysis.OutlierOptions{
			Method:       method,
			Custom:       customInterval(cmd, outLower, outUpper),
			StrictCustom: outStrict || currentConfig().StrictCustom,
		}
		results := analysis.AnalyzeOutliers(t, outColumns, opt)
		failErr := warnFailures(cmd, results)

		var sections []string
		for _, r := range results {
			sections = append(sections, analysis.OutliersMarkdown(r, method))
			if r.Err == nil && r.Bounds.Substituted {
				log.WithField("column", r.Column).Debug("custom interval missing, used Z score")
			}
		}
		if len(results) > 0 {
			if err := utils.Render(cmd.OutOrStdout(), format, strings.Join(sections, "\n"), toOutputs(results)); err != nil {
				return err
			}
		}
		return failErr
	},
}

func init() {
	rootCmd.AddCommand(outliersCmd)
	outIn.register(outliersCmd)
	outliersCmd.Flags().StringSliceVarP(&outColumns, "columns", "c", nil, "columns to analyze (default: all numeric columns)")
	outliersCmd.Flags().StringVarP(&outMethod, "method", "m", "", "detection method: z|iqr|custom (default from config)")
	outliersCmd.Flags().Float64Var(&outLower, "lower", 0, "custom interval lower limit")
	outliersCmd.Flags().Float64Var(&outUpper, "upper", 0, "custom interval upper limit")
	outliersCmd.Flags().BoolVar(&outStrict, "strict-custom", false, "fail instead of falling back to Z score when no custom interval is given")
}
