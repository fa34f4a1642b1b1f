package cmd

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/quickeda-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/quickeda-cli/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set quickeda configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "default_method: %s\n", c.DefaultMethod)
		fmt.Fprintf(w, "default_action: %s\n", c.DefaultAction)
		fmt.Fprintf(w, "cardinality_threshold: %d\n", c.CardinalityThreshold)
		fmt.Fprintf(w, "strict_custom: %t\n", c.StrictCustom)
		fmt.Fprintf(w, "histogram_bins: %d\n", c.HistogramBins)
		fmt.Fprintf(w, "max_rows: %d\n", c.MaxRows)
		fmt.Fprintf(w, "mi_neighbors: %d\n", c.MINeighbors)
		fmt.Fprintf(w, "mi_max_rows: %d\n", c.MIMaxRows)
		fmt.Fprintf(w, "mi_limit: %d\n", c.MILimit)
		fmt.Fprintf(w, "journal: %t\n", c.Journal)
		fmt.Fprintf(w, "journal_path: %s\n", c.JournalPath)
		fmt.Fprintf(w, "log_level: %s\n", c.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "default_method":
			m, err := analysis.ParseMethod(val)
			if err != nil {
				return err
			}
			b, _ := m.MarshalText()
			cfg.DefaultMethod = string(b)
		case "default_action":
			a, err := analysis.ParseAction(val)
			if err != nil {
				return err
			}
			cfg.DefaultAction = a.String()
		case "cardinality_threshold":
			i, err := positiveInt(key, val)
			if err != nil {
				return err
			}
			cfg.CardinalityThreshold = i
		case "strict_custom":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for strict_custom: %v", val)
			}
			cfg.StrictCustom = b
		case "histogram_bins":
			i, err := positiveInt(key, val)
			if err != nil {
				return err
			}
			cfg.HistogramBins = i
		case "max_rows":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for max_rows: %v", val)
			}
			cfg.MaxRows = i
		case "mi_neighbors":
			i, err := positiveInt(key, val)
			if err != nil {
				return err
			}
			cfg.MINeighbors = i
		case "mi_max_rows":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for mi_max_rows: %v", val)
			}
			cfg.MIMaxRows = i
		case "mi_limit":
			i, err := positiveInt(key, val)
			if err != nil {
				return err
			}
			cfg.MILimit = i
		case "journal":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for journal: %v", val)
			}
			cfg.Journal = b
		case "journal_path":
			cfg.JournalPath = val
		case "log_level":
			if _, err := logrus.ParseLevel(val); err != nil {
				return fmt.Errorf("invalid log_level: %s", val)
			}
			cfg.LogLevel = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func positiveInt(key, val string) (int, error) {
	i, err := strconv.Atoi(val)
	if err != nil || i <= 0 {
		return 0, fmt.Errorf("invalid positive int for %s: %v", key, val)
	}
	return i, nil
}
