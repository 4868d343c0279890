package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wonny/patternscan/internal/strategy"
	"github.com/wonny/patternscan/internal/strategyconfig"
)

// strategiesCmd lists the registered classifiers
var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "전략 목록",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		stratCfg, err := strategyconfig.LoadOrDefault(cfg.StrategyConfig)
		if err != nil {
			return fmt.Errorf("load strategy config: %w", err)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
		for _, e := range strategy.NewRegistry(stratCfg).List() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, e.Name, e.Description)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
