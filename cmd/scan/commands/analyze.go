package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/patternscan/internal/scanner"
	"github.com/wonny/patternscan/internal/strategy"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [code]",
	Short: "단일 종목 진단",
	Long: `한 종목의 분류 결과와 각 조건의 통과 여부를 출력합니다.

종목코드는 600000 또는 sh.600000 형식 모두 허용합니다.

Example:
  go run ./cmd/scan analyze 600000
  go run ./cmd/scan analyze sz.000001 --strat volume_breakout --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var (
	analyzeStrategy string
	analyzeJSON     bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeStrategy, "strat", strategy.IDMA5Support, "전략 id")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "JSON 으로 출력")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	entry, err := a.registry.Get(analyzeStrategy)
	if err != nil {
		return err
	}

	res, err := a.scanner.Analyze(ctx, entry, args[0])
	if err != nil {
		return err
	}

	if analyzeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printAnalysis(cmd.OutOrStdout(), entry, res)
	return nil
}

func printAnalysis(w io.Writer, entry strategy.Entry, res *scanner.Analysis) {
	h := res.Hit
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  %s %s  [%s]\n", h.FullCode, h.Name, entry.Name)
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
	fmt.Fprintf(w, "  Bars      : %d\n", res.Bars)
	fmt.Fprintf(w, "  Price     : %.2f (%s)\n", h.Price, h.Change)
	fmt.Fprintf(w, "  Concepts  : %s\n", h.Concepts)
	fmt.Fprintf(w, "  Stage     : %s\n", res.Evaluation.Stage)
	if res.Evaluation.KeyDate != nil {
		fmt.Fprintf(w, "  Key date  : %s\n", res.Evaluation.KeyDate.Format("2006-01-02"))
	}
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
	for _, c := range res.Evaluation.Checks {
		mark := "✗"
		if c.Passed {
			mark = "✓"
		}
		fmt.Fprintf(w, "  %s %s\n", mark, c.Name)
	}
}
