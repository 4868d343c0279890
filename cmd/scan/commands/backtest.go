package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/patternscan/internal/backtest"
	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/strategy"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "워크포워드 백테스트",
	Long: `과거 체크일마다 전략을 재실행하고 이후 수익을 평가합니다.

체크일(기본 매월 1, 5, 10, 15, 20, 25일)에 해당 일자까지의 봉만
분류기에 전달하여 미래 데이터 참조를 막습니다. 목표 Stage로 분류된
종목은 각 보유기간 동안의 최고가가 목표 수익률에 도달하면 성공입니다.

Flags:
  --strat         전략 id
  --year          대상 연도 (from/to 미지정 시)
  --from, --to    체크 기간 (YYYY-MM-DD)
  --target-stage  평가할 Stage (기본: Breakout-Critical)
  --horizons      보유기간 (봉 수, 기본: 10,20)
  --target-pct    성공 기준 수익률 (기본: 5)
  --csv           신호별 결과 CSV 경로 (첫 번째 보유기간)

Example:
  go run ./cmd/scan backtest --strat breakout_pullback --year 2024
  go run ./cmd/scan backtest --from 2024-01-01 --to 2024-06-30 --horizons 5,10,20 --csv bt.csv`,
	RunE: runBacktest,
}

var (
	backtestStrategy    string
	backtestYear        int
	backtestFrom        string
	backtestTo          string
	backtestTargetStage string
	backtestHorizons    []int
	backtestTargetPct   float64
	backtestCSV         string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	// Flags
	backtestCmd.Flags().StringVar(&backtestStrategy, "strat", strategy.IDBreakoutPullback, "전략 id")
	backtestCmd.Flags().IntVar(&backtestYear, "year", time.Now().Year()-1, "대상 연도")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "시작 날짜 (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "종료 날짜 (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&backtestTargetStage, "target-stage", contracts.StageBreakoutCritical.String(), "평가할 Stage")
	backtestCmd.Flags().IntSliceVar(&backtestHorizons, "horizons", []int{10, 20}, "보유기간 (봉 수)")
	backtestCmd.Flags().Float64Var(&backtestTargetPct, "target-pct", 5.0, "성공 기준 수익률 (%)")
	backtestCmd.Flags().StringVar(&backtestCSV, "csv", "", "신호별 결과 CSV 경로")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	fmt.Println("=== patternscan Backtest Engine ===")

	btCfg, err := backtestConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	entry, err := a.registry.Get(backtestStrategy)
	if err != nil {
		return err
	}

	fmt.Printf("Strategy : %s\n", entry.Name)
	fmt.Printf("Period   : %s ~ %s\n", btCfg.From.Format("2006-01-02"), btCfg.To.Format("2006-01-02"))
	fmt.Printf("Target   : %s, +%.1f%% within %v bars\n\n", btCfg.TargetStage, btCfg.TargetReturnPct, btCfg.Horizons)

	result, err := backtest.NewEngine(a.store, a.log).Run(ctx, entry, btCfg)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	if err := backtest.RenderText(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	if backtestCSV != "" {
		f, err := os.Create(backtestCSV)
		if err != nil {
			return fmt.Errorf("create csv: %w", err)
		}
		defer f.Close()
		if err := backtest.WriteCSV(f, result, 0); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		fmt.Printf("\n✅ %d signals → %s\n", len(result.Signals), backtestCSV)
	}
	return nil
}

// backtestConfig applies the flags on top of DefaultConfig
func backtestConfig() (backtest.Config, error) {
	cfg := backtest.DefaultConfig(backtestYear)

	if backtestFrom != "" {
		from, err := time.Parse("2006-01-02", backtestFrom)
		if err != nil {
			return cfg, fmt.Errorf("invalid --from: %w", err)
		}
		cfg.From = from
	}
	if backtestTo != "" {
		to, err := time.Parse("2006-01-02", backtestTo)
		if err != nil {
			return cfg, fmt.Errorf("invalid --to: %w", err)
		}
		cfg.To = to
	}
	if cfg.To.Before(cfg.From) {
		return cfg, fmt.Errorf("--to %s is before --from %s", cfg.To.Format("2006-01-02"), cfg.From.Format("2006-01-02"))
	}

	stage, err := contracts.ParseStage(backtestTargetStage)
	if err != nil {
		return cfg, err
	}
	cfg.TargetStage = stage

	if len(backtestHorizons) == 0 {
		return cfg, fmt.Errorf("--horizons must not be empty")
	}
	for _, h := range backtestHorizons {
		if h <= 0 {
			return cfg, fmt.Errorf("invalid horizon %d", h)
		}
	}
	cfg.Horizons = backtestHorizons
	cfg.TargetReturnPct = backtestTargetPct
	return cfg, nil
}
