package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/scanner"
	"github.com/wonny/patternscan/internal/sink"
	"github.com/wonny/patternscan/internal/strategy"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "전체 종목 스캔",
	Long: `선택한 전략으로 아카이브의 모든 종목을 분류합니다.

Stage 순위(Breakout-Critical > Breakout > Building) 내림차순,
같은 Stage 안에서는 종목코드 오름차순으로 정렬됩니다.

Flags:
  --strat   ma5 | volume_breakout | breakout_pullback | all
  --format  text | json | html
  --out     결과 파일 경로 (기본: stdout, html은 REPORT_PATH)
  --store   PostgreSQL/Redis 에도 저장

Example:
  go run ./cmd/scan scan --strat ma5
  go run ./cmd/scan scan --strat breakout_pullback --format html --out report.html
  go run ./cmd/scan scan --strat all --format json --store`,
	RunE: runScan,
}

var (
	scanStrategy string
	scanFormat   string
	scanOut      string
	scanStore    bool
	scanQuiet    bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	// Flags
	scanCmd.Flags().StringVar(&scanStrategy, "strat", strategy.IDMA5Support, "전략 id 또는 all")
	scanCmd.Flags().StringVar(&scanFormat, "format", sink.FormatText, "출력 포맷 (text|json|html)")
	scanCmd.Flags().StringVarP(&scanOut, "out", "o", "", "결과 파일 경로")
	scanCmd.Flags().BoolVar(&scanStore, "store", false, "PostgreSQL/Redis 에 저장")
	scanCmd.Flags().BoolVarP(&scanQuiet, "quiet", "q", false, "진행률 출력 생략")
}

func runScan(cmd *cobra.Command, args []string) error {
	render, err := sink.RendererFor(scanFormat)
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

	entries, err := selectStrategies(a.registry, scanStrategy)
	if err != nil {
		return err
	}

	// 1. Persistent stores
	var stores *resultStores
	if scanStore {
		if stores, err = a.openStores(ctx); err != nil {
			return err
		}
		defer stores.close()
	}

	out := scanOut
	if out == "" && scanFormat == sink.FormatHTML {
		out = a.cfg.ReportPath
	}

	// 2. Scan each strategy
	for _, entry := range entries {
		var progress scanner.ProgressFunc
		if !scanQuiet {
			progress = progressPrinter(entry.ID)
		}

		report, err := a.scanner.Run(ctx, entry, progress)
		if err != nil {
			return fmt.Errorf("scan %s: %w", entry.ID, err)
		}
		if !scanQuiet {
			fmt.Fprintln(os.Stderr)
		}

		var primary contracts.ResultSink = sink.NewWriter(cmd.OutOrStdout(), render)
		path := ""
		if out != "" {
			fs := sink.NewFile(out, render)
			if len(entries) > 1 {
				fs = sink.NewStrategyFile(out, render)
			}
			primary, path = fs, fs.Path(report)
		}
		targets := sink.Multi{primary}
		if stores != nil {
			targets = stores.sinks(primary)
		}

		if err := targets.Write(ctx, report); err != nil {
			return fmt.Errorf("write %s: %w", entry.ID, err)
		}
		if path != "" {
			fmt.Fprintf(os.Stderr, "✅ %s: %d hits → %s\n", entry.Name, len(report.Hits), path)
		}
		if report.Partial {
			return fmt.Errorf("scan %s interrupted after %d instruments", entry.ID, report.TotalScanned)
		}
	}

	return nil
}

// selectStrategies resolves a strategy id or "all"
func selectStrategies(reg *strategy.Registry, id string) ([]strategy.Entry, error) {
	if id == "all" {
		return reg.List(), nil
	}
	entry, err := reg.Get(id)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %v)", err, reg.IDs())
	}
	return []strategy.Entry{entry}, nil
}

// progressPrinter redraws one status line on stderr
func progressPrinter(id string) scanner.ProgressFunc {
	return func(p scanner.Progress) {
		if p.Done%200 != 0 && p.Done != p.Total {
			return
		}
		fmt.Fprintf(os.Stderr, "\r[%s] %d/%d scanned, %d hits", id, p.Done, p.Total, p.Hits)
	}
}
