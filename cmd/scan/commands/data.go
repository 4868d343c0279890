package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/patternscan/internal/source"
)

// dataCmd represents the data command
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "일봉 아카이브 관리",
	Long: `일봉 아카이브 상태를 확인하거나 다른 포맷으로 옮깁니다.

Subcommands:
  status  - 종목 수, 봉 수, 최신 일자
  import  - 다른 아카이브에서 현재 아카이브로 복사

Example:
  go run ./cmd/scan data status
  go run ./cmd/scan data import --from-format csv --from-dir ./stock_data --data-format parquet --data-dir ./bars`,
}

var (
	dataStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "아카이브 상태",
		RunE:  showDataStatus,
	}

	dataImportCmd = &cobra.Command{
		Use:   "import",
		Short: "아카이브 변환",
		RunE:  importData,
	}

	importFromFormat string
	importFromDir    string
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataStatusCmd)
	dataCmd.AddCommand(dataImportCmd)

	dataImportCmd.Flags().StringVar(&importFromFormat, "from-format", "csv", "원본 포맷 (csv|parquet|postgres)")
	dataImportCmd.Flags().StringVar(&importFromDir, "from-dir", "", "원본 디렉터리")
}

func showDataStatus(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	store, closeStore, err := source.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	st, err := source.Summarize(ctx, store)
	if err != nil {
		return fmt.Errorf("summarize archive: %w", err)
	}

	fmt.Printf("Format      : %s (%s)\n", cfg.DataFormat, cfg.DataDir)
	fmt.Printf("Instruments : %d (%d unreadable)\n", st.Instruments, st.Unreadable)
	fmt.Printf("Bars        : %d\n", st.Bars)
	if !st.LatestDate.IsZero() {
		fmt.Printf("Latest date : %s\n", st.LatestDate.Format("2006-01-02"))
	}
	return nil
}

func importData(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if importFromFormat == cfg.DataFormat && importFromDir == cfg.DataDir {
		return fmt.Errorf("source and target archive are the same")
	}

	src, closeSrc, err := source.Open(ctx, cfg, importFromFormat, importFromDir, log)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer closeSrc()

	dst, closeDst, err := source.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open target: %w", err)
	}
	defer closeDst()

	ids, err := src.List(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("=== Import %s → %s (%d instruments) ===\n", importFromFormat, cfg.DataFormat, len(ids))

	var written, skipped int
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		s, err := src.Load(ctx, id)
		if err != nil {
			log.WithError(err).WithField("code", id).Warn("Skipping unreadable instrument")
			skipped++
			continue
		}
		if err := dst.Write(ctx, s); err != nil {
			return fmt.Errorf("write %s: %w", id, err)
		}
		written++

		if (i+1)%500 == 0 {
			fmt.Printf("[Import] %d/%d\n", i+1, len(ids))
		}
	}

	fmt.Printf("\n✅ %d written, %d skipped\n", written, skipped)
	return nil
}
