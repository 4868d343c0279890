package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wonny/patternscan/internal/concept"
	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/metrics"
	"github.com/wonny/patternscan/internal/scheduler/jobs"
	"github.com/wonny/patternscan/pkg/httputil"
)

// conceptsCmd represents the concepts command
var conceptsCmd = &cobra.Command{
	Use:   "concepts",
	Short: "개념(테마) 캐시 관리",
	Long: `종목별 개념 태그 캐시를 조회하거나 갱신합니다.

Subcommands:
  show  - 캐시 요약 및 종목 조회
  sync  - Eastmoney 개념 보드에서 캐시 갱신

Example:
  go run ./cmd/scan concepts show
  go run ./cmd/scan concepts show 600000 300750
  go run ./cmd/scan concepts sync`,
}

var (
	conceptsShowCmd = &cobra.Command{
		Use:   "show [codes...]",
		Short: "캐시 요약 및 종목 조회",
		RunE:  showConcepts,
	}

	conceptsSyncCmd = &cobra.Command{
		Use:   "sync",
		Short: "개념 보드 동기화",
		RunE:  syncConcepts,
	}

	conceptsTop int
)

func init() {
	rootCmd.AddCommand(conceptsCmd)
	conceptsCmd.AddCommand(conceptsShowCmd)
	conceptsCmd.AddCommand(conceptsSyncCmd)

	conceptsShowCmd.Flags().IntVar(&conceptsTop, "top", 20, "표시할 보드 수")
}

func showConcepts(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	m := concept.LoadMapOrEmpty(cfg.ConceptCache, log)
	names, err := concept.LoadNames(cfg.NameCache)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Concept cache: %s (date %s, %d codes)\n\n", cfg.ConceptCache, m.Date(), m.Len())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(args) > 0 {
		fmt.Fprintln(tw, "CODE\tNAME\tCONCEPTS")
		for _, code := range args {
			code, _ = contracts.SplitCode(code)
			fmt.Fprintf(tw, "%s\t%s\t%s\n", code, names.Name(code), m.Lookup(code))
		}
		return tw.Flush()
	}

	fmt.Fprintln(tw, "BOARD\tCODES")
	for i, b := range m.Boards() {
		if i >= conceptsTop {
			break
		}
		fmt.Fprintf(tw, "%s\t%d\n", b.Name, b.Count)
	}
	return tw.Flush()
}

func syncConcepts(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	client := httputil.New(log, cfg.Eastmoney.Timeout).WithRateLimit(cfg.Eastmoney.RatePerSecond)
	syncer := concept.NewSyncer(client, cfg.Eastmoney, log)
	job := jobs.NewConceptSyncJob(syncer, cfg.Schedule.ConceptSync, cfg.ConceptCache, cfg.NameCache,
		metrics.New(nil), log)

	fmt.Println("=== Concept Sync ===")
	if err := job.Run(context.Background()); err != nil {
		return err
	}

	m, err := concept.LoadMap(cfg.ConceptCache)
	if err != nil {
		return err
	}
	fmt.Printf("\n✅ %d codes tagged (%s) → %s\n", m.Len(), m.Date(), cfg.ConceptCache)
	return nil
}
