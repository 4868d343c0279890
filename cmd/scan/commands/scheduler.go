package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/patternscan/internal/concept"
	"github.com/wonny/patternscan/internal/scheduler"
	"github.com/wonny/patternscan/internal/scheduler/jobs"
	"github.com/wonny/patternscan/internal/sink"
	"github.com/wonny/patternscan/pkg/httputil"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

등록되는 작업:
- daily_scan: SCHEDULE_DAILY_SCAN (기본 평일 15:30, 전략별 스캔 후 저장)
- concept_sync: SCHEDULE_CONCEPT_SYNC (기본 매일 08:00, 개념 캐시 갱신)

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

재시도: SCHEDULE_MAX_RETRIES (기본 3), SCHEDULE_RETRY_DELAY (기본 1m)

Example:
  go run ./cmd/scan scheduler start
  go run ./cmd/scan scheduler start --skip concept_sync
  go run ./cmd/scan scheduler run daily_scan`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerSkip []string
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerCmd.PersistentFlags().StringSliceVar(&schedulerSkip, "skip", nil, "등록하지 않을 작업 (예: concept_sync)")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== patternscan Scheduler ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, cleanup, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	if err := skipJobs(sched, schedulerSkip); err != nil {
		return err
	}
	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobStats(os.Stdout, sched)
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")
	printJobHistory(os.Stdout, sched)

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler(context.Background())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	if err := skipJobs(sched, schedulerSkip); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()
	printJobStats(os.Stdout, sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, cleanup, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	fmt.Printf("Running job: %s\n", jobName)
	result, err := sched.RunNow(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	printJobHistory(os.Stdout, sched)
	if !result.Success {
		return fmt.Errorf("job %s failed after %d attempts: %s", jobName, result.Attempts, result.Error)
	}

	fmt.Printf("\n✅ %s completed in %.2fs\n", jobName, result.Duration.Seconds())
	return nil
}

// skipJobs unschedules the named jobs
func skipJobs(sched *scheduler.Scheduler, names []string) error {
	for _, name := range names {
		if err := sched.RemoveJob(name); err != nil {
			return fmt.Errorf("skip job: %w", err)
		}
	}
	return nil
}

func printJobStats(w io.Writer, sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()

	fmt.Fprintln(w, "\nRegistered jobs:")
	for _, name := range sched.GetAllJobs() {
		st := stats[name]
		fmt.Fprintf(w, "  📊 %s  [%s]\n", name, st.Schedule)
		if st.NextRun != nil {
			fmt.Fprintf(w, "     Next run: %s\n", st.NextRun.Format("2006-01-02 15:04:05"))
		}
	}
}

// printJobHistory lists the runs recorded in this process, oldest first
func printJobHistory(w io.Writer, sched *scheduler.Scheduler) {
	fmt.Fprintln(w, "\nRun history:")
	for _, name := range sched.GetAllJobs() {
		history, err := sched.GetJobHistory(name)
		if err != nil || len(history) == 0 {
			fmt.Fprintf(w, "  %s: no runs\n", name)
			continue
		}
		for _, r := range history {
			mark := "✅"
			if !r.Success {
				mark = "❌"
			}
			fmt.Fprintf(w, "  %s %s  %s  %.2fs  attempts=%d", mark, name,
				r.StartTime.Format("2006-01-02 15:04:05"), r.Duration.Seconds(), r.Attempts)
			if r.Error != "" {
				fmt.Fprintf(w, "  %s", r.Error)
			}
			fmt.Fprintln(w)
		}
	}
}

// initScheduler wires the daily scan and the concept sync
func initScheduler(ctx context.Context) (*scheduler.Scheduler, func(), error) {
	// 1. Core dependencies
	a, err := newApp(ctx)
	if err != nil {
		return nil, nil, err
	}

	// 2. Report stores; the HTML report is always refreshed
	stores, err := a.openStores(ctx)
	if err != nil {
		a.close()
		return nil, nil, err
	}
	cleanup := func() {
		stores.close()
		a.close()
	}

	report := sink.NewStrategyFile(a.cfg.ReportPath, sink.RenderHTML)

	// 3. Jobs
	sched := scheduler.New(a.log).WithRetry(a.cfg.Schedule.MaxRetries, a.cfg.Schedule.RetryDelay)

	dailyScan := jobs.NewDailyScanJob(a.registry, a.scanner, stores.sinks(report), jobs.DailyScanConfig{
		Strategies:  a.cfg.Scan.Strategies,
		Schedule:    a.cfg.Schedule.DailyScan,
		ConceptPath: a.cfg.ConceptCache,
		NamePath:    a.cfg.NameCache,
	}, a.log)

	client := httputil.New(a.log, a.cfg.Eastmoney.Timeout).WithRateLimit(a.cfg.Eastmoney.RatePerSecond)
	conceptSync := jobs.NewConceptSyncJob(concept.NewSyncer(client, a.cfg.Eastmoney, a.log),
		a.cfg.Schedule.ConceptSync, a.cfg.ConceptCache, a.cfg.NameCache, a.metrics, a.log)

	for _, job := range []scheduler.Job{dailyScan, conceptSync} {
		if err := sched.AddJob(job); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	return sched, cleanup, nil
}
