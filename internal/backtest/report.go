package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
)

// maxExamples caps the successful signals listed per horizon
const maxExamples = 10

// RenderText writes the per-horizon summary and a few successful signals
func RenderText(w io.Writer, r *Result) error {
	fmt.Fprintf(w, "backtest %s  target: %s  instruments: %d  skipped: %d  signals: %d\n",
		r.Strategy, r.TargetStage, r.Instruments, r.Skipped, len(r.Signals))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HORIZON\tSIGNALS\tSUCCESS\tRATE\tAVG MAX RETURN")
	for _, h := range r.Horizons {
		fmt.Fprintf(tw, "%dd\t%d\t%d\t%.2f%%\t%.2f%%\n",
			h.Days, h.Signals, h.Successes, h.SuccessRate, h.AvgMaxReturnPct)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for k, h := range r.Horizons {
		shown := 0
		for _, s := range r.Signals {
			if shown == maxExamples {
				break
			}
			if k < len(s.Outcomes) && s.Outcomes[k].Success {
				if shown == 0 {
					fmt.Fprintf(w, "\n%dd successes:\n", h.Days)
				}
				fmt.Fprintf(w, "  %s  %s  max %.2f%%\n", s.Code, s.Date.Format("2006-01-02"), s.Outcomes[k].MaxReturnPct)
				shown++
			}
		}
	}
	return nil
}

// WriteCSV writes one row per signal with the outcome of horizon k
func WriteCSV(w io.Writer, r *Result, k int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"code", "date", "close", "success", "max_return", "max_date"}); err != nil {
		return err
	}

	for _, s := range r.Signals {
		if k >= len(s.Outcomes) {
			continue
		}
		o := s.Outcomes[k]
		maxDate := ""
		if !o.MaxDate.IsZero() {
			maxDate = o.MaxDate.Format("2006-01-02")
		}
		row := []string{
			s.FullCode,
			s.Date.Format("2006-01-02"),
			strconv.FormatFloat(s.Close, 'f', -1, 64),
			strconv.FormatBool(o.Success),
			strconv.FormatFloat(o.MaxReturnPct, 'f', 2, 64),
			maxDate,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
