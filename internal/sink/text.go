package sink

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/wonny/patternscan/internal/contracts"
)

// RenderText writes an aligned table for terminals
func RenderText(w io.Writer, r *contracts.Report) error {
	fmt.Fprintf(w, "%s (%s)  scanned: %d  hits: %d  failed: %d  at %s\n",
		r.StrategyName, r.Strategy, r.TotalScanned, len(r.Hits), r.Failed,
		r.GeneratedAt.Format("2006-01-02 15:04"))
	if r.Partial {
		fmt.Fprintln(w, "(partial: scan was cancelled)")
	}
	if len(r.Hits) == 0 {
		_, err := fmt.Fprintln(w, "no matches")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tCODE\tNAME\tPRICE\tCHANGE\tCONCEPTS")
	for _, h := range r.Hits {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
			h.Stage, h.Code, h.Name, h.Price, h.Change, h.Concepts)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "codes: %s\n", strings.Join(r.Codes(), ","))
	return err
}
