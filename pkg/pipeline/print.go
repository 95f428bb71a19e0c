package pipeline

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// PrintRun outputs the record of a run to the `io.Writer` provided, one
// line per step, followed by a summary.
func PrintRun(out io.Writer, run *Run) {
	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "STEP \tNAME \tOUTCOME \tTOOK \tDETAIL")
	for _, rec := range run.Steps {
		took := ""
		if rec.Elapsed > 0 {
			took = rec.Elapsed.Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", rec.Index, rec.Name, rec.Outcome, took, rec.Detail)
	}
	w.Flush()
	fmt.Fprintf(out, "%s %s in %s\n", run.Operation, run.Status, run.Elapsed.Round(time.Second))
}
