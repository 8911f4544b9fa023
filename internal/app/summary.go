package service

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const (
	verdictPass = "PASS"
	verdictFail = "FAIL"
)

// WriteSummary prints one row per vendor: the headline metrics, the verdict
// and, for failing vendors, the failed criteria and diagnosis.
func WriteSummary(w io.Writer, res *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s, baseline %s, %d events\n", res.RunID, res.Baseline, len(res.Events))
	fmt.Fprintln(tw, "VENDOR\tVERDICT\tEVENTS\tSUCCESS\tP50\tP95\tRATIO\tJACCARD\tSTICKY_P50\tCOST/1K\tDIAGNOSIS")
	for i := range res.Aggregates {
		m := &res.Aggregates[i]
		verdict, diagnosis := verdictPass, ""
		if i < len(res.Decisions) && !res.Decisions[i].Pass {
			d := &res.Decisions[i]
			verdict = verdictFail
			diagnosis = fmt.Sprintf("%s (%s)", d.Diagnosis, strings.Join(d.Failed(), ","))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.Vendor, verdict, m.Reliability.Events,
			m.Reliability.SuccessRate, m.Latency.P50, m.Latency.P95, m.LatencyRatio,
			m.Correctness.Jaccard, m.Sticky.P50, m.Cost.PerThousandSuccesses, diagnosis)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
