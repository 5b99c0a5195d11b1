package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	trialkit "github.com/gxo-labs/trialkit/pkg/trialkit/v1"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

// outcomeFields are the per-task correctness fields, in lookup order.
var outcomeFields = []string{"accuracy", "correct", "correctness"}

func validOutput(format string) bool {
	switch format {
	case "text", "json", "yaml":
		return true
	}
	return false
}

func writeReport(w io.Writer, format string, report *trialkit.SessionReport) error {
	if report == nil {
		return nil
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeTextReport(w, report)
	}
}

func writeTextReport(w io.Writer, report *trialkit.SessionReport) error {
	fmt.Fprintf(w, "Session '%s': %d/%d trials (%d response, %d deadline) in %v\n",
		report.SessionName, report.CompletedCount, report.TotalTrials,
		report.ResponseCount, report.DeadlineCount, report.Duration.Truncate(time.Millisecond))
	if report.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", report.Error)
	}
	if len(report.Records) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTYPE\tEND\tKEY/SIDE\tRT_MS\tOUTCOME\tDRT_RT_MS")
	for i, rec := range report.Records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i, rec.PluginType(), rec.EndReason(), responseCell(rec),
			cell(rec[trial.FieldRT]), outcomeCell(rec), probeCell(rec))
	}
	return tw.Flush()
}

func responseCell(rec trial.Record) string {
	parts := make([]string, 0, 2)
	for _, f := range []string{trial.FieldResponseKey, trial.FieldResponseSide} {
		if v, ok := rec[f].(string); ok {
			if v == " " {
				v = "space"
			}
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "/")
}

func outcomeCell(rec trial.Record) string {
	for _, f := range outcomeFields {
		if v, ok := rec[f]; ok {
			return cell(v)
		}
	}
	return "-"
}

func probeCell(rec trial.Record) string {
	if !rec.HasProbe() {
		return ""
	}
	if shown, _ := rec[trial.FieldDRTShown].(bool); !shown {
		return "not shown"
	}
	return cell(rec[trial.FieldDRTRT])
}

func cell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case float64:
		return fmt.Sprintf("%.1f", x)
	default:
		return fmt.Sprint(x)
	}
}
