package cost

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/bgdnvk/clanker/internal/model"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// Formatter renders cost rollups either as a table or as JSON, following the
// teacher's tabwriter-based CLI table convention.
type Formatter struct {
	format string
	color  bool
}

func NewFormatter(format string, color bool) *Formatter {
	return &Formatter{format: format, color: color}
}

// FormatRollups renders the per-(account,region) totals produced by Rollup.
func (f *Formatter) FormatRollups(rollups []RegionRollup) (string, error) {
	if f.format == "json" {
		return f.toJSON(rollups)
	}

	var sb strings.Builder
	sb.WriteString(f.header("Cost Summary by Account/Region"))

	var grandTotal float64
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tREGION\tCOMPUTE\tSTORAGE\tCONTROL PLANE\tTOTAL\tRESOURCES")
	fmt.Fprintln(w, "-------\t------\t-------\t-------\t-------------\t-----\t---------")
	for _, r := range rollups {
		fmt.Fprintf(w, "%s\t%s\t$%.2f\t$%.2f\t$%.2f\t$%.2f\t%d\n",
			r.AccountName, r.Region, r.ComputeCost, r.StorageCost, r.ControlPlaneCost, r.TotalCost, r.RecordCount)
		grandTotal += r.TotalCost
	}
	w.Flush()
	sb.WriteString("\n")
	sb.WriteString(f.bold(fmt.Sprintf("Grand Total: %s$%.2f%s\n", colorGreen, grandTotal, colorReset)))

	return sb.String(), nil
}

// FormatRecords renders individual CostRecords as per-resource detail
// instead of a rollup. The cost command prints rollups only and does not
// call it.
func (f *Formatter) FormatRecords(records []model.CostRecord) (string, error) {
	if f.format == "json" {
		return f.toJSON(records)
	}

	var sb strings.Builder
	sb.WriteString(f.header("Cost by Resource"))

	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tID\tUPTIME(H)\tRATE\tTOTAL\tRECONCILED")
	fmt.Fprintln(w, "----\t--\t---------\t----\t-----\t----------")
	for _, rec := range records {
		reconciled := "-"
		if rec.Reconciled {
			reconciled = fmt.Sprintf("%+.2f", rec.ReconciledDelta)
		}
		fmt.Fprintf(w, "%s\t%s\t%.1f\t$%.4f\t$%.2f\t%s\n",
			rec.Subject.Kind, rec.Subject.ID, rec.UptimeHours, rec.HourlyRate, rec.TotalCost, reconciled)
	}
	w.Flush()

	return sb.String(), nil
}

func (f *Formatter) header(text string) string {
	if f.color {
		return fmt.Sprintf("\n%s%s=== %s ===%s\n\n", colorBold, colorCyan, text, colorReset)
	}
	return fmt.Sprintf("\n=== %s ===\n\n", text)
}

func (f *Formatter) bold(text string) string {
	if f.color {
		return fmt.Sprintf("%s%s%s", colorBold, text, colorReset)
	}
	return text
}

func (f *Formatter) toJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	return string(data), nil
}

// Print outputs to stdout.
func (f *Formatter) Print(output string) {
	fmt.Fprint(os.Stdout, output)
}
