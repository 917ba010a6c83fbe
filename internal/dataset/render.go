package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/PayLens/internal/reconcile"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var tableHeader = []string{
	"employee_id", "period", "status", "eligible_est", "selected", "selected_sum",
	"abs_error", "predicted_contribution", "within_tolerance", "retryable", "error",
}

func ValidFormat(format string) bool {
	return format == FormatCSV || format == FormatJSON
}

func ContentType(format string) string {
	if format == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// Extension returns the file extension for format, including the dot.
func Extension(format string) string {
	return "." + format
}

// Render writes report in the given artifact format.
func Render(w io.Writer, report *reconcile.Report, format string) error {
	switch format {
	case FormatCSV:
		return RenderCSV(w, report)
	case FormatJSON:
		return RenderJSON(w, report)
	default:
		return fmt.Errorf("unsupported artifact format %q", format)
	}
}

// RenderCSV writes the per-row table, one line per input row in input order.
func RenderCSV(w io.Writer, report *reconcile.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tableHeader); err != nil {
		return err
	}
	for _, row := range report.Rows {
		if err := cw.Write(tableRecord(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func tableRecord(row reconcile.RowResult) []string {
	res := row.Result
	record := []string{
		row.EmployeeID,
		row.Period,
		string(res.Status),
		optional(row.EligibleEst),
		strings.Join(res.Selected, ";"),
		"",
		"",
		optional(row.PredictedContribution),
		strconv.FormatBool(row.WithinTolerance),
		strconv.FormatBool(row.Retryable),
		row.Error,
	}
	if res.Status != reconcile.StatusSkip {
		record[5] = formatAmount(res.SelectedSum)
		record[6] = formatAmount(res.AbsError)
	}
	return record
}

func RenderJSON(w io.Writer, report *reconcile.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// WriteText prints a report for a terminal: one line per row, selection
// counts and the suggested set.
func WriteText(w io.Writer, report *reconcile.Report) error {
	var b strings.Builder
	b.WriteString("Per-employee results:\n")
	for _, row := range report.Rows {
		fmt.Fprintf(&b, "%s eligible_est=%s status=%s selected=[%s]",
			row.EmployeeID, optionalOr(row.EligibleEst, "-"), row.Result.Status, strings.Join(row.Result.Selected, ", "))
		if row.Result.Status.Solved() {
			fmt.Fprintf(&b, " abs_error=%s within_tolerance=%t", formatAmount(row.Result.AbsError), row.WithinTolerance)
		}
		if row.Retryable {
			b.WriteString(" retryable")
		}
		if row.Error != "" {
			fmt.Fprintf(&b, " error=%q", row.Error)
		}
		b.WriteByte('\n')
	}

	b.WriteString("\nSelection counts:\n")
	for _, s := range report.Summary {
		fmt.Fprintf(&b, "%s %d / %d (%.2f)\n", s.Code, s.Count, report.TotalRows, s.Fraction)
	}

	fmt.Fprintf(&b, "\nSuggested eligible pay codes (>=%.0f%%): [%s]\n",
		report.Threshold*100, strings.Join(report.Suggested, ", "))
	if report.SkippedRows > 0 {
		fmt.Fprintf(&b, "Skipped rows: %d\n", report.SkippedRows)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optional(v *float64) string {
	return optionalOr(v, "")
}

func optionalOr(v *float64, empty string) string {
	if v == nil {
		return empty
	}
	return formatAmount(*v)
}
