// Package report renders payroll reports as spreadsheet exports.
package report

import (
	"fmt"
	"io"
	"time"

	"workforce/payroll"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat defaults to xlsx when s is empty.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename names the export after the report window, or "all" when the
// window is unbounded.
func (f Format) Filename(p payroll.Period) string {
	if p.Unbounded() {
		return fmt.Sprintf("payroll_all.%s", f)
	}
	return fmt.Sprintf("payroll_%s_%s.%s", p.Start.Format("20060102"), p.End.Format("20060102"), f)
}

// Write renders r to w in format f.
func Write(w io.Writer, f Format, r payroll.Report) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, r)
	default:
		return WriteXLSX(w, r)
	}
}

var header = []string{
	"Employee", "User ID", "Period Start", "Period End", "Verified Events",
	"Hours Worked", "Regular Hours", "Overtime Hours", "Hourly Rate",
	"Regular Pay", "Overtime Pay", "Total Pay",
}

func rows(r payroll.Report) [][]any {
	out := make([][]any, 0, len(r.Entries)+1)
	for _, e := range r.Entries {
		out = append(out, []any{
			e.DisplayName,
			e.UserID,
			formatDate(e.PeriodStart),
			formatDate(e.PeriodEnd),
			e.VerifiedEvents,
			e.HoursWorked,
			e.RegularHours,
			e.OvertimeHours,
			e.HourlyRate,
			e.RegularPay,
			e.OvertimePay,
			e.TotalPay,
		})
	}
	t := r.Totals
	out = append(out, []any{
		"TOTAL", t.Users, "", "", "",
		t.HoursWorked, t.HoursWorked - t.OvertimeHours, t.OvertimeHours, "",
		t.RegularPay, t.OvertimePay, t.TotalPay,
	})
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
