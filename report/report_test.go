package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"workforce/payroll"
)

func sampleReport() payroll.Report {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 7, 23, 59, 59, 0, time.UTC)
	policy := payroll.DefaultPolicy(15)
	entry := func(id uint, name string, events int) payroll.Entry {
		return payroll.Entry{
			UserID:      id,
			DisplayName: name,
			Figures:     payroll.Calculate(events, policy),
			HourlyRate:  policy.HourlyRate,
			PeriodStart: start,
			PeriodEnd:   end,
		}
	}
	return payroll.Report{
		Period:  payroll.Period{Start: start, End: end},
		Policy:  policy,
		Entries: []payroll.Entry{entry(1, "Alice Smith", 6), entry(2, "bob", 3)},
		Totals: payroll.Totals{
			Users: 2, HoursWorked: 72, OvertimeHours: 8,
			RegularPay: 960, OvertimePay: 180, TotalPay: 1140,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReport()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, header, records[0])
	assert.Equal(t, []string{
		"Alice Smith", "1", "2026-03-01", "2026-03-07", "6",
		"48.00", "40.00", "8.00", "15.00", "600.00", "180.00", "780.00",
	}, records[1])
	assert.Equal(t, "bob", records[2][0])
	assert.Equal(t, "360.00", records[2][11])
	assert.Equal(t, []string{
		"TOTAL", "2", "", "", "",
		"72.00", "64.00", "8.00", "", "960.00", "180.00", "1140.00",
	}, records[3])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleReport()))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, sheetName, f.GetSheetName(0))
	got, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, header, got[0])
	assert.Equal(t, "Alice Smith", got[1][0])
	assert.Equal(t, "780", got[1][11])
	assert.Equal(t, "TOTAL", got[3][0])
	assert.Equal(t, "1140", got[3][11])
}

func TestWriteEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, payroll.Report{}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 2, "header and totals")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	assert.Equal(t, "text/csv", f.ContentType())

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, "payroll_20260301_20260307.xlsx", FormatXLSX.Filename(r.Period))
	assert.Equal(t, "payroll_all.csv", FormatCSV.Filename(payroll.Period{}))
}
