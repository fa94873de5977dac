package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"workforce/payroll"
)

func WriteCSV(w io.Writer, r payroll.Report) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range rows(r) {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case float64:
		return fmt.Sprintf("%.2f", x)
	default:
		return fmt.Sprint(x)
	}
}
