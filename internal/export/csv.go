// Package export renders an aggregated batch as a CSV artifact.
package export

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"scrape-bot/internal/platform"
)

// errorField is the column failures are reported under.
const errorField = "error"

// Filename names the export artifact for a platform.
func Filename(p platform.Platform) string {
	return fmt.Sprintf("%s_data.csv", p)
}

// CSV renders the results as a delimited table: one header row, one row
// per item, in result order.
//
// Mixed field sets are reconciled rather than rejected: the header is the
// union of all record fields in first-seen order, with an error column
// appended when any item failed. Cells a record does not carry render
// empty.
func CSV(results []platform.Result) string {
	header := buildHeader(results)
	if len(header) == 0 {
		return ""
	}

	t := table.NewWriter()
	t.AppendHeader(toRow(header))
	for _, res := range results {
		row := make(table.Row, len(header))
		for i, field := range header {
			row[i] = cell(res, field)
		}
		t.AppendRow(row)
	}
	return t.RenderCSV()
}

func buildHeader(results []platform.Result) []string {
	var fields []string
	hasError := false
	seen := make(map[string]bool)
	for _, res := range results {
		if res.OK() {
			for _, key := range res.Record.Keys() {
				if !seen[key] {
					seen[key] = true
					fields = append(fields, key)
				}
			}
		} else {
			hasError = true
		}
	}
	if hasError {
		fields = append(fields, errorField)
	}
	return fields
}

func cell(res platform.Result, field string) string {
	if res.OK() {
		return res.Record.Get(field)
	}
	if field == errorField {
		return res.Failure.Message
	}
	return ""
}

func toRow(fields []string) table.Row {
	row := make(table.Row, len(fields))
	for i, f := range fields {
		row[i] = f
	}
	return row
}
