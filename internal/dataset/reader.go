// Package dataset reads payroll tables into batch rows and renders batch
// reports as downloadable artifacts.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/PayLens/internal/reconcile"
)

var ErrMissingColumn = errors.New("missing required column")

// ReadCSV parses a payroll CSV. The header must name contribution_amount
// and contribution_rate; every other non-reserved column is a pay code.
// Cell-level problems are attached to the row instead of failing the file.
func ReadCSV(r io.Reader) ([]reconcile.BatchRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("empty payroll file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = cleanCell(name)
		header[i] = name
		if _, dup := cols[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		cols[name] = i
	}
	for _, required := range []string{reconcile.FieldContributionAmount, reconcile.FieldContributionRate} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	var rows []reconcile.BatchRow
	for n := 1; ; n++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", n, err)
		}
		if blank(record) {
			continue
		}
		rows = append(rows, parseRecord(header, cols, record, n))
	}
	return rows, nil
}

func parseRecord(header []string, cols map[string]int, record []string, n int) reconcile.BatchRow {
	row := reconcile.BatchRow{EmployeeID: fmt.Sprintf("row-%d", n)}
	if len(record) != len(header) {
		row.Problem = fmt.Sprintf("row has %d cells, header has %d", len(record), len(header))
		return row
	}
	if i, ok := cols[reconcile.FieldEmployeeID]; ok && cleanCell(record[i]) != "" {
		row.EmployeeID = cleanCell(record[i])
	}
	if i, ok := cols[reconcile.FieldPeriod]; ok {
		row.Period = cleanCell(record[i])
	}

	var problems []string
	amount, err := parseNumber(record[cols[reconcile.FieldContributionAmount]])
	if err != nil {
		problems = append(problems, fmt.Sprintf("%s: %v", reconcile.FieldContributionAmount, err))
	}
	rate, err := parseNumber(record[cols[reconcile.FieldContributionRate]])
	if err != nil {
		problems = append(problems, fmt.Sprintf("%s: %v", reconcile.FieldContributionRate, err))
	}
	row.ContributionAmount, row.ContributionRate = amount, rate

	for i, name := range header {
		if reconcile.IsReserved(name) {
			continue
		}
		v, err := parseNumber(record[i])
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		row.Values = append(row.Values, reconcile.PayCodeValue{Code: name, Amount: v})
	}

	if len(problems) > 0 {
		row.Problem = strings.Join(problems, "; ")
	}
	return row
}

// parseNumber reads an amount cell. Blank cells are zero; thousands
// separators are tolerated.
func parseNumber(cell string) (float64, error) {
	cell = strings.ReplaceAll(cleanCell(cell), ",", "")
	if cell == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", cell)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q", cell)
	}
	return v, nil
}

func cleanCell(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
}

func blank(record []string) bool {
	for _, cell := range record {
		if cleanCell(cell) != "" {
			return false
		}
	}
	return true
}
