package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/PayLens/internal/reconcile"
)

const samplePayroll = `employee_id,period,REG,OT,HOL,contribution_amount,contribution_rate
E001,2024-01,4000,250.5,,213.78,0.05
E002,2024-01,3800,,120,190,0.05

E003,2024-01,"4,100",90,0,0,0.05
E004,2024-01,3900,lots,0,195,0.05
`

func TestReadCSV(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(samplePayroll))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	first := rows[0]
	assert.Equal(t, "E001", first.EmployeeID)
	assert.Equal(t, "2024-01", first.Period)
	assert.Equal(t, 213.78, first.ContributionAmount)
	assert.Equal(t, 0.05, first.ContributionRate)
	assert.Equal(t, reconcile.Values{
		{Code: "REG", Amount: 4000},
		{Code: "OT", Amount: 250.5},
		{Code: "HOL", Amount: 0},
	}, first.Values)
	assert.Empty(t, first.Problem)

	assert.Equal(t, 4100.0, rows[2].Values[0].Amount)
	assert.Contains(t, rows[3].Problem, `OT: invalid number "lots"`)
}

func TestReadCSVWithoutEmployeeID(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader("REG,contribution_amount,contribution_rate\n100,5,0.05\n200,10,0.05\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "row-1", rows[0].EmployeeID)
	assert.Equal(t, "row-2", rows[1].EmployeeID)
}

func TestReadCSVRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   error
	}{
		{"empty", "", nil},
		{"no rate", "REG,contribution_amount\n100,5\n", ErrMissingColumn},
		{"duplicate column", "REG,REG,contribution_amount,contribution_rate\n1,2,3,4\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err))
			}
		})
	}
}

func TestReadCSVRaggedRow(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader("REG,contribution_amount,contribution_rate\n100,5\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Problem, "2 cells")
}

func sampleReport() *reconcile.Report {
	eligible := 1200.0
	predicted := 60.0
	return &reconcile.Report{
		Rows: []reconcile.RowResult{
			{
				EmployeeID:  "E1",
				Period:      "2024-01",
				EligibleEst: &eligible,
				Result: reconcile.SolveResult{
					Status:      reconcile.StatusOptimal,
					Selected:    []string{"REG", "OT"},
					SelectedSum: 1200,
				},
				PredictedContribution: &predicted,
				WithinTolerance:       true,
			},
			{
				EmployeeID: "E2",
				Result:     reconcile.SolveResult{Status: reconcile.StatusSkip, Selected: []string{}},
				Error:      "contribution_rate: invalid number \"x\"",
			},
		},
		Summary:     []reconcile.SelectionFrequency{{Code: "OT", Count: 1, Fraction: 0.5}, {Code: "REG", Count: 1, Fraction: 0.5}},
		Suggested:   []string{"OT", "REG"},
		TotalRows:   2,
		SkippedRows: 1,
		Threshold:   0.5,
	}
}

func TestRenderCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(), FormatCSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, tableHeader, records[0])
	assert.Equal(t, []string{"E1", "2024-01", "OPTIMAL", "1200", "REG;OT", "1200", "0", "60", "true", "false", ""}, records[1])
	assert.Equal(t, "SKIP", records[2][2])
	assert.Empty(t, records[2][3])
	assert.Empty(t, records[2][5])
	assert.Equal(t, `contribution_rate: invalid number "x"`, records[2][10])
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(), FormatJSON))

	var out reconcile.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, []string{"OT", "REG"}, out.Suggested)
	assert.Len(t, out.Rows, 2)
}

func TestRenderUnknownFormat(t *testing.T) {
	assert.Error(t, Render(&bytes.Buffer{}, sampleReport(), "xlsx"))
	assert.False(t, ValidFormat("xlsx"))
	assert.Equal(t, "text/csv", ContentType(FormatCSV))
	assert.Equal(t, "application/json", ContentType(FormatJSON))
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "E1 eligible_est=1200 status=OPTIMAL selected=[REG, OT]")
	assert.Contains(t, out, "E2 eligible_est=- status=SKIP selected=[]")
	assert.Contains(t, out, "OT 1 / 2 (0.50)")
	assert.Contains(t, out, "Suggested eligible pay codes (>=50%): [OT, REG]")
	assert.Contains(t, out, "Skipped rows: 1")
}
