package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/PayLens/internal/reconcile"
)

// resetFlags restores every flag to its default; cobra keeps flag state
// between executions of the same command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PAYLENS_SOLVER_BACKEND", "search")
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), err
}

func TestSolveCommand(t *testing.T) {
	out, err := execute(t, "solve",
		"--value", "A=1000", "--value", "B=50", "--value", "C=25",
		"--amount", "52.5", "--rate", "0.05")
	require.NoError(t, err)

	assert.Contains(t, out, "status:        OPTIMAL")
	assert.Contains(t, out, "eligible_est:  1050")
	assert.Contains(t, out, "selected:      [A, B]")
	assert.Contains(t, out, "abs_error:     0\n")
	assert.Contains(t, out, "within_tol:    true")
}

func TestSolveCommandJSON(t *testing.T) {
	out, err := execute(t, "solve", "--value", "REG=1000", "--value", "OT=200",
		"--amount", "250", "--rate", "0.25", "--json")
	require.NoError(t, err)

	var res reconcile.RowResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"REG"}, res.Result.Selected)
}

func TestSolveCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		errText string
	}{
		{"zero rate", []string{"solve", "--value", "A=100", "--amount", "5", "--rate", "0"}, "contribution_rate"},
		{"malformed value", []string{"solve", "--value", "A100", "--amount", "5", "--rate", "0.05"}, "want CODE=amount"},
		{"non-numeric value", []string{"solve", "--value", "A=lots", "--amount", "5", "--rate", "0.05"}, `invalid --value "A=lots"`},
		{"duplicate code", []string{"solve", "--value", "A=1", "--value", "A=2", "--amount", "1", "--rate", "0.5"}, `duplicate pay code "A"`},
		{"missing amount", []string{"solve", "--value", "A=100", "--rate", "0.05"}, "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

const payroll = `employee_id,REG,OT,contribution_amount,contribution_rate
E1,1000,200,300,0.25
E2,1000,200,250,0.25
E3,1000,200,300,0.25
E4,1000,200,250,0.25
`

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "payroll.csv")
	require.NoError(t, os.WriteFile(in, []byte(payroll), 0o644))
	reportPath := filepath.Join(dir, "report.json")

	out, err := execute(t, "batch", in, "--out", reportPath, "--workers", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "Per-employee results:")
	assert.Contains(t, out, "REG 4 / 4 (1.00)")
	assert.Contains(t, out, "OT 2 / 4 (0.50)")
	assert.Contains(t, out, "Suggested eligible pay codes (>=50%): [OT, REG]")
	assert.Contains(t, out, "Report written to "+reportPath)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report reconcile.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 4, report.TotalRows)
	assert.Equal(t, []string{"OT", "REG"}, report.Suggested)
}

func TestBatchCommandThreshold(t *testing.T) {
	in := filepath.Join(t.TempDir(), "payroll.csv")
	require.NoError(t, os.WriteFile(in, []byte(payroll), 0o644))

	out, err := execute(t, "batch", in, "--threshold", "0.75")
	require.NoError(t, err)
	assert.Contains(t, out, "Suggested eligible pay codes (>=75%): [REG]")
	assert.False(t, strings.Contains(out, "Report written"))
}

func TestBatchCommandErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("REG,contribution_amount\n1,2\n"), 0o644))

	_, err := execute(t, "batch", filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)

	_, err = execute(t, "batch", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contribution_rate")

	_, err = execute(t, "batch")
	assert.Error(t, err)
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		path, format, want string
	}{
		{"", "", "csv"},
		{"report.json", "", "json"},
		{"REPORT.JSON", "", "json"},
		{"report.txt", "", "csv"},
		{"report.csv", "json", "json"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, outputFormat(tt.path, tt.format), "%q %q", tt.path, tt.format)
	}
}

func TestParseValuesKeepsOrder(t *testing.T) {
	values, err := parseValues([]string{"ZED=1", " OT = 2.5", "A=-3"})
	require.NoError(t, err)
	assert.Equal(t, reconcile.Values{
		{Code: "ZED", Amount: 1},
		{Code: "OT", Amount: 2.5},
		{Code: "A", Amount: -3},
	}, values)
}

func TestMigrateRequiresDatabase(t *testing.T) {
	t.Setenv("PAYLENS_DATABASE_URL", "")
	_, err := execute(t, "migrate", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database configured")
}
