package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/PayLens/internal/reconcile"
)

var (
	solveValues     []string
	solveAmount     float64
	solveRate       float64
	solveTimeLimit  time.Duration
	solveCandidates int
	solveAllowMore  bool
	solveJSON       bool
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Explain one contribution amount",
	Long: `Finds the pay codes whose sum best reproduces amount / rate.

Example:
  paylensctl solve --value REG=1000 --value OT=50 --value HOL=25 --amount 52.5 --rate 0.05`,
	RunE: runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.StringArrayVar(&solveValues, "value", nil, "pay code value as CODE=amount (repeatable, order kept)")
	f.Float64Var(&solveAmount, "amount", 0, "observed contribution amount")
	f.Float64Var(&solveRate, "rate", 0, "contribution rate")
	f.DurationVar(&solveTimeLimit, "time-limit", 0, "solver time limit (default from config)")
	f.IntVar(&solveCandidates, "max-candidates", 0, "keep at most this many pay codes (default from config)")
	f.BoolVar(&solveAllowMore, "no-prefer-fewer", false, "do not break error ties toward fewer codes")
	f.BoolVar(&solveJSON, "json", false, "print the full result as JSON")
	_ = solveCmd.MarkFlagRequired("value")
	_ = solveCmd.MarkFlagRequired("amount")
	_ = solveCmd.MarkFlagRequired("rate")
}

func runSolve(cmd *cobra.Command, args []string) error {
	values, err := parseValues(solveValues)
	if err != nil {
		return err
	}

	svc, err := newService()
	if err != nil {
		return err
	}
	opts := svc.SolveOptions()
	if solveTimeLimit > 0 {
		opts.TimeLimit = solveTimeLimit
	}
	if solveCandidates > 0 {
		opts.MaxCandidates = solveCandidates
	}
	if solveAllowMore {
		opts.PreferFewer = false
	}

	res, err := svc.Solve(cmd.Context(), reconcile.RowRequest{
		Values:             values,
		ContributionAmount: solveAmount,
		ContributionRate:   solveRate,
	}, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if solveJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	r := res.Result
	fmt.Fprintf(out, "status:        %s\n", r.Status)
	fmt.Fprintf(out, "eligible_est:  %s\n", formatOptional(res.EligibleEst))
	fmt.Fprintf(out, "selected:      [%s]\n", strings.Join(r.Selected, ", "))
	if r.Status.Solved() {
		fmt.Fprintf(out, "selected_sum:  %s\n", formatFloat(r.SelectedSum))
		fmt.Fprintf(out, "abs_error:     %s\n", formatFloat(r.AbsError))
		fmt.Fprintf(out, "predicted:     %s\n", formatOptional(res.PredictedContribution))
		fmt.Fprintf(out, "within_tol:    %t\n", res.WithinTolerance)
	}
	if res.Retryable {
		fmt.Fprintln(out, "time limit reached; retry with a larger --time-limit")
	}
	return nil
}

// parseValues reads CODE=amount pairs, keeping flag order.
func parseValues(pairs []string) (reconcile.Values, error) {
	values := make(reconcile.Values, 0, len(pairs))
	for _, pair := range pairs {
		code, amount, ok := strings.Cut(pair, "=")
		code = strings.TrimSpace(code)
		if !ok || code == "" {
			return nil, fmt.Errorf("invalid --value %q: want CODE=amount", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --value %q: %w", pair, err)
		}
		values = append(values, reconcile.PayCodeValue{Code: code, Amount: v})
	}
	return values, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatFloat(*v)
}
