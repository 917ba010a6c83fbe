package reconcile

import (
	"math"
	"sort"
)

// Reserved row fields. They describe the row and never enter the candidate set.
const (
	FieldEmployeeID         = "employee_id"
	FieldContributionAmount = "contribution_amount"
	FieldContributionRate   = "contribution_rate"
	FieldPeriod             = "period"
)

var reservedFields = map[string]bool{
	FieldEmployeeID:         true,
	FieldContributionAmount: true,
	FieldContributionRate:   true,
	FieldPeriod:             true,
}

func IsReserved(field string) bool {
	return reservedFields[field]
}

// ScaleAmount converts a currency amount to integer units, rounding half to
// even so that x.xx5 boundaries behave the same for amounts and targets.
func ScaleAmount(amount float64, scale int64) int64 {
	return int64(math.RoundToEven(amount * float64(scale)))
}

// PrepareCandidates drops reserved fields and exact zeros, orders the rest
// by magnitude (largest first, input order on ties), keeps at most
// maxCandidates and scales each amount.
//
// Pruning trades completeness for latency: small amounts rarely change
// which subset best explains a contribution.
func PrepareCandidates(values Values, scale int64, maxCandidates int) []Candidate {
	kept := make([]PayCodeValue, 0, len(values))
	for _, v := range values {
		if IsReserved(v.Code) || v.Amount == 0 {
			continue
		}
		kept = append(kept, v)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return math.Abs(kept[i].Amount) > math.Abs(kept[j].Amount)
	})
	if len(kept) > maxCandidates {
		kept = kept[:maxCandidates]
	}

	cands := make([]Candidate, len(kept))
	for i, v := range kept {
		cands[i] = Candidate{Code: v.Code, Amount: v.Amount, Scaled: ScaleAmount(v.Amount, scale)}
	}
	return cands
}
