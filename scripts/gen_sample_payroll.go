// gen_sample_payroll.go writes a synthetic payroll CSV for trying out
// paylensctl batch and the /api/v1/batch endpoint.
//
// Usage:
//
//	go run scripts/gen_sample_payroll.go -rows 200 -eligible REG,OT,HOL -out sample_payroll.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
)

// Typical monthly ranges per pay code.
var payCodes = []struct {
	code     string
	min, max float64
	// presence is the chance a row has a non-zero value.
	presence float64
}{
	{"REG", 2800, 5200, 1},
	{"OT", 50, 900, 0.6},
	{"HOL", 80, 400, 0.3},
	{"BONUS", 200, 2500, 0.2},
	{"SICK", 40, 600, 0.15},
	{"MEAL", 20, 120, 0.5},
	{"TRAVEL", 30, 350, 0.25},
}

func main() {
	rows := flag.Int("rows", 100, "number of employees")
	eligible := flag.String("eligible", "REG,OT,HOL", "comma-separated pay codes the contribution is levied on")
	rate := flag.Float64("rate", 0.05, "contribution rate")
	exceptions := flag.Float64("exceptions", 0.1, "fraction of rows computed on a different base")
	period := flag.String("period", "2024-01", "payroll period")
	seed := flag.Uint64("seed", 1, "random seed")
	out := flag.String("out", "", "output file (default stdout)")
	flag.Parse()

	base := make(map[string]bool)
	for _, code := range strings.Split(*eligible, ",") {
		base[strings.TrimSpace(code)] = true
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("create output: %v", err)
		}
		defer f.Close()
		w = f
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	cw := csv.NewWriter(w)

	header := []string{"employee_id", "period"}
	for _, pc := range payCodes {
		header = append(header, pc.code)
	}
	header = append(header, "contribution_amount", "contribution_rate")
	if err := cw.Write(header); err != nil {
		log.Fatalf("write header: %v", err)
	}

	for i := 1; i <= *rows; i++ {
		record := []string{fmt.Sprintf("E%04d", i), *period}
		exception := rng.Float64() < *exceptions
		var eligibleSum float64
		for _, pc := range payCodes {
			var amount float64
			if rng.Float64() < pc.presence {
				amount = cents(pc.min + rng.Float64()*(pc.max-pc.min))
			}
			record = append(record, strconv.FormatFloat(amount, 'f', 2, 64))
			// Exception rows move some codes in or out of the base.
			inBase := base[pc.code]
			if exception && pc.code != "REG" && rng.Float64() < 0.5 {
				inBase = !inBase
			}
			if inBase {
				eligibleSum += amount
			}
		}
		contribution := cents(eligibleSum * *rate)
		record = append(record,
			strconv.FormatFloat(contribution, 'f', 2, 64),
			strconv.FormatFloat(*rate, 'f', -1, 64))
		if err := cw.Write(record); err != nil {
			log.Fatalf("write row %d: %v", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Fatalf("flush: %v", err)
	}
	if *out != "" {
		log.Printf("wrote %d rows to %s", *rows, *out)
	}
}

func cents(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
