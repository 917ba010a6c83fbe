package api

import (
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/MikeSquared-Agency/PayLens/internal/reconcile"
)

// maxTimeLimitSeconds caps per-row time limits a client may ask for.
const maxTimeLimitSeconds = 600

const maxBatchWorkers = 64

// optionOverrides are the per-request knobs on top of configured defaults.
type optionOverrides struct {
	TimeLimitSeconds *float64 `json:"time_limit_seconds,omitempty"`
	MaxCandidates    *int     `json:"max_candidates,omitempty"`
	TolerancePct     *float64 `json:"tolerance_pct,omitempty"`
	PreferFewer      *bool    `json:"prefer_fewer,omitempty"`
}

func (o optionOverrides) apply(opts *reconcile.Options) error {
	if o.TimeLimitSeconds != nil {
		v := *o.TimeLimitSeconds
		if v <= 0 || v > maxTimeLimitSeconds {
			return &reconcile.InputError{Msg: "time_limit_seconds must be within (0, 600]"}
		}
		opts.TimeLimit = time.Duration(v * float64(time.Second))
	}
	if o.MaxCandidates != nil {
		opts.MaxCandidates = *o.MaxCandidates
	}
	if o.TolerancePct != nil {
		opts.TolerancePct = *o.TolerancePct
	}
	if o.PreferFewer != nil {
		opts.PreferFewer = *o.PreferFewer
	}
	return opts.Validate()
}

type batchOverrides struct {
	optionOverrides
	SummaryThreshold *float64 `json:"summary_threshold,omitempty"`
	Workers          *int     `json:"workers,omitempty"`
	Format           string   `json:"format,omitempty"`
	Filename         string   `json:"filename,omitempty"`
	Persist          *bool    `json:"persist,omitempty"`
	EchoInput        bool     `json:"echo_input,omitempty"`
}

func (o batchOverrides) apply(opts *reconcile.BatchOptions) error {
	if err := o.optionOverrides.apply(&opts.Options); err != nil {
		return err
	}
	if o.SummaryThreshold != nil {
		opts.SummaryThreshold = *o.SummaryThreshold
	}
	if o.Workers != nil {
		if *o.Workers < 1 || *o.Workers > maxBatchWorkers {
			return &reconcile.InputError{Msg: "workers must be within [1, 64]"}
		}
		opts.Workers = *o.Workers
	}
	return opts.Validate()
}

func (o batchOverrides) persist() bool {
	return o.Persist == nil || *o.Persist
}

// batchOverridesFromQuery reads the same options a JSON batch body carries
// from query parameters, for raw CSV uploads.
func batchOverridesFromQuery(q url.Values) (batchOverrides, error) {
	var o batchOverrides
	var err error
	if o.TimeLimitSeconds, err = queryFloat(q, "time_limit_seconds"); err != nil {
		return o, err
	}
	if o.MaxCandidates, err = queryInt(q, "max_candidates"); err != nil {
		return o, err
	}
	if o.TolerancePct, err = queryFloat(q, "tolerance_pct"); err != nil {
		return o, err
	}
	if o.PreferFewer, err = queryBool(q, "prefer_fewer"); err != nil {
		return o, err
	}
	if o.SummaryThreshold, err = queryFloat(q, "summary_threshold"); err != nil {
		return o, err
	}
	if o.Workers, err = queryInt(q, "workers"); err != nil {
		return o, err
	}
	if o.Persist, err = queryBool(q, "persist"); err != nil {
		return o, err
	}
	echo, err := queryBool(q, "echo_input")
	if err != nil {
		return o, err
	}
	o.EchoInput = echo != nil && *echo
	o.Format = q.Get("format")
	o.Filename = q.Get("filename")
	return o, nil
}

func queryFloat(q url.Values, key string) (*float64, error) {
	s := q.Get(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &reconcile.InputError{Msg: "invalid " + key, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, &reconcile.InputError{Msg: key + " is not a finite number"}
	}
	return &v, nil
}

func queryInt(q url.Values, key string) (*int, error) {
	s := q.Get(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, &reconcile.InputError{Msg: "invalid " + key, Err: err}
	}
	return &v, nil
}

func queryBool(q url.Values, key string) (*bool, error) {
	s := q.Get(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, &reconcile.InputError{Msg: "invalid " + key, Err: err}
	}
	return &v, nil
}
