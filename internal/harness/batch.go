package harness

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

// Expect is the outcome a batch item is supposed to have.
type Expect int

const (
	// ExpectAny records the outcome without judging it.
	ExpectAny Expect = iota

	// ExpectDetect marks a positive sample: the wake word is spoken.
	ExpectDetect

	// ExpectReject marks a negative sample: no detection should occur.
	ExpectReject
)

// String returns "any", "detect" or "reject".
func (e Expect) String() string {
	switch e {
	case ExpectDetect:
		return "detect"
	case ExpectReject:
		return "reject"
	default:
		return "any"
	}
}

// MarshalText implements [encoding.TextMarshaler] for report output.
func (e Expect) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

// BatchItem is one source in a batch together with its expected outcome.
type BatchItem struct {
	Source Source
	Expect Expect
}

// BatchOutcome is the result of one batch item. Exactly one of Result and Err
// is set.
type BatchOutcome struct {
	Source string  `json:"source" yaml:"source"`
	Expect Expect  `json:"expect" yaml:"expect"`
	Result *Result `json:"result,omitempty" yaml:"result,omitempty"`
	Err    error   `json:"-" yaml:"-"`
}

// Detected reports whether the run completed with at least one detection.
func (o BatchOutcome) Detected() bool {
	return o.Err == nil && o.Result != nil && o.Result.Success()
}

// Passed reports whether the outcome matches the expectation. Aborted runs
// never pass.
func (o BatchOutcome) Passed() bool {
	if o.Err != nil {
		return false
	}
	switch o.Expect {
	case ExpectDetect:
		return o.Detected()
	case ExpectReject:
		return !o.Detected()
	default:
		return true
	}
}

// RunBatch evaluates every item with its own [Harness] and returns the
// outcomes in input order. At most limit runs execute at once; limit <= 0
// means no limit. Run failures are recorded per item; the returned error is
// non-nil only for an invalid cfg or a cancelled ctx.
func RunBatch(ctx context.Context, cfg Config, items []BatchItem, backends []kws.Backend, limit int, opts ...Option) ([]BatchOutcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	outcomes := make([]BatchOutcome, len(items))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, item := range items {
		outcomes[i].Expect = item.Expect
		if item.Source == nil {
			outcomes[i].Err = fmt.Errorf("harness: batch item %d has no source", i)
			continue
		}
		outcomes[i].Source = sourceName(item.Source)

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h, err := New(cfg, item.Source, backends, opts...)
			if err != nil {
				outcomes[i].Err = err
				return nil
			}
			outcomes[i].Result, outcomes[i].Err = h.Run(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// Summary aggregates batch outcomes.
type Summary struct {
	Total    int `json:"total" yaml:"total"`
	Detected int `json:"detected" yaml:"detected"`
	Aborted  int `json:"aborted" yaml:"aborted"`

	TruePositives  int `json:"true_positives" yaml:"true_positives"`
	FalseNegatives int `json:"false_negatives" yaml:"false_negatives"`
	TrueNegatives  int `json:"true_negatives" yaml:"true_negatives"`
	FalsePositives int `json:"false_positives" yaml:"false_positives"`
}

// Summarize counts outcomes. Aborted runs are counted in Aborted only.
func Summarize(outcomes []BatchOutcome) Summary {
	var s Summary
	for _, o := range outcomes {
		s.Total++
		if o.Err != nil {
			s.Aborted++
			continue
		}
		detected := o.Detected()
		if detected {
			s.Detected++
		}
		switch {
		case o.Expect == ExpectDetect && detected:
			s.TruePositives++
		case o.Expect == ExpectDetect:
			s.FalseNegatives++
		case o.Expect == ExpectReject && detected:
			s.FalsePositives++
		case o.Expect == ExpectReject:
			s.TrueNegatives++
		}
	}
	return s
}

// Passed reports whether every judged item met its expectation and no run
// was aborted.
func (s Summary) Passed() bool {
	return s.Aborted == 0 && s.FalseNegatives == 0 && s.FalsePositives == 0
}

// Errors joins the errors of all aborted outcomes.
func Errors(outcomes []BatchOutcome) error {
	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Source, o.Err))
		}
	}
	return errors.Join(errs...)
}
