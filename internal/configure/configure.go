// Package configure applies operator-requested settings to the driver's
// attribute store. Attributes are written independently: one rejected write
// does not stop the others, and nothing is rolled back.
package configure

import (
	"fmt"

	"github.com/luki/simtemp/internal/sysfs"
)

// Desired holds the settings to apply. Nil fields are left untouched.
type Desired struct {
	SamplingMs  *int
	ThresholdMC *int
	Mode        *sysfs.Mode
}

// Empty reports whether no field is set.
func (d Desired) Empty() bool {
	return d.SamplingMs == nil && d.ThresholdMC == nil && d.Mode == nil
}

// Result is the outcome of writing one attribute.
type Result struct {
	Name  string
	Value string
	Err   error
}

// Applied reports whether the write succeeded.
func (r Result) Applied() bool { return r.Err == nil }

// String renders the operator confirmation, e.g. "sampling_ms -> 100 ms".
func (r Result) String() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	switch r.Name {
	case sysfs.SamplingMs:
		return fmt.Sprintf("%s -> %s ms", r.Name, r.Value)
	case sysfs.ThresholdMC:
		return fmt.Sprintf("%s -> %s mC", r.Name, r.Value)
	default:
		return fmt.Sprintf("%s -> %s", r.Name, r.Value)
	}
}

// Report lists every attempted write in application order.
type Report []Result

// Failed returns the results whose write was rejected.
func (r Report) Failed() Report {
	var out Report
	for _, res := range r {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Apply writes each present field of d, in the order sampling_ms,
// threshold_mC, mode. Every field is attempted; the first failure is
// returned alongside the full report.
func Apply(store sysfs.Store, d Desired) (Report, error) {
	type write struct {
		name  string
		value any
	}
	var writes []write
	if d.SamplingMs != nil {
		writes = append(writes, write{sysfs.SamplingMs, *d.SamplingMs})
	}
	if d.ThresholdMC != nil {
		writes = append(writes, write{sysfs.ThresholdMC, *d.ThresholdMC})
	}
	if d.Mode != nil {
		writes = append(writes, write{sysfs.ModeAttr, *d.Mode})
	}

	var (
		report   Report
		firstErr error
	)
	for _, w := range writes {
		text, _ := sysfs.Canonical(w.value)
		err := store.Write(w.name, w.value)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		report = append(report, Result{Name: w.name, Value: text, Err: err})
	}
	return report, firstErr
}
