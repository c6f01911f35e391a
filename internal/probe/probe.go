// Package probe runs the automated alert test: it reads a baseline sample,
// sets the threshold just above it under noisy generation, and checks that
// the next sample within a bounded window carries the alert flag.
package probe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/luki/simtemp/internal/configure"
	"github.com/luki/simtemp/internal/device"
	"github.com/luki/simtemp/internal/metrics"
	"github.com/luki/simtemp/internal/sample"
	"github.com/luki/simtemp/internal/sysfs"
)

const (
	// DefaultFallbackPeriod is used when sampling_ms is missing or unusable.
	DefaultFallbackPeriod = 100 * time.Millisecond
	// WindowPeriods is the number of sampling periods the probe waits.
	WindowPeriods = 10
)

// Probe holds the collaborators for one run.
type Probe struct {
	Source     device.Source
	Store      sysfs.Store
	DevicePath string

	FallbackPeriod time.Duration
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	// OnTransition, if set, is called on entry to every state.
	OnTransition func(State)
}

// Result describes a finished run.
type Result struct {
	Outcome   Outcome
	Baseline  sample.Sample
	Threshold int64         // threshold_mC written during Perturb
	Period    time.Duration // sampling period the window was derived from
	Window    time.Duration
	Observed  sample.Sample // set for Success and NoAlertFlag
	ModeErr   error         // tolerated failure to switch to noisy mode
	Err       error
}

// Summary is the operator-facing verdict line.
func (r Result) Summary() string {
	switch r.Outcome {
	case Success:
		return "TEST: alert observed - success"
	case NoAlertFlag:
		return "TEST: sample received but no alert flag set"
	case Timeout:
		return fmt.Sprintf("TEST: timeout waiting for sample (%d ms)", r.Window.Milliseconds())
	case BaselineReadError:
		return fmt.Sprintf("TEST: failed to read baseline sample: %v", r.Err)
	case ConfigurationError:
		return fmt.Sprintf("TEST: failed to set threshold: %v", r.Err)
	default:
		return fmt.Sprintf("TEST: read error during test: %v", r.Err)
	}
}

// Run executes the probe once. Every handle it opens is closed before it
// returns, whatever the outcome.
func (p *Probe) Run(ctx context.Context) Result {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}

	res := p.run(ctx, log)
	p.enter(Judged)
	p.Metrics.ProbeOutcome(res.Outcome.String())

	fields := []zap.Field{
		zap.Stringer("outcome", res.Outcome),
		zap.Int32("baseline_mC", res.Baseline.TempMilliC),
		zap.Int64("threshold_mC", res.Threshold),
		zap.Duration("window", res.Window),
	}
	if res.Err != nil {
		fields = append(fields, zap.Error(res.Err))
	}
	if res.Outcome.Passed() {
		log.Info("probe finished", fields...)
	} else {
		log.Warn("probe finished", fields...)
	}
	return res
}

func (p *Probe) run(ctx context.Context, log *zap.Logger) Result {
	var res Result

	p.enter(BaselineRead)
	log.Info("reading baseline sample", zap.String("path", p.DevicePath))
	baseline, err := p.readBaseline(ctx)
	if err != nil {
		res.Outcome, res.Err = BaselineReadError, err
		return res
	}
	res.Baseline = baseline
	log.Info("baseline sample", zap.Int32("temp_mC", baseline.TempMilliC))

	p.enter(Perturb)
	res.Period = p.samplingPeriod(log)
	res.Window = WindowPeriods * res.Period

	noisy := sysfs.ModeNoisy
	if _, err := configure.Apply(p.Store, configure.Desired{Mode: &noisy}); err != nil {
		res.ModeErr = err
		log.Warn("failed to set mode, continuing", zap.Error(err))
	}

	threshold := int(baseline.TempMilliC) + 1
	res.Threshold = int64(threshold)
	if _, err := configure.Apply(p.Store, configure.Desired{ThresholdMC: &threshold}); err != nil {
		res.Outcome, res.Err = ConfigurationError, err
		return res
	}
	log.Info("temporary threshold set", zap.Int64("threshold_mC", res.Threshold))

	p.enter(Awaiting)
	if err := ctx.Err(); err != nil {
		res.Outcome, res.Err = StreamError, err
		return res
	}
	log.Info("waiting for alert", zap.Duration("window", res.Window))

	h, err := p.Source.Open(p.DevicePath, false)
	if err != nil {
		res.Outcome, res.Err = StreamError, err
		return res
	}
	defer h.Close()

	s, err := h.ReadOneWithTimeout(res.Window)
	switch {
	case errors.Is(err, device.ErrTimeout):
		res.Outcome, res.Err = Timeout, err
	case err != nil:
		res.Outcome, res.Err = StreamError, err
	case s.Alert():
		res.Outcome, res.Observed = Success, s
	default:
		res.Outcome, res.Observed = NoAlertFlag, s
	}
	return res
}

func (p *Probe) readBaseline(ctx context.Context) (sample.Sample, error) {
	if err := ctx.Err(); err != nil {
		return sample.Sample{}, err
	}
	h, err := p.Source.Open(p.DevicePath, true)
	if err != nil {
		return sample.Sample{}, err
	}
	defer h.Close()
	return h.ReadOne()
}

// samplingPeriod reads sampling_ms fresh from the store. Fractional text is
// truncated; missing, unparsable or non-positive values use the fallback.
func (p *Probe) samplingPeriod(log *zap.Logger) time.Duration {
	fallback := p.FallbackPeriod
	if fallback <= 0 {
		fallback = DefaultFallbackPeriod
	}
	v, ok := p.Store.Read(sysfs.SamplingMs)
	if !ok {
		log.Warn("sampling_ms unavailable, using fallback", zap.Duration("fallback", fallback))
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || !(f >= 1 && f <= math.MaxInt32) {
		log.Warn("unusable sampling_ms, using fallback", zap.String("value", v), zap.Duration("fallback", fallback))
		return fallback
	}
	return time.Duration(int64(f)) * time.Millisecond
}

func (p *Probe) enter(s State) {
	if p.OnTransition != nil {
		p.OnTransition(s)
	}
}
