package monitor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/luki/simtemp/internal/device"
	"github.com/luki/simtemp/internal/metrics"
	"github.com/luki/simtemp/internal/sample"
)

// Streamer prints decoded samples, one line each, until a count is reached,
// the stream fails, or the context is cancelled.
type Streamer struct {
	Source  device.Source
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// NonBlocking opens the device with O_NONBLOCK and waits via poll.
	NonBlocking bool
	// Timeout bounds each wait on a non-blocking handle. An elapsed wait is
	// logged and the loop carries on.
	Timeout time.Duration
}

// Run streams from path with a blocking handle and no observers.
func Run(ctx context.Context, src device.Source, path string, maxCount int, emit func(string)) error {
	s := &Streamer{Source: src}
	return s.Run(ctx, path, maxCount, emit)
}

// Run reads samples from path and passes each formatted line to emit. It
// stops after maxCount samples when maxCount > 0. Cancellation is checked
// between reads; an in-flight read is never interrupted.
func (s *Streamer) Run(ctx context.Context, path string, maxCount int, emit func(string)) error {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}

	h, err := s.Source.Open(path, !s.NonBlocking)
	if err != nil {
		return err
	}
	defer h.Close()

	log.Debug("monitoring device",
		zap.String("path", path),
		zap.Int("count", maxCount),
		zap.Bool("nonblock", s.NonBlocking))

	for count := 0; maxCount == 0 || count < maxCount; {
		if err := ctx.Err(); err != nil {
			return err
		}

		smp, err := s.next(h)
		if errors.Is(err, device.ErrTimeout) {
			s.Metrics.ReadError("timeout")
			log.Warn("no sample within timeout", zap.Duration("timeout", s.Timeout))
			continue
		}
		if err != nil {
			s.Metrics.ReadError(errorKind(err))
			return err
		}

		s.Metrics.ObserveSample(smp)
		emit(sample.Format(smp))
		count++
	}
	return nil
}

func (s *Streamer) next(h device.Handle) (sample.Sample, error) {
	if s.NonBlocking && s.Timeout > 0 {
		return h.ReadOneWithTimeout(s.Timeout)
	}
	return h.ReadOne()
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, device.ErrStreamClosed):
		return "closed"
	case errors.Is(err, sample.ErrMalformedRecord):
		return "malformed"
	case errors.Is(err, device.ErrTimeout):
		return "timeout"
	default:
		return "io"
	}
}
