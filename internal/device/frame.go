package device

import (
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sys/unix"

	"github.com/luki/simtemp/internal/sample"
)

// rawFile is the descriptor-level surface readFrame needs.
type rawFile interface {
	// read returns 0, nil at end of stream.
	read(p []byte) (int, error)
	wait(timeout time.Duration) (bool, error)
}

// readFrame accumulates exactly one record. When poll is set it waits for
// readiness before every read; a zero deadline means no bound. EAGAIN on a
// polled descriptor means "nothing yet", never end-of-stream. ErrTimeout is
// only returned when no byte of the record arrived; a record cut short by
// the deadline is malformed.
func readFrame(f rawFile, poll bool, deadline time.Time) (sample.Sample, error) {
	var buf [sample.RecordSize]byte
	got := 0
	for got < sample.RecordSize {
		if poll {
			timeout := time.Duration(-1)
			if !deadline.IsZero() {
				timeout = time.Until(deadline)
				if timeout <= 0 && got > 0 {
					return sample.Sample{}, fmt.Errorf("%w: deadline passed after %d of %d bytes: %w", sample.ErrMalformedRecord, got, sample.RecordSize, io.ErrUnexpectedEOF)
				}
				if timeout <= 0 {
					return sample.Sample{}, ErrTimeout
				}
			}
			ready, err := f.wait(timeout)
			if err != nil {
				return sample.Sample{}, fmt.Errorf("poll: %w", err)
			}
			if !ready {
				continue
			}
		}

		n, err := f.read(buf[got:])
		switch {
		case poll && errors.Is(err, unix.EAGAIN):
			continue
		case err != nil:
			return sample.Sample{}, fmt.Errorf("read: %w", err)
		case n == 0 && got > 0:
			return sample.Sample{}, fmt.Errorf("%w after %d of %d bytes: %w", ErrStreamClosed, got, sample.RecordSize, io.ErrUnexpectedEOF)
		case n == 0:
			return sample.Sample{}, ErrStreamClosed
		}
		got += n
	}
	return sample.Decode(buf[:])
}
