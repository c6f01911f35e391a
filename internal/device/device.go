// Package device reads framed samples from the simtemp character device.
//
// Reads always return whole records. A blocking handle suspends in read(2);
// a non-blocking handle waits for readiness with poll(2) so that a bounded
// wait never busy-loops.
package device

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/luki/simtemp/internal/sample"
)

var (
	// ErrStreamClosed means the device reported end-of-file.
	ErrStreamClosed = errors.New("device stream closed")
	// ErrTimeout means no byte of the next record arrived within the wait
	// window.
	ErrTimeout = errors.New("timed out waiting for sample")
	// ErrBlockingHandle is returned by ReadOneWithTimeout on a blocking handle.
	ErrBlockingHandle = errors.New("timed read requires a non-blocking handle")
	// ErrClosed is returned when reading from a closed handle.
	ErrClosed = errors.New("device handle closed")
)

// Source opens handles on a sample stream.
type Source interface {
	Open(path string, blocking bool) (Handle, error)
}

// Handle yields decoded samples from an open stream.
type Handle interface {
	// ReadOne waits without bound for the next full record.
	ReadOne() (sample.Sample, error)
	// ReadOneWithTimeout waits at most d for the next full record and
	// returns ErrTimeout when the window elapses.
	ReadOneWithTimeout(d time.Duration) (sample.Sample, error)
	// Close releases the handle, waiting for an in-flight read to return
	// first. Calling it again is a no-op.
	Close() error
}

// Char opens character devices (or any readable file) by path.
type Char struct{}

// Open opens path read-only, adding O_NONBLOCK when blocking is false.
func (Char) Open(path string, blocking bool) (Handle, error) {
	flags := unix.O_RDONLY | unix.O_CLOEXEC
	if !blocking {
		flags |= unix.O_NONBLOCK
	}
	for {
		fd, err := unix.Open(path, flags, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return &charHandle{fd: fd, path: path, blocking: blocking}, nil
	}
}

// charHandle owns fd. mu is held for the whole of a read so the descriptor
// cannot be closed (and its number reused) underneath it.
type charHandle struct {
	mu       sync.Mutex
	fd       int
	path     string
	blocking bool
	closed   bool
}

func (h *charHandle) ReadOne() (sample.Sample, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return sample.Sample{}, ErrClosed
	}
	return readFrame(h, !h.blocking, time.Time{})
}

func (h *charHandle) ReadOneWithTimeout(d time.Duration) (sample.Sample, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return sample.Sample{}, ErrClosed
	}
	if h.blocking {
		return sample.Sample{}, ErrBlockingHandle
	}
	return readFrame(h, true, time.Now().Add(d))
}

func (h *charHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if err := unix.Close(h.fd); err != nil {
		return fmt.Errorf("close %s: %w", h.path, err)
	}
	return nil
}

func (h *charHandle) read(p []byte) (int, error) {
	for {
		n, err := unix.Read(h.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

// wait blocks in poll(2) until the descriptor is readable, hung up, or the
// timeout elapses. A negative timeout waits forever. Interrupted polls report
// not-ready so the caller re-checks its deadline.
func (h *charHandle) wait(timeout time.Duration) (bool, error) {
	ms := -1
	if timeout >= 0 {
		// Round up so the wait never ends before the window does.
		ms = int((timeout + time.Millisecond - 1) / time.Millisecond)
	}
	fds := []unix.PollFd{{Fd: int32(h.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, ms)
	if err == unix.EINTR {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if fds[0].Revents&unix.POLLNVAL != 0 {
		return false, fmt.Errorf("poll %s: invalid descriptor", h.path)
	}
	return fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0, nil
}
