// Package sysfs reads and writes the simtemp driver's configuration
// attributes. A Store is bound to one resolved base directory; discovery of
// that directory happens once, up front, via Discover.
package sysfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Attribute names exposed by the driver.
const (
	SamplingMs  = "sampling_ms"
	ThresholdMC = "threshold_mC"
	ModeAttr    = "mode"
	Stats       = "stats"
)

// Known lists every attribute in display order.
var Known = []string{SamplingMs, ThresholdMC, ModeAttr, Stats}

var (
	// ErrUnavailable means the attribute directory could not be resolved.
	ErrUnavailable = errors.New("simtemp sysfs base not found")
	// ErrWriteFailed matches every *WriteError via errors.Is.
	ErrWriteFailed = errors.New("attribute write failed")
)

// WriteError reports a rejected write of a single attribute.
type WriteError struct {
	Name string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to set %s: %v", e.Name, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrWriteFailed) hold for any *WriteError.
func (e *WriteError) Is(target error) bool { return target == ErrWriteFailed }

// Store is the capability the rest of the client needs from the driver's
// attribute surface.
type Store interface {
	// Read returns the trimmed attribute text, or false if it is missing or
	// unreadable.
	Read(name string) (string, bool)
	// Write stores the canonical text form of value.
	Write(name string, value any) error
}

// Dir is a Store backed by a sysfs-style directory of attribute files.
type Dir struct {
	base string
}

// Open binds a Dir to base, which must be an existing directory.
func Open(base string) (*Dir, error) {
	if base == "" {
		return nil, ErrUnavailable
	}
	info, err := os.Stat(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrUnavailable, base)
	}
	return &Dir{base: base}, nil
}

// Base returns the directory the store is bound to.
func (d *Dir) Base() string {
	return d.base
}

func (d *Dir) Read(name string) (string, bool) {
	b, err := os.ReadFile(filepath.Join(d.base, name))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(b)), true
}

func (d *Dir) Write(name string, value any) error {
	if name == Stats {
		return &WriteError{Name: name, Err: errors.New("attribute is read-only")}
	}
	text, err := Canonical(value)
	if err != nil {
		return &WriteError{Name: name, Err: err}
	}

	// Attribute files are never created; a missing file is a rejected write.
	f, err := os.OpenFile(filepath.Join(d.base, name), os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return &WriteError{Name: name, Err: err}
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return &WriteError{Name: name, Err: err}
	}
	if err := f.Close(); err != nil {
		return &WriteError{Name: name, Err: err}
	}
	return nil
}

// Canonical converts an attribute value to the text the driver expects.
func Canonical(value any) (string, error) {
	switch v := value.(type) {
	case Mode:
		if !v.Valid() {
			return "", fmt.Errorf("invalid mode %q", string(v))
		}
		return string(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("unsupported attribute value %T", value)
	}
}

// Discover resolves the attribute directory from a glob pattern such as
// /sys/class/misc/simtemp*. An entry whose basename equals preferred wins;
// otherwise the first match is used.
func Discover(pattern, preferred string) (string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("bad sysfs pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", ErrUnavailable
	}
	for _, m := range matches {
		if filepath.Base(m) == preferred {
			return m, nil
		}
	}
	return matches[0], nil
}

// Entry is one attribute as shown by Snapshot.
type Entry struct {
	Name    string
	Value   string
	Present bool
}

// Snapshot reads every known attribute in display order.
func Snapshot(s Store) []Entry {
	entries := make([]Entry, 0, len(Known))
	for _, name := range Known {
		v, ok := s.Read(name)
		entries = append(entries, Entry{Name: name, Value: v, Present: ok})
	}
	return entries
}

func (e Entry) String() string {
	if !e.Present {
		return e.Name + ": None"
	}
	return e.Name + ": " + e.Value
}
