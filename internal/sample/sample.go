// Package sample decodes the fixed-size binary records produced by the
// simtemp character device and renders them as operator-facing lines.
package sample

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// RecordSize is the size in bytes of one packed device record:
//
//	u64 timestamp_ns | s32 temp_mC | u32 flags   (little-endian)
const RecordSize = 16

// Flag bits carried in Sample.Flags.
const (
	FlagNewSample        uint32 = 1 << 0
	FlagThresholdCrossed uint32 = 1 << 1
)

// ErrMalformedRecord is returned when a buffer is not exactly RecordSize long.
var ErrMalformedRecord = errors.New("malformed sample record")

// Sample is one decoded device reading.
type Sample struct {
	TimestampNs uint64 // ns since the UNIX epoch
	TempMilliC  int32  // milli-degrees Celsius
	Flags       uint32
}

// Decode interprets b as a single device record.
func Decode(b []byte) (Sample, error) {
	if len(b) != RecordSize {
		return Sample{}, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedRecord, len(b), RecordSize)
	}
	return Sample{
		TimestampNs: binary.LittleEndian.Uint64(b[0:8]),
		TempMilliC:  int32(binary.LittleEndian.Uint32(b[8:12])),
		Flags:       binary.LittleEndian.Uint32(b[12:16]),
	}, nil
}

// Encode returns the RecordSize-byte wire form of s.
func Encode(s Sample) []byte {
	return s.AppendBinary(make([]byte, 0, RecordSize))
}

// AppendBinary appends the wire form of s to dst.
func (s Sample) AppendBinary(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, s.TimestampNs)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(s.TempMilliC))
	return binary.LittleEndian.AppendUint32(dst, s.Flags)
}

// Alert reports whether the device flagged a threshold crossing.
func (s Sample) Alert() bool {
	return s.Flags&FlagThresholdCrossed != 0
}

// IsNew reports whether the new-sample bit is set.
func (s Sample) IsNew() bool {
	return s.Flags&FlagNewSample != 0
}

// Time converts the device timestamp to a UTC time.Time.
func (s Sample) Time() time.Time {
	return time.Unix(int64(s.TimestampNs/uint64(time.Second)), int64(s.TimestampNs%uint64(time.Second))).UTC()
}

// Celsius returns the temperature in degrees Celsius.
func (s Sample) Celsius() float64 {
	return float64(s.TempMilliC) / 1000.0
}

func (s Sample) String() string {
	return Format(s)
}
