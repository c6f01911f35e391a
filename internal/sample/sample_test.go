package sample

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLayout(t *testing.T) {
	raw := []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, // timestamp
		0x0c, 0xfe, 0xff, 0xff, // -500
		0x03, 0x00, 0x00, 0x00, // new | alert
	}

	s, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0807060504030201), s.TimestampNs)
	assert.Equal(t, int32(-500), s.TempMilliC)
	assert.Equal(t, uint32(3), s.Flags)
	assert.True(t, s.Alert())
	assert.True(t, s.IsNew())
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 8, 15, 17, 32} {
		_, err := Decode(make([]byte, n))
		if !errors.Is(err, ErrMalformedRecord) {
			t.Errorf("Decode(%d bytes): got %v, want ErrMalformedRecord", n, err)
		}
	}
}

func TestDecodeDoesNotTouchBuffer(t *testing.T) {
	raw := Encode(Sample{TimestampNs: 42, TempMilliC: 24500, Flags: FlagNewSample})
	before := bytes.Clone(raw)

	_, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, before, raw)
}

func TestRoundTrip(t *testing.T) {
	samples := []Sample{
		{},
		{TimestampNs: 1709294400123000000, TempMilliC: 24500, Flags: FlagNewSample},
		{TimestampNs: math.MaxUint64, TempMilliC: math.MinInt32, Flags: math.MaxUint32},
		{TimestampNs: 1, TempMilliC: math.MaxInt32, Flags: FlagThresholdCrossed},
		{TimestampNs: 99, TempMilliC: -1, Flags: 0},
	}
	for _, s := range samples {
		raw := Encode(s)
		require.Len(t, raw, RecordSize)

		got, err := Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestAppendBinary(t *testing.T) {
	prefix := []byte{0xaa}
	out := Sample{TempMilliC: 1}.AppendBinary(prefix)
	assert.Len(t, out, 1+RecordSize)
	assert.Equal(t, byte(0xaa), out[0])
}

func TestFormat(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
	tests := []struct {
		name string
		s    Sample
		want string
	}{
		{
			name: "positive",
			s:    Sample{TimestampNs: uint64(ts.UnixNano()), TempMilliC: 24500, Flags: FlagNewSample},
			want: "2024-03-01T12:00:00.123Z temp=24.500C alert=0",
		},
		{
			name: "negative below one degree",
			s:    Sample{TimestampNs: uint64(ts.UnixNano()), TempMilliC: -500},
			want: "2024-03-01T12:00:00.123Z temp=-0.500C alert=0",
		},
		{
			name: "alert bit only",
			s:    Sample{TimestampNs: uint64(ts.UnixNano()), TempMilliC: 45001, Flags: 0b10},
			want: "2024-03-01T12:00:00.123Z temp=45.001C alert=1",
		},
		{
			name: "epoch",
			s:    Sample{},
			want: "1970-01-01T00:00:00.000Z temp=0.000C alert=0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.s))
			assert.Equal(t, tt.want, tt.s.String())
		})
	}
}

func TestFormatMilliC(t *testing.T) {
	tests := []struct {
		in   int32
		want string
	}{
		{24500, "24.500"},
		{-500, "-0.500"},
		{0, "0.000"},
		{7, "0.007"},
		{-12345, "-12.345"},
		{math.MinInt32, "-2147483.648"},
	}
	for _, tt := range tests {
		if got := FormatMilliC(tt.in); got != tt.want {
			t.Errorf("FormatMilliC(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAlertBitMapping(t *testing.T) {
	assert.True(t, Sample{Flags: 0b10}.Alert())
	assert.False(t, Sample{Flags: 0b01}.Alert())
	assert.Contains(t, Format(Sample{Flags: 0b10}), "alert=1")
	assert.Contains(t, Format(Sample{Flags: 0b01}), "alert=0")
}

func TestCelsius(t *testing.T) {
	assert.InDelta(t, 24.5, Sample{TempMilliC: 24500}.Celsius(), 1e-9)
}
