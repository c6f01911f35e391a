// Package history keeps a bounded, in-memory window of recent samples for the
// live view. Nothing here is persisted.
package history

import (
	"math"
	"time"

	"github.com/luki/simtemp/internal/sample"
)

// Point is one sample as plotted by the live view.
type Point struct {
	Temp  float64 // Celsius
	Time  time.Time
	Alert bool
}

// Buffer is a fixed-capacity window of the most recent points together with
// running statistics over everything pushed since creation.
type Buffer struct {
	Points []Point
	Max    int // capacity
	Min    float64
	Peak   float64
	Alerts int
	Total  int
}

// NewBuffer creates a buffer holding up to capacity points.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		Points: make([]Point, 0, capacity),
		Max:    capacity,
		Min:    math.MaxFloat64,
		Peak:   -math.MaxFloat64,
	}
}

// Push records a decoded sample.
func (b *Buffer) Push(s sample.Sample) {
	p := Point{Temp: s.Celsius(), Time: s.Time(), Alert: s.Alert()}
	if len(b.Points) >= b.Max {
		copy(b.Points, b.Points[1:])
		b.Points[len(b.Points)-1] = p
	} else {
		b.Points = append(b.Points, p)
	}

	b.Total++
	if p.Alert {
		b.Alerts++
	}
	if p.Temp < b.Min {
		b.Min = p.Temp
	}
	if p.Temp > b.Peak {
		b.Peak = p.Temp
	}
}

// Empty reports whether nothing has been pushed.
func (b *Buffer) Empty() bool {
	return len(b.Points) == 0
}

// Last returns the most recent point.
func (b *Buffer) Last() (Point, bool) {
	if len(b.Points) == 0 {
		return Point{}, false
	}
	return b.Points[len(b.Points)-1], true
}

// Avg returns the mean temperature of the points in the window.
func (b *Buffer) Avg() float64 {
	if len(b.Points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range b.Points {
		sum += p.Temp
	}
	return sum / float64(len(b.Points))
}

// LastN returns a copy of the last n points.
func (b *Buffer) LastN(n int) []Point {
	if n <= 0 || len(b.Points) == 0 {
		return nil
	}
	start := len(b.Points) - n
	if start < 0 {
		start = 0
	}
	out := make([]Point, len(b.Points[start:]))
	copy(out, b.Points[start:])
	return out
}
