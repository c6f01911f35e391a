// Package chart renders the live view's sparkline, timeline and threshold
// scale, colour-coded against the device's alert threshold.
package chart

import (
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/simtemp/internal/history"
	"github.com/luki/simtemp/internal/sample"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

var (
	colorOk    = lipgloss.Color("78")
	colorWarm  = lipgloss.Color("220")
	colorAlert = lipgloss.Color("196")
	colorDim   = lipgloss.Color("236")
	colorTick  = lipgloss.Color("239")
)

// Threshold is the device's alert threshold in Celsius, if known.
type Threshold struct {
	Celsius float64
	Known   bool
}

// ThresholdFromMilliC builds a Threshold from the threshold_mC attribute.
func ThresholdFromMilliC(mC int64) Threshold {
	return Threshold{Celsius: float64(mC) / 1000.0, Known: true}
}

// TempColor picks a colour for v. Samples the device flagged always render
// as alerts; otherwise values within one degree of the threshold are warm.
func TempColor(v float64, alert bool, th Threshold) lipgloss.Color {
	switch {
	case alert:
		return colorAlert
	case th.Known && v >= th.Celsius-1:
		return colorWarm
	default:
		return colorOk
	}
}

// RenderSparkline renders points scaled into [rangeMin, rangeMax]. A subtle
// pipe marks each minute boundary; alert samples are drawn bold.
func RenderSparkline(points []history.Point, width int, rangeMin, rangeMax float64, th Threshold) string {
	if width <= 0 {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(colorDim)
	if len(points) == 0 {
		return dim.Render(strings.Repeat("╌", width))
	}
	if len(points) > width {
		points = points[len(points)-width:]
	}

	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder
	sb.WriteString(dim.Render(strings.Repeat("╌", width-len(points))))

	tickStyle := lipgloss.NewStyle().Foreground(colorTick)
	for i, p := range points {
		if minuteTick(points, i) && !p.Alert {
			sb.WriteString(tickStyle.Render("│"))
			continue
		}
		norm := math.Max(0, math.Min(1, (p.Temp-rangeMin)/span))
		idx := int(norm * 7)
		style := lipgloss.NewStyle().Foreground(TempColor(p.Temp, p.Alert, th))
		if p.Alert {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(string(sparkBlocks[idx])))
	}
	return sb.String()
}

func minuteTick(points []history.Point, i int) bool {
	p := points[i]
	if p.Time.IsZero() {
		return false
	}
	if i == 0 || points[i-1].Time.IsZero() {
		return false
	}
	prev := points[i-1].Time
	return !p.Time.Truncate(time.Minute).Equal(prev.Truncate(time.Minute))
}

// RenderTimeline renders HH:MM labels under the minute ticks of the sparkline.
func RenderTimeline(points []history.Point, width int) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}
	if len(points) > width {
		points = points[len(points)-width:]
	}
	padLen := width - len(points)

	line := []rune(strings.Repeat(" ", width))
	lastEnd := -1
	for i, p := range points {
		if !minuteTick(points, i) {
			continue
		}
		label := p.Time.Format("15:04")
		start := max(padLen+i-2, 0)
		end := start + len(label)
		if end > width || start <= lastEnd+1 {
			continue
		}
		copy(line[start:], []rune(label))
		lastEnd = end
	}
	return lipgloss.NewStyle().Foreground(colorTick).Render(string(line))
}

// RenderThresholdScale draws the current value's position on a bar spanning
// [rangeMin, rangeMax], with the threshold marked.
func RenderThresholdScale(current float64, alert bool, rangeMin, rangeMax float64, th Threshold, width int) string {
	if width <= 0 {
		return ""
	}
	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}
	pos := func(v float64) int {
		p := int(float64(width-1) * (v - rangeMin) / span)
		return max(0, min(width-1, p))
	}

	cur := pos(current)
	thPos := -1
	if th.Known {
		thPos = pos(th.Celsius)
	}

	var sb strings.Builder
	for i := 0; i < width; i++ {
		switch i {
		case cur:
			style := lipgloss.NewStyle().Foreground(TempColor(current, alert, th)).Bold(true)
			sb.WriteString(style.Render("◆"))
		case thPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(colorWarm).Render("▪"))
		default:
			sb.WriteString(lipgloss.NewStyle().Foreground(colorDim).Render("·"))
		}
	}
	return sb.String()
}

// RenderTempValue renders a milli-degree reading with colour coding.
func RenderTempValue(s sample.Sample, th Threshold) string {
	style := lipgloss.NewStyle().Foreground(TempColor(s.Celsius(), s.Alert(), th))
	if s.Alert() {
		style = style.Bold(true)
	}
	return style.Render(sample.FormatMilliC(s.TempMilliC) + "°C")
}
