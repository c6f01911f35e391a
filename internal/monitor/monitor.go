// Package monitor streams samples from the simtemp device, either as plain
// formatted lines (Streamer) or as a live BubbleTea dashboard (Live) with a
// sparkline, alert colouring and the driver's current configuration.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luki/simtemp/internal/chart"
	"github.com/luki/simtemp/internal/device"
	"github.com/luki/simtemp/internal/history"
	"github.com/luki/simtemp/internal/metrics"
	"github.com/luki/simtemp/internal/sample"
	"github.com/luki/simtemp/internal/sysfs"
)

const (
	readWindow   = 500 * time.Millisecond
	attrInterval = 1 * time.Second
	historySize  = 600
)

// ── Messages ─────────────────────────────────────────────────────────

type tickMsg time.Time

type sampleMsg struct{ s sample.Sample }

type idleMsg struct{}

type streamErrMsg struct{ err error }

func (e streamErrMsg) Error() string { return e.err.Error() }

type attrsMsg struct {
	threshold chart.Threshold
	mode      string
	stats     string
}

// ── Model ────────────────────────────────────────────────────────────

// Live is the BubbleTea model for the dashboard. It reads from a
// non-blocking handle in bounded windows so the UI stays responsive.
type Live struct {
	handle    device.Handle
	store     sysfs.Store
	metrics   *metrics.Metrics
	path      string
	history   *history.Buffer
	latest    sample.Sample
	threshold chart.Threshold
	mode      string
	stats     string
	err       error
	width     int
	height    int
	startTime time.Time
	lastRead  time.Time
	paused    bool
}

// NewLive creates the dashboard model. store may be nil when the attribute
// directory is unavailable; the dashboard then shows samples only.
func NewLive(h device.Handle, store sysfs.Store, path string, m *metrics.Metrics) Live {
	return Live{
		handle:    h,
		store:     store,
		metrics:   m,
		path:      path,
		history:   history.NewBuffer(historySize),
		startTime: time.Now(),
	}
}

// RunLive opens path non-blocking and runs the dashboard until the user quits
// or ctx is cancelled. The handle is closed on every exit path; a read still
// in flight when the program stops finishes (within readWindow) first.
func RunLive(ctx context.Context, src device.Source, store sysfs.Store, path string, m *metrics.Metrics) error {
	h, err := src.Open(path, false)
	if err != nil {
		return err
	}
	defer h.Close()

	p := tea.NewProgram(NewLive(h, store, path, m), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if lm, ok := final.(Live); ok && lm.err != nil && !errors.Is(lm.err, device.ErrStreamClosed) {
		return lm.err
	}
	return nil
}

// ── Commands ─────────────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(attrInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func readCmd(h device.Handle) tea.Cmd {
	return func() tea.Msg {
		s, err := h.ReadOneWithTimeout(readWindow)
		switch {
		case errors.Is(err, device.ErrTimeout):
			return idleMsg{}
		case err != nil:
			return streamErrMsg{err}
		}
		return sampleMsg{s}
	}
}

func readAttrs(store sysfs.Store) tea.Cmd {
	return func() tea.Msg {
		var msg attrsMsg
		if v, ok := store.Read(sysfs.ThresholdMC); ok {
			if mC, err := strconv.ParseInt(v, 10, 64); err == nil {
				msg.threshold = chart.ThresholdFromMilliC(mC)
			}
		}
		msg.mode, _ = store.Read(sysfs.ModeAttr)
		msg.stats, _ = store.Read(sysfs.Stats)
		return msg
	}
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Live) Init() tea.Cmd {
	cmds := []tea.Cmd{readCmd(m.handle), tickCmd()}
	if m.store != nil {
		cmds = append(cmds, readAttrs(m.store))
	}
	return tea.Batch(cmds...)
}

func (m Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.store == nil || m.paused {
			return m, tickCmd()
		}
		return m, tea.Batch(readAttrs(m.store), tickCmd())

	case attrsMsg:
		m.threshold = msg.threshold
		m.mode = msg.mode
		m.stats = msg.stats

	case sampleMsg:
		m.metrics.ObserveSample(msg.s)
		m.lastRead = time.Now()
		if !m.paused {
			m.latest = msg.s
			m.history.Push(msg.s)
		}
		return m, readCmd(m.handle)

	case idleMsg:
		return m, readCmd(m.handle)

	case streamErrMsg:
		m.metrics.ReadError(errorKind(msg.err))
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorCrit     = lipgloss.Color("196")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Live) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := max(m.width-2, 40)

	sections := []string{m.renderTitleBar(contentWidth)}

	if m.err != nil {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Width(contentWidth).
			Padding(0, 1).
			Render(fmt.Sprintf(" STREAM: %v", m.err)))
	}

	if m.history.Empty() {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorDim).
			Width(contentWidth).
			Align(lipgloss.Center).
			Padding(2, 0).
			Render("Waiting for samples from "+m.path+"..."))
	} else {
		sections = append(sections, m.renderPanel(contentWidth))
	}

	sections = append(sections, m.renderFooter(contentWidth))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Live) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("SIMTEMP LIVE")

	dim := lipgloss.NewStyle().Foreground(colorDim)
	statusParts := []string{
		dim.Render(m.path),
		dim.Render("up " + fmtDuration(time.Since(m.startTime))),
	}
	if !m.lastRead.IsZero() {
		statusParts = append(statusParts, dim.Render(m.lastRead.Format("15:04:05")))
	}
	if m.paused {
		statusParts = append(statusParts, lipgloss.NewStyle().Foreground(colorCrit).Bold(true).Render("PAUSED"))
	}

	right := strings.Join(statusParts, dim.Render(" │ "))
	gap := max(width-lipgloss.Width(logo)-lipgloss.Width(right)-4, 1)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m Live) renderPanel(totalWidth int) string {
	chartWidth := min(max(totalWidth-40, 15), 140)

	rangeMin := m.history.Min - 1
	rangeMax := m.history.Peak + 1
	if m.threshold.Known {
		rangeMin = min(rangeMin, m.threshold.Celsius-1)
		rangeMax = max(rangeMax, m.threshold.Celsius+1)
	}

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	labelS := lipgloss.NewStyle().Foreground(colorLabel)
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")

	pts := m.history.LastN(chartWidth)
	temp := lipgloss.NewStyle().Width(12).Align(lipgloss.Right).Render(chart.RenderTempValue(m.latest, m.threshold))
	spark := frameL + chart.RenderSparkline(pts, chartWidth, rangeMin, rangeMax, m.threshold) + frameR

	alertTag := dimS.Render(" alert=0")
	if m.latest.Alert() {
		alertTag = lipgloss.NewStyle().Foreground(colorCrit).Bold(true).Render(" alert=1")
	}

	rows := []string{
		labelS.Render("temperature") + " " + temp + " " + spark + alertTag,
		strings.Repeat(" ", 25) + chart.RenderTimeline(pts, chartWidth),
		dimS.Render("avg ") + valS.Render(fmt.Sprintf("%.3f", m.history.Avg())) +
			dimS.Render("  lo ") + valS.Render(fmt.Sprintf("%.3f", m.history.Min)) +
			dimS.Render("  pk ") + valS.Render(fmt.Sprintf("%.3f", m.history.Peak)) +
			dimS.Render("  alerts ") + valS.Render(fmt.Sprintf("%d/%d", m.history.Alerts, m.history.Total)),
	}

	if m.threshold.Known {
		scale := chart.RenderThresholdScale(m.latest.Celsius(), m.latest.Alert(), rangeMin, rangeMax, m.threshold, chartWidth)
		rows = append(rows, dimS.Render("threshold ")+valS.Render(fmt.Sprintf("%.3f°C", m.threshold.Celsius))+"  "+scale)
	}
	if m.mode != "" {
		rows = append(rows, dimS.Render("mode ")+valS.Render(m.mode))
	}
	if m.stats != "" {
		rows = append(rows, dimS.Render("stats ")+valS.Render(m.stats))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Live) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)
	keys := dimS.Render("q") + keyS.Render(":quit") + dimS.Render("  p") + keyS.Render(":pause")

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(keys)
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	mn := d / time.Minute
	d -= mn * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, mn, s)
	}
	return fmt.Sprintf("%dm%02ds", mn, s)
}
