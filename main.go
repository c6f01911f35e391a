// Command simtemp is a diagnostic client for the simtemp simulated
// temperature sensor. It prints samples from /dev/simtemp, reconfigures the
// driver through sysfs, and runs an automated test that provokes an alert.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/luki/simtemp/internal/config"
	"github.com/luki/simtemp/internal/configure"
	"github.com/luki/simtemp/internal/device"
	"github.com/luki/simtemp/internal/logging"
	"github.com/luki/simtemp/internal/metrics"
	"github.com/luki/simtemp/internal/monitor"
	"github.com/luki/simtemp/internal/probe"
	"github.com/luki/simtemp/internal/sysfs"
)

// Exit codes. Each failure cause gets its own code so scripts can tell them apart.
const (
	exitOK            = 0
	exitFailure       = 1
	exitStoreNotFound = 2
	exitWriteFailed   = 3
	exitProbeConfig   = 4
	exitBaselineRead  = 5
	exitProbeFailed   = 10
)

const preferredSysfsName = "simtemp"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app carries the resolved settings and collaborators for one invocation.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	source  device.Source
	stdout  io.Writer
	stderr  io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "simtemp: %v\n", err)
		return exitFailure
	}

	cfg, err := config.Load(opts.configPath)
	if err == nil {
		err = opts.override(cfg)
	}
	if err != nil {
		fmt.Fprintf(stderr, "simtemp: %v\n", err)
		return exitFailure
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(stderr, "simtemp: %v\n", err)
		return exitFailure
	}
	defer log.Sync()

	reg := prometheus.NewRegistry()
	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(reg),
		source:  device.Char{},
		stdout:  stdout,
		stderr:  stderr,
	}
	if cfg.Metrics.Addr != "" {
		stopMetrics := a.serveMetrics(reg)
		defer stopMetrics()
	}

	if opts.showSysfs {
		return a.showSysfs()
	}
	if d := opts.desired(); !d.Empty() {
		if code := a.configure(d); code != exitOK {
			return code
		}
	}
	if opts.test {
		return a.probe(ctx)
	}
	if opts.live {
		return a.live(ctx)
	}
	return a.monitor(ctx, opts)
}

// openStore resolves the attribute directory once for the whole invocation.
func (a *app) openStore() (*sysfs.Dir, error) {
	base := a.cfg.Device.SysfsBase
	if base == "" {
		var err error
		base, err = sysfs.Discover(a.cfg.Device.SysfsGlob, preferredSysfsName)
		if err != nil {
			return nil, err
		}
	}
	a.log.Debug("using sysfs base", zap.String("base", base))
	return sysfs.Open(base)
}

func (a *app) storeNotFound(err error) int {
	a.log.Debug("sysfs lookup failed", zap.Error(err))
	fmt.Fprintln(a.stderr, "simtemp sysfs not found; ensure module is loaded")
	return exitStoreNotFound
}

func (a *app) showSysfs() int {
	store, err := a.openStore()
	if err != nil {
		fmt.Fprintln(a.stdout, "sysfs base not found")
		return exitStoreNotFound
	}
	for _, e := range sysfs.Snapshot(store) {
		fmt.Fprintln(a.stdout, e)
	}
	return exitOK
}

func (a *app) configure(d configure.Desired) int {
	store, err := a.openStore()
	if err != nil {
		return a.storeNotFound(err)
	}
	report, err := configure.Apply(store, d)
	for _, res := range report {
		if res.Applied() {
			fmt.Fprintln(a.stdout, res)
		} else {
			fmt.Fprintln(a.stderr, res)
		}
	}
	if err != nil {
		return exitWriteFailed
	}
	return exitOK
}

func (a *app) probe(ctx context.Context) int {
	store, err := a.openStore()
	if err != nil {
		return a.storeNotFound(err)
	}

	p := &probe.Probe{
		Source:         a.source,
		Store:          store,
		DevicePath:     a.cfg.Device.Path,
		FallbackPeriod: a.cfg.Probe.FallbackPeriod,
		Logger:         a.log,
		Metrics:        a.metrics,
	}
	fmt.Fprintf(a.stdout, "reading baseline sample from %s...\n", a.cfg.Device.Path)
	res := p.Run(ctx)

	switch res.Outcome {
	case probe.Success:
		fmt.Fprintln(a.stdout, res.Summary())
		return exitOK
	case probe.BaselineReadError:
		fmt.Fprintln(a.stderr, res.Summary())
		return exitBaselineRead
	case probe.ConfigurationError:
		fmt.Fprintln(a.stderr, res.Summary())
		return exitProbeConfig
	}

	fmt.Fprintf(a.stdout, "baseline temp %d mC, threshold set to %d mC, waited up to %d ms\n",
		res.Baseline.TempMilliC, res.Threshold, res.Window.Milliseconds())
	if res.Outcome == probe.StreamError {
		fmt.Fprintln(a.stderr, res.Summary())
	} else {
		fmt.Fprintln(a.stdout, res.Summary())
	}
	fmt.Fprintf(a.stdout, "TEST: FAILED (%s)\n", res.Outcome)
	return exitProbeFailed
}

func (a *app) monitor(ctx context.Context, opts *options) int {
	s := &monitor.Streamer{
		Source:      a.source,
		Logger:      a.log,
		Metrics:     a.metrics,
		NonBlocking: opts.nonblock,
		Timeout:     opts.timeout(),
	}
	err := s.Run(ctx, a.cfg.Device.Path, opts.count, func(line string) {
		fmt.Fprintln(a.stdout, line)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(a.stderr, "simtemp: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func (a *app) live(ctx context.Context) int {
	var store sysfs.Store
	if dir, err := a.openStore(); err == nil {
		store = dir
	} else {
		a.log.Warn("sysfs unavailable, dashboard shows samples only", zap.Error(err))
	}
	if err := monitor.RunLive(ctx, a.source, store, a.cfg.Device.Path, a.metrics); err != nil {
		fmt.Fprintf(a.stderr, "simtemp: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func (a *app) serveMetrics(reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", zap.Error(err))
		}
	}()
	a.log.Info("serving metrics", zap.String("addr", a.cfg.Metrics.Addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
