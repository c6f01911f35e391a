package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/luki/simtemp/internal/config"
	"github.com/luki/simtemp/internal/configure"
	"github.com/luki/simtemp/internal/sysfs"
)

// options holds the parsed command line.
type options struct {
	configPath string
	dev        string
	sysfsBase  string
	logLevel   string
	logFormat  string
	metrics    string

	nonblock  bool
	count     int
	timeoutMs int

	samplingMs  optInt
	thresholdMC optInt
	mode        string

	test      bool
	showSysfs bool
	live      bool
}

// optInt is an int flag that remembers whether it was given.
type optInt struct {
	v   int
	set bool
}

func (o *optInt) String() string {
	if !o.set {
		return ""
	}
	return strconv.Itoa(o.v)
}

func (o *optInt) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not an integer: %q", s)
	}
	o.v, o.set = v, true
	return nil
}

func (o *optInt) ptr() *int {
	if !o.set {
		return nil
	}
	v := o.v
	return &v
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("simtemp", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.configPath, "config", "", "YAML settings file (env: "+config.PathEnv+")")
	fs.StringVar(&o.dev, "dev", "", "device path (default: /dev/simtemp, env: SIMTEMP_DEV)")
	fs.StringVar(&o.sysfsBase, "sysfs", "", "sysfs attribute directory; discovered when empty (env: SIMTEMP_SYSFS)")
	fs.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&o.logFormat, "log-format", "", "log format: console, json")
	fs.StringVar(&o.metrics, "metrics-addr", "", "serve Prometheus metrics on this address")

	fs.BoolVar(&o.nonblock, "nonblock", false, "open device non-blocking")
	fs.IntVar(&o.count, "count", 0, "number of samples to print (0 = infinite)")
	fs.IntVar(&o.timeoutMs, "timeout-ms", 0, "poll timeout in ms for --nonblock (0 = none)")

	fs.Var(&o.samplingMs, "sampling-ms", "set sampling period (ms) via sysfs")
	fs.Var(&o.thresholdMC, "threshold-mC", "set threshold (milli-degrees C) via sysfs")
	fs.StringVar(&o.mode, "mode", "", "set mode via sysfs: "+sysfs.ModeNames())

	fs.BoolVar(&o.test, "test", false, "run automated alert test (exit non-zero on failure)")
	fs.BoolVar(&o.showSysfs, "show-sysfs", false, "print sysfs attributes and exit")
	fs.BoolVar(&o.live, "live", false, "show a live dashboard instead of plain lines")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if o.count < 0 {
		return nil, errors.New("--count must not be negative")
	}
	if o.timeoutMs < 0 {
		return nil, errors.New("--timeout-ms must not be negative")
	}
	if o.mode != "" {
		if _, err := sysfs.ParseMode(o.mode); err != nil {
			return nil, err
		}
	}
	if o.configPath == "" {
		o.configPath = config.PathFromEnv()
	}
	return o, nil
}

// desired converts the configuration flags into an apply request.
func (o *options) desired() configure.Desired {
	d := configure.Desired{
		SamplingMs:  o.samplingMs.ptr(),
		ThresholdMC: o.thresholdMC.ptr(),
	}
	if o.mode != "" {
		m := sysfs.Mode(o.mode)
		d.Mode = &m
	}
	return d
}

// override applies explicitly given flags on top of loaded settings.
func (o *options) override(cfg *config.Config) error {
	if o.dev != "" {
		cfg.Device.Path = o.dev
	}
	if o.sysfsBase != "" {
		cfg.Device.SysfsBase = o.sysfsBase
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if o.metrics != "" {
		cfg.Metrics.Addr = o.metrics
	}
	return cfg.Validate()
}

func (o *options) timeout() time.Duration {
	return time.Duration(o.timeoutMs) * time.Millisecond
}
