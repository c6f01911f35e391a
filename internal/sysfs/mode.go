package sysfs

import (
	"fmt"
	"slices"
	"strings"
)

// Mode is the driver's sample generation mode.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeNoisy  Mode = "noisy"
	ModeRamp   Mode = "ramp"
)

// Modes lists the accepted generation modes.
var Modes = []Mode{ModeNormal, ModeNoisy, ModeRamp}

// Valid reports whether m is one of the driver's modes.
func (m Mode) Valid() bool {
	return slices.Contains(Modes, m)
}

func (m Mode) String() string { return string(m) }

// ModeNames joins the accepted modes for help and error text.
func ModeNames() string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// ParseMode validates s as a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("invalid mode %q (want one of %s)", s, ModeNames())
	}
	return m, nil
}
