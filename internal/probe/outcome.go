package probe

// Outcome is the terminal result of one probe run.
type Outcome int

const (
	Success Outcome = iota
	NoAlertFlag
	Timeout
	BaselineReadError
	ConfigurationError
	StreamError
)

var outcomeNames = map[Outcome]string{
	Success:            "success",
	NoAlertFlag:        "no_alert_flag",
	Timeout:            "timeout",
	BaselineReadError:  "baseline_read_error",
	ConfigurationError: "configuration_error",
	StreamError:        "stream_error",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}

// Passed reports whether the device raised its alert.
func (o Outcome) Passed() bool {
	return o == Success
}

// State is a step of the probe state machine.
type State int

const (
	Idle State = iota
	BaselineRead
	Perturb
	Awaiting
	Judged
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case BaselineRead:
		return "baseline_read"
	case Perturb:
		return "perturb"
	case Awaiting:
		return "awaiting"
	case Judged:
		return "judged"
	default:
		return "unknown"
	}
}
