package sample

// Event is the outcome of one sample/search cycle as seen by a Guardrail.
type Event int

const (
	EventSuccess Event = iota
	EventFailure
	EventResample
)

func (e Event) String() string {
	switch e {
	case EventSuccess:
		return "success"
	case EventFailure:
		return "failure"
	case EventResample:
		return "resample"
	default:
		return "unknown"
	}
}

// GuardrailConfig configures relaxation.
type GuardrailConfig struct {
	// MaxConsecutiveFailures is the failure count that triggers relaxation (default: 5).
	MaxConsecutiveFailures int

	// MaxConsecutiveResamples is the resample count that triggers relaxation (default: 20).
	MaxConsecutiveResamples int

	// RelaxCycles is how many attempts a trigger keeps relaxed (default: 10).
	RelaxCycles int

	// RelaxedMinDistanceFactor scales the minimum separation while relaxed (default: 0.5).
	RelaxedMinDistanceFactor float64
}

// DefaultGuardrailConfig returns the defaults listed on GuardrailConfig.
func DefaultGuardrailConfig() GuardrailConfig {
	return GuardrailConfig{
		MaxConsecutiveFailures:   5,
		MaxConsecutiveResamples:  20,
		RelaxCycles:              10,
		RelaxedMinDistanceFactor: 0.5,
	}
}

// GuardrailStatus is a copy of the counters for display.
type GuardrailStatus struct {
	Failures             int  `json:"consecutive_failures"`
	Resamples            int  `json:"consecutive_resamples"`
	RelaxCyclesRemaining int  `json:"relax_cycles_remaining"`
	Triggers             int  `json:"triggers"`
	Relaxed              bool `json:"relaxed"`
}

// Guardrail counts consecutive failures and resamples and opens a window of
// relaxed cycles when either reaches its ceiling, so an over-constrained
// sample/search loop cannot stall.
//
// Not safe for concurrent use.
type Guardrail struct {
	cfg GuardrailConfig

	failures             int
	resamples            int
	relaxCyclesRemaining int
	triggers             int

	onTrigger func(cause Event)
}

// NewGuardrail returns a guardrail with zeroed counters. Non-positive
// ceilings are treated as 1.
func NewGuardrail(cfg GuardrailConfig) *Guardrail {
	cfg.MaxConsecutiveFailures = max(cfg.MaxConsecutiveFailures, 1)
	cfg.MaxConsecutiveResamples = max(cfg.MaxConsecutiveResamples, 1)
	cfg.RelaxCycles = max(cfg.RelaxCycles, 0)
	return &Guardrail{cfg: cfg}
}

// OnTrigger sets a callback run each time relaxation triggers.
func (g *Guardrail) OnTrigger(fn func(cause Event)) { g.onTrigger = fn }

// Observe records one event and reports whether it triggered relaxation.
func (g *Guardrail) Observe(ev Event) (triggered bool) {
	switch ev {
	case EventSuccess:
		g.failures, g.resamples = 0, 0
		return false
	case EventFailure:
		g.failures++
	case EventResample:
		g.resamples++
	default:
		return false
	}

	if g.failures < g.cfg.MaxConsecutiveFailures && g.resamples < g.cfg.MaxConsecutiveResamples {
		return false
	}

	g.failures, g.resamples = 0, 0
	g.relaxCyclesRemaining = max(g.relaxCyclesRemaining, g.cfg.RelaxCycles)
	g.triggers++
	if g.onTrigger != nil {
		g.onTrigger(ev)
	}
	return true
}

// Consume spends one relaxed cycle. It returns false, and changes nothing,
// when no relaxed cycles remain.
func (g *Guardrail) Consume() bool {
	if g.relaxCyclesRemaining <= 0 {
		return false
	}
	g.relaxCyclesRemaining--
	return true
}

// Relaxed reports whether relaxed cycles remain.
func (g *Guardrail) Relaxed() bool { return g.relaxCyclesRemaining > 0 }

// MinDistance returns base, loosened by the relaxed factor while relaxed.
func (g *Guardrail) MinDistance(base float64) float64 {
	if !g.Relaxed() {
		return base
	}
	return base * g.cfg.RelaxedMinDistanceFactor
}

func (g *Guardrail) Failures() int             { return g.failures }
func (g *Guardrail) Resamples() int            { return g.resamples }
func (g *Guardrail) RelaxCyclesRemaining() int { return g.relaxCyclesRemaining }
func (g *Guardrail) Triggers() int             { return g.triggers }

// Status returns a snapshot of the counters.
func (g *Guardrail) Status() GuardrailStatus {
	return GuardrailStatus{
		Failures:             g.failures,
		Resamples:            g.resamples,
		RelaxCyclesRemaining: g.relaxCyclesRemaining,
		Triggers:             g.triggers,
		Relaxed:              g.Relaxed(),
	}
}
