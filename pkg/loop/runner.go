// Package loop drives the endless sample -> search -> guardrail cycle behind
// the visualizer. A Runner advances in ticks so a render loop can interleave
// a bounded amount of search work with drawing.
package loop

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"roadloop/pkg/geo"
	"roadloop/pkg/graph"
	"roadloop/pkg/metrics"
	"roadloop/pkg/routing"
	"roadloop/pkg/sample"
)

// ErrEmptyGraph is returned by Run when the graph has no nodes to sample.
var ErrEmptyGraph = errors.New("loop: graph has no nodes")

// Config configures a Runner.
type Config struct {
	MinDistance float64 // meters between sampled endpoints
	MaxTries    int     // draws per sampling
	MaxSteps    int     // search budget; <= 0 means unlimited
	Region      *geo.Bound
	Guardrail   sample.GuardrailConfig
}

// Counters are running totals since the Runner was created.
type Counters struct {
	Found     int
	Failed    int // no path, step budget, invalid endpoints or discarded
	Discarded int // found paths that left the region
	Resampled int
}

// Frame is what one Tick produced.
type Frame struct {
	Cycle     int  // sampled pairs so far, including the current one
	Active    bool // a search was running during this tick
	Relaxed   bool // the current pair was sampled under relaxation
	Finished  bool // the current search reached a terminal state this tick
	Snapshot  routing.Snapshot[int]
	Outcome   sample.Outcome[int]
	Events    []sample.Event
	Guardrail sample.GuardrailStatus
	Counters  Counters
}

// Runner owns the loop state. Not safe for concurrent use.
type Runner struct {
	g      *graph.Graph
	space  *routing.RoadSpace
	src    sample.RandomSource
	keys   sample.KeyGenerator[int]
	cfg    Config
	guard  *sample.Guardrail
	logger *log.Logger

	search   *routing.Search[int]
	outcome  sample.Outcome[int]
	relaxed  bool
	last     routing.Snapshot[int]
	cycle    int
	counters Counters
}

// NewRunner creates a runner over g. g must not change afterwards.
func NewRunner(g *graph.Graph, src sample.RandomSource, cfg Config, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	r := &Runner{
		g:      g,
		space:  routing.NewRoadSpace(g),
		src:    src,
		keys:   sample.NodeKeys(g.NumNodes()),
		cfg:    cfg,
		guard:  sample.NewGuardrail(cfg.Guardrail),
		logger: logger,
	}
	r.guard.OnTrigger(func(cause sample.Event) {
		metrics.GuardrailTriggers.Inc()
		r.logger.Warn("guardrail relaxing constraints", "cause", cause, "cycles", r.guard.RelaxCyclesRemaining())
	})
	return r
}

// Graph returns the graph being searched.
func (r *Runner) Graph() *graph.Graph { return r.g }

// Guardrail exposes the runner's guardrail.
func (r *Runner) Guardrail() *sample.Guardrail { return r.guard }

// Tick advances the loop by up to steps search steps. Without an active
// search it first samples a new pair; a pair that misses the minimum
// separation outside a relaxed window is rejected and the tick ends. An empty
// graph yields idle frames.
func (r *Runner) Tick(steps int) Frame {
	var events []sample.Event

	if r.g.NumNodes() == 0 {
		return r.frame(false, false, nil)
	}

	if r.search == nil {
		if ev, ok := r.startCycle(); ok {
			events = append(events, ev)
		}
		if r.search == nil {
			return r.frame(false, false, events)
		}
	}

	finished := false
	for range max(steps, 1) {
		snap := r.search.Step()
		r.last = snap
		if snap.Status.Terminal() {
			events = append(events, r.finishCycle(snap))
			finished = true
			break
		}
	}
	return r.frame(true, finished, events)
}

// Run ticks until cycles searches have finished or ctx is done. onFrame, if
// set, sees every frame.
func (r *Runner) Run(ctx context.Context, cycles, steps int, onFrame func(Frame)) error {
	if cycles > 0 && r.g.NumNodes() == 0 {
		return ErrEmptyGraph
	}
	done := 0
	for done < cycles {
		if err := ctx.Err(); err != nil {
			return err
		}
		f := r.Tick(steps)
		if onFrame != nil {
			onFrame(f)
		}
		if f.Finished {
			done++
		}
	}
	return nil
}

// startCycle samples a pair and starts its search, or records a resample.
func (r *Runner) startCycle() (sample.Event, bool) {
	relaxed := r.guard.Relaxed()
	minDist := r.guard.MinDistance(r.cfg.MinDistance)
	if relaxed {
		r.guard.Consume()
	}

	out := sample.Draw[int](r.src, r.keys, r.g.Position, geo.PointDistance, minDist, r.cfg.MaxTries)
	metrics.ObserveSample(out.MinDistanceMet, out.Tries)

	if !out.MinDistanceMet && !relaxed {
		r.counters.Resampled++
		r.observe(sample.EventResample)
		r.logger.Debug("pair too close, resampling", "best", out.Distance, "min", minDist, "tries", out.Tries)
		return sample.EventResample, true
	}

	r.cycle++
	r.outcome = out
	r.relaxed = relaxed
	r.search = routing.NewSearch(out.Start, out.Goal, routing.Space[int](r.space), routing.WithMaxSteps[int](r.cfg.MaxSteps))
	r.last = routing.Snapshot[int]{}
	r.logger.Debug("searching", "cycle", r.cycle, "start", out.Start, "goal", out.Goal,
		"distance", int(out.Distance), "relaxed", relaxed)
	return 0, false
}

// finishCycle classifies a terminal snapshot and feeds the guardrail.
func (r *Runner) finishCycle(snap routing.Snapshot[int]) sample.Event {
	r.search = nil
	metrics.ObserveSearch(snap.Status.String(), snap.Steps)

	ev := sample.EventFailure
	switch {
	case snap.Status != routing.Found:
		r.counters.Failed++
	case !r.relaxed && r.leavesRegion(snap.Path):
		r.counters.Failed++
		r.counters.Discarded++
		r.logger.Debug("path leaves region, discarded", "cycle", r.cycle)
	default:
		r.counters.Found++
		ev = sample.EventSuccess
	}

	r.observe(ev)
	r.logger.Info("cycle done", "cycle", r.cycle, "status", snap.Status, "steps", snap.Steps,
		"meters", int(snap.Cost), "event", ev)
	return ev
}

func (r *Runner) observe(ev sample.Event) {
	metrics.GuardrailEvents.WithLabelValues(ev.String()).Inc()
	r.guard.Observe(ev)
}

func (r *Runner) leavesRegion(path []int) bool {
	if r.cfg.Region == nil {
		return false
	}
	for i, u := range path {
		if !r.cfg.Region.Contains(r.g.Position(u)) {
			return true
		}
		if i == 0 {
			continue
		}
		// Shortcut geometry counts as part of the path.
		if e, ok := r.g.Edge(path[i-1], u); ok {
			for _, pt := range e.Via {
				if !r.cfg.Region.Contains(pt) {
					return true
				}
			}
		}
	}
	return false
}

func (r *Runner) frame(active, finished bool, events []sample.Event) Frame {
	return Frame{
		Cycle:     r.cycle,
		Active:    active,
		Relaxed:   r.relaxed,
		Finished:  finished,
		Snapshot:  r.last,
		Outcome:   r.outcome,
		Events:    events,
		Guardrail: r.guard.Status(),
		Counters:  r.counters,
	}
}
