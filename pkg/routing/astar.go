package routing

import (
	"context"
	"math"
	"slices"
)

// Status is the state of a Search.
type Status int

const (
	Searching Status = iota
	Found
	NoPath
	MaxSteps
	InvalidEndpoints
)

func (s Status) String() string {
	switch s {
	case Searching:
		return "searching"
	case Found:
		return "found"
	case NoPath:
		return "no-path"
	case MaxSteps:
		return "max-steps"
	case InvalidEndpoints:
		return "invalid-endpoints"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further progress is possible.
func (s Status) Terminal() bool { return s != Searching }

// Space is a searchable graph. Cost must be non-negative; an infinite or NaN
// cost means the move is not available. Heuristic must not overestimate the
// remaining cost for the search to return optimal paths.
type Space[K comparable] interface {
	Neighbors(k K) []K
	Cost(from, to K) float64
	Heuristic(from, goal K) float64
}

// Validator is implemented by spaces that can reject endpoints.
type Validator[K comparable] interface {
	Valid(k K) bool
}

// SearchOption configures a Search.
type SearchOption[K comparable] func(*Search[K])

// WithMaxSteps caps the number of expansions. n <= 0 means unlimited.
func WithMaxSteps[K comparable](n int) SearchOption[K] {
	return func(s *Search[K]) { s.maxSteps = n }
}

// WithValidator sets the endpoint validity predicate, replacing any provided
// by the space.
func WithValidator[K comparable](valid func(K) bool) SearchOption[K] {
	return func(s *Search[K]) { s.valid = valid }
}

// Snapshot is the observable state of a Search after a Step.
//
// Visited, CameFrom, GScore, FScore and Frontier alias the search's internal
// state. They are read-only and valid until the next Step. A terminal
// snapshot never changes.
type Snapshot[K comparable] struct {
	Status   Status
	Current  K    // last expanded key
	Expanded bool // false until the first expansion
	Frontier []K  // open keys in heap order
	Visited  map[K]struct{}
	CameFrom map[K]K
	GScore   map[K]float64
	FScore   map[K]float64
	Steps    int
	Path     []K     // start..goal inclusive when Status == Found
	Cost     float64 // path cost when Status == Found
}

// Search is an incremental A* search between two keys. Each Step performs at
// most one expansion so callers can spread a search over many frames. A
// Search is single-use and not safe for concurrent use.
type Search[K comparable] struct {
	start, goal K
	space       Space[K]
	valid       func(K) bool
	maxSteps    int

	open     *IndexedHeap[K]
	closed   map[K]struct{}
	cameFrom map[K]K
	g, f     map[K]float64

	started  bool
	steps    int
	current  K
	expanded bool
	terminal *Snapshot[K]
}

// NewSearch prepares a search from start to goal. No work is done until the
// first Step.
func NewSearch[K comparable](start, goal K, space Space[K], opts ...SearchOption[K]) *Search[K] {
	s := &Search[K]{
		start:    start,
		goal:     goal,
		space:    space,
		open:     NewIndexedHeap[K](),
		closed:   make(map[K]struct{}),
		cameFrom: make(map[K]K),
		g:        make(map[K]float64),
		f:        make(map[K]float64),
	}
	if v, ok := space.(Validator[K]); ok {
		s.valid = v.Valid
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Step advances the search by one expansion, or reports the terminal state.
// Once terminal, every later call returns the same snapshot.
func (s *Search[K]) Step() Snapshot[K] {
	if s.terminal != nil {
		return *s.terminal
	}

	if !s.started {
		s.started = true
		if s.valid != nil && (!s.valid(s.start) || !s.valid(s.goal)) {
			return s.finish(InvalidEndpoints, nil)
		}
		s.g[s.start] = 0
		h := s.space.Heuristic(s.start, s.goal)
		s.f[s.start] = h
		s.open.Push(s.start, h)
	}

	if s.open.Len() == 0 {
		return s.finish(NoPath, nil)
	}
	if s.maxSteps > 0 && s.steps >= s.maxSteps {
		return s.finish(MaxSteps, nil)
	}

	cur, _ := s.open.Pop()
	s.steps++
	s.current = cur
	s.expanded = true

	if cur == s.goal {
		return s.finish(Found, s.reconstruct(cur))
	}
	s.closed[cur] = struct{}{}

	gCur := s.g[cur]
	for _, nb := range s.space.Neighbors(cur) {
		if _, done := s.closed[nb]; done {
			continue
		}
		c := s.space.Cost(cur, nb)
		if math.IsNaN(c) || math.IsInf(c, 1) || c < 0 {
			continue
		}
		tentative := gCur + c
		if old, seen := s.g[nb]; seen && tentative >= old {
			continue
		}
		s.cameFrom[nb] = cur
		s.g[nb] = tentative
		f := tentative + s.space.Heuristic(nb, s.goal)
		s.f[nb] = f
		s.open.Push(nb, f)
	}

	return s.snapshot(Searching)
}

// Run steps the search until it reaches a terminal state. ctx is checked
// every 100 steps.
func (s *Search[K]) Run(ctx context.Context) (Snapshot[K], error) {
	for i := 1; ; i++ {
		snap := s.Step()
		if snap.Status.Terminal() {
			return snap, nil
		}
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return snap, err
			}
		}
	}
}

// Status returns the current status without stepping.
func (s *Search[K]) Status() Status {
	if s.terminal != nil {
		return s.terminal.Status
	}
	return Searching
}

// Steps returns the number of expansions performed.
func (s *Search[K]) Steps() int { return s.steps }

func (s *Search[K]) snapshot(status Status) Snapshot[K] {
	return Snapshot[K]{
		Status:   status,
		Current:  s.current,
		Expanded: s.expanded,
		Frontier: s.open.Keys(),
		Visited:  s.closed,
		CameFrom: s.cameFrom,
		GScore:   s.g,
		FScore:   s.f,
		Steps:    s.steps,
	}
}

func (s *Search[K]) finish(status Status, path []K) Snapshot[K] {
	snap := s.snapshot(status)
	if status == Found {
		snap.Path = path
		snap.Cost = s.g[s.goal]
	}
	s.terminal = &snap
	return snap
}

func (s *Search[K]) reconstruct(k K) []K {
	path := []K{k}
	for k != s.start {
		k = s.cameFrom[k]
		path = append(path, k)
	}
	slices.Reverse(path)
	return path
}
