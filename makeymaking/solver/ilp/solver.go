// Copyright 2024 The WachuMakeyMaking Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ilp

import (
	"context"
	"sync"

	log "github.com/golang/glog"
)

const (
	// DefaultMaxIterations caps the simplex pivots of one relaxation.
	DefaultMaxIterations = 1000
	// DefaultTolerance is used for every zero, sign and integrality test.
	DefaultTolerance = 1e-10
)

// Parameters tunes the solver. The zero value of a field selects its default.
type Parameters struct {
	MaxIterations int
	Tolerance     float64
}

// DefaultParameters returns the parameters used when none are given.
func DefaultParameters() *Parameters {
	return &Parameters{MaxIterations: DefaultMaxIterations, Tolerance: DefaultTolerance}
}

func (p *Parameters) orDefault() Parameters {
	out := *DefaultParameters()
	if p == nil {
		return out
	}
	if p.MaxIterations > 0 {
		out.MaxIterations = p.MaxIterations
	}
	if p.Tolerance > 0 {
		out.Tolerance = p.Tolerance
	}
	return out
}

// Solver runs branch-and-bound searches and publishes their progress.
//
// Solves on one Solver are serialized. State, Progress, Reset and
// RegisterProgressListener may be called from any goroutine.
type Solver struct {
	params Parameters

	solveMu sync.Mutex

	mu        sync.Mutex
	listeners []ProgressListener
	state     State
	message   string
	best      *Solution
}

// NewSolver returns an idle solver. A nil params uses DefaultParameters.
func NewSolver(params *Parameters) *Solver {
	return &Solver{params: params.orDefault(), state: StateIdle}
}

// RegisterProgressListener adds a listener notified on every state transition.
func (s *Solver) RegisterProgressListener(l ProgressListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// State returns the state of the last published transition.
func (s *Solver) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Progress returns the last published transition.
func (s *Solver) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Progress{State: s.state, Message: s.message, Best: cloneSolution(s.best)}
}

// Reset returns the solver to StateIdle, discarding the published incumbent
// and progress message. It does not interrupt a solve in flight; that solve
// keeps publishing its own transitions.
func (s *Solver) Reset() {
	s.publish(StateIdle, "", nil)
}

func (s *Solver) publish(state State, message string, best *Solution) {
	s.mu.Lock()
	s.state = state
	s.message = message
	s.best = cloneSolution(best)
	listeners := make([]ProgressListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l(state, message, cloneSolution(best))
	}
}

// Solve crafts the most valuable integral mix of `recipes` from `resources`.
// See SolveContext.
func (s *Solver) Solve(recipes []Recipe, resources []ResourceStack) Solution {
	sol, _ := s.SolveContext(context.Background(), recipes, resources)
	return sol
}

// SolveContext builds the problem for `recipes` and `resources` and solves it.
// The context is checked between recipe and resource enumeration steps while
// the problem is built; once the search starts it runs to completion. The only
// error returned is the context's.
//
// An empty recipe list, an invalid recipe or resource, or recipes without any
// ingredient yield a StateError solution. Ingredients missing from `resources`
// count as out of stock.
func (s *Solver) SolveContext(ctx context.Context, recipes []Recipe, resources []ResourceStack) (Solution, error) {
	if len(recipes) == 0 {
		s.publish(StateError, MessageNoRecipes, nil)
		return emptySolution(StateError, nil), nil
	}
	p, _, err := BuildProblem(ctx, recipes, resources)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return emptySolution(StateError, nil), ctxErr
		}
		log.Warningf("Cannot build problem: %v", err)
		s.publish(StateError, err.Error(), nil)
		return emptySolution(StateError, nil), nil
	}
	return s.SolveProblem(p), nil
}

// SolveProblem runs the branch-and-bound search on a pre-built problem.
//
// The result is the optimal integral solution with state StateFinished, an
// empty StateUnbounded solution if the root relaxation is unbounded, or an
// empty StateError solution otherwise.
func (s *Solver) SolveProblem(p Problem) Solution {
	s.solveMu.Lock()
	defer s.solveMu.Unlock()

	sc := newSearchContext(p, s.params, s.publish)
	sc.notify(StateFindingInitialSolution, MessageFindingInitialSolution)

	root, status := solveRelaxation(p, nil, s.params)
	switch status {
	case statusOptimal:
	case statusUnbounded:
		log.Info(MessageUnbounded)
		sc.notify(StateUnbounded, MessageUnbounded)
		return emptySolution(StateUnbounded, nil)
	default:
		log.Infof("Root relaxation failed: %v", status)
		sc.notify(StateError, MessageInitialError)
		return emptySolution(StateError, nil)
	}

	sc.lowerBound = root.OptimalValue
	sc.notify(StateOptimising, MessageOptimising)
	hit := sc.run(root)
	log.V(1).Infof("Search done after %d nodes (%d pruned), bound hit: %t", sc.nodes, sc.pruned, hit)

	if sc.best == nil {
		sc.notify(StateError, MessageNoIntegralSolution)
		return emptySolution(StateError, nil)
	}
	final := sc.finalize()
	sc.best = &final
	sc.notify(StateFinished, MessageFinished)
	return final
}
