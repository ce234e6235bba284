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
	"fmt"
	"math"

	log "github.com/golang/glog"
)

// publishFunc receives every state transition of a search.
type publishFunc func(state State, message string, best *Solution)

// searchContext holds all mutable state of one branch-and-bound search. It is
// created per solve and never shared between solves.
type searchContext struct {
	problem Problem
	params  Parameters
	publish publishFunc

	// lowerBound is the root relaxation objective. No integral solution can
	// have a smaller objective.
	lowerBound float64
	// best is the incumbent integral solution, nil until one is found. An
	// incumbent must beat objective 0, which is the value of crafting nothing.
	best    *Solution
	state   State
	message string

	nodes  int
	pruned int
}

func newSearchContext(p Problem, params Parameters, publish publishFunc) *searchContext {
	if publish == nil {
		publish = func(State, string, *Solution) {}
	}
	return &searchContext{problem: p, params: params, publish: publish, state: StateIdle}
}

func (sc *searchContext) notify(state State, message string) {
	sc.state = state
	sc.message = message
	sc.publish(state, message, cloneSolution(sc.best))
}

func (sc *searchContext) bestValue() float64 {
	if sc.best == nil {
		return 0
	}
	return sc.best.OptimalValue
}

// objectiveTol is the tolerance used when comparing objective values. It
// scales with the magnitude of the root bound.
func (sc *searchContext) objectiveTol() float64 {
	return sc.params.Tolerance * math.Max(1, math.Abs(sc.lowerBound))
}

// firstFractional returns the index of the first value farther than `tol`
// from an integer, or -1 if all values are integral.
func firstFractional(values []float64, tol float64) int {
	for i, v := range values {
		if math.Abs(v-math.Round(v)) > tol {
			return i
		}
	}
	return -1
}

// run explores the search tree below the optimal root relaxation. Pending
// subproblems are kept on a LIFO stack of branch chains; a chain is solved
// only when popped, so the `<= floor` subtree is fully explored before its
// `>= ceil` sibling is solved. run returns true if the search stopped because
// the incumbent reached the lower bound.
func (sc *searchContext) run(root Solution) bool {
	var stack [][]Branch
	hit, children := sc.expand(root)
	if hit {
		return true
	}
	stack = append(stack, children...)

	for len(stack) > 0 {
		chain := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		sol, status := solveRelaxation(sc.problem, chain, sc.params)
		sc.nodes++
		if !sc.admit(sol, status) {
			sc.pruned++
			continue
		}
		hit, children := sc.expand(sol)
		if hit {
			return true
		}
		stack = append(stack, children...)
	}
	return false
}

// expand handles an admitted subproblem solution. An integral solution is
// offered as a new incumbent; otherwise the two children of the first
// fractional variable are returned in push order (ceil first, floor on top).
func (sc *searchContext) expand(sol Solution) (bool, [][]Branch) {
	idx := firstFractional(sol.Values, sc.params.Tolerance)
	if idx < 0 {
		return sc.consider(sol), nil
	}

	v := sol.Values[idx]
	floorBranch := Branch{Index: idx, Value: int64(math.Floor(v)), Upper: true}
	ceilBranch := Branch{Index: idx, Value: int64(math.Ceil(v)), Upper: false}
	log.V(1).Infof("Branching on x%d = %g at depth %d", idx, v, len(sol.Branches))
	return false, [][]Branch{
		extendChain(sol.Branches, ceilBranch),
		extendChain(sol.Branches, floorBranch),
	}
}

// consider replaces the incumbent with the integral solution `sol` if it is
// strictly better, and reports whether the incumbent now matches the lower
// bound.
func (sc *searchContext) consider(sol Solution) bool {
	tol := sc.objectiveTol()
	if sol.OptimalValue < sc.bestValue()-tol {
		sc.best = cloneSolution(&sol)
		log.V(1).Infof("New incumbent: objective %g, branches %v", sol.OptimalValue, sol.Branches)
		sc.notify(StateOptimising, sc.message)
	}
	return sc.best != nil && math.Abs(sc.best.OptimalValue-sc.lowerBound) < tol
}

// admit decides whether the search descends into a solved child.
func (sc *searchContext) admit(child Solution, status relaxationStatus) bool {
	tol := sc.objectiveTol()
	if status != statusOptimal {
		log.V(1).Infof("Pruning %v: relaxation %v", child.Branches, status)
		return false
	}
	if child.OptimalValue < sc.lowerBound-tol {
		log.Errorf("Branch result %g is below the lower bound %g for branches %v", child.OptimalValue, sc.lowerBound, child.Branches)
	}
	for _, b := range child.Branches {
		if v := child.Values[b.Index]; !ChainDomain(child.Branches, b.Index).ContainsValue(v, sc.params.Tolerance) {
			log.Warningf("Branch constraint violated: x%d = %g outside %v, skipping", b.Index, v, ChainDomain(child.Branches, b.Index))
			return false
		}
	}
	if !(child.OptimalValue < sc.bestValue()-tol) {
		log.V(1).Infof("Pruning %v: bound %g does not beat incumbent %g", child.Branches, child.OptimalValue, sc.bestValue())
		return false
	}
	if sc.best != nil {
		sc.notify(StateOptimising, fmt.Sprintf("Optimising... Current best: %v gil Lower bound: %v",
			math.Floor(sc.best.Profit()), math.Floor(-sc.lowerBound)))
	}
	return true
}

// finalize returns the incumbent as the result of a finished search: values
// snapped to integers and the objective recomputed from them.
func (sc *searchContext) finalize() Solution {
	out := cloneSolution(sc.best)
	out.State = StateFinished
	out.OptimalValue = 0
	for j, v := range out.Values {
		out.Values[j] = math.Round(v)
		out.OptimalValue += sc.problem.Costs[j] * out.Values[j]
	}
	return *out
}
