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

// Package ilp solves the crafting-profit integer linear program.
//
// A `Problem` holds a dense resource consumption matrix, the per-recipe costs
// (negated profits, since the relaxation minimizes) and the resource
// capacities. `SolveRelaxation` solves one continuous relaxation with the
// revised simplex method, optionally restricted by a chain of `Branch`
// constraints. The `Solver` drives a branch-and-bound search over those
// relaxations until it holds a provably optimal integral `Solution`, reporting
// progress to registered listeners along the way.
package ilp

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrEmptyProblem is returned when a problem has no constraints or no variables.
	ErrEmptyProblem = errors.New("problem has no constraints or no variables")
	// ErrRaggedMatrix is returned when the rows of the consumption matrix differ in length.
	ErrRaggedMatrix = errors.New("consumption matrix rows differ in length")
	// ErrDimensionMismatch is returned when the cost or capacity vectors do not match the matrix.
	ErrDimensionMismatch = errors.New("cost or capacity vector does not match the consumption matrix")
	// ErrNonFiniteCost is returned when a cost is NaN or infinite.
	ErrNonFiniteCost = errors.New("cost is not finite")
	// ErrBranchIndex is returned when a branch refers to a variable outside the problem.
	ErrBranchIndex = errors.New("branch variable index out of range")
)

// Problem is an immutable snapshot of `m` resource constraints over `n`
// decision variables: `Assignments[i][j]` units of resource `i` are consumed
// by one unit of recipe `j`, `Costs[j]` is the (minimized) cost of one unit of
// recipe `j`, and `Capacities[i]` is the quantity of resource `i` on hand.
//
// Values built with NewProblem own their slices. A Problem must not be
// modified once it has been handed to a solver.
type Problem struct {
	Assignments [][]int64
	Costs       []float64
	Capacities  []int64
}

// NewProblem copies its arguments into a new Problem and validates it.
func NewProblem(assignments [][]int64, costs []float64, capacities []int64) (Problem, error) {
	p := Problem{
		Assignments: make([][]int64, len(assignments)),
		Costs:       append([]float64(nil), costs...),
		Capacities:  append([]int64(nil), capacities...),
	}
	for i, row := range assignments {
		p.Assignments[i] = append([]int64(nil), row...)
	}
	if err := p.Validate(); err != nil {
		return Problem{}, err
	}
	return p, nil
}

// NumVariables returns the number of decision variables (recipes).
func (p Problem) NumVariables() int {
	if len(p.Assignments) == 0 {
		return 0
	}
	return len(p.Assignments[0])
}

// NumConstraints returns the number of resource constraints.
func (p Problem) NumConstraints() int {
	return len(p.Assignments)
}

// Validate reports whether the problem is well formed.
func (p Problem) Validate() error {
	m, n := p.NumConstraints(), p.NumVariables()
	if m == 0 || n == 0 {
		return ErrEmptyProblem
	}
	for i, row := range p.Assignments {
		if len(row) != n {
			return fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), n, ErrRaggedMatrix)
		}
	}
	if len(p.Costs) != n {
		return fmt.Errorf("len(Costs)=%d, want %d: %w", len(p.Costs), n, ErrDimensionMismatch)
	}
	if len(p.Capacities) != m {
		return fmt.Errorf("len(Capacities)=%d, want %d: %w", len(p.Capacities), m, ErrDimensionMismatch)
	}
	for j, c := range p.Costs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("Costs[%d]=%v: %w", j, c, ErrNonFiniteCost)
		}
	}
	return nil
}

// Branch is a single constraint imposed on one variable during the search:
// `x[Index] <= Value` when Upper is set, `x[Index] >= Value` otherwise.
type Branch struct {
	Index int
	Value int64
	Upper bool
}

// Row returns the constraint row and right-hand side the branch adds to a
// relaxation over `n` variables. A lower-bound branch is expressed as
// `-x[Index] <= -Value`.
func (b Branch) Row(n int) ([]float64, float64) {
	row := make([]float64, n)
	if b.Upper {
		row[b.Index] = 1
		return row, float64(b.Value)
	}
	row[b.Index] = -1
	return row, -float64(b.Value)
}

func (b Branch) String() string {
	if b.Upper {
		return fmt.Sprintf("x%d <= %d", b.Index, b.Value)
	}
	return fmt.Sprintf("x%d >= %d", b.Index, b.Value)
}

// extendChain returns a new chain holding `chain` followed by `b`. The input
// chain is never modified, so sibling subproblems can share their prefix.
func extendChain(chain []Branch, b Branch) []Branch {
	out := make([]Branch, len(chain), len(chain)+1)
	copy(out, chain)
	return append(out, b)
}

// State is the status of the solver or of a single subproblem.
type State int

const (
	// StateIdle is the solver's rest state before any solve.
	StateIdle State = iota
	// StateFindingInitialSolution is entered when a solve starts.
	StateFindingInitialSolution
	// StateOptimising is entered once the root relaxation is solved.
	StateOptimising
	// StateFinished marks a completed search with an integral solution in hand.
	StateFinished
	// StateOptimal labels a subproblem solved to optimality.
	StateOptimal
	// StateUnbounded labels an unbounded subproblem or search.
	StateUnbounded
	// StateError labels a failed subproblem or search.
	StateError
)

var stateNames = map[State]string{
	StateIdle:                   "Idle",
	StateFindingInitialSolution: "FindingInitialSolution",
	StateOptimising:             "Optimising",
	StateFinished:               "Finished",
	StateOptimal:                "Optimal",
	StateUnbounded:              "Unbounded",
	StateError:                  "Error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Solution is the outcome of solving one subproblem, or of a whole search.
type Solution struct {
	// Values holds one quantity per variable. It is empty unless State is
	// StateOptimal or StateFinished.
	Values []float64
	// OptimalValue is the achieved (minimized) objective value.
	OptimalValue float64
	State        State
	// Branches is the chain that produced this solution, most recent last.
	Branches []Branch
}

// emptySolution returns a solution with no values for the given state.
func emptySolution(state State, chain []Branch) Solution {
	if chain == nil {
		chain = []Branch{}
	}
	return Solution{Values: []float64{}, State: state, Branches: chain}
}

// equalityScale is the rounding applied to values and objectives by Equal.
const equalityScale = 1e6

func roundForEquality(v float64) float64 {
	return math.Round(v*equalityScale) / equalityScale
}

// Equal reports whether two solutions have the same state and branch chain,
// and the same values and objective once rounded to six decimal places.
func (s Solution) Equal(o Solution) bool {
	if s.State != o.State || len(s.Values) != len(o.Values) || len(s.Branches) != len(o.Branches) {
		return false
	}
	if roundForEquality(s.OptimalValue) != roundForEquality(o.OptimalValue) {
		return false
	}
	for i := range s.Values {
		if roundForEquality(s.Values[i]) != roundForEquality(o.Values[i]) {
			return false
		}
	}
	for i := range s.Branches {
		if s.Branches[i] != o.Branches[i] {
			return false
		}
	}
	return true
}

// Quantities returns the values rounded to the nearest integer.
func (s Solution) Quantities() []int64 {
	q := make([]int64, len(s.Values))
	for i, v := range s.Values {
		q[i] = int64(math.Round(v))
	}
	return q
}

// Profit returns the total value of the solution, the negated objective.
func (s Solution) Profit() float64 {
	if s.OptimalValue == 0 {
		return 0
	}
	return -s.OptimalValue
}

func (s Solution) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v objective=%g values=%v", s.State, s.OptimalValue, s.Values)
	if len(s.Branches) > 0 {
		fmt.Fprintf(&b, " branches=%v", s.Branches)
	}
	return b.String()
}
