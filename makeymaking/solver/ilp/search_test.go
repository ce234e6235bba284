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
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestFirstFractional(t *testing.T) {
	testCases := []struct {
		values []float64
		want   int
	}{
		{values: []float64{}, want: -1},
		{values: []float64{1, 2, 3}, want: -1},
		{values: []float64{2.99999999999, 1e-11}, want: -1},
		{values: []float64{1, 2.5, 0.5}, want: 1},
		{values: []float64{0.001}, want: 0},
	}
	for _, test := range testCases {
		if got := firstFractional(test.values, DefaultTolerance); got != test.want {
			t.Errorf("firstFractional(%v) = %v, want %v", test.values, got, test.want)
		}
	}
}

func TestSearchContext_ExpandPushesFloorLast(t *testing.T) {
	sc := newSearchContext(Problem{}, *DefaultParameters(), nil)
	parent := []Branch{{Index: 0, Value: 1, Upper: false}}
	hit, children := sc.expand(Solution{Values: []float64{1, 2.5}, State: StateOptimal, Branches: parent})
	if hit {
		t.Errorf("expand() reported a bound hit for a fractional solution")
	}
	want := [][]Branch{
		{{Index: 0, Value: 1, Upper: false}, {Index: 1, Value: 3, Upper: false}},
		{{Index: 0, Value: 1, Upper: false}, {Index: 1, Value: 2, Upper: true}},
	}
	if diff := cmp.Diff(want, children); diff != "" {
		t.Errorf("expand() returned with unexpected diff (-want+got);\n%s", diff)
	}
}

func TestSearchContext_ConsiderKeepsStrictImprovements(t *testing.T) {
	var published []Progress
	sc := newSearchContext(Problem{}, *DefaultParameters(), func(state State, message string, best *Solution) {
		published = append(published, Progress{State: state, Message: message, Best: best})
	})
	sc.lowerBound = -20
	sc.message = MessageOptimising

	if hit := sc.consider(Solution{Values: []float64{0}, OptimalValue: 0, State: StateOptimal}); hit {
		t.Errorf("consider(0) reported a bound hit")
	}
	if sc.best != nil {
		t.Errorf("consider(0) replaced the empty incumbent with %v", sc.best)
	}
	if hit := sc.consider(Solution{Values: []float64{3}, OptimalValue: -15, State: StateOptimal}); hit {
		t.Errorf("consider(-15) reported a bound hit")
	}
	if hit := sc.consider(Solution{Values: []float64{2}, OptimalValue: -10, State: StateOptimal}); hit {
		t.Errorf("consider(-10) reported a bound hit")
	}
	if got := sc.bestValue(); got != -15 {
		t.Errorf("bestValue() = %v, want -15", got)
	}
	if hit := sc.consider(Solution{Values: []float64{4}, OptimalValue: -20, State: StateOptimal}); !hit {
		t.Errorf("consider(-20) did not report a bound hit")
	}

	if len(published) != 2 {
		t.Fatalf("consider() published %d transitions, want 2", len(published))
	}
	for i, want := range []float64{-15, -20} {
		if p := published[i]; p.State != StateOptimising || p.Message != MessageOptimising || p.Best == nil || p.Best.OptimalValue != want {
			t.Errorf("published[%d] = %+v, want an Optimising transition with objective %v", i, p, want)
		}
	}
}

func TestSearchContext_AdmitPrunes(t *testing.T) {
	sc := newSearchContext(Problem{}, *DefaultParameters(), nil)
	sc.lowerBound = -20
	sc.best = &Solution{Values: []float64{3}, OptimalValue: -15, State: StateOptimal}

	testCases := []struct {
		name   string
		child  Solution
		status relaxationStatus
		want   bool
	}{
		{
			name:   "infeasible",
			child:  Solution{State: StateError},
			status: statusInfeasible,
		},
		{
			name:   "not better than incumbent",
			child:  Solution{Values: []float64{3}, OptimalValue: -15, State: StateOptimal},
			status: statusOptimal,
		},
		{
			name: "violates its branch",
			child: Solution{
				Values:       []float64{3.5},
				OptimalValue: -17.5,
				State:        StateOptimal,
				Branches:     []Branch{{Index: 0, Value: 3, Upper: true}},
			},
			status: statusOptimal,
		},
		{
			name: "promising",
			child: Solution{
				Values:       []float64{3.5},
				OptimalValue: -17.5,
				State:        StateOptimal,
				Branches:     []Branch{{Index: 0, Value: 4, Upper: true}},
			},
			status: statusOptimal,
			want:   true,
		},
	}
	for _, test := range testCases {
		if got := sc.admit(test.child, test.status); got != test.want {
			t.Errorf("%s: admit() = %v, want %v", test.name, got, test.want)
		}
	}
	if sc.message != "Optimising... Current best: 15 gil Lower bound: 20" {
		t.Errorf("admit() left message %q", sc.message)
	}
}

func TestSearchContext_Run(t *testing.T) {
	p := Problem{
		Assignments: [][]int64{{3, 4}},
		Costs:       []float64{-5, -7},
		Capacities:  []int64{10},
	}
	sc := newSearchContext(p, *DefaultParameters(), nil)
	root, status := solveRelaxation(p, nil, sc.params)
	if status != statusOptimal {
		t.Fatalf("solveRelaxation() status = %v, want %v", status, statusOptimal)
	}
	sc.lowerBound = root.OptimalValue

	if hit := sc.run(root); hit {
		t.Errorf("run() reported a bound hit; the root bound %v is not integral", root.OptimalValue)
	}
	want := Solution{
		Values:       []float64{2, 1},
		OptimalValue: -17,
		State:        StateFinished,
		Branches: []Branch{
			{Index: 1, Value: 2, Upper: true},
			{Index: 0, Value: 1, Upper: false},
			{Index: 1, Value: 1, Upper: true},
		},
	}
	if diff := cmp.Diff(want, sc.finalize()); diff != "" {
		t.Errorf("finalize() returned with unexpected diff (-want+got);\n%s", diff)
	}
	if sc.nodes == 0 || sc.pruned == 0 {
		t.Errorf("run() explored %d nodes and pruned %d, want both positive", sc.nodes, sc.pruned)
	}
}

// bruteForce returns the best profit of `p` over all integral points.
func bruteForce(p Problem) float64 {
	n := p.NumVariables()
	x := make([]int64, n)
	best := 0.0
	var walk func(j int)
	walk = func(j int) {
		if j == n {
			profit := 0.0
			for k, v := range x {
				profit -= p.Costs[k] * float64(v)
			}
			best = math.Max(best, profit)
			return
		}
		for x[j] = 0; ; x[j]++ {
			fits := true
			for i, row := range p.Assignments {
				var used int64
				for k := 0; k <= j; k++ {
					used += row[k] * x[k]
				}
				if used > p.Capacities[i] {
					fits = false
				}
			}
			if !fits {
				break
			}
			walk(j + 1)
		}
		x[j] = 0
	}
	walk(0)
	return best
}

func TestSolver_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for iter := 0; iter < 150; iter++ {
		m, n := 1+rng.Intn(2), 1+rng.Intn(3)
		p := Problem{
			Assignments: make([][]int64, m),
			Costs:       make([]float64, n),
			Capacities:  make([]int64, m),
		}
		for i := range p.Assignments {
			p.Assignments[i] = make([]int64, n)
			for j := range p.Assignments[i] {
				p.Assignments[i][j] = 1 + rng.Int63n(4)
			}
			p.Capacities[i] = 1 + rng.Int63n(12)
		}
		for j := range p.Costs {
			p.Costs[j] = -float64(1 + rng.Intn(10))
		}

		want := bruteForce(p)
		got := NewSolver(nil).SolveProblem(p)
		if want == 0 {
			if got.State != StateError {
				t.Errorf("problem %v: SolveProblem() = %v, want an Error solution", p, got)
			}
			continue
		}
		if got.State != StateFinished {
			t.Fatalf("problem %v: SolveProblem() state = %v, want %v", p, got.State, StateFinished)
		}
		if math.Abs(got.Profit()-want) > 1e-6 {
			t.Errorf("problem %v: profit = %v, want %v", p, got.Profit(), want)
		}
		checkFeasible(t, p, got)
		if diff := cmp.Diff(got.Values, roundAll(got.Values)); diff != "" {
			t.Errorf("problem %v: values are not integral (-got+rounded);\n%s", p, diff)
		}
	}
}

func roundAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Round(v)
	}
	return out
}

func TestSolver_IncumbentsImproveMonotonically(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for iter := 0; iter < 50; iter++ {
		p := randomProblem(rng)
		s := NewSolver(nil)
		var incumbents []float64
		var bound float64
		s.RegisterProgressListener(func(state State, message string, best *Solution) {
			if best != nil && (len(incumbents) == 0 || incumbents[len(incumbents)-1] != best.OptimalValue) {
				incumbents = append(incumbents, best.OptimalValue)
			}
		})
		root := SolveRelaxation(p, nil, nil)
		bound = root.OptimalValue

		got := s.SolveProblem(p)
		for i := 1; i < len(incumbents); i++ {
			// The final transition snaps values, so allow for rounding noise.
			if incumbents[i] > incumbents[i-1]+1e-6 {
				t.Errorf("problem %v: incumbent worsened from %v to %v", p, incumbents[i-1], incumbents[i])
			}
		}
		if got.State == StateFinished && got.OptimalValue < bound-1e-6 {
			t.Errorf("problem %v: final objective %v beats the root bound %v", p, got.OptimalValue, bound)
		}
	}
}

func TestSolver_SearchIsDeterministic(t *testing.T) {
	p := Problem{
		Assignments: [][]int64{{3, 4, 2}, {1, 2, 5}},
		Costs:       []float64{-5, -7, -4},
		Capacities:  []int64{17, 11},
	}
	first := NewSolver(nil).SolveProblem(p)
	second := NewSolver(nil).SolveProblem(p)
	if !first.Equal(second) {
		t.Errorf("SolveProblem() = %v, then %v", first, second)
	}
	if diff := cmp.Diff(first, second, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("SolveProblem() returned with unexpected diff (-first+second);\n%s", diff)
	}
}
