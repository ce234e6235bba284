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

// Progress messages published by the Solver.
const (
	MessageFindingInitialSolution = "Finding initial solution..."
	MessageOptimising             = "Optimising..."
	MessageFinished               = "Finished"
	MessageUnbounded              = "Problem is unbounded - no optimal solution exists."
	MessageInitialError           = "Unknown error occurred when finding initial solution."
	MessageNoIntegralSolution     = "Unable to find integral solution"
	MessageNoRecipes              = "No recipes selected"
)

// Progress is one state transition published by the Solver.
type Progress struct {
	State   State
	Message string
	// Best is the incumbent at the time of the transition, or nil.
	Best *Solution
}

// ProgressListener is invoked synchronously, in order, on every state
// transition of a Solver. `best` is a private copy of the incumbent, or nil
// when there is none.
//
// Listeners run on the solving goroutine and must not start another solve on
// the same Solver.
type ProgressListener func(state State, message string, best *Solution)

// ChannelListener returns a listener forwarding every transition to `ch`.
// Sends block, so the consumer sees transitions in order and the search waits
// for a slow consumer.
func ChannelListener(ch chan<- Progress) ProgressListener {
	return func(state State, message string, best *Solution) {
		ch <- Progress{State: state, Message: message, Best: best}
	}
}

// cloneSolution returns a deep copy of `s`, or nil.
func cloneSolution(s *Solution) *Solution {
	if s == nil {
		return nil
	}
	c := *s
	c.Values = make([]float64, len(s.Values))
	copy(c.Values, s.Values)
	c.Branches = make([]Branch, len(s.Branches))
	copy(c.Branches, s.Branches)
	return &c
}
