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

// The bounded_knapsack command shows two recipes competing for one resource,
// where the relaxation prefers a fractional plan.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	log "github.com/golang/glog"

	"github.com/ArcaneAj/WachuMakeyMaking/makeymaking/solver/ilp"
)

const copperOre = 5106

func boundedKnapsack() error {
	recipes := []ilp.Recipe{
		{ID: 5057, Name: "Bronze Ingot", Value: 5, Ingredients: map[uint32]int64{copperOre: 3}},
		{ID: 5058, Name: "Bronze Plate", Value: 7, Ingredients: map[uint32]int64{copperOre: 4}},
	}
	resources := []ilp.ResourceStack{{ID: copperOre, Name: "Copper Ore", Quantity: 10}}

	p, _, err := ilp.BuildProblem(context.Background(), recipes, resources)
	if err != nil {
		return fmt.Errorf("failed to build the problem: %w", err)
	}

	// The relaxation crafts 2.5 plates.
	relaxed := ilp.SolveRelaxation(p, nil, nil)
	fmt.Printf("Relaxation: %v\n", relaxed)

	solver := ilp.NewSolver(nil)
	solver.RegisterProgressListener(func(state ilp.State, message string, best *ilp.Solution) {
		fmt.Printf("  %v: %s\n", state, message)
	})
	sol := solver.SolveProblem(p)
	if sol.State != ilp.StateFinished {
		return fmt.Errorf("unexpected state %v", sol.State)
	}
	return ilp.WriteReport(os.Stdout, recipes, sol)
}

func main() {
	flag.Parse()
	if err := boundedKnapsack(); err != nil {
		log.Exitf("boundedKnapsack returned with error: %v", err)
	}
}
