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

// The craft_profit command solves a recipe snapshot and prints the most
// valuable crafting plan, along with every improving plan found on the way.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	log "github.com/golang/glog"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/ArcaneAj/WachuMakeyMaking/makeymaking/solver/config"
	"github.com/ArcaneAj/WachuMakeyMaking/makeymaking/solver/ilp"
	"github.com/ArcaneAj/WachuMakeyMaking/makeymaking/solver/recipedata"
)

var (
	dataPath   = flag.String("data", "", "Path of the recipe snapshot (JSON).")
	configPath = flag.String("config", "", "Optional solver config file (YAML, JSON or TOML).")
	asJSON     = flag.Bool("json", false, "Print progress and the solution as JSON lines instead of a report.")
)

func printProgress(state ilp.State, message string, best *ilp.Solution) {
	if best == nil || state != ilp.StateOptimising {
		log.V(1).Infof("%v: %s", state, message)
		return
	}
	fmt.Printf("Intermediate solution: %v gil %v\n", best.Profit(), best.Quantities())
}

// printProgressJSON writes every transition as one JSON line, ahead of the
// line holding the final solution.
func printProgressJSON(state ilp.State, message string, best *ilp.Solution) {
	s, err := ilp.ProgressProto(ilp.Progress{State: state, Message: message, Best: best})
	if err != nil {
		log.Warningf("Cannot convert progress: %v", err)
		return
	}
	out, err := protojson.Marshal(s)
	if err != nil {
		log.Warningf("Cannot marshal progress: %v", err)
		return
	}
	fmt.Println(string(out))
}

func craftProfit(ctx context.Context) error {
	if *dataPath == "" {
		return fmt.Errorf("--data is required")
	}
	params, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load the solver config: %w", err)
	}
	snapshot, err := recipedata.Load(*dataPath)
	if err != nil {
		return fmt.Errorf("failed to load the recipe snapshot: %w", err)
	}

	solver := ilp.NewSolver(params)
	if *asJSON {
		solver.RegisterProgressListener(printProgressJSON)
	} else {
		solver.RegisterProgressListener(printProgress)
	}

	sol, err := solver.SolveContext(ctx, snapshot.Recipes, snapshot.Resources)
	if err != nil {
		return fmt.Errorf("solve interrupted: %w", err)
	}
	if p := solver.Progress(); sol.State != ilp.StateFinished {
		log.Warningf("No plan: %s", p.Message)
	}

	if *asJSON {
		s, err := ilp.SolutionProto(sol)
		if err != nil {
			return err
		}
		out, err := protojson.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal the solution: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}
	return ilp.WriteReport(os.Stdout, snapshot.Recipes, sol)
}

func main() {
	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := craftProfit(ctx); err != nil {
		log.Exitf("craftProfit returned with error: %v", err)
	}
}
