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
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
)

var (
	// ErrNegativeQuantity is returned for a recipe ingredient or resource stack with a negative quantity.
	ErrNegativeQuantity = errors.New("quantity is negative")
	// ErrNonFiniteValue is returned for a recipe whose value is NaN or infinite.
	ErrNonFiniteValue = errors.New("recipe value is not finite")
)

// Recipe is a craftable item: one unit yields Value and consumes
// Ingredients[id] units of each resource id.
type Recipe struct {
	ID          uint32
	Name        string
	Value       float64
	Ingredients map[uint32]int64
}

// ResourceStack is an available quantity of one resource.
type ResourceStack struct {
	ID       uint32
	Name     string
	Quantity int64
}

// Builder accumulates recipes and resource stacks and turns them into a
// Problem. The first invalid input is kept and returned by Model; later calls
// are ignored.
type Builder struct {
	recipes   []Recipe
	resources []ResourceStack
	// index of each resource id in resources
	stackIndex map[uint32]int
	err        error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{stackIndex: make(map[uint32]int)}
}

// AddRecipe appends a recipe; its column index is the number of recipes added before it.
func (b *Builder) AddRecipe(r Recipe) *Builder {
	if b.err != nil {
		return b
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		b.err = fmt.Errorf("recipe %d (%s): %w", r.ID, r.Name, ErrNonFiniteValue)
		return b
	}
	for id, q := range r.Ingredients {
		if q < 0 {
			b.err = fmt.Errorf("recipe %d (%s) ingredient %d: %w", r.ID, r.Name, id, ErrNegativeQuantity)
			return b
		}
	}
	b.recipes = append(b.recipes, r)
	return b
}

// AddResource adds a resource stack. Stacks sharing an id are merged into
// one constraint whose capacity is their total quantity.
func (b *Builder) AddResource(s ResourceStack) *Builder {
	if b.err != nil {
		return b
	}
	if s.Quantity < 0 {
		b.err = fmt.Errorf("resource %d (%s): %w", s.ID, s.Name, ErrNegativeQuantity)
		return b
	}
	if i, ok := b.stackIndex[s.ID]; ok {
		b.resources[i].Quantity += s.Quantity
		return b
	}
	b.stackIndex[s.ID] = len(b.resources)
	b.resources = append(b.resources, s)
	return b
}

// Model returns the problem for the accumulated inputs together with the
// resources that became its constraint rows, in row order. Stocked resources
// consumed by at least one recipe come first, in the order they were added.
// Every ingredient with no stock then gets a zero-capacity row, in increasing
// id order, so a recipe missing one of its inputs cannot be crafted. The
// returned problem is not validated: with no recipes it is empty.
//
// `ctx` is checked once per resource and once per recipe.
func (b *Builder) Model(ctx context.Context) (Problem, []ResourceStack, error) {
	if b.err != nil {
		return Problem{}, nil, b.err
	}

	var used []ResourceStack
	var assignments [][]int64
	var capacities []int64
	addRow := func(res ResourceStack) {
		row := make([]int64, len(b.recipes))
		consumed := false
		for j, r := range b.recipes {
			if q, ok := r.Ingredients[res.ID]; ok {
				row[j] = q
				consumed = true
			}
		}
		if consumed {
			used = append(used, res)
			assignments = append(assignments, row)
			capacities = append(capacities, res.Quantity)
		}
	}

	for _, res := range b.resources {
		if err := ctx.Err(); err != nil {
			return Problem{}, nil, err
		}
		addRow(res)
	}

	var missing []uint32
	costs := make([]float64, len(b.recipes))
	for j, r := range b.recipes {
		if err := ctx.Err(); err != nil {
			return Problem{}, nil, err
		}
		costs[j] = -r.Value
		for id := range r.Ingredients {
			if _, ok := b.stackIndex[id]; !ok && !slices.Contains(missing, id) {
				missing = append(missing, id)
			}
		}
	}
	slices.Sort(missing)
	for _, id := range missing {
		addRow(ResourceStack{ID: id})
	}
	return Problem{Assignments: assignments, Costs: costs, Capacities: capacities}, used, nil
}

// BuildProblem is a shorthand for feeding `recipes` and `resources` to a new
// Builder and calling Model.
func BuildProblem(ctx context.Context, recipes []Recipe, resources []ResourceStack) (Problem, []ResourceStack, error) {
	b := NewBuilder()
	for _, r := range recipes {
		b.AddRecipe(r)
	}
	for _, s := range resources {
		b.AddResource(s)
	}
	return b.Model(ctx)
}

// Craft is the quantity of one recipe chosen by a solution.
type Craft struct {
	Recipe   Recipe
	Quantity int64
}

// Crafts pairs each recipe with its quantity in `sol`. Recipes without a
// value in the solution get quantity 0.
func Crafts(recipes []Recipe, sol Solution) []Craft {
	q := sol.Quantities()
	out := make([]Craft, len(recipes))
	for i, r := range recipes {
		out[i].Recipe = r
		if i < len(q) {
			out[i].Quantity = q[i]
		}
	}
	return out
}

var reportRule = strings.Repeat("=", 79)

// WriteReport writes a human-readable summary of `sol` for `recipes`.
func WriteReport(w io.Writer, recipes []Recipe, sol Solution) error {
	var b strings.Builder
	fmt.Fprintln(&b, reportRule)
	fmt.Fprintf(&b, "State: %v\n", sol.State)
	for _, c := range Crafts(recipes, sol) {
		fmt.Fprintf(&b, "  Craft [%d]: %s\n", c.Quantity, c.Recipe.Name)
	}
	fmt.Fprintf(&b, "Total value: %v gil\n", math.Floor(sol.Profit()))
	fmt.Fprintln(&b, reportRule)
	_, err := io.WriteString(w, b.String())
	return err
}
