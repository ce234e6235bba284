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

// Package recipedata decodes recipe and inventory snapshots into solver input.
//
// A snapshot is a JSON document of the form
//
//	{
//	  "Recipes": [
//	    {"Item": {"RowId": 5057, "Name": "Bronze Ingot"},
//	     "Ingredients": [{"Item": {"RowId": 5106, "Name": "Copper Ore"}, "Quantity": 3}],
//	     "Value": 12}
//	  ],
//	  "Resources": [{"Item": {"RowId": 5106, "Name": "Copper Ore"}, "Quantity": 40}]
//	}
package recipedata

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/ArcaneAj/WachuMakeyMaking/makeymaking/solver/ilp"
	"github.com/tidwall/gjson"
)

var (
	// ErrInvalidJSON is returned when the snapshot is not valid JSON.
	ErrInvalidJSON = errors.New("snapshot is not valid JSON")
	// ErrMissingID is returned when an item has no usable RowId.
	ErrMissingID = errors.New("item has no valid RowId")
	// ErrInvalidQuantity is returned when a Quantity is missing or not a whole number.
	ErrInvalidQuantity = errors.New("quantity is missing or not a whole number")
)

// Snapshot is the decoded solver input.
type Snapshot struct {
	Recipes   []ilp.Recipe
	Resources []ilp.ResourceStack
}

// Load reads and parses the snapshot stored at `path`.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a snapshot. Ingredients listed twice for one recipe are
// summed; a recipe without a Value is worth nothing.
func Parse(data []byte) (*Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	doc := gjson.ParseBytes(data)
	s := &Snapshot{}

	var err error
	doc.Get("Recipes").ForEach(func(_, v gjson.Result) bool {
		var r ilp.Recipe
		if r, err = parseRecipe(v); err != nil {
			err = fmt.Errorf("Recipes[%d]: %w", len(s.Recipes), err)
			return false
		}
		s.Recipes = append(s.Recipes, r)
		return true
	})
	if err != nil {
		return nil, err
	}

	doc.Get("Resources").ForEach(func(_, v gjson.Result) bool {
		var st ilp.ResourceStack
		if st, err = parseStack(v); err != nil {
			err = fmt.Errorf("Resources[%d]: %w", len(s.Resources), err)
			return false
		}
		s.Resources = append(s.Resources, st)
		return true
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func parseItem(v gjson.Result) (uint32, string, error) {
	id := v.Get("Item.RowId")
	if !id.Exists() || id.Type != gjson.Number || id.Num < 0 || id.Num > math.MaxUint32 || id.Num != math.Trunc(id.Num) {
		return 0, "", ErrMissingID
	}
	return uint32(id.Uint()), v.Get("Item.Name").String(), nil
}

func parseQuantity(v gjson.Result) (int64, error) {
	q := v.Get("Quantity")
	if !q.Exists() {
		return 0, ErrInvalidQuantity
	}
	if q.Type != gjson.Number || q.Num != math.Trunc(q.Num) || math.Abs(q.Num) > math.MaxInt64 {
		return 0, fmt.Errorf("quantity %s: %w", q.Raw, ErrInvalidQuantity)
	}
	n := q.Int()
	if n < 0 {
		return 0, fmt.Errorf("quantity %d: %w", n, ilp.ErrNegativeQuantity)
	}
	return n, nil
}

func parseStack(v gjson.Result) (ilp.ResourceStack, error) {
	id, name, err := parseItem(v)
	if err != nil {
		return ilp.ResourceStack{}, err
	}
	q, err := parseQuantity(v)
	if err != nil {
		return ilp.ResourceStack{}, fmt.Errorf("%s: %w", name, err)
	}
	return ilp.ResourceStack{ID: id, Name: name, Quantity: q}, nil
}

func parseRecipe(v gjson.Result) (ilp.Recipe, error) {
	id, name, err := parseItem(v)
	if err != nil {
		return ilp.Recipe{}, err
	}
	r := ilp.Recipe{
		ID:          id,
		Name:        name,
		Value:       v.Get("Value").Float(),
		Ingredients: make(map[uint32]int64),
	}
	i := 0
	v.Get("Ingredients").ForEach(func(_, ing gjson.Result) bool {
		var st ilp.ResourceStack
		if st, err = parseStack(ing); err != nil {
			err = fmt.Errorf("%s: Ingredients[%d]: %w", name, i, err)
			return false
		}
		r.Ingredients[st.ID] += st.Quantity
		i++
		return true
	})
	if err != nil {
		return ilp.Recipe{}, err
	}
	return r, nil
}
