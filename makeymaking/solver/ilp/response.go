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

	"google.golang.org/protobuf/types/known/structpb"
)

func solutionFields(sol Solution) map[string]any {
	values := make([]any, len(sol.Values))
	for i, v := range sol.Values {
		values[i] = v
	}
	branches := make([]any, len(sol.Branches))
	for i, b := range sol.Branches {
		branches[i] = map[string]any{
			"index": b.Index,
			"value": b.Value,
			"upper": b.Upper,
		}
	}
	return map[string]any{
		"state":           sol.State.String(),
		"objective_value": sol.OptimalValue,
		"profit":          sol.Profit(),
		"values":          values,
		"branches":        branches,
	}
}

// SolutionProto returns `sol` as a google.protobuf.Struct with the fields
// `state`, `objective_value`, `profit`, `values` and `branches`.
func SolutionProto(sol Solution) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(solutionFields(sol))
	if err != nil {
		return nil, fmt.Errorf("converting solution: %w", err)
	}
	return s, nil
}

// ProgressProto returns `p` as a google.protobuf.Struct with the fields
// `state`, `message` and `best`; `best` is null when there is no incumbent.
func ProgressProto(p Progress) (*structpb.Struct, error) {
	fields := map[string]any{
		"state":   p.State.String(),
		"message": p.Message,
		"best":    nil,
	}
	if p.Best != nil {
		fields["best"] = solutionFields(*p.Best)
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("converting progress: %w", err)
	}
	return s, nil
}
