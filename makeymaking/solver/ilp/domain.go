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
	"strings"
)

// ClosedInterval stores the closed interval `[start,end]`. If the `Start` is greater
// than the `End`, the interval is considered empty. math.MinInt64 and math.MaxInt64
// stand for unbounded ends.
type ClosedInterval struct {
	Start int64
	End   int64
}

// Domain stores an ordered list of disjoint ClosedIntervals. The search uses it
// to describe the integer values a branch chain still admits for one variable.
type Domain struct {
	intervals []ClosedInterval
}

// NewEmptyDomain creates an empty Domain.
func NewEmptyDomain() Domain {
	return Domain{}
}

// NewDomain creates a new domain of a single interval `[left,right]`.
// If `left > right`, an empty domain is returned.
func NewDomain(left, right int64) Domain {
	if left > right {
		return NewEmptyDomain()
	}
	return Domain{[]ClosedInterval{{left, right}}}
}

// IsEmpty reports whether the domain contains no value.
func (d Domain) IsEmpty() bool {
	return len(d.intervals) == 0
}

// ContainsValue reports whether the real value `v` lies within `tol` of one of
// the domain's intervals. Relaxation values are real, so a value such as
// 2.99999999999 still satisfies `x >= 3`.
func (d Domain) ContainsValue(v, tol float64) bool {
	for _, itv := range d.intervals {
		lo, hi := math.Inf(-1), math.Inf(1)
		if itv.Start != math.MinInt64 {
			lo = float64(itv.Start)
		}
		if itv.End != math.MaxInt64 {
			hi = float64(itv.End)
		}
		if v >= lo-tol && v <= hi+tol {
			return true
		}
	}
	return false
}

// IntersectionWith returns the values present in both `d` and `other`.
func (d Domain) IntersectionWith(other Domain) Domain {
	var out []ClosedInterval
	i, j := 0, 0
	for i < len(d.intervals) && j < len(other.intervals) {
		a, b := d.intervals[i], other.intervals[j]
		start, end := max(a.Start, b.Start), min(a.End, b.End)
		if start <= end {
			out = append(out, ClosedInterval{start, end})
		}
		if a.End < b.End {
			i++
		} else {
			j++
		}
	}
	return Domain{out}
}

func (d Domain) String() string {
	if d.IsEmpty() {
		return "[]"
	}
	var b strings.Builder
	for _, itv := range d.intervals {
		start, end := "-inf", "+inf"
		if itv.Start != math.MinInt64 {
			start = fmt.Sprint(itv.Start)
		}
		if itv.End != math.MaxInt64 {
			end = fmt.Sprint(itv.End)
		}
		fmt.Fprintf(&b, "[%s,%s]", start, end)
	}
	return b.String()
}

// Domain returns the half-line of values the branch admits for its variable.
func (b Branch) Domain() Domain {
	if b.Upper {
		return NewDomain(math.MinInt64, b.Value)
	}
	return NewDomain(b.Value, math.MaxInt64)
}

// ChainDomain returns the values a branch chain admits for variable `index`,
// starting from the non-negative integers.
func ChainDomain(chain []Branch, index int) Domain {
	d := NewDomain(0, math.MaxInt64)
	for _, b := range chain {
		if b.Index == index {
			d = d.IntersectionWith(b.Domain())
		}
	}
	return d
}
