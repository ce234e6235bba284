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
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// relaxationStatus is the internal outcome of one relaxation. Callers outside
// the package only see the State it maps to.
type relaxationStatus int

const (
	statusOptimal relaxationStatus = iota
	statusUnbounded
	statusInfeasible
	statusMaxIterations
	statusMalformed
)

func (s relaxationStatus) String() string {
	switch s {
	case statusOptimal:
		return "optimal"
	case statusUnbounded:
		return "unbounded"
	case statusInfeasible:
		return "infeasible"
	case statusMaxIterations:
		return "max_iterations"
	case statusMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("relaxationStatus(%d)", int(s))
	}
}

// state maps the internal status onto the subproblem states exposed by Solution.
func (s relaxationStatus) state() State {
	switch s {
	case statusOptimal:
		return StateOptimal
	case statusUnbounded:
		return StateUnbounded
	default:
		return StateError
	}
}

// SolveRelaxation solves the continuous relaxation of `p` restricted by the
// branch chain. The returned solution's state is StateOptimal, StateUnbounded
// or StateError; malformed input is reported as StateError, never as a panic.
// A nil params uses DefaultParameters.
func SolveRelaxation(p Problem, chain []Branch, params *Parameters) Solution {
	sol, _ := solveRelaxation(p, chain, params.orDefault())
	return sol
}

func solveRelaxation(p Problem, chain []Branch, params Parameters) (Solution, relaxationStatus) {
	if chain == nil {
		chain = []Branch{}
	}
	if err := p.Validate(); err != nil {
		log.V(1).Infof("Relaxation rejected: %v", err)
		return emptySolution(StateError, chain), statusMalformed
	}
	n := p.NumVariables()
	for _, b := range chain {
		if b.Index < 0 || b.Index >= n {
			log.V(1).Infof("Relaxation rejected: branch %v: %v", b, ErrBranchIndex)
			return emptySolution(StateError, chain), statusMalformed
		}
	}

	rs := newRevisedSimplex(p, chain, params.Tolerance)
	status := rs.solve(params.MaxIterations)
	log.V(2).Infof("Relaxation with %d branches: %v after %d iterations", len(chain), status, rs.iterations)
	if status != statusOptimal {
		return emptySolution(status.state(), chain), status
	}

	values := make([]float64, n)
	copy(values, rs.x[:n])
	return Solution{
		Values:       values,
		OptimalValue: rs.objective(rs.cost),
		State:        StateOptimal,
		Branches:     chain,
	}, status
}

// revisedSimplex holds one relaxation in standard form `A x = b, x >= 0`.
// Columns are laid out as the n structural variables, then one slack per row,
// then one artificial per row whose right-hand side was negative.
type revisedSimplex struct {
	m, n, cols int

	a          *mat.Dense
	cost       []float64
	artificial []bool
	rhsNorm    float64

	basis   []int
	isBasic []bool
	x       []float64
	binv    *mat.Dense

	tol        float64
	iterations int
}

// newRevisedSimplex converts `Ax <= b` (resource rows followed by branch rows)
// into `Ax + s = b`. Rows with a negative right-hand side are negated and given
// an artificial variable, so every row starts with a basic variable at `|b_i|`
// and the initial basis inverse is the identity.
func newRevisedSimplex(p Problem, chain []Branch, tol float64) *revisedSimplex {
	n := p.NumVariables()
	m := p.NumConstraints() + len(chain)

	rows := make([][]float64, 0, m)
	rhs := make([]float64, 0, m)
	for i, assignment := range p.Assignments {
		row := make([]float64, n)
		for j, v := range assignment {
			row[j] = float64(v)
		}
		rows = append(rows, row)
		rhs = append(rhs, float64(p.Capacities[i]))
	}
	for _, b := range chain {
		row, v := b.Row(n)
		rows = append(rows, row)
		rhs = append(rhs, v)
	}

	numArtificial := 0
	for _, v := range rhs {
		if v < 0 {
			numArtificial++
		}
	}

	cols := n + m + numArtificial
	rs := &revisedSimplex{
		m:          m,
		n:          n,
		cols:       cols,
		a:          mat.NewDense(m, cols, nil),
		cost:       make([]float64, cols),
		artificial: make([]bool, cols),
		basis:      make([]int, m),
		isBasic:    make([]bool, cols),
		x:          make([]float64, cols),
		binv:       mat.NewDense(m, m, nil),
		tol:        tol,
	}
	copy(rs.cost, p.Costs)

	next := n + m
	for i, row := range rows {
		sign := 1.0
		if rhs[i] < 0 {
			sign = -1
		}
		for j, v := range row {
			if v != 0 {
				rs.a.Set(i, j, sign*v)
			}
		}
		rs.a.Set(i, n+i, sign)
		basic := n + i
		if sign < 0 {
			basic = next
			rs.a.Set(i, basic, 1)
			rs.artificial[basic] = true
			next++
		}
		rs.basis[i] = basic
		rs.isBasic[basic] = true
		rs.x[basic] = sign * rhs[i]
		rs.rhsNorm += math.Abs(rhs[i])
		rs.binv.Set(i, i, 1)
	}
	return rs
}

// solve runs Phase 1 when artificials are present, then Phase 2 on the true
// costs. Both phases share the iteration budget.
func (rs *revisedSimplex) solve(maxIterations int) relaxationStatus {
	if rs.cols > rs.n+rs.m {
		phase1 := make([]float64, rs.cols)
		for j, art := range rs.artificial {
			if art {
				phase1[j] = 1
			}
		}
		switch status := rs.iterate(phase1, nil, maxIterations); status {
		case statusOptimal:
		case statusUnbounded:
			// The sum of artificials is bounded below by zero.
			return statusMalformed
		default:
			return status
		}
		if rs.objective(phase1) > rs.tol*(1+rs.rhsNorm) {
			return statusInfeasible
		}
		rs.driveOutArtificials()
	}
	return rs.iterate(rs.cost, rs.artificial, maxIterations)
}

// iterate performs revised simplex pivots for the cost vector `c` until the
// basis is optimal, the problem is found unbounded, or the budget is spent.
// Columns flagged in `barred` never enter the basis.
func (rs *revisedSimplex) iterate(c []float64, barred []bool, maxIterations int) relaxationStatus {
	cB := mat.NewVecDense(rs.m, nil)
	var pi mat.VecDense
	for {
		if rs.iterations >= maxIterations {
			return statusMaxIterations
		}
		rs.iterations++

		// Reduced costs c_j - c_B B^-1 A_j, computed through the duals pi = B^-T c_B.
		for i, bv := range rs.basis {
			cB.SetVec(i, c[bv])
		}
		pi.MulVec(rs.binv.T(), cB)

		entering, minReduced := -1, 0.0
		for j := 0; j < rs.cols; j++ {
			if barred != nil && barred[j] {
				continue
			}
			rc := c[j] - mat.Dot(&pi, rs.a.ColView(j))
			if entering < 0 || rc < minReduced {
				entering, minReduced = j, rc
			}
		}
		if entering < 0 || minReduced >= -rs.tol {
			return statusOptimal
		}

		d := rs.direction(entering)
		leaving, minRatio := -1, math.Inf(1)
		for i := 0; i < rs.m; i++ {
			if di := d.AtVec(i); di > rs.tol {
				if ratio := rs.x[rs.basis[i]] / di; ratio < minRatio {
					leaving, minRatio = i, ratio
				}
			}
		}
		if leaving < 0 {
			return statusUnbounded
		}
		rs.pivot(entering, leaving, d)
	}
}

// direction returns B^-1 A_j.
func (rs *revisedSimplex) direction(j int) *mat.VecDense {
	d := mat.NewVecDense(rs.m, nil)
	d.MulVec(rs.binv, rs.a.ColView(j))
	return d
}

// pivot brings column `entering` into the basis in place of the variable basic
// in row `r`, moving the basic solution by θ along `d` and applying the eta
// update to the basis inverse.
func (rs *revisedSimplex) pivot(entering, r int, d *mat.VecDense) {
	dr := d.AtVec(r)
	leavingVar := rs.basis[r]
	theta := rs.x[leavingVar] / dr

	for i, bv := range rs.basis {
		rs.x[bv] -= theta * d.AtVec(i)
	}
	rs.x[entering] = theta
	rs.x[leavingVar] = 0

	rs.basis[r] = entering
	rs.isBasic[leavingVar] = false
	rs.isBasic[entering] = true

	pivotRow := rs.binv.RawRowView(r)
	floats.Scale(1/dr, pivotRow)
	for i := 0; i < rs.m; i++ {
		if i == r {
			continue
		}
		if di := d.AtVec(i); di != 0 {
			floats.AddScaled(rs.binv.RawRowView(i), -di, pivotRow)
		}
	}
}

// driveOutArtificials replaces artificials left basic at zero after Phase 1
// with any structural or slack column that has a non-zero entry in their row.
// An artificial with no such column sits in a redundant row and stays at zero.
func (rs *revisedSimplex) driveOutArtificials() {
	for r := 0; r < rs.m; r++ {
		if !rs.artificial[rs.basis[r]] {
			continue
		}
		for j := 0; j < rs.cols; j++ {
			if rs.artificial[j] || rs.isBasic[j] {
				continue
			}
			d := rs.direction(j)
			if math.Abs(d.AtVec(r)) > rs.tol {
				rs.x[rs.basis[r]] = 0
				rs.pivot(j, r, d)
				break
			}
		}
	}
}

// objective returns the value of the current basic solution under `c`.
func (rs *revisedSimplex) objective(c []float64) float64 {
	var z float64
	for _, bv := range rs.basis {
		z += c[bv] * rs.x[bv]
	}
	return z
}
