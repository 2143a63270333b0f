/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package topo

import (
	"math"

	. "github.com/gomlx/exceptions"
	"github.com/gomlx/topomlx/types/shapes"
	"github.com/gomlx/topomlx/types/tensors"
)

// Eye returns the [n, n] identity matrix.
func Eye(n int) *tensors.Tensor {
	eye := tensors.FromShape(shapes.Make(n, n))
	for ii := 0; ii < n; ii++ {
		eye.Set(1, ii, ii)
	}
	return eye
}

// RowNormalize returns a copy of the matrix with each row divided by its
// sum. Rows summing to zero are left untouched -- an entity with no
// neighbors propagates nothing, it is not an error.
func RowNormalize(m *tensors.Tensor) *tensors.Tensor {
	if m.Rank() != 2 {
		Panicf("topo.RowNormalize: operand must be a matrix, got %s", m.Shape())
	}
	numRows, numCols := m.Shape().Dimensions[0], m.Shape().Dimensions[1]
	result := m.Clone()
	for row := 0; row < numRows; row++ {
		sum := 0.0
		for col := 0; col < numCols; col++ {
			sum += result.At(row, col)
		}
		if sum == 0 {
			continue
		}
		for col := 0; col < numCols; col++ {
			result.Set(result.At(row, col)/sum, row, col)
		}
	}
	return result
}

// SymNormalizeWithSelfLoops returns D̂^(-1/2)·(A+I)·D̂^(-1/2) for a square
// adjacency matrix A, with D̂ the degree matrix of A+I. This is the standard
// symmetric message-passing normalization.
func SymNormalizeWithSelfLoops(adj *tensors.Tensor) *tensors.Tensor {
	if adj.Rank() != 2 || adj.Shape().Dimensions[0] != adj.Shape().Dimensions[1] {
		Panicf("topo.SymNormalizeWithSelfLoops: operand must be square, got %s", adj.Shape())
	}
	n := adj.Shape().Dimensions[0]
	withLoops := tensors.Add(adj, Eye(n))
	invSqrtDegree := make([]float64, n)
	for ii := 0; ii < n; ii++ {
		degree := 0.0
		for jj := 0; jj < n; jj++ {
			degree += withLoops.At(ii, jj)
		}
		invSqrtDegree[ii] = 1.0 / math.Sqrt(degree) // >= 1 due to the self-loop.
	}
	result := tensors.FromShape(adj.Shape())
	for ii := 0; ii < n; ii++ {
		for jj := 0; jj < n; jj++ {
			result.Set(withLoops.At(ii, jj)*invSqrtDegree[ii]*invSqrtDegree[jj], ii, jj)
		}
	}
	return result
}
