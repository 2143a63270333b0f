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

package tensors

import (
	"math"

	. "github.com/gomlx/exceptions"
	"github.com/gomlx/topomlx/types/shapes"
)

// MatMul returns the matrix product a·b. a must be [m, k] and b [k, n].
//
// Zero-sized dimensions are valid: multiplying by an empty matrix yields a
// zero-filled (or empty) result, gonum is only invoked for non-empty
// operands.
func MatMul(a, b *Tensor) *Tensor {
	if a.Rank() != 2 || b.Rank() != 2 {
		Panicf("tensors.MatMul: operands must be matrices, got %s and %s", a.Shape(), b.Shape())
	}
	m, k := a.Shape().Dimensions[0], a.Shape().Dimensions[1]
	k2, n := b.Shape().Dimensions[0], b.Shape().Dimensions[1]
	if k != k2 {
		Panicf("tensors.MatMul: incompatible shapes %s and %s", a.Shape(), b.Shape())
	}
	result := FromShape(shapes.Make(m, n))
	if m == 0 || n == 0 || k == 0 {
		return result
	}
	result.Matrix().Mul(a.Matrix(), b.Matrix())
	return result
}

// Transpose returns aᵀ for a matrix a.
func Transpose(a *Tensor) *Tensor {
	if a.Rank() != 2 {
		Panicf("tensors.Transpose: operand must be a matrix, got %s", a.Shape())
	}
	numRows, numCols := a.Shape().Dimensions[0], a.Shape().Dimensions[1]
	result := FromShape(shapes.Make(numCols, numRows))
	for row := 0; row < numRows; row++ {
		for col := 0; col < numCols; col++ {
			result.Set(a.At(row, col), col, row)
		}
	}
	return result
}

func binaryOp(name string, a, b *Tensor, fn func(a, b float64) float64) *Tensor {
	if !a.Shape().Equal(b.Shape()) {
		Panicf("tensors.%s: shapes %s and %s differ", name, a.Shape(), b.Shape())
	}
	result := FromShape(a.Shape())
	for ii, v := range a.flat {
		result.flat[ii] = fn(v, b.flat[ii])
	}
	return result
}

// Add returns the element-wise sum a+b. Shapes must match.
func Add(a, b *Tensor) *Tensor {
	return binaryOp("Add", a, b, func(a, b float64) float64 { return a + b })
}

// Sub returns the element-wise difference a-b. Shapes must match.
func Sub(a, b *Tensor) *Tensor {
	return binaryOp("Sub", a, b, func(a, b float64) float64 { return a - b })
}

// Mul returns the element-wise (Hadamard) product a*b. Shapes must match.
func Mul(a, b *Tensor) *Tensor {
	return binaryOp("Mul", a, b, func(a, b float64) float64 { return a * b })
}

// Scale returns a*scalar.
func Scale(a *Tensor, scalar float64) *Tensor {
	result := FromShape(a.Shape())
	for ii, v := range a.flat {
		result.flat[ii] = v * scalar
	}
	return result
}

// AddScaled adds scale*other to t, in place. Shapes must match. This is the
// kernel of the optimizers' parameter update.
func (t *Tensor) AddScaled(other *Tensor, scale float64) {
	if !t.shape.Equal(other.shape) {
		Panicf("tensors.AddScaled: shapes %s and %s differ", t.shape, other.shape)
	}
	for ii, v := range other.flat {
		t.flat[ii] += v * scale
	}
}

// AddRowWise adds the vector b [n] to every row of the matrix a [m, n].
func AddRowWise(a, b *Tensor) *Tensor {
	if a.Rank() != 2 || b.Rank() != 1 || a.Shape().Dimensions[1] != b.Shape().Dimensions[0] {
		Panicf("tensors.AddRowWise: incompatible shapes %s and %s", a.Shape(), b.Shape())
	}
	numCols := b.Shape().Dimensions[0]
	result := FromShape(a.Shape())
	for ii, v := range a.flat {
		result.flat[ii] = v + b.flat[ii%numCols]
	}
	return result
}

// Apply returns a new tensor with fn applied to every element.
func Apply(a *Tensor, fn func(float64) float64) *Tensor {
	result := FromShape(a.Shape())
	for ii, v := range a.flat {
		result.flat[ii] = fn(v)
	}
	return result
}

// ReduceAllMean returns the mean of all elements as a scalar tensor. An
// empty tensor yields NaN (0/0).
func ReduceAllMean(a *Tensor) *Tensor {
	sum := 0.0
	for _, v := range a.flat {
		sum += v
	}
	return FromScalar(sum / float64(a.Size()))
}

// ReduceMeanAxis0 reduces a matrix [m, n] to the per-column mean [n]. If
// m == 0 every entry of the result is NaN -- the mean over an empty
// dimension is undefined. Callers that want the empty case to contribute
// nothing combine this with ReplaceNaN.
func ReduceMeanAxis0(a *Tensor) *Tensor {
	if a.Rank() != 2 {
		Panicf("tensors.ReduceMeanAxis0: operand must be a matrix, got %s", a.Shape())
	}
	numRows, numCols := a.Shape().Dimensions[0], a.Shape().Dimensions[1]
	result := FromShape(shapes.Make(numCols))
	for col := 0; col < numCols; col++ {
		sum := 0.0
		for row := 0; row < numRows; row++ {
			sum += a.At(row, col)
		}
		result.flat[col] = sum / float64(numRows)
	}
	return result
}

// ReduceSumAxis0 reduces a matrix [m, n] to the per-column sum [n].
func ReduceSumAxis0(a *Tensor) *Tensor {
	if a.Rank() != 2 {
		Panicf("tensors.ReduceSumAxis0: operand must be a matrix, got %s", a.Shape())
	}
	numRows, numCols := a.Shape().Dimensions[0], a.Shape().Dimensions[1]
	result := FromShape(shapes.Make(numCols))
	for col := 0; col < numCols; col++ {
		sum := 0.0
		for row := 0; row < numRows; row++ {
			sum += a.At(row, col)
		}
		result.flat[col] = sum
	}
	return result
}

// ReplaceNaN returns a copy of a with every NaN entry replaced by value.
// Applying it twice yields the same result as applying it once.
func ReplaceNaN(a *Tensor, value float64) *Tensor {
	return Apply(a, func(v float64) float64 {
		if math.IsNaN(v) {
			return value
		}
		return v
	})
}

// HasNaN reports whether any element is NaN.
func HasNaN(a *Tensor) bool {
	for _, v := range a.flat {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// ArgMax returns the index of the largest value of a rank-1 tensor and
// whether that largest value is unique. An empty vector returns (-1, false).
func ArgMax(a *Tensor) (index int, unique bool) {
	if a.Rank() != 1 {
		Panicf("tensors.ArgMax: operand must be a vector, got %s", a.Shape())
	}
	index = -1
	for ii, v := range a.flat {
		if index < 0 || v > a.flat[index] {
			index = ii
			unique = true
		} else if v == a.flat[index] {
			unique = false
		}
	}
	return
}
