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

// Package tensors implements a dense, row-major, float64 backed Tensor used
// as the unit of data of the whole library: features, structure matrices
// (adjacency, incidence, Laplacians), labels, predictions and gradients.
//
// The matrix kernels (MatMul and friends, see ops.go) are built on top of
// gonum (gonum.org/v1/gonum/mat).
package tensors

import (
	"fmt"
	"math"
	"strings"

	. "github.com/gomlx/exceptions"
	"github.com/gomlx/topomlx/types/shapes"
	"gonum.org/v1/gonum/mat"
)

// Tensor is a dense n-dimensional array of float64 values, in row-major
// order. The zero value is not valid, use one of the From* constructors or
// FromShape.
type Tensor struct {
	shape shapes.Shape
	flat  []float64
}

// FromShape returns a zero-initialized tensor with the given shape.
func FromShape(shape shapes.Shape) *Tensor {
	return &Tensor{
		shape: shape.Clone(),
		flat:  make([]float64, shape.Size()),
	}
}

// FromScalar returns a rank-0 tensor holding the given value.
func FromScalar(value float64) *Tensor {
	return &Tensor{shape: shapes.Scalar(), flat: []float64{value}}
}

// FromFlatDataAndDimensions creates a tensor from a flat slice of values and
// its dimensions. The data is used directly, not copied -- the caller gives
// up ownership.
func FromFlatDataAndDimensions(data []float64, dimensions ...int) *Tensor {
	shape := shapes.Make(dimensions...)
	if shape.Size() != len(data) {
		Panicf("tensors.FromFlatDataAndDimensions: shape %s requires %d values, got %d",
			shape, shape.Size(), len(data))
	}
	return &Tensor{shape: shape, flat: data}
}

// FromValue creates a tensor from a []float64 (rank-1) or a [][]float64
// (rank-2, all rows must have the same length). The data is copied.
func FromValue(value any) *Tensor {
	switch v := value.(type) {
	case float64:
		return FromScalar(v)
	case []float64:
		flat := make([]float64, len(v))
		copy(flat, v)
		return FromFlatDataAndDimensions(flat, len(v))
	case [][]float64:
		numRows := len(v)
		numCols := 0
		if numRows > 0 {
			numCols = len(v[0])
		}
		flat := make([]float64, 0, numRows*numCols)
		for _, row := range v {
			if len(row) != numCols {
				Panicf("tensors.FromValue: ragged [][]float64, row with %d values, expected %d", len(row), numCols)
			}
			flat = append(flat, row...)
		}
		return FromFlatDataAndDimensions(flat, numRows, numCols)
	}
	Panicf("tensors.FromValue: unsupported value type %T", value)
	return nil
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// Rank of the tensor's shape.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// IsScalar returns whether the tensor holds a single value.
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// Size returns the number of elements.
func (t *Tensor) Size() int { return t.shape.Size() }

// Flat returns the underlying row-major data slice. Mutating it mutates the
// tensor.
func (t *Tensor) Flat() []float64 { return t.flat }

// At returns the value at the given indices, one per axis.
func (t *Tensor) At(indices ...int) float64 {
	return t.flat[t.flatIndex(indices)]
}

// Set the value at the given indices, one per axis.
func (t *Tensor) Set(value float64, indices ...int) {
	t.flat[t.flatIndex(indices)] = value
}

func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != t.Rank() {
		Panicf("tensor shape %s indexed with %d indices", t.shape, len(indices))
	}
	flatIdx := 0
	for axis, idx := range indices {
		dim := t.shape.Dimensions[axis]
		if idx < 0 || idx >= dim {
			Panicf("index %d out of range for axis %d of shape %s", idx, axis, t.shape)
		}
		flatIdx = flatIdx*dim + idx
	}
	return flatIdx
}

// ToScalar returns the value of a rank-0 (or size-1) tensor.
func ToScalar(t *Tensor) float64 {
	if t.Size() != 1 {
		Panicf("tensors.ToScalar: tensor shape %s is not a scalar", t.shape)
	}
	return t.flat[0]
}

// Clone makes a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	flat := make([]float64, len(t.flat))
	copy(flat, t.flat)
	return &Tensor{shape: t.shape.Clone(), flat: flat}
}

// CopyFrom copies the values of other into t. Shapes must match.
func (t *Tensor) CopyFrom(other *Tensor) {
	if !t.shape.Equal(other.shape) {
		Panicf("tensors.CopyFrom: shapes %s and %s differ", t.shape, other.shape)
	}
	copy(t.flat, other.flat)
}

// Zero sets all values to 0.
func (t *Tensor) Zero() {
	for ii := range t.flat {
		t.flat[ii] = 0
	}
}

// Matrix returns a gonum *mat.Dense sharing the tensor's data. It panics if
// the tensor is not rank-2.
func (t *Tensor) Matrix() *mat.Dense {
	if t.Rank() != 2 {
		Panicf("tensors.Matrix: tensor shape %s is not a matrix", t.shape)
	}
	return mat.NewDense(t.shape.Dimensions[0], t.shape.Dimensions[1], t.flat)
}

// Equal returns whether both tensors have the same shape and exactly the
// same values. NaN values are considered different from anything, including
// themselves.
func (t *Tensor) Equal(other *Tensor) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	for ii, v := range t.flat {
		if v != other.flat[ii] {
			return false
		}
	}
	return true
}

// InDelta returns whether both tensors have the same shape and all values
// are within +/- delta of each other.
func (t *Tensor) InDelta(other *Tensor, delta float64) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	for ii, v := range t.flat {
		if math.Abs(v-other.flat[ii]) > delta {
			return false
		}
	}
	return true
}

// String prints the shape and up to a few values of the tensor.
func (t *Tensor) String() string {
	const maxValues = 16
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "tensor%s{", t.shape)
	for ii, v := range t.flat {
		if ii >= maxValues {
			_, _ = fmt.Fprintf(&sb, ", ... (%d values)", t.Size())
			break
		}
		if ii > 0 {
			sb.WriteString(", ")
		}
		_, _ = fmt.Fprintf(&sb, "%g", v)
	}
	sb.WriteString("}")
	return sb.String()
}
