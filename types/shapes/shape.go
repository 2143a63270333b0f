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

// Package shapes defines Shape, the dimensions of the n-dimensional arrays
// (tensors) used throughout the library.
//
// All tensors in this module hold float64 values, so a Shape carries only the
// dimensions. A scalar is represented by a rank-0 shape.
package shapes

import (
	"fmt"
	"strings"

	. "github.com/gomlx/exceptions"
)

// Shape represents the dimensions of a tensor. The zero value is a valid
// scalar shape.
type Shape struct {
	Dimensions []int
}

// Make returns a Shape with the given dimensions. All dimensions must be
// non-negative -- zero-sized dimensions are valid, they represent empty
// tensors (e.g. a complex with no cells of a given rank).
func Make(dimensions ...int) Shape {
	for _, dim := range dimensions {
		if dim < 0 {
			Panicf("shapes.Make(%v): dimensions must be non-negative", dimensions)
		}
	}
	return Shape{Dimensions: dimensions}
}

// Scalar returns a rank-0 shape.
func Scalar() Shape { return Shape{} }

// Rank returns the number of dimensions.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape has rank 0.
func (s Shape) IsScalar() bool { return s.Rank() == 0 }

// Dim returns the dimension of the given axis. Negative axis values count
// from the end, python style: Dim(-1) is the last dimension.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		Panicf("shape %s has no axis %d", s, axis)
	}
	return s.Dimensions[adjustedAxis]
}

// Size returns the total number of elements. A scalar has size 1.
func (s Shape) Size() int {
	size := 1
	for _, dim := range s.Dimensions {
		size *= dim
	}
	return size
}

// Equal compares two shapes dimension by dimension.
func (s Shape) Equal(s2 Shape) bool {
	if s.Rank() != s2.Rank() {
		return false
	}
	for ii, dim := range s.Dimensions {
		if s2.Dimensions[ii] != dim {
			return false
		}
	}
	return true
}

// Clone makes a deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.Dimensions = make([]int, len(s.Dimensions))
	copy(s2.Dimensions, s.Dimensions)
	return
}

// String implements fmt.Stringer. E.g.: "[3 4]" for a 3x4 matrix, "[]" for
// a scalar.
func (s Shape) String() string {
	if s.IsScalar() {
		return "[]"
	}
	parts := make([]string, 0, s.Rank())
	for _, dim := range s.Dimensions {
		parts = append(parts, fmt.Sprintf("%d", dim))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
