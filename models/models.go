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

// Package models implements the topological neural network variants, all
// satisfying train.Model: CCXN over cell complexes, HypergraphNet over
// hypergraphs and SimplicialNet over simplicial complexes. Each is a small
// stack of message-passing layers (layers.StructConv) over the sample's
// structure matrices, followed by mean pooling and a linear head.
package models

import (
	. "github.com/gomlx/exceptions"
	"github.com/gomlx/topomlx/types/tensors"
)

// checkInputs panics unless exactly want inputs were passed to a model's
// Forward.
func checkInputs(model string, inputs []*tensors.Tensor, want int) {
	if len(inputs) != want {
		Panicf("models.%s.Forward: requires %d inputs, got %d", model, want, len(inputs))
	}
}

// asRow views a rank-1 tensor [n] as a single-row matrix [1, n], sharing the
// underlying data.
func asRow(vec *tensors.Tensor) *tensors.Tensor {
	if vec.Rank() != 1 {
		Panicf("models: expected a vector, got %s", vec.Shape())
	}
	return tensors.FromFlatDataAndDimensions(vec.Flat(), 1, vec.Size())
}

// asVector views a single-row matrix [1, n] as a rank-1 tensor [n], sharing
// the underlying data.
func asVector(row *tensors.Tensor) *tensors.Tensor {
	if row.Rank() != 2 || row.Shape().Dimensions[0] != 1 {
		Panicf("models: expected a single-row matrix, got %s", row.Shape())
	}
	return tensors.FromFlatDataAndDimensions(row.Flat(), row.Size())
}

// meanPoolGrad back-propagates through a per-column mean over numRows rows:
// every row receives grad/numRows. grad must be rank-1 [numCols].
func meanPoolGrad(grad *tensors.Tensor, numRows int) *tensors.Tensor {
	numCols := grad.Size()
	flat := make([]float64, numRows*numCols)
	gradFlat := grad.Flat()
	for row := 0; row < numRows; row++ {
		for col := 0; col < numCols; col++ {
			flat[row*numCols+col] = gradFlat[col] / float64(numRows)
		}
	}
	return tensors.FromFlatDataAndDimensions(flat, numRows, numCols)
}
