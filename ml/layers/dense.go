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

package layers

import (
	. "github.com/gomlx/exceptions"
	"github.com/gomlx/topomlx/ml/context"
	"github.com/gomlx/topomlx/types/shapes"
	"github.com/gomlx/topomlx/types/tensors"
)

// Dense is a fully connected layer: y = x·W + b, for x shaped
// [numEntities, inputDim]. Used as the linear projection head of the models.
type Dense struct {
	weights, bias *context.Variable

	lastInput *tensors.Tensor
}

// NewDense creates a Dense layer with its variables in the sub-scope name of
// ctx. Weights get the default initializer, biases start at zero.
func NewDense(ctx *context.Context, name string, inputDim, outputDim int) *Dense {
	ctx = ctx.In(name)
	return &Dense{
		weights: ctx.VariableWithShape("weights", shapes.Make(inputDim, outputDim)),
		bias:    ctx.VariableWithValue("biases", tensors.FromShape(shapes.Make(outputDim))),
	}
}

// Forward computes y = x·W + b. x must be [numEntities, inputDim]. The input
// is cached for Backward.
func (d *Dense) Forward(x *tensors.Tensor) *tensors.Tensor {
	if x.Rank() != 2 {
		Panicf("layers.Dense.Forward: input must be [numEntities, inputDim], got %s", x.Shape())
	}
	d.lastInput = x
	return tensors.AddRowWise(tensors.MatMul(x, d.weights.Value()), d.bias.Value())
}

// Backward accumulates the weight and bias gradients for the cached forward
// input, and returns the gradient with respect to that input.
func (d *Dense) Backward(dOutput *tensors.Tensor) *tensors.Tensor {
	if d.lastInput == nil {
		Panicf("layers.Dense.Backward called before Forward")
	}
	d.weights.AccumGradient(tensors.MatMul(tensors.Transpose(d.lastInput), dOutput))
	d.bias.AccumGradient(tensors.ReduceSumAxis0(dOutput))
	return tensors.MatMul(dOutput, tensors.Transpose(d.weights.Value()))
}
