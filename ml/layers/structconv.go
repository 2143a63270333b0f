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

// StructConv is the message-passing layer shared by all model variants:
//
//	Y = act(S·X·W)
//
// where X [numSources, inputDim] are the source entity features, S
// [numTargets, numSources] is a structure matrix (adjacency, incidence,
// propagation operator -- whatever relates the two ranks) and W
// [inputDim, outputDim] the trainable weights. With a square adjacency S
// this is a plain graph convolution; with a rectangular incidence matrix it
// moves features across ranks.
type StructConv struct {
	weights    *context.Variable
	activation Activation

	// Cached by Forward for the backward pass.
	lastStruct, lastAgg, lastPreAct *tensors.Tensor
}

// NewStructConv creates a StructConv layer with its weights in the sub-scope
// name of ctx.
func NewStructConv(ctx *context.Context, name string, inputDim, outputDim int, activation Activation) *StructConv {
	ctx = ctx.In(name)
	return &StructConv{
		weights:    ctx.VariableWithShape("weights", shapes.Make(inputDim, outputDim)),
		activation: activation,
	}
}

// Forward computes act(s·x·W). s must be [numTargets, numSources] and x
// [numSources, inputDim]. Inputs are cached for Backward.
func (c *StructConv) Forward(s, x *tensors.Tensor) *tensors.Tensor {
	if s.Rank() != 2 || x.Rank() != 2 {
		Panicf("layers.StructConv.Forward: structure and features must be matrices, got %s and %s",
			s.Shape(), x.Shape())
	}
	if s.Shape().Dimensions[1] != x.Shape().Dimensions[0] {
		Panicf("layers.StructConv.Forward: structure %s cannot aggregate features %s",
			s.Shape(), x.Shape())
	}
	c.lastStruct = s
	c.lastAgg = tensors.MatMul(s, x)
	c.lastPreAct = tensors.MatMul(c.lastAgg, c.weights.Value())
	return c.activation.Apply(c.lastPreAct)
}

// Backward accumulates the weight gradient for the cached forward inputs and
// returns the gradient with respect to the features x. The structure matrix
// is a constant of the sample, no gradient flows to it.
func (c *StructConv) Backward(dOutput *tensors.Tensor) *tensors.Tensor {
	if c.lastPreAct == nil {
		Panicf("layers.StructConv.Backward called before Forward")
	}
	dPreAct := tensors.Mul(dOutput, c.activation.Grad(c.lastPreAct))
	c.weights.AccumGradient(tensors.MatMul(tensors.Transpose(c.lastAgg), dPreAct))
	dAgg := tensors.MatMul(dPreAct, tensors.Transpose(c.weights.Value()))
	return tensors.MatMul(tensors.Transpose(c.lastStruct), dAgg)
}
