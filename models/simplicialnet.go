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

package models

import (
	"github.com/gomlx/topomlx/ml/context"
	"github.com/gomlx/topomlx/ml/layers"
	"github.com/gomlx/topomlx/types/tensors"
)

// SimplicialNet is a convolutional network over simplicial complexes for
// whole-complex classification.
//
// Forward inputs, in order:
//
//	x0 [numNodes, inputDim]  node features
//	p0 [numNodes, numNodes]  rank-0 propagation matrix, typically the
//	                         complex's normalized adjacency
//	                         (topo.SimplicialComplex.NormalizedAdjacency)
//
// Two propagation convolutions, mean pooling over nodes, and a linear head
// to class logits [numClasses].
type SimplicialNet struct {
	ctx *context.Context

	conv1, conv2 *layers.StructConv
	head         *layers.Dense

	training bool
	numNodes int
}

// NewSimplicialNet creates a SimplicialNet with its variables in ctx, under
// the "simplicial_net" scope.
func NewSimplicialNet(ctx *context.Context, inputDim, hiddenDim, numClasses int) *SimplicialNet {
	ctx = ctx.In("simplicial_net")
	return &SimplicialNet{
		ctx:   ctx,
		conv1: layers.NewStructConv(ctx, "conv_1", inputDim, hiddenDim, layers.ActivationReLU),
		conv2: layers.NewStructConv(ctx, "conv_2", hiddenDim, hiddenDim, layers.ActivationReLU),
		head:  layers.NewDense(ctx, "head", hiddenDim, numClasses),
	}
}

// Context in which the model variables live.
func (m *SimplicialNet) Context() *context.Context { return m.ctx }

// SetTraining implements train.Model. SimplicialNet has no train-only layers.
func (m *SimplicialNet) SetTraining(training bool) { m.training = training }

// Forward implements train.Model, returning class logits [numClasses].
func (m *SimplicialNet) Forward(inputs []*tensors.Tensor) *tensors.Tensor {
	checkInputs("SimplicialNet", inputs, 2)
	x0, p0 := inputs[0], inputs[1]
	m.numNodes = x0.Shape().Dimensions[0]

	hidden := m.conv1.Forward(p0, x0)
	hidden = m.conv2.Forward(p0, hidden)
	pooled := tensors.ReduceMeanAxis0(hidden)
	return asVector(m.head.Forward(asRow(pooled)))
}

// Backward implements train.Model. grad must be [numClasses].
func (m *SimplicialNet) Backward(grad *tensors.Tensor) {
	dPooled := m.head.Backward(asRow(grad))
	dHidden := m.conv2.Backward(meanPoolGrad(asVector(dPooled), m.numNodes))
	m.conv1.Backward(dHidden)
}
