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

// HypergraphNet is a convolutional network over hypergraphs for binary
// whole-hypergraph classification.
//
// Forward inputs, in order:
//
//	x0 [numNodes, inputDim]  node features
//	p  [numNodes, numNodes]  degree-normalized propagation matrix
//	                         (topo.Hypergraph.PropagationMatrix)
//
// Two propagation convolutions, mean pooling over nodes, and a single-logit
// linear head: the output is [1], a logit whose sigmoid is the probability
// of the positive class.
type HypergraphNet struct {
	ctx *context.Context

	conv1, conv2 *layers.StructConv
	head         *layers.Dense

	training bool
	numNodes int
}

// NewHypergraphNet creates a HypergraphNet with its variables in ctx, under
// the "hypergraph_net" scope.
func NewHypergraphNet(ctx *context.Context, inputDim, hiddenDim int) *HypergraphNet {
	ctx = ctx.In("hypergraph_net")
	return &HypergraphNet{
		ctx:   ctx,
		conv1: layers.NewStructConv(ctx, "conv_1", inputDim, hiddenDim, layers.ActivationReLU),
		conv2: layers.NewStructConv(ctx, "conv_2", hiddenDim, hiddenDim, layers.ActivationReLU),
		head:  layers.NewDense(ctx, "head", hiddenDim, 1),
	}
}

// Context in which the model variables live.
func (m *HypergraphNet) Context() *context.Context { return m.ctx }

// SetTraining implements train.Model. HypergraphNet has no train-only layers.
func (m *HypergraphNet) SetTraining(training bool) { m.training = training }

// Forward implements train.Model, returning the logit [1].
func (m *HypergraphNet) Forward(inputs []*tensors.Tensor) *tensors.Tensor {
	checkInputs("HypergraphNet", inputs, 2)
	x0, p := inputs[0], inputs[1]
	m.numNodes = x0.Shape().Dimensions[0]

	hidden := m.conv1.Forward(p, x0)
	hidden = m.conv2.Forward(p, hidden)
	pooled := tensors.ReduceMeanAxis0(hidden)
	return asVector(m.head.Forward(asRow(pooled)))
}

// Backward implements train.Model. grad must be [1].
func (m *HypergraphNet) Backward(grad *tensors.Tensor) {
	dPooled := m.head.Backward(asRow(grad))
	dHidden := m.conv2.Backward(meanPoolGrad(asVector(dPooled), m.numNodes))
	m.conv1.Backward(dHidden)
}
