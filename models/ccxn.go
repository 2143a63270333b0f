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

// CCXN is a convolutional network over cell complexes for whole-complex
// classification.
//
// Forward inputs, in order:
//
//	x0  [numNodes, nodeDim]   node features
//	x1  [numEdges, edgeDim]   edge features
//	a0  [numNodes, numNodes]  node adjacency
//	b2T [numCells, numEdges]  transposed edge-to-cell incidence
//
// Node features go through two adjacency convolutions; cell features are
// built from the edge features through the incidence convolution. Each rank
// is then projected to class logits by its own linear head and mean-pooled
// over its entities; the three pooled vectors are summed into the final
// logits [numClasses].
//
// A complex may have no cells at all (an acyclic skeleton): the mean over
// that empty rank is NaN and is substituted by zero, so the rank simply
// contributes nothing. The substitution is deliberately limited to this
// pooling step.
type CCXN struct {
	ctx *context.Context

	convNodes1, convNodes2 *layers.StructConv
	convEdgesToCells       *layers.StructConv

	headNodes, headEdges, headCells *layers.Dense

	training bool

	// Entity counts of the last Forward, for Backward.
	numNodes, numEdges, numCells int
}

// NewCCXN creates a CCXN with its variables in ctx, under the "ccxn" scope.
func NewCCXN(ctx *context.Context, nodeDim, edgeDim, hiddenDim, numClasses int) *CCXN {
	ctx = ctx.In("ccxn")
	return &CCXN{
		ctx:              ctx,
		convNodes1:       layers.NewStructConv(ctx, "conv_nodes_1", nodeDim, hiddenDim, layers.ActivationReLU),
		convNodes2:       layers.NewStructConv(ctx, "conv_nodes_2", hiddenDim, hiddenDim, layers.ActivationReLU),
		convEdgesToCells: layers.NewStructConv(ctx, "conv_edges_to_cells", edgeDim, hiddenDim, layers.ActivationReLU),
		headNodes:        layers.NewDense(ctx, "head_nodes", hiddenDim, numClasses),
		headEdges:        layers.NewDense(ctx, "head_edges", edgeDim, numClasses),
		headCells:        layers.NewDense(ctx, "head_cells", hiddenDim, numClasses),
	}
}

// Context in which the model variables live.
func (m *CCXN) Context() *context.Context { return m.ctx }

// SetTraining implements train.Model. CCXN has no train-only layers.
func (m *CCXN) SetTraining(training bool) { m.training = training }

// Forward implements train.Model, returning class logits [numClasses].
func (m *CCXN) Forward(inputs []*tensors.Tensor) *tensors.Tensor {
	checkInputs("CCXN", inputs, 4)
	x0, x1, a0, b2T := inputs[0], inputs[1], inputs[2], inputs[3]
	m.numNodes = x0.Shape().Dimensions[0]
	m.numEdges = x1.Shape().Dimensions[0]
	m.numCells = b2T.Shape().Dimensions[0]

	hidden0 := m.convNodes1.Forward(a0, x0)
	hidden0 = m.convNodes2.Forward(a0, hidden0)
	hidden2 := m.convEdgesToCells.Forward(b2T, x1)

	logits0 := tensors.ReduceMeanAxis0(m.headNodes.Forward(hidden0))
	logits1 := tensors.ReduceMeanAxis0(m.headEdges.Forward(x1))
	logits2 := tensors.ReduceMeanAxis0(m.headCells.Forward(hidden2))
	logits := tensors.Add(
		tensors.ReplaceNaN(logits0, 0),
		tensors.Add(
			tensors.ReplaceNaN(logits1, 0),
			tensors.ReplaceNaN(logits2, 0)))
	return logits
}

// Backward implements train.Model. grad must be [numClasses]. Ranks that
// were empty in the last Forward contribute no gradient: their pooled mean
// was replaced by the zero constant.
func (m *CCXN) Backward(grad *tensors.Tensor) {
	if m.numNodes > 0 {
		dHidden := m.headNodes.Backward(meanPoolGrad(grad, m.numNodes))
		dHidden = m.convNodes2.Backward(dHidden)
		m.convNodes1.Backward(dHidden)
	}
	if m.numEdges > 0 {
		m.headEdges.Backward(meanPoolGrad(grad, m.numEdges))
	}
	if m.numCells > 0 {
		dHidden := m.headCells.Backward(meanPoolGrad(grad, m.numCells))
		m.convEdgesToCells.Backward(dHidden)
	}
}
