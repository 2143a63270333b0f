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
	"math"
	"testing"

	"github.com/gomlx/topomlx/ml/context"
	"github.com/gomlx/topomlx/topo"
	"github.com/gomlx/topomlx/types/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triangleWithTail is a graph whose cycle lifting has exactly one 2-cell.
func triangleWithTail() *topo.Graph {
	return topo.NewGraph(5).
		AddEdge(0, 1).AddEdge(1, 2).AddEdge(0, 2).
		AddEdge(2, 3).AddEdge(3, 4)
}

// chain has no cycles: its cycle lifting has no 2-cells.
func chain() *topo.Graph {
	return topo.NewGraph(4).AddEdge(0, 1).AddEdge(1, 2).AddEdge(2, 3)
}

func onesMatrix(rows, cols int) *tensors.Tensor {
	m := tensors.FromFlatDataAndDimensions(make([]float64, rows*cols), rows, cols)
	flat := m.Flat()
	for ii := range flat {
		flat[ii] = 1.0
	}
	return m
}

func ccxnInputs(g *topo.Graph) []*tensors.Tensor {
	cc := topo.CycleLifting(g)
	return []*tensors.Tensor{
		onesMatrix(g.NumNodes(), 2),
		onesMatrix(g.NumEdges(), 1),
		cc.AdjacencyMatrix(),
		cc.IncidenceMatrixTranspose(),
	}
}

func assertAllFinite(t *testing.T, tensor *tensors.Tensor) {
	for _, v := range tensor.Flat() {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestCCXNForwardShape(t *testing.T) {
	ctx := context.New().RngStateWithSeed(1)
	model := NewCCXN(ctx, 2, 1, 4, 3)
	logits := model.Forward(ccxnInputs(triangleWithTail()))
	require.Equal(t, []int{3}, logits.Shape().Dimensions)
	assertAllFinite(t, logits)

	assert.Panics(t, func() { model.Forward(nil) })
}

func TestCCXNEmptyCellRank(t *testing.T) {
	ctx := context.New().RngStateWithSeed(1)
	model := NewCCXN(ctx, 2, 1, 4, 3)

	// A chain has no 2-cells: the cell-rank mean pool is NaN and replaced by
	// zero, so the logits stay finite and training still works.
	inputs := ccxnInputs(chain())
	require.Equal(t, 0, inputs[3].Shape().Dimensions[0])
	logits := model.Forward(inputs)
	assertAllFinite(t, logits)

	model.Backward(tensors.FromValue([]float64{1.0, 0.0, -1.0}))
	// The cell head received no gradient.
	cellsWeights := ctx.InspectVariable("/ccxn/head_cells", "weights")
	require.NotNil(t, cellsWeights)
	for _, v := range cellsWeights.Gradient().Flat() {
		assert.Equal(t, 0.0, v)
	}
	// The node path did.
	nodesWeights := ctx.InspectVariable("/ccxn/head_nodes", "weights")
	gradNorm := 0.0
	for _, v := range nodesWeights.Gradient().Flat() {
		gradNorm += v * v
	}
	assert.Greater(t, gradNorm, 0.0)
}

func TestCCXNTrainingModeDoesNotChangePredictions(t *testing.T) {
	ctx := context.New().RngStateWithSeed(7)
	model := NewCCXN(ctx, 2, 1, 4, 3)
	inputs := ccxnInputs(triangleWithTail())

	model.SetTraining(true)
	trainLogits := model.Forward(inputs)
	model.SetTraining(false)
	evalLogits := model.Forward(inputs)
	assert.Equal(t, trainLogits.Flat(), evalLogits.Flat())
}

func TestHypergraphNetForward(t *testing.T) {
	ctx := context.New().RngStateWithSeed(3)
	model := NewHypergraphNet(ctx, 2, 4)
	g := triangleWithTail()
	hg := topo.NeighborhoodLifting(g)
	inputs := []*tensors.Tensor{
		onesMatrix(g.NumNodes(), 2),
		hg.PropagationMatrix(),
	}

	// Single logit output.
	logit := model.Forward(inputs)
	require.Equal(t, []int{1}, logit.Shape().Dimensions)
	assertAllFinite(t, logit)

	model.SetTraining(false)
	assert.Equal(t, logit.Flat(), model.Forward(inputs).Flat())

	// Gradients flow to the first convolution.
	model.Forward(inputs)
	model.Backward(tensors.FromValue([]float64{1.0}))
	weights := ctx.InspectVariable("/hypergraph_net/conv_1", "weights")
	require.NotNil(t, weights)
	gradNorm := 0.0
	for _, v := range weights.Gradient().Flat() {
		gradNorm += v * v
	}
	assert.Greater(t, gradNorm, 0.0)
}

func TestSimplicialNetForward(t *testing.T) {
	ctx := context.New().RngStateWithSeed(5)
	model := NewSimplicialNet(ctx, 2, 4, 3)
	g := triangleWithTail()
	sc := topo.CliqueLifting(g)
	inputs := []*tensors.Tensor{
		onesMatrix(g.NumNodes(), 2),
		sc.NormalizedAdjacency(),
	}

	logits := model.Forward(inputs)
	require.Equal(t, []int{3}, logits.Shape().Dimensions)
	assertAllFinite(t, logits)

	model.Forward(inputs)
	model.Backward(tensors.FromValue([]float64{0.5, -0.5, 0.0}))
	weights := ctx.InspectVariable("/simplicial_net/conv_1", "weights")
	require.NotNil(t, weights)
	gradNorm := 0.0
	for _, v := range weights.Gradient().Flat() {
		gradNorm += v * v
	}
	assert.Greater(t, gradNorm, 0.0)
}
