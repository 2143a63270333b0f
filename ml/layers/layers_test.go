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
	"math"
	"testing"

	"github.com/gomlx/topomlx/ml/context"
	"github.com/gomlx/topomlx/types/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivations(t *testing.T) {
	x := tensors.FromValue([]float64{-2, 0, 3})

	relu := ActivationReLU.Apply(x)
	assert.True(t, relu.Equal(tensors.FromValue([]float64{0, 0, 3})))

	identity := ActivationIdentity.Apply(x)
	assert.True(t, identity.Equal(x))

	sigmoid := ActivationSigmoid.Apply(x)
	assert.InDelta(t, 0.5, sigmoid.At(1), 1e-12)

	tanh := ActivationTanh.Apply(x)
	assert.InDelta(t, math.Tanh(3), tanh.At(2), 1e-12)

	assert.Equal(t, ActivationReLU, ActivationByName("relu"))
	assert.Equal(t, "relu", ActivationReLU.String())
}

// lossOf runs forward and returns sum(output * seedWeights): a scalar whose
// gradient with respect to the output is seedWeights.
func lossOf(output, seedWeights *tensors.Tensor) float64 {
	total := 0.0
	for ii, v := range output.Flat() {
		total += v * seedWeights.Flat()[ii]
	}
	return total
}

// numericalGrad computes d(lossFn)/d(v) by central finite differences, for
// every element of the variable's value.
func numericalGrad(v *context.Variable, lossFn func() float64) *tensors.Tensor {
	const epsilon = 1e-6
	grad := tensors.FromShape(v.Value().Shape())
	flat := v.Value().Flat()
	for ii := range flat {
		saved := flat[ii]
		flat[ii] = saved + epsilon
		plus := lossFn()
		flat[ii] = saved - epsilon
		minus := lossFn()
		flat[ii] = saved
		grad.Flat()[ii] = (plus - minus) / (2 * epsilon)
	}
	return grad
}

func TestDenseGradients(t *testing.T) {
	ctx := context.New().RngStateWithSeed(1)
	dense := NewDense(ctx, "dense", 3, 2)
	x := tensors.FromValue([][]float64{{0.5, -1, 2}, {1, 1, -0.5}})
	seed := tensors.FromValue([][]float64{{1, -2}, {0.5, 1}})

	output := dense.Forward(x)
	require.Equal(t, []int{2, 2}, output.Shape().Dimensions)
	dense.Backward(seed)

	weights := ctx.In("dense").GetVariable("weights")
	bias := ctx.In("dense").GetVariable("biases")
	require.NotNil(t, weights)
	require.NotNil(t, bias)

	lossFn := func() float64 { return lossOf(dense.Forward(x), seed) }
	assert.True(t, weights.Gradient().InDelta(numericalGrad(weights, lossFn), 1e-5),
		"analytic %s vs numeric %s", weights.Gradient(), numericalGrad(weights, lossFn))
	assert.True(t, bias.Gradient().InDelta(numericalGrad(bias, lossFn), 1e-5))
}

func TestStructConvGradients(t *testing.T) {
	ctx := context.New().RngStateWithSeed(2)
	conv := NewStructConv(ctx, "conv", 2, 3, ActivationTanh)

	// Rectangular structure: 2 targets aggregated from 3 sources.
	s := tensors.FromValue([][]float64{{1, 0, 1}, {0, 0.5, 0.5}})
	x := tensors.FromValue([][]float64{{1, -1}, {0.5, 2}, {-0.25, 0.75}})
	seed := tensors.FromValue([][]float64{{1, 0.5, -1}, {-0.5, 2, 1}})

	output := conv.Forward(s, x)
	require.Equal(t, []int{2, 3}, output.Shape().Dimensions)
	dX := conv.Backward(seed)
	require.Equal(t, x.Shape().Dimensions, dX.Shape().Dimensions)

	weights := ctx.In("conv").GetVariable("weights")
	require.NotNil(t, weights)
	lossFn := func() float64 { return lossOf(conv.Forward(s, x), seed) }
	assert.True(t, weights.Gradient().InDelta(numericalGrad(weights, lossFn), 1e-5))

	// dX checked numerically too: perturb the input features.
	const epsilon = 1e-6
	for ii := range x.Flat() {
		saved := x.Flat()[ii]
		x.Flat()[ii] = saved + epsilon
		plus := lossOf(conv.Forward(s, x), seed)
		x.Flat()[ii] = saved - epsilon
		minus := lossOf(conv.Forward(s, x), seed)
		x.Flat()[ii] = saved
		assert.InDelta(t, (plus-minus)/(2*epsilon), dX.Flat()[ii], 1e-5, "dX[%d]", ii)
	}
}

func TestStructConvShapeChecks(t *testing.T) {
	ctx := context.New()
	conv := NewStructConv(ctx, "conv", 2, 2, ActivationIdentity)
	s := tensors.FromValue([][]float64{{1, 0}, {0, 1}})
	badX := tensors.FromValue([][]float64{{1, 2}, {3, 4}, {5, 6}})
	assert.Panics(t, func() { conv.Forward(s, badX) })
	assert.Panics(t, func() { conv.Backward(s) }) // Backward before Forward.
}
