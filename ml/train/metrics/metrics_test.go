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

package metrics

import (
	"math"
	"testing"

	"github.com/gomlx/topomlx/ml/train/losses"
	"github.com/gomlx/topomlx/types/tensors"
	"github.com/stretchr/testify/assert"
)

func scalars(values ...float64) []*tensors.Tensor {
	result := make([]*tensors.Tensor, len(values))
	for ii, v := range values {
		result[ii] = tensors.FromScalar(v)
	}
	return result
}

func TestMean(t *testing.T) {
	var m Mean
	assert.True(t, math.IsNaN(m.Value())) // The mean of nothing is NaN.
	m.Add(1, 1)
	m.Add(3, 1)
	assert.Equal(t, 2.0, m.Value())
	m.Add(10, 2) // Weighted.
	assert.Equal(t, 6.0, m.Value())
	m.Reset()
	assert.True(t, math.IsNaN(m.Value()))
}

func TestMeanLossReportsEpochMean(t *testing.T) {
	// Per-sample losses 1, 2 and 3 must report a mean loss of exactly 2.
	constantLoss := func(labels, predictions []*tensors.Tensor) (loss, grad *tensors.Tensor) {
		return predictions[0], nil
	}
	metric := NewMeanLoss(constantLoss, "Mean Training Loss", "loss")
	for _, lossValue := range []float64{1, 2, 3} {
		metric.Update(scalars(0), scalars(lossValue))
	}
	assert.Equal(t, 2.0, tensors.ToScalar(metric.Value()))
	assert.Equal(t, "2.0000", metric.PrettyPrint(metric.Value()))
	assert.Equal(t, LossMetricType, metric.MetricType())

	metric.Reset()
	assert.True(t, math.IsNaN(tensors.ToScalar(metric.Value())))
}

func TestBinaryAccuracyBoundary(t *testing.T) {
	// A predicted probability of exactly 0.5 is the negative class: with a
	// positive label it is a miss, with a negative label a hit.
	value, weight := BinaryAccuracy(scalars(1), scalars(0.5))
	assert.Equal(t, 0.0, value)
	assert.Equal(t, 1.0, weight)

	value, _ = BinaryAccuracy(scalars(0), scalars(0.5))
	assert.Equal(t, 1.0, value)

	value, _ = BinaryAccuracy(scalars(1), scalars(0.500001))
	assert.Equal(t, 1.0, value)

	// Same rule on logits: 0 maps to probability 0.5, so negative class.
	value, _ = BinaryLogitsAccuracy(scalars(1), scalars(0))
	assert.Equal(t, 0.0, value)
	value, _ = BinaryLogitsAccuracy(scalars(0), scalars(0))
	assert.Equal(t, 1.0, value)
}

func TestSparseCategoricalAccuracy(t *testing.T) {
	logits := []*tensors.Tensor{tensors.FromValue([]float64{0.1, 2, -1})}
	value, weight := SparseCategoricalAccuracy(scalars(1), logits)
	assert.Equal(t, 1.0, value)
	assert.Equal(t, 1.0, weight)

	value, _ = SparseCategoricalAccuracy(scalars(0), logits)
	assert.Equal(t, 0.0, value)

	// A tie on the argmax is a miss, even when the label is among the tied.
	tied := []*tensors.Tensor{tensors.FromValue([]float64{2, 2, -1})}
	value, _ = SparseCategoricalAccuracy(scalars(0), tied)
	assert.Equal(t, 0.0, value)

	// Per-entity form.
	perRow := []*tensors.Tensor{tensors.FromValue([][]float64{{3, 0}, {0, 3}})}
	labels := []*tensors.Tensor{tensors.FromValue([]float64{0, 0})}
	value, weight = SparseCategoricalAccuracy(labels, perRow)
	assert.Equal(t, 0.5, value)
	assert.Equal(t, 2.0, weight)
}

func TestMeanAccuracyMetric(t *testing.T) {
	metric := NewMeanBinaryLogitsAccuracy("Mean Training Accuracy", "acc")
	metric.Update(scalars(1), scalars(2))  // Hit.
	metric.Update(scalars(0), scalars(1))  // Miss.
	metric.Update(scalars(0), scalars(-1)) // Hit.
	assert.InDelta(t, 2.0/3.0, tensors.ToScalar(metric.Value()), 1e-12)
	assert.Equal(t, "0.6667", metric.PrettyPrint(metric.Value()))
	assert.Equal(t, AccuracyMetricType, metric.MetricType())
}

func TestScopeNameIsStableAndUnique(t *testing.T) {
	a := NewMeanBinaryAccuracy("acc", "a")
	b := NewMeanBinaryAccuracy("acc", "a")
	assert.Equal(t, a.ScopeName(), a.ScopeName())
	assert.NotEqual(t, a.ScopeName(), b.ScopeName())
}

func TestMeanLossWithRealLoss(t *testing.T) {
	metric := NewMeanLoss(losses.MeanSquaredError, "Mean Evaluation Loss", "loss")
	metric.Update(
		[]*tensors.Tensor{tensors.FromValue([]float64{1})},
		[]*tensors.Tensor{tensors.FromValue([]float64{3})})
	assert.InDelta(t, 4.0, tensors.ToScalar(metric.Value()), 1e-12)
}
