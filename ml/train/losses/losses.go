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

// Package losses have the standard losses that implement the train.LossFn
// interface. They can also be called separately by custom losses.
//
// Since execution is eager, each loss returns both the scalar loss value and
// the gradient of the loss with respect to the predictions -- the seed of
// the model's backward pass.
package losses

import (
	"math"

	. "github.com/gomlx/exceptions"
	"github.com/gomlx/topomlx/types/tensors"
)

// LossFn is the interface used by train.Trainer to train models.
//
//   - labels come from the dataset; labels[0] holds the actual labels.
//   - predictions come from the model.
//   - loss is a scalar, already reduced (mean) over the entities of the
//     sample.
//   - grad has the shape of predictions[0]: d(loss)/d(prediction).
type LossFn func(labels, predictions []*tensors.Tensor) (loss, grad *tensors.Tensor)

// Epsilon64 is the smallest value added to denominators/logarithms to avoid
// numerical instability on float64 computations.
const Epsilon64 = 1e-8

// asRows reshapes logits to [numEntities, numClasses] and labels to a slice
// of class indices of length numEntities. Accepted combinations: logits [C]
// with a scalar label, or logits [N, C] with labels [N].
func asRows(labels0, logits *tensors.Tensor) (rows [][]float64, classIndices []int) {
	switch logits.Rank() {
	case 1:
		if labels0.Size() != 1 {
			Panicf("losses: logits %s require a scalar label, got %s", logits.Shape(), labels0.Shape())
		}
		rows = [][]float64{logits.Flat()}
		classIndices = []int{int(labels0.Flat()[0])}
	case 2:
		numEntities, numClasses := logits.Shape().Dimensions[0], logits.Shape().Dimensions[1]
		if labels0.Rank() != 1 || labels0.Shape().Dimensions[0] != numEntities {
			Panicf("losses: logits %s require labels shaped [%d], got %s",
				logits.Shape(), numEntities, labels0.Shape())
		}
		rows = make([][]float64, numEntities)
		classIndices = make([]int, numEntities)
		for ii := 0; ii < numEntities; ii++ {
			rows[ii] = logits.Flat()[ii*numClasses : (ii+1)*numClasses]
			classIndices[ii] = int(labels0.Flat()[ii])
		}
	default:
		Panicf("losses: logits must be rank 1 or 2, got %s", logits.Shape())
	}
	numClasses := len(rows[0])
	for _, classIdx := range classIndices {
		if classIdx < 0 || classIdx >= numClasses {
			Panicf("losses: label class %d out of range [0, %d)", classIdx, numClasses)
		}
	}
	return
}

// CategoricalCrossEntropyLogits returns the mean cross-entropy between the
// softmax of the predicted logits and the true class. Labels are integer
// class indices (stored as float64): a scalar for logits shaped
// [numClasses], or a [numEntities] vector for logits shaped
// [numEntities, numClasses].
//
// The gradient per row is softmax(logits) − onehot(label), scaled by
// 1/numEntities to match the mean reduction.
func CategoricalCrossEntropyLogits(labels, predictions []*tensors.Tensor) (loss, grad *tensors.Tensor) {
	logits := predictions[0]
	rows, classIndices := asRows(labels[0], logits)
	grad = tensors.FromShape(logits.Shape())
	gradFlat := grad.Flat()
	numRows := len(rows)
	totalLoss := 0.0
	for rowIdx, row := range rows {
		probs := softmax(row)
		totalLoss += -math.Log(math.Max(probs[classIndices[rowIdx]], Epsilon64))
		for classIdx, p := range probs {
			delta := p
			if classIdx == classIndices[rowIdx] {
				delta -= 1.0
			}
			gradFlat[rowIdx*len(row)+classIdx] = delta / float64(numRows)
		}
	}
	loss = tensors.FromScalar(totalLoss / float64(numRows))
	return
}

// BinaryCrossentropyLogits returns the mean binary cross-entropy between
// sigmoid(logits) and binary labels in {0, 1}. Labels and logits must have
// the same size (a scalar and one or more per-entity logits are both fine).
//
// It uses the numerically stable formulation
// max(z, 0) − z·y + log(1+exp(−|z|)); the gradient per element is
// sigmoid(z) − y, scaled by 1/size to match the mean reduction.
func BinaryCrossentropyLogits(labels, predictions []*tensors.Tensor) (loss, grad *tensors.Tensor) {
	logits := predictions[0]
	labels0 := labels[0]
	if logits.Size() != labels0.Size() {
		Panicf("losses.BinaryCrossentropyLogits: logits %s and labels %s have different sizes",
			logits.Shape(), labels0.Shape())
	}
	grad = tensors.FromShape(logits.Shape())
	size := float64(logits.Size())
	totalLoss := 0.0
	for ii, z := range logits.Flat() {
		y := labels0.Flat()[ii]
		totalLoss += math.Max(z, 0) - z*y + math.Log1p(math.Exp(-math.Abs(z)))
		grad.Flat()[ii] = (sigmoid(z) - y) / size
	}
	loss = tensors.FromScalar(totalLoss / size)
	return
}

// MeanSquaredError returns the mean squared error between labels and
// predictions, which must have the same shape. The gradient per element is
// 2·(prediction − label)/size.
func MeanSquaredError(labels, predictions []*tensors.Tensor) (loss, grad *tensors.Tensor) {
	predictions0 := predictions[0]
	labels0 := labels[0]
	if !labels0.Shape().Equal(predictions0.Shape()) {
		Panicf("losses.MeanSquaredError: labels %s and predictions %s must have the same shape",
			labels0.Shape(), predictions0.Shape())
	}
	grad = tensors.FromShape(predictions0.Shape())
	size := float64(predictions0.Size())
	totalLoss := 0.0
	for ii, p := range predictions0.Flat() {
		diff := p - labels0.Flat()[ii]
		totalLoss += diff * diff
		grad.Flat()[ii] = 2.0 * diff / size
	}
	loss = tensors.FromScalar(totalLoss / size)
	return
}

// softmax of a logits row, shifted by the max for numerical stability.
func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, z := range logits {
		maxLogit = math.Max(maxLogit, z)
	}
	probs := make([]float64, len(logits))
	sum := 0.0
	for ii, z := range logits {
		probs[ii] = math.Exp(z - maxLogit)
		sum += probs[ii]
	}
	for ii := range probs {
		probs[ii] /= sum
	}
	return probs
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
