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

// Package metrics holds a library of metrics accumulated over the samples of
// an epoch (or an evaluation pass), and defines the Interface the training
// loop reports on.
package metrics

import (
	"fmt"

	"github.com/gomlx/topomlx/ml/train/losses"
	"github.com/gomlx/topomlx/types/tensors"
	"github.com/google/uuid"
)

// Interface for a Metric.
type Interface interface {
	// Name of the metric.
	Name() string

	// ShortName is a shortened version of the name (preferably a few
	// characters) to display in progress bars or similar UIs.
	ShortName() string

	// ScopeName used to identify the metric's accumulator state: a
	// combination of name and something unique.
	ScopeName() string

	// MetricType is a key for metrics that share the same quantity or
	// semantics, e.g. so they can share an axis on a plot.
	MetricType() string

	// Update accumulates the metric with one sample's labels and the model's
	// predictions for it.
	Update(labels, predictions []*tensors.Tensor)

	// Value returns the current accumulated value, a scalar tensor.
	Value() *tensors.Tensor

	// PrettyPrint is used to pretty-print a metric value, usually in a short
	// form.
	PrettyPrint(value *tensors.Tensor) string

	// Reset the metric's accumulators, when starting a new epoch or
	// evaluation pass.
	Reset()
}

const (
	LossMetricType     = "loss"
	AccuracyMetricType = "accuracy"
)

// Mean accumulates a weighted mean: the building block of all metrics here,
// and of the trainer's per-epoch mean loss. The zero value is ready to use.
type Mean struct {
	total, weight float64
}

// Add a value with the given weight (typically the number of entities it was
// averaged over).
func (m *Mean) Add(value, weight float64) {
	m.total += value * weight
	m.weight += weight
}

// Value returns the weighted mean so far. The mean of nothing is NaN (0/0).
func (m *Mean) Value() float64 { return m.total / m.weight }

// Reset clears the accumulators.
func (m *Mean) Reset() { m.total, m.weight = 0, 0 }

// BaseMetricFn computes a metric for a single sample, returning its value
// and the weight (number of entities) with which it enters the epoch mean.
type BaseMetricFn func(labels, predictions []*tensors.Tensor) (value, weight float64)

// PrettyPrintFn is a function to convert a metric value to a string.
type PrettyPrintFn func(value *tensors.Tensor) string

// meanMetric implements Interface by keeping the weighted mean of a
// per-sample metric function.
type meanMetric struct {
	name, shortName, metricType, scopeName string
	metricFn                               BaseMetricFn
	pPrintFn                               PrettyPrintFn // if nil will display default.

	mean Mean
}

// NewMeanMetric creates a metric that reports the weighted mean of metricFn
// over all samples seen since the last Reset. pPrintFn can be left as nil,
// and a default will be used.
func NewMeanMetric(name, shortName, metricType string, metricFn BaseMetricFn, pPrintFn PrettyPrintFn) Interface {
	return &meanMetric{
		name: name, shortName: shortName, metricType: metricType,
		metricFn: metricFn, pPrintFn: pPrintFn}
}

func (m *meanMetric) Name() string       { return m.name }
func (m *meanMetric) ShortName() string  { return m.shortName }
func (m *meanMetric) MetricType() string { return m.metricType }

func (m *meanMetric) ScopeName() string {
	if m.scopeName == "" {
		m.scopeName = fmt.Sprintf("%s_uuid_%s", m.name, uuid.NewString())
	}
	return m.scopeName
}

func (m *meanMetric) Update(labels, predictions []*tensors.Tensor) {
	m.mean.Add(m.metricFn(labels, predictions))
}

func (m *meanMetric) Value() *tensors.Tensor {
	return tensors.FromScalar(m.mean.Value())
}

func (m *meanMetric) PrettyPrint(value *tensors.Tensor) string {
	if m.pPrintFn == nil {
		return fmt.Sprintf("%.3f", tensors.ToScalar(value))
	}
	return m.pPrintFn(value)
}

func (m *meanMetric) Reset() { m.mean.Reset() }

func accuracyPPrint(value *tensors.Tensor) string {
	return fmt.Sprintf("%.4f", tensors.ToScalar(value))
}

func lossPPrint(value *tensors.Tensor) string {
	return fmt.Sprintf("%.4f", tensors.ToScalar(value))
}

// NewMeanLoss returns a metric reporting the mean of lossFn over the epoch,
// weighting every sample equally -- the "mean loss over all processed
// samples" of the per-epoch report.
func NewMeanLoss(lossFn losses.LossFn, name, shortName string) Interface {
	return NewMeanMetric(name, shortName, LossMetricType,
		func(labels, predictions []*tensors.Tensor) (value, weight float64) {
			loss, _ := lossFn(labels, predictions)
			return tensors.ToScalar(loss), 1
		}, lossPPrint)
}

// BinaryAccuracy assumes predictions are probabilities and labels are
// {0, 1} values of the same size. The decision rule is strict: a prediction
// is positive only if it is > 0.5, so a prediction of exactly 0.5 is
// classified as the negative class.
func BinaryAccuracy(labels, predictions []*tensors.Tensor) (value, weight float64) {
	return binaryAccuracy(labels[0], predictions[0], 0.5)
}

// BinaryLogitsAccuracy is BinaryAccuracy on logits: a prediction is positive
// only if its logit is strictly > 0 (i.e. sigmoid(logit) > 0.5).
func BinaryLogitsAccuracy(labels, predictions []*tensors.Tensor) (value, weight float64) {
	return binaryAccuracy(labels[0], predictions[0], 0)
}

func binaryAccuracy(labels0, predictions0 *tensors.Tensor, threshold float64) (value, weight float64) {
	correct := 0
	for ii, p := range predictions0.Flat() {
		predictedPositive := p > threshold
		labelPositive := labels0.Flat()[ii] > 0.5
		if predictedPositive == labelPositive {
			correct++
		}
	}
	return float64(correct) / float64(predictions0.Size()), float64(predictions0.Size())
}

// SparseCategoricalAccuracy returns the fraction of entities whose
// argmax(logits) is the true class. It works for both probabilities and
// logits. Ties are considered misses. Labels are integer class indices
// (stored as float64): a scalar for logits [numClasses], or [numEntities]
// for logits [numEntities, numClasses].
func SparseCategoricalAccuracy(labels, predictions []*tensors.Tensor) (value, weight float64) {
	logits := predictions[0]
	labels0 := labels[0]
	var numRows, numClasses int
	if logits.Rank() == 1 {
		numRows, numClasses = 1, logits.Shape().Dimensions[0]
	} else {
		numRows, numClasses = logits.Shape().Dimensions[0], logits.Shape().Dimensions[1]
	}
	correct := 0
	for row := 0; row < numRows; row++ {
		rowLogits := tensors.FromFlatDataAndDimensions(
			logits.Flat()[row*numClasses:(row+1)*numClasses], numClasses)
		maxIdx, unique := tensors.ArgMax(rowLogits)
		if unique && maxIdx == int(labels0.Flat()[row]) {
			correct++
		}
	}
	return float64(correct) / float64(numRows), float64(numRows)
}

// NewMeanBinaryAccuracy returns a new binary accuracy metric (probability
// inputs, strict >0.5 rule) with the given names.
func NewMeanBinaryAccuracy(name, shortName string) Interface {
	return NewMeanMetric(name, shortName, AccuracyMetricType, BinaryAccuracy, accuracyPPrint)
}

// NewMeanBinaryLogitsAccuracy returns a new binary accuracy metric (logit
// inputs, strict >0 rule) with the given names.
func NewMeanBinaryLogitsAccuracy(name, shortName string) Interface {
	return NewMeanMetric(name, shortName, AccuracyMetricType, BinaryLogitsAccuracy, accuracyPPrint)
}

// NewSparseCategoricalAccuracy returns a new sparse categorical accuracy
// metric with the given names. Ties are considered misses.
func NewSparseCategoricalAccuracy(name, shortName string) Interface {
	return NewMeanMetric(name, shortName, AccuracyMetricType, SparseCategoricalAccuracy, accuracyPPrint)
}
