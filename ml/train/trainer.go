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

package train

import (
	"io"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/topomlx/ml/context"
	"github.com/gomlx/topomlx/ml/train/losses"
	"github.com/gomlx/topomlx/ml/train/metrics"
	"github.com/gomlx/topomlx/ml/train/optimizers"
	"github.com/gomlx/topomlx/types/tensors"
	"github.com/pkg/errors"
)

// Trainer holds a model and everything needed to run one training (or
// evaluation) step on one sample: its Context (variables and
// hyperparameters), the loss, the optimizer and the metrics. It is the
// training-session object: created per run, passed by reference into the
// Loop, and discarded when the run ends.
type Trainer struct {
	ctx       *context.Context
	model     Model
	lossFn    losses.LossFn
	optimizer optimizers.Interface

	trainMetrics, evalMetrics []metrics.Interface
}

// NewTrainer creates a Trainer. The mean loss is automatically prepended as
// metric 0 of both the training and evaluation metric sets, so the values
// returned by TrainStep/EvalStep always report the loss first.
func NewTrainer(ctx *context.Context, model Model, lossFn losses.LossFn,
	optimizer optimizers.Interface,
	trainMetrics, evalMetrics []metrics.Interface) *Trainer {
	r := &Trainer{
		ctx:       ctx,
		model:     model,
		lossFn:    lossFn,
		optimizer: optimizer,
	}
	r.trainMetrics = append(
		[]metrics.Interface{metrics.NewMeanLoss(lossFn, "Mean Training Loss", "loss")},
		trainMetrics...)
	r.evalMetrics = append(
		[]metrics.Interface{metrics.NewMeanLoss(lossFn, "Mean Evaluation Loss", "loss")},
		evalMetrics...)
	return r
}

// Context returns the Context the Trainer was created with.
func (r *Trainer) Context() *context.Context { return r.ctx }

// Model returns the model being trained.
func (r *Trainer) Model() Model { return r.model }

// TrainMetrics returns the training metrics, the mean loss first.
func (r *Trainer) TrainMetrics() []metrics.Interface { return r.trainMetrics }

// EvalMetrics returns the evaluation metrics, the mean loss first.
func (r *Trainer) EvalMetrics() []metrics.Interface { return r.evalMetrics }

// ResetTrainMetrics resets the accumulators of all training metrics, at the
// start of each epoch.
func (r *Trainer) ResetTrainMetrics() {
	for _, metric := range r.trainMetrics {
		metric.Reset()
	}
}

// ResetEvalMetrics resets the accumulators of all evaluation metrics, at the
// start of each evaluation pass.
func (r *Trainer) ResetEvalMetrics() {
	for _, metric := range r.evalMetrics {
		metric.Reset()
	}
}

// TrainStep runs one training step on one sample: clear accumulated
// gradients, forward, loss, metrics update, backward, one optimizer step.
// It returns the current accumulated value of each training metric, the
// mean loss first.
//
// Any panic thrown by the numeric kernels (shape mismatches and the like)
// is converted to a returned error: there is no recovery, the caller is
// expected to abort the run.
func (r *Trainer) TrainStep(spec any, inputs, labels []*tensors.Tensor) (metricsValues []*tensors.Tensor, err error) {
	err = exceptions.TryCatch[error](func() {
		r.ctx.ZeroGrads()
		r.model.SetTraining(true)
		prediction := r.model.Forward(inputs)
		predictions := []*tensors.Tensor{prediction}
		_, lossGrad := r.lossFn(labels, predictions)
		for _, metric := range r.trainMetrics {
			metric.Update(labels, predictions)
		}
		r.model.Backward(lossGrad)
		r.optimizer.UpdateParams(r.ctx)
		metricsValues = r.metricsValues(r.trainMetrics)
	})
	if err != nil {
		return nil, errors.WithMessage(err, "Trainer.TrainStep")
	}
	return
}

// EvalStep runs one evaluation step on one sample: forward and metrics
// update only, no gradients, no parameter updates. It returns the current
// accumulated value of each evaluation metric, the mean loss first.
func (r *Trainer) EvalStep(spec any, inputs, labels []*tensors.Tensor) (metricsValues []*tensors.Tensor, err error) {
	err = exceptions.TryCatch[error](func() {
		r.model.SetTraining(false)
		prediction := r.model.Forward(inputs)
		predictions := []*tensors.Tensor{prediction}
		for _, metric := range r.evalMetrics {
			metric.Update(labels, predictions)
		}
		metricsValues = r.metricsValues(r.evalMetrics)
	})
	if err != nil {
		return nil, errors.WithMessage(err, "Trainer.EvalStep")
	}
	return
}

// Eval runs a full evaluation pass over the dataset, in its fixed order,
// and returns the final value of each evaluation metric, the mean loss
// first. The dataset is Reset before returning, so it can be reused.
func (r *Trainer) Eval(ds Dataset) (metricsValues []*tensors.Tensor, err error) {
	r.ResetEvalMetrics()
	for {
		spec, inputs, labels, yieldErr := ds.Yield()
		if yieldErr == io.EOF {
			break
		}
		if yieldErr != nil {
			return nil, errors.WithMessagef(yieldErr, "Trainer.Eval: failed reading from dataset %q", ds.Name())
		}
		metricsValues, err = r.EvalStep(spec, inputs, labels)
		if err != nil {
			return nil, errors.WithMessagef(err, "Trainer.Eval: dataset %q", ds.Name())
		}
	}
	ds.Reset()
	if metricsValues == nil {
		// Empty dataset: report the (NaN) accumulator values as they are.
		metricsValues = r.metricsValues(r.evalMetrics)
	}
	return
}

func (r *Trainer) metricsValues(metricsList []metrics.Interface) []*tensors.Tensor {
	values := make([]*tensors.Tensor, 0, len(metricsList))
	for _, metric := range metricsList {
		values = append(values, metric.Value())
	}
	return values
}
