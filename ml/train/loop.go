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
	"math"
	"sort"
	"time"

	"github.com/gomlx/topomlx/types/tensors"
	"github.com/pkg/errors"
	xslices "golang.org/x/exp/slices"
)

// Priority for hooks, the lowest values are run first. Defaults to 0, but
// negative values are ok.
type Priority int

// OnStartFn is the type of OnStart hooks.
type OnStartFn func(loop *Loop, ds Dataset) error

// OnStepFn is the type of OnStep hooks.
type OnStepFn func(loop *Loop, metrics []*tensors.Tensor) error

// OnEpochEndFn is the type of OnEpochEnd hooks.
type OnEpochEndFn func(loop *Loop, epochMetrics *EpochMetrics) error

// OnEndFn is the type of OnEnd hooks.
type OnEndFn func(loop *Loop, metrics []*tensors.Tensor) error

// EpochMetrics is the per-epoch report of the loop: the accumulated
// training metric values for the epoch (the mean loss first), and -- on
// epochs where the evaluation pass ran -- the evaluation metric values.
type EpochMetrics struct {
	// Epoch index, starting from 0.
	Epoch int

	// Train metric values at the end of the epoch, aligned with
	// Trainer.TrainMetrics. Train[0] is the mean training loss over all
	// samples processed in the epoch.
	Train []*tensors.Tensor

	// Eval metric values, aligned with Trainer.EvalMetrics, or nil on
	// epochs where no evaluation pass ran.
	Eval []*tensors.Tensor
}

// MeanLoss returns the epoch's mean training loss.
func (em *EpochMetrics) MeanLoss() float64 {
	return tensors.ToScalar(em.Train[0])
}

// Evaluated returns whether the evaluation pass ran on this epoch.
func (em *EpochMetrics) Evaluated() bool { return em.Eval != nil }

// Loop runs a training loop: epochs over a training Dataset, invoking
// Trainer.TrainStep for every sample and periodically running an evaluation
// pass over a held-out Dataset.
//
// In itself it doesn't do much, but one can attach functionality to it,
// like command-line progress reporting, plotting tools or early-stopping
// strategies, through the OnStart/OnStep/OnEpochEnd/OnEnd hooks.
//
// The public attributes are meant for reading only.
type Loop struct {
	// Trainer associated with this loop.
	Trainer *Trainer

	// LoopStep counts samples processed (across epochs) in the current run.
	LoopStep int

	// StartStep is the value of LoopStep at the start of the current run.
	StartStep int

	// EndStep is one-past the last step of the run, or -1 while unknown --
	// it is extrapolated after the first epoch reveals the dataset size.
	EndStep int

	// Epoch currently being executed, starting from 0.
	Epoch int

	// NumEpochs of the current run.
	NumEpochs int

	// EvalEvery is the test interval: the evaluation pass runs on every
	// epoch where Epoch % EvalEvery == 0. If 0 (the default), no periodic
	// evaluation happens.
	EvalEvery int

	// SharedData allows cross-tools to publish and consume information.
	// Keys and semantics of their values are not specified by the loop.
	SharedData map[string]any

	// TrainStepDurations collected during training.
	TrainStepDurations []time.Duration

	// Registered hooks.
	onStart    *priorityHooks[*hookWithName[OnStartFn]]
	onStep     *priorityHooks[*hookWithName[OnStepFn]]
	onEpochEnd *priorityHooks[*hookWithName[OnEpochEndFn]]
	onEnd      *priorityHooks[*hookWithName[OnEndFn]]
}

// NewLoop creates a new training loop for the trainer.
func NewLoop(trainer *Trainer) *Loop {
	return &Loop{
		Trainer:    trainer,
		SharedData: make(map[string]any),
		onStart:    newPriorityHooks[*hookWithName[OnStartFn]](),
		onStep:     newPriorityHooks[*hookWithName[OnStepFn]](),
		onEpochEnd: newPriorityHooks[*hookWithName[OnEpochEndFn]](),
		onEnd:      newPriorityHooks[*hookWithName[OnEndFn]](),
	}
}

// WithEvalEvery sets the test interval (see Loop.EvalEvery) and returns the
// loop, so calls can be cascaded.
func (loop *Loop) WithEvalEvery(evalEvery int) *Loop {
	loop.EvalEvery = evalEvery
	return loop
}

// start of loop, called by RunEpochs. It calls the appropriate hooks.
func (loop *Loop) start(ds Dataset) (err error) {
	loop.onStart.Enumerate(func(hook *hookWithName[OnStartFn]) {
		if err != nil {
			// After the first error stop.
			return
		}
		err = hook.fn(loop, ds)
		if err != nil {
			err = errors.WithMessagef(err, "OnStart(hook %q)", hook.name)
		}
	})
	return
}

// step of the loop: one sample trained. It calls the appropriate hooks and
// interrupts the training on NaN or infinite loss.
func (loop *Loop) step(spec any, inputs, labels []*tensors.Tensor) (metrics []*tensors.Tensor, err error) {
	startTime := time.Now()
	defer func() {
		loop.TrainStepDurations = append(loop.TrainStepDurations, time.Since(startTime))
	}()

	metrics, err = loop.Trainer.TrainStep(spec, inputs, labels)
	if err != nil {
		return nil, err
	}
	loop.onStep.Enumerate(func(hook *hookWithName[OnStepFn]) {
		if err != nil {
			// After the first error stop.
			return
		}
		err = hook.fn(loop, metrics)
		if err != nil {
			err = errors.WithMessagef(err, "OnStep(hook %q)", hook.name)
		}
	})
	if err != nil {
		return nil, err
	}
	meanLoss := tensors.ToScalar(metrics[0])
	if math.IsNaN(meanLoss) {
		return nil, errors.Errorf("mean training loss is NaN, training interrupted")
	}
	if math.IsInf(meanLoss, 0) {
		return nil, errors.Errorf("mean training loss is infinity (%f), training interrupted", meanLoss)
	}
	return
}

// epochEnd of loop, called by RunEpochs after each epoch (and its optional
// evaluation pass). It calls the appropriate hooks.
func (loop *Loop) epochEnd(epochMetrics *EpochMetrics) (err error) {
	loop.onEpochEnd.Enumerate(func(hook *hookWithName[OnEpochEndFn]) {
		if err != nil {
			// After the first error stop.
			return
		}
		err = hook.fn(loop, epochMetrics)
		if err != nil {
			err = errors.WithMessagef(err, "OnEpochEnd(hook %q)", hook.name)
		}
	})
	return
}

// end of loop, called by RunEpochs. It calls the appropriate hooks.
func (loop *Loop) end(metrics []*tensors.Tensor) (err error) {
	loop.onEnd.Enumerate(func(hook *hookWithName[OnEndFn]) {
		if err != nil {
			// After the first error stop.
			return
		}
		err = hook.fn(loop, metrics)
		if err != nil {
			err = errors.WithMessagef(err, "OnEnd(hook %q)", hook.name)
		}
	})
	return
}

// RunEpochs trains for the given number of epochs over trainDS, in its
// fixed order, running an evaluation pass over evalDS on every epoch where
// Epoch % EvalEvery == 0 (see WithEvalEvery; evalDS may be nil to disable
// evaluation). trainDS.Reset is called after each epoch.
//
// It returns one EpochMetrics per epoch. Running for 0 epochs is a no-op:
// no hooks run, no metrics are produced, no parameter is touched.
func (loop *Loop) RunEpochs(trainDS, evalDS Dataset, epochs int) (perEpoch []EpochMetrics, err error) {
	if epochs == 0 {
		return nil, nil
	}
	if epochs < 0 {
		return nil, errors.Errorf("Loop.RunEpochs(%d): negative number of epochs", epochs)
	}
	loop.StartStep = loop.LoopStep
	loop.EndStep = -1
	loop.Epoch = 0
	loop.NumEpochs = epochs
	if err = loop.start(trainDS); err != nil {
		return nil, err
	}
	loop.TrainStepDurations = nil // Reset.
	perEpoch = make([]EpochMetrics, 0, epochs)
	var lastMetrics []*tensors.Tensor
	for loop.Epoch = 0; loop.Epoch < epochs; loop.Epoch++ {
		loop.Trainer.ResetTrainMetrics()
		yieldsPerEpoch := 0
		for {
			spec, inputs, labels, yieldErr := trainDS.Yield()
			if yieldErr == io.EOF {
				// End of epoch: estimate the new EndStep.
				loop.EndStep = loop.LoopStep + yieldsPerEpoch*(epochs-loop.Epoch-1)
				break
			}
			if yieldErr != nil {
				return nil, errors.WithMessagef(yieldErr,
					"Loop.RunEpochs(%d): failed reading from dataset %q (LoopStep=%d)",
					epochs, trainDS.Name(), loop.LoopStep)
			}
			yieldsPerEpoch++
			lastMetrics, err = loop.step(spec, inputs, labels)
			if err != nil {
				return nil, errors.WithMessagef(err, "Loop.RunEpochs(%d): failed train step (LoopStep=%d)",
					epochs, loop.LoopStep)
			}
			loop.LoopStep++
		}
		trainDS.Reset()

		epochMetrics := EpochMetrics{Epoch: loop.Epoch, Train: lastMetrics}
		if evalDS != nil && loop.EvalEvery > 0 && loop.Epoch%loop.EvalEvery == 0 {
			epochMetrics.Eval, err = loop.Trainer.Eval(evalDS)
			if err != nil {
				return nil, errors.WithMessagef(err, "Loop.RunEpochs(%d): failed evaluation (Epoch=%d)",
					epochs, loop.Epoch)
			}
		}
		if err = loop.epochEnd(&epochMetrics); err != nil {
			return nil, err
		}
		perEpoch = append(perEpoch, epochMetrics)
	}
	if err = loop.end(lastMetrics); err != nil {
		return nil, errors.WithMessagef(err, "Loop.RunEpochs(%d): failed end (LoopStep=%d)", epochs, loop.LoopStep)
	}
	return
}

// MedianTrainStepDuration returns the median duration of each training
// step. It returns 1 millisecond if no training step was recorded (to avoid
// potential division by 0).
//
// It sorts and mutates loop.TrainStepDurations.
func (loop *Loop) MedianTrainStepDuration() time.Duration {
	if len(loop.TrainStepDurations) == 0 {
		// Return something different from 0 to avoid division by 0.
		return time.Millisecond
	}
	xslices.Sort(loop.TrainStepDurations)
	return loop.TrainStepDurations[len(loop.TrainStepDurations)/2]
}

// OnStart adds a hook with given priority and name (for error reporting) to
// the start of a loop.
func (loop *Loop) OnStart(name string, priority Priority, fn OnStartFn) {
	loop.onStart.Add(priority, &hookWithName[OnStartFn]{name: name, fn: fn})
}

// OnStep adds a hook with given priority and name (for error reporting) to
// each step of a loop. The function fn is called after each
// Trainer.TrainStep.
func (loop *Loop) OnStep(name string, priority Priority, fn OnStepFn) {
	loop.onStep.Add(priority, &hookWithName[OnStepFn]{name: name, fn: fn})
}

// OnEpochEnd adds a hook with given priority and name (for error reporting)
// called after each epoch, with the epoch's metric report -- after the
// epoch's evaluation pass, when one ran.
func (loop *Loop) OnEpochEnd(name string, priority Priority, fn OnEpochEndFn) {
	loop.onEpochEnd.Add(priority, &hookWithName[OnEpochEndFn]{name: name, fn: fn})
}

// OnEnd adds a hook with given priority and name (for error reporting) to
// the end of a loop, after the last call to Trainer.TrainStep.
func (loop *Loop) OnEnd(name string, priority Priority, fn OnEndFn) {
	loop.onEnd.Add(priority, &hookWithName[OnEndFn]{name: name, fn: fn})
}

// hookWithName stores a hook name and function.
type hookWithName[F any] struct {
	name string
	fn   F
}

// priorityHooks organizes hooks for type F per priority.
type priorityHooks[H any] struct {
	hooks map[Priority][]H
}

func newPriorityHooks[H any]() *priorityHooks[H] {
	return &priorityHooks[H]{hooks: make(map[Priority][]H)}
}

// Add hook at the given priority.
func (h *priorityHooks[H]) Add(priority Priority, hook H) {
	h.hooks[priority] = append(h.hooks[priority], hook)
}

// Enumerate will call fn for all registered hooks in priority order.
func (h *priorityHooks[H]) Enumerate(fn func(hook H)) {
	keys := make([]Priority, 0, len(h.hooks))
	for key := range h.hooks {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, key := range keys {
		for _, hook := range h.hooks[key] {
			fn(hook)
		}
	}
}
