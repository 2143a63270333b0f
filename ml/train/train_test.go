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

package train_test

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/gomlx/topomlx/ml/context"
	"github.com/gomlx/topomlx/ml/data"
	"github.com/gomlx/topomlx/ml/train"
	"github.com/gomlx/topomlx/ml/train/losses"
	"github.com/gomlx/topomlx/ml/train/metrics"
	"github.com/gomlx/topomlx/ml/train/optimizers"
	"github.com/gomlx/topomlx/types/tensors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearModel predicts w·x for a scalar input x, with w a trainable
// variable. Small enough that the loss landscape is exactly known.
type linearModel struct {
	ctx       *context.Context
	w         *context.Variable
	lastInput float64
	training  bool
}

func newLinearModel(ctx *context.Context, w0 float64) *linearModel {
	ctx = ctx.In("linear")
	return &linearModel{
		ctx: ctx,
		w:   ctx.VariableWithValue("w", tensors.FromScalar(w0)),
	}
}

func (m *linearModel) Forward(inputs []*tensors.Tensor) *tensors.Tensor {
	m.lastInput = tensors.ToScalar(inputs[0])
	return tensors.FromScalar(tensors.ToScalar(m.w.Value()) * m.lastInput)
}

func (m *linearModel) Backward(grad *tensors.Tensor) {
	m.w.AccumGradient(tensors.FromScalar(tensors.ToScalar(grad) * m.lastInput))
}

func (m *linearModel) SetTraining(training bool) { m.training = training }

// nanModel always predicts NaN.
type nanModel struct{}

func (nanModel) Forward([]*tensors.Tensor) *tensors.Tensor { return tensors.FromScalar(math.NaN()) }
func (nanModel) Backward(*tensors.Tensor)                  {}
func (nanModel) SetTraining(bool)                          {}

func scalarExample(x, label float64) data.Example {
	return data.Example{
		Inputs: []*tensors.Tensor{tensors.FromScalar(x)},
		Labels: []*tensors.Tensor{tensors.FromScalar(label)},
	}
}

// identityDataset yields samples whose label equals the input, so the
// linearModel is perfectly fit at w=1.
func identityDataset(t *testing.T, values ...float64) *data.InMemoryDataset {
	examples := make([]data.Example, 0, len(values))
	for _, v := range values {
		examples = append(examples, scalarExample(v, v))
	}
	ds := data.InMemory("identity", nil, examples)
	require.Equal(t, len(values), ds.NumExamples())
	return ds
}

func TestTrainStepReducesLoss(t *testing.T) {
	ctx := context.New()
	ctx.SetParam(optimizers.ParamLearningRate, 0.1)
	model := newLinearModel(ctx, 0.0)
	trainer := train.NewTrainer(ctx, model, losses.MeanSquaredError,
		optimizers.StochasticGradientDescent(), nil, nil)

	var lastLoss = math.Inf(1)
	for step := 0; step < 10; step++ {
		trainer.ResetTrainMetrics()
		metricsValues, err := trainer.TrainStep(nil, []*tensors.Tensor{tensors.FromScalar(1.0)},
			[]*tensors.Tensor{tensors.FromScalar(1.0)})
		require.NoError(t, err)
		loss := tensors.ToScalar(metricsValues[0])
		assert.Less(t, loss, lastLoss)
		lastLoss = loss
	}
	// Converging towards w=1.
	assert.Greater(t, tensors.ToScalar(model.w.Value()), 0.5)
}

func TestTrainStepReportsKernelPanicsAsErrors(t *testing.T) {
	ctx := context.New()
	model := newLinearModel(ctx, 0.0)
	trainer := train.NewTrainer(ctx, model, losses.MeanSquaredError,
		optimizers.StochasticGradientDescent(), nil, nil)

	// Mismatched label shape panics inside the loss kernel.
	_, err := trainer.TrainStep(nil, []*tensors.Tensor{tensors.FromScalar(1.0)},
		[]*tensors.Tensor{tensors.FromValue([]float64{1.0, 2.0})})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Trainer.TrainStep")
}

func TestEvalDoesNotTouchParameters(t *testing.T) {
	ctx := context.New()
	model := newLinearModel(ctx, 0.0)
	trainer := train.NewTrainer(ctx, model, losses.MeanSquaredError,
		optimizers.StochasticGradientDescent(), nil, nil)
	ds := identityDataset(t, 1.0, 2.0)

	// With w=0 predictions are 0: losses are 1 and 4, mean 2.5.
	values, err := trainer.Eval(ds)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, tensors.ToScalar(values[0]), 1e-12)
	assert.Equal(t, 0.0, tensors.ToScalar(model.w.Value()))
	assert.Equal(t, 0, optimizers.GetGlobalStep(ctx))

	// The dataset was Reset and can be fully consumed again.
	values, err = trainer.Eval(ds)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, tensors.ToScalar(values[0]), 1e-12)
}

func TestZeroEpochsIsNoOp(t *testing.T) {
	ctx := context.New()
	model := newLinearModel(ctx, 0.7)
	trainer := train.NewTrainer(ctx, model, losses.MeanSquaredError,
		optimizers.StochasticGradientDescent(), nil, nil)
	loop := train.NewLoop(trainer).WithEvalEvery(1)
	hookCalls := 0
	loop.OnStart("counter", 0, func(loop *train.Loop, ds train.Dataset) error {
		hookCalls++
		return nil
	})
	loop.OnEnd("counter", 0, func(loop *train.Loop, metrics []*tensors.Tensor) error {
		hookCalls++
		return nil
	})

	perEpoch, err := loop.RunEpochs(identityDataset(t, 1.0), identityDataset(t, 2.0), 0)
	require.NoError(t, err)
	assert.Nil(t, perEpoch)
	assert.Equal(t, 0, hookCalls)
	assert.Equal(t, 0.7, tensors.ToScalar(model.w.Value()))
	assert.Equal(t, 0, optimizers.GetGlobalStep(ctx))

	_, err = loop.RunEpochs(identityDataset(t, 1.0), nil, -1)
	require.Error(t, err)
}

func TestRunEpochsEvalInterval(t *testing.T) {
	ctx := context.New()
	ctx.SetParam(optimizers.ParamLearningRate, 0.01)
	model := newLinearModel(ctx, 0.0)
	trainer := train.NewTrainer(ctx, model, losses.MeanSquaredError,
		optimizers.StochasticGradientDescent(), nil, nil)
	loop := train.NewLoop(trainer).WithEvalEvery(2)

	trainDS := identityDataset(t, 1.0, 2.0, 3.0)
	evalDS := identityDataset(t, 4.0)
	perEpoch, err := loop.RunEpochs(trainDS, evalDS, 5)
	require.NoError(t, err)
	require.Len(t, perEpoch, 5)
	for ii, em := range perEpoch {
		assert.Equal(t, ii, em.Epoch)
		// Epoch 0 included: the pass runs whenever Epoch%EvalEvery == 0.
		assert.Equal(t, ii%2 == 0, em.Evaluated())
		assert.False(t, math.IsNaN(em.MeanLoss()))
	}
	assert.Equal(t, 15, loop.LoopStep) // 5 epochs over 3 samples.
	assert.Equal(t, 15, loop.EndStep)

	// Without an evaluation dataset no pass runs, whatever the interval.
	perEpoch, err = train.NewLoop(trainer).WithEvalEvery(1).RunEpochs(trainDS, nil, 2)
	require.NoError(t, err)
	for _, em := range perEpoch {
		assert.False(t, em.Evaluated())
	}
}

func TestTrainingLossIsEpochMean(t *testing.T) {
	ctx := context.New()
	ctx.SetParam(optimizers.ParamLearningRate, 0.0) // Freeze parameters.
	model := newLinearModel(ctx, 0.0)
	trainer := train.NewTrainer(ctx, model, losses.MeanSquaredError,
		optimizers.StochasticGradientDescent(), nil, nil)
	loop := train.NewLoop(trainer)

	// With w frozen at 0 the per-sample losses are 1, 4 and 9: the reported
	// epoch loss is their mean.
	perEpoch, err := loop.RunEpochs(identityDataset(t, 1.0, 2.0, 3.0), nil, 2)
	require.NoError(t, err)
	for _, em := range perEpoch {
		assert.InDelta(t, 14.0/3.0, em.MeanLoss(), 1e-12)
		assert.Equal(t, fmt.Sprintf("%.4f", 14.0/3.0),
			trainer.TrainMetrics()[0].PrettyPrint(em.Train[0]))
	}
}

func TestNaNLossInterruptsTraining(t *testing.T) {
	ctx := context.New()
	trainer := train.NewTrainer(ctx, nanModel{}, losses.MeanSquaredError,
		optimizers.StochasticGradientDescent(), nil, nil)
	loop := train.NewLoop(trainer)

	_, err := loop.RunEpochs(identityDataset(t, 1.0), nil, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NaN")
}

func TestHooksRunInPriorityOrder(t *testing.T) {
	ctx := context.New()
	model := newLinearModel(ctx, 0.0)
	trainer := train.NewTrainer(ctx, model, losses.MeanSquaredError,
		optimizers.StochasticGradientDescent(), nil, nil)
	loop := train.NewLoop(trainer)

	var order []string
	record := func(name string) {
		order = append(order, name)
	}
	loop.OnStart("late", 10, func(*train.Loop, train.Dataset) error { record("late"); return nil })
	loop.OnStart("early", -10, func(*train.Loop, train.Dataset) error { record("early"); return nil })
	loop.OnEpochEnd("epoch", 0, func(*train.Loop, *train.EpochMetrics) error { record("epoch"); return nil })
	loop.OnEnd("end", 0, func(*train.Loop, []*tensors.Tensor) error { record("end"); return nil })

	_, err := loop.RunEpochs(identityDataset(t, 1.0), nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "late", "epoch", "end"}, order)
}

func TestHookErrorsAreNamed(t *testing.T) {
	ctx := context.New()
	model := newLinearModel(ctx, 0.0)
	trainer := train.NewTrainer(ctx, model, losses.MeanSquaredError,
		optimizers.StochasticGradientDescent(), nil, nil)
	loop := train.NewLoop(trainer)
	loop.OnStep("failing hook", 0, func(*train.Loop, []*tensors.Tensor) error {
		return errors.New("hook exploded")
	})

	_, err := loop.RunEpochs(identityDataset(t, 1.0), nil, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `OnStep(hook "failing hook")`)
	assert.Contains(t, err.Error(), "hook exploded")
}

func TestEveryNEpochs(t *testing.T) {
	ctx := context.New()
	model := newLinearModel(ctx, 0.0)
	trainer := train.NewTrainer(ctx, model, losses.MeanSquaredError,
		optimizers.StochasticGradientDescent(), nil, nil)
	loop := train.NewLoop(trainer)

	var epochs []int
	train.EveryNEpochs(loop, 2, "recorder", 0, func(loop *train.Loop, em *train.EpochMetrics) error {
		epochs = append(epochs, em.Epoch)
		return nil
	})
	steps := 0
	train.EveryNSteps(loop, 3, "counter", 0, func(*train.Loop, []*tensors.Tensor) error {
		steps++
		return nil
	})

	_, err := loop.RunEpochs(identityDataset(t, 1.0, 2.0), nil, 6)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, epochs) // Counted from 1.
	assert.Equal(t, 4, steps)               // 12 steps, every 3rd.
}

func TestPeriodicCallback(t *testing.T) {
	ctx := context.New()
	model := newLinearModel(ctx, 0.0)
	trainer := train.NewTrainer(ctx, model, losses.MeanSquaredError,
		optimizers.StochasticGradientDescent(), nil, nil)
	loop := train.NewLoop(trainer)

	// With a zero period the first step only starts the clock, every
	// following step fires, and callOnEnd adds one more call.
	calls := 0
	train.PeriodicCallback(loop, 0, true, "eager", 0, func(*train.Loop, []*tensors.Tensor) error {
		calls++
		return nil
	})
	// A period longer than the run never fires from OnStep.
	slowCalls := 0
	train.PeriodicCallback(loop, time.Hour, false, "slow", 0, func(*train.Loop, []*tensors.Tensor) error {
		slowCalls++
		return nil
	})

	_, err := loop.RunEpochs(identityDataset(t, 1.0, 2.0, 3.0), nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, calls) // 2 of 3 steps, plus the end-of-loop call.
	assert.Equal(t, 0, slowCalls)
}

func TestMedianTrainStepDuration(t *testing.T) {
	loop := train.NewLoop(nil)
	assert.Equal(t, time.Millisecond, loop.MedianTrainStepDuration())

	loop.TrainStepDurations = []time.Duration{
		5 * time.Second, time.Second, 3 * time.Second}
	assert.Equal(t, 3*time.Second, loop.MedianTrainStepDuration())
}

func TestTrainerMetricsIncludeMeanLoss(t *testing.T) {
	ctx := context.New()
	accuracy := metrics.NewMeanBinaryLogitsAccuracy("Accuracy", "acc")
	trainer := train.NewTrainer(ctx, nanModel{}, losses.MeanSquaredError,
		optimizers.StochasticGradientDescent(),
		[]metrics.Interface{accuracy}, []metrics.Interface{accuracy})
	require.Len(t, trainer.TrainMetrics(), 2)
	require.Len(t, trainer.EvalMetrics(), 2)
	assert.Equal(t, "Mean Training Loss", trainer.TrainMetrics()[0].Name())
	assert.Equal(t, "Mean Evaluation Loss", trainer.EvalMetrics()[0].Name())
	assert.Equal(t, "Accuracy", trainer.TrainMetrics()[1].Name())
}
