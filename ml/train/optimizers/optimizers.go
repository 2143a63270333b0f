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

// Package optimizers implements a collection of ML optimizers that can be
// used by train.Trainer, or by themselves. They all implement
// optimizers.Interface.
package optimizers

import (
	"math"

	. "github.com/gomlx/exceptions"
	"github.com/gomlx/topomlx/ml/context"
	"github.com/gomlx/topomlx/types/tensors"
	"golang.org/x/exp/maps"
)

// Interface implemented by optimizer implementations.
type Interface interface {
	// UpdateParams applies one optimization step: it reads the gradients
	// accumulated in the Context's trainable variables (by the model's
	// backward pass) and updates their values accordingly.
	//
	// ctx holds the variables to train (marked as trainable), the
	// hyperparameters used by the optimizer and the non-trainable state the
	// optimizer itself keeps (global step, moments).
	UpdateParams(ctx *context.Context)

	// Clear deletes all temporary state kept by the optimizer, e.g. if the
	// training should be reset.
	Clear(ctx *context.Context)
}

var (
	// KnownOptimizers is a map of known optimizers by name to their default
	// constructors. This provides an easy quick-start point. One can
	// hyperparameter-tune the optimizers for usually slightly better
	// results.
	KnownOptimizers = map[string]func(ctx *context.Context) Interface{
		"sgd":    func(ctx *context.Context) Interface { return StochasticGradientDescent() },
		"adam":   func(ctx *context.Context) Interface { return Adam().FromContext(ctx).Done() },
		"adamax": func(ctx *context.Context) Interface { return Adam().Adamax().FromContext(ctx).Done() },
		"adamw":  func(ctx *context.Context) Interface { return Adam().WeightDecay(0.004).FromContext(ctx).Done() },
	}

	// ParamOptimizer is the context parameter with the name of the
	// optimizer. The default value is "adam"; the valid values are the keys
	// of KnownOptimizers.
	ParamOptimizer = "optimizer"

	// ParamLearningRate is the context parameter name for the default value
	// of learning rate. It is used by all optimizers here.
	ParamLearningRate = "learning_rate"

	// ParamClipStepByValue is a clip scalar value for each individual value
	// of the gradient step, after being scaled by the learning rate and
	// optimizer. The step applied will be
	// clip(step, -clip_step_by_value, +clip_step_by_value).
	// Defaults to no clipping; values are expected to be float64.
	ParamClipStepByValue = "clip_step_by_value"
)

const (
	// GlobalStepVariableName as stored in context.Context, in the root
	// scope.
	GlobalStepVariableName = "global_step"
)

// FromContext creates an optimizer from the ParamOptimizer context
// hyperparameter. The default is "adam".
func FromContext(ctx *context.Context) Interface {
	optName := context.GetParamOr(ctx, ParamOptimizer, "adam")
	return ByName(ctx, optName)
}

// ByName returns an optimizer given the name, or panics if one does not
// exist -- see KnownOptimizers.
//
// Some optimizers (e.g.: Adam) use optional hyperparameters set in the
// context for configuration.
func ByName(ctx *context.Context, optName string) Interface {
	optBuilder, found := KnownOptimizers[optName]
	if !found {
		Panicf("Unknown optimizer %q, valid values are %v.", optName, maps.Keys(KnownOptimizers))
	}
	return optBuilder(ctx)
}

// GetGlobalStepVar returns the global step counter variable, a scalar. It
// creates it (initialized with 0) if not already there.
func GetGlobalStepVar(ctx *context.Context) *context.Variable {
	return ctx.VariableWithValue(GlobalStepVariableName, tensors.FromScalar(0)).SetTrainable(false)
}

// GetGlobalStep returns the current global step value. It creates the global
// step variable if it does not yet exist.
func GetGlobalStep(ctx *context.Context) int {
	return int(tensors.ToScalar(GetGlobalStepVar(ctx).Value()))
}

// IncrementGlobalStep increments the global step counter and returns the
// incremented value -- its first returned value is 1. Typically called by
// the optimizers' UpdateParams method.
func IncrementGlobalStep(ctx *context.Context) int {
	v := GetGlobalStepVar(ctx)
	step := int(tensors.ToScalar(v.Value())) + 1
	v.SetValue(tensors.FromScalar(float64(step)))
	return step
}

// DeleteGlobalStep in case one wants to reset the training state.
func DeleteGlobalStep(ctx *context.Context) {
	ctx.DeleteVariable(context.RootScope, GlobalStepVariableName)
}

// clipStepByValue applies the ParamClipStepByValue hyperparameter if it is
// not 0.0 (the default). step is modified in place.
func clipStepByValue(ctx *context.Context, step *tensors.Tensor) {
	clipByValue := context.GetParamOr(ctx, ParamClipStepByValue, 0.0)
	if clipByValue == 0 {
		return
	}
	flat := step.Flat()
	for ii, v := range flat {
		flat[ii] = math.Max(-clipByValue, math.Min(clipByValue, v))
	}
}

// sgd implements Interface for stochastic gradient descent.
type sgd struct{}

// SgdDefaultLearningRate is the default learning rate used by the
// StochasticGradientDescent optimizer.
const SgdDefaultLearningRate = 0.1

// StochasticGradientDescent creates an optimizer that performs SGD. It looks
// for "learning_rate" in the context hyperparameters for the initial
// learning rate, otherwise it defaults to SgdDefaultLearningRate.
//
// It has a decay of learning rate given by:
// learning_rate = initial_learning_rate / sqrt(global_step).
func StochasticGradientDescent() Interface {
	return &sgd{}
}

// UpdateParams applies one SGD step. It implements optimizers.Interface.
func (sgd *sgd) UpdateParams(ctx *context.Context) {
	learningRate := context.GetParamOr(ctx, ParamLearningRate, SgdDefaultLearningRate)
	globalStep := IncrementGlobalStep(ctx)
	learningRate /= math.Sqrt(float64(globalStep))
	ctx.EnumerateVariables(func(v *context.Variable) {
		if !v.Trainable {
			return
		}
		step := tensors.Scale(v.Gradient(), learningRate)
		clipStepByValue(ctx, step)
		v.Value().AddScaled(step, -1)
	})
}

// Clear is a no-op for SGD: the only state is the global step, which is
// shared among optimizers. It implements optimizers.Interface.
func (sgd *sgd) Clear(_ *context.Context) {}
