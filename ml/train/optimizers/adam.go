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

package optimizers

import (
	"math"

	"github.com/gomlx/topomlx/ml/context"
	"github.com/gomlx/topomlx/types/tensors"
)

const (
	// AdamDefaultLearningRate is used by Adam if no learning rate is set.
	AdamDefaultLearningRate = 0.001

	// ParamAdamEpsilon is the context parameter with the epsilon used on the
	// denominator as a small constant for stability.
	ParamAdamEpsilon = "adam_epsilon"
)

// Adam optimization is a stochastic gradient descent method that is based on
// adaptive estimation of first-order and second-order moments. According to
// [Kingma et al., 2014](http://arxiv.org/abs/1412.6980), the method is
// "computationally efficient, has little memory requirement, invariant to
// diagonal rescaling of gradients, and is well suited for problems that are
// large in terms of data/parameters".
//
// It returns a configuration object that can be used to set its parameters.
// Once configured, call Done, and it will return an optimizers.Interface.
func Adam() *AdamConfig {
	return &AdamConfig{
		learningRate: -1, // < 0 means use the default.
		beta1:        0.9,
		beta2:        0.999,
		epsilon:      1e-7,
	}
}

// AdamConfig holds the configuration for an Adam optimizer, created with
// Adam(), and once configured call Done to create the optimizers.Interface.
type AdamConfig struct {
	learningRate float64
	beta1, beta2 float64
	epsilon      float64
	adamax       bool    // Works as Adamax.
	weightDecay  float64 // Works as AdamW.
}

// LearningRate sets the base learning rate.
//
// The default is either the value of the "learning_rate" hyperparameter in
// the Context if defined, or 0.001 if not.
func (c *AdamConfig) LearningRate(value float64) *AdamConfig {
	c.learningRate = value
	return c
}

// Betas sets the two moving-average constants (exponential decays). They
// default to 0.9 and 0.999.
func (c *AdamConfig) Betas(beta1, beta2 float64) *AdamConfig {
	c.beta1, c.beta2 = beta1, beta2
	return c
}

// Epsilon used on the denominator as a small constant for stability.
func (c *AdamConfig) Epsilon(epsilon float64) *AdamConfig {
	c.epsilon = epsilon
	return c
}

// Adamax configures Adam to use an L-infinity norm (== max, which gives the
// name) for the second moment, instead of L2, as described in the same Adam
// paper.
func (c *AdamConfig) Adamax() *AdamConfig {
	c.adamax = true
	return c
}

// WeightDecay configures the optimizer to work as AdamW, with the given
// static weight decay. This is because L2 regularization doesn't work well
// with Adam.
func (c *AdamConfig) WeightDecay(weightDecay float64) *AdamConfig {
	c.weightDecay = weightDecay
	return c
}

// FromContext configures Adam from the context hyperparameters
// ("learning_rate", "adam_epsilon"), when they are set.
func (c *AdamConfig) FromContext(ctx *context.Context) *AdamConfig {
	c.learningRate = context.GetParamOr(ctx, ParamLearningRate, c.learningRate)
	c.epsilon = context.GetParamOr(ctx, ParamAdamEpsilon, c.epsilon)
	return c
}

// Done creates the Adam optimizer from the configuration.
func (c *AdamConfig) Done() Interface {
	return &adam{config: *c, moments: make(map[string]*adamMoments)}
}

// adamMoments are the per-variable moving averages of the gradient and its
// square (or its absolute maximum, for Adamax).
type adamMoments struct {
	first, second *tensors.Tensor
}

// adam implements Interface. The moments are kept per variable, keyed by the
// variable's parameter name.
type adam struct {
	config  AdamConfig
	moments map[string]*adamMoments
}

// UpdateParams applies one Adam step. It implements optimizers.Interface.
func (o *adam) UpdateParams(ctx *context.Context) {
	learningRate := o.config.learningRate
	if learningRate < 0 {
		learningRate = AdamDefaultLearningRate
	}
	step := float64(IncrementGlobalStep(ctx))

	// Bias corrections for the zero-initialized moments.
	correction1 := 1.0 - math.Pow(o.config.beta1, step)
	correction2 := 1.0 - math.Pow(o.config.beta2, step)

	ctx.EnumerateVariables(func(v *context.Variable) {
		if !v.Trainable {
			return
		}
		m := o.momentsFor(v)
		grad := v.Gradient()
		mFlat, vFlat := m.first.Flat(), m.second.Flat()
		update := tensors.FromShape(grad.Shape())
		for ii, g := range grad.Flat() {
			mFlat[ii] = o.config.beta1*mFlat[ii] + (1-o.config.beta1)*g
			if o.config.adamax {
				vFlat[ii] = math.Max(o.config.beta2*vFlat[ii], math.Abs(g))
			} else {
				vFlat[ii] = o.config.beta2*vFlat[ii] + (1-o.config.beta2)*g*g
			}
			mHat := mFlat[ii] / correction1
			var denominator float64
			if o.config.adamax {
				denominator = vFlat[ii] + o.config.epsilon
			} else {
				denominator = math.Sqrt(vFlat[ii]/correction2) + o.config.epsilon
			}
			update.Flat()[ii] = learningRate * mHat / denominator
		}
		if o.config.weightDecay > 0 {
			update.AddScaled(v.Value(), learningRate*o.config.weightDecay)
		}
		clipStepByValue(ctx, update)
		v.Value().AddScaled(update, -1)
	})
}

func (o *adam) momentsFor(v *context.Variable) *adamMoments {
	name := v.ParameterName()
	m, found := o.moments[name]
	if !found {
		m = &adamMoments{
			first:  tensors.FromShape(v.Value().Shape()),
			second: tensors.FromShape(v.Value().Shape()),
		}
		o.moments[name] = m
	}
	return m
}

// Clear drops all accumulated moments. It implements optimizers.Interface.
func (o *adam) Clear(_ *context.Context) {
	o.moments = make(map[string]*adamMoments)
}
