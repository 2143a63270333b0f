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

// Package layers implements the neural network layers used by the models:
// Dense (fully connected) and StructConv (message passing through a
// structure matrix). Layers run eagerly and implement their own backward
// pass: Forward caches what Backward needs, so a layer instance serves one
// sample at a time -- which matches the single-threaded, batch-of-one
// training loop.
package layers

import (
	"math"

	. "github.com/gomlx/exceptions"
	"github.com/gomlx/topomlx/types/tensors"
)

// Activation is the non-linearity applied by a layer.
type Activation int

const (
	// ActivationIdentity applies no non-linearity.
	ActivationIdentity Activation = iota
	// ActivationReLU applies max(0, x).
	ActivationReLU
	// ActivationSigmoid applies 1/(1+exp(-x)).
	ActivationSigmoid
	// ActivationTanh applies tanh(x).
	ActivationTanh
)

// String implements fmt.Stringer.
func (a Activation) String() string {
	switch a {
	case ActivationIdentity:
		return "identity"
	case ActivationReLU:
		return "relu"
	case ActivationSigmoid:
		return "sigmoid"
	case ActivationTanh:
		return "tanh"
	}
	return "invalid"
}

// ActivationByName returns the activation of the given name, one of
// "identity", "relu", "sigmoid" or "tanh".
func ActivationByName(name string) Activation {
	switch name {
	case "identity", "":
		return ActivationIdentity
	case "relu":
		return ActivationReLU
	case "sigmoid":
		return ActivationSigmoid
	case "tanh":
		return ActivationTanh
	}
	Panicf("layers.ActivationByName: unknown activation %q", name)
	return ActivationIdentity
}

// Apply returns the activation applied element-wise.
func (a Activation) Apply(x *tensors.Tensor) *tensors.Tensor {
	switch a {
	case ActivationIdentity:
		return x.Clone()
	case ActivationReLU:
		return tensors.Apply(x, func(v float64) float64 { return math.Max(0, v) })
	case ActivationSigmoid:
		return tensors.Apply(x, Sigmoid)
	case ActivationTanh:
		return tensors.Apply(x, math.Tanh)
	}
	Panicf("layers.Activation(%d).Apply: invalid activation", a)
	return nil
}

// Grad returns the element-wise derivative of the activation, evaluated at
// the pre-activation values.
func (a Activation) Grad(preActivation *tensors.Tensor) *tensors.Tensor {
	switch a {
	case ActivationIdentity:
		return tensors.Apply(preActivation, func(float64) float64 { return 1 })
	case ActivationReLU:
		return tensors.Apply(preActivation, func(v float64) float64 {
			if v > 0 {
				return 1
			}
			return 0
		})
	case ActivationSigmoid:
		return tensors.Apply(preActivation, func(v float64) float64 {
			s := Sigmoid(v)
			return s * (1 - s)
		})
	case ActivationTanh:
		return tensors.Apply(preActivation, func(v float64) float64 {
			t := math.Tanh(v)
			return 1 - t*t
		})
	}
	Panicf("layers.Activation(%d).Grad: invalid activation", a)
	return nil
}

// Sigmoid returns 1/(1+exp(-x)).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
