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

package context

import (
	"fmt"

	. "github.com/gomlx/exceptions"
	"github.com/gomlx/topomlx/types/tensors"
)

// Variable is a value shared among computations: the model weights, the
// optimizer moments and counters. It holds the current value and, for
// trainable variables, the gradient accumulated by the model's backward
// pass.
type Variable struct {
	Scope, Name string

	// Trainable defines whether the optimizer updates this variable, and
	// whether the backward pass accumulates a gradient for it.
	Trainable bool

	value    *tensors.Tensor
	gradient *tensors.Tensor
}

// Value returns the current value of the variable.
func (v *Variable) Value() *tensors.Tensor { return v.value }

// SetValue replaces the current value. The new value must have the same
// shape as the old one.
func (v *Variable) SetValue(value *tensors.Tensor) {
	if v.value != nil && !v.value.Shape().Equal(value.Shape()) {
		Panicf("Variable %q: SetValue with shape %s, variable has shape %s",
			v.ParameterName(), value.Shape(), v.value.Shape())
	}
	v.value = value
}

// SetTrainable marks the variable as trainable (or not) and returns it, so
// calls can be cascaded.
func (v *Variable) SetTrainable(trainable bool) *Variable {
	v.Trainable = trainable
	return v
}

// Gradient returns the accumulated gradient, allocating a zero-filled tensor
// shaped like the value on first use.
func (v *Variable) Gradient() *tensors.Tensor {
	if v.gradient == nil {
		v.gradient = tensors.FromShape(v.value.Shape())
	}
	return v.gradient
}

// AccumGradient adds delta to the variable's accumulated gradient. It is a
// no-op for non-trainable variables.
func (v *Variable) AccumGradient(delta *tensors.Tensor) {
	if !v.Trainable {
		return
	}
	v.Gradient().AddScaled(delta, 1.0)
}

// ZeroGrad clears the accumulated gradient, if any was allocated.
func (v *Variable) ZeroGrad() {
	if v.gradient != nil {
		v.gradient.Zero()
	}
}

// ParameterName returns a unique name for the variable, composed of scope
// and name.
func (v *Variable) ParameterName() string {
	return fmt.Sprintf("%s%s%s", v.Scope, ScopeSeparator, v.Name)
}

// String implements fmt.Stringer.
func (v *Variable) String() string {
	return fmt.Sprintf("Variable[%s, shape=%s, trainable=%v]",
		v.ParameterName(), v.value.Shape(), v.Trainable)
}
