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

// Package context defines the Context, which holds the model variables
// (trainable weights and their accumulated gradients) and hyperparameters,
// organized in hierarchical scopes.
//
// A Context is created once per training session and passed by reference to
// the model, the optimizer and the training loop -- it is the explicit
// boundary of all mutable training state.
package context

import (
	"math"
	"math/rand"
	"sort"
	"strings"

	. "github.com/gomlx/exceptions"
	"github.com/gomlx/topomlx/types/shapes"
	"github.com/gomlx/topomlx/types/tensors"
)

// ScopeSeparator is used between levels of scope. Scope names cannot contain
// it.
const ScopeSeparator = "/"

// RootScope is the scope at the root: it is empty and contains the default
// hyperparameters.
const RootScope = ScopeSeparator

// Context organizes the variables and hyperparameters of a model.
//
// Context is a thin handle: it holds the current scope and points to the
// data shared among all scoped references. Use Context.In to get a handle on
// a sub-scope. It is not safe for concurrent use -- the training path is
// single-threaded by design.
type Context struct {
	scope string
	data  *contextData
}

// contextData is the part shared among all connected Context references.
type contextData struct {
	params    map[string]map[string]any       // scope -> key -> value
	variables map[string]map[string]*Variable // scope -> name -> variable
	rng       *rand.Rand
}

// New returns an empty Context at the root scope, with the random number
// generator seeded to a fixed default -- use RngStateWithSeed to change it.
func New() *Context {
	return &Context{
		scope: RootScope,
		data: &contextData{
			params:    make(map[string]map[string]any),
			variables: make(map[string]map[string]*Variable),
			rng:       rand.New(rand.NewSource(42)),
		},
	}
}

// Scope returns the full current scope path.
func (ctx *Context) Scope() string { return ctx.scope }

// In returns a new reference to the Context with the scope changed to the
// given sub-scope of the current one.
func (ctx *Context) In(scope string) *Context {
	if scope == "" {
		Panicf("context.In: cannot use an empty scope")
	}
	if strings.Contains(scope, ScopeSeparator) {
		Panicf("context.In: scope name %q cannot contain %q", scope, ScopeSeparator)
	}
	newScope := ctx.scope
	if newScope != RootScope {
		newScope += ScopeSeparator
	}
	newScope += scope
	return &Context{scope: newScope, data: ctx.data}
}

// SetParam sets the given hyperparameter in the current scope.
func (ctx *Context) SetParam(key string, value any) *Context {
	scopeParams, found := ctx.data.params[ctx.scope]
	if !found {
		scopeParams = make(map[string]any)
		ctx.data.params[ctx.scope] = scopeParams
	}
	scopeParams[key] = value
	return ctx
}

// SetParams sets a collection of hyperparameters in the current scope.
func (ctx *Context) SetParams(keyValues map[string]any) *Context {
	for key, value := range keyValues {
		ctx.SetParam(key, value)
	}
	return ctx
}

// getParam looks the key up from the current scope up to the root, returning
// the first value found.
func (ctx *Context) getParam(key string) (value any, found bool) {
	scope := ctx.scope
	for {
		if scopeParams, ok := ctx.data.params[scope]; ok {
			if value, found = scopeParams[key]; found {
				return
			}
		}
		if scope == RootScope {
			return nil, false
		}
		idx := strings.LastIndex(scope, ScopeSeparator)
		if idx <= 0 {
			scope = RootScope
		} else {
			scope = scope[:idx]
		}
	}
}

// GetParamOr returns the value of the hyperparameter key, searched from the
// Context's current scope up to the root, or the given default value if it
// is not set anywhere. It panics if the stored value is of a different type.
func GetParamOr[T any](ctx *Context, key string, defaultValue T) T {
	valueAny, found := ctx.getParam(key)
	if !found {
		return defaultValue
	}
	value, ok := valueAny.(T)
	if !ok {
		Panicf("Context(scope=%q)[%q]=%#v cannot be converted to type %T",
			ctx.scope, key, valueAny, defaultValue)
	}
	return value
}

// RngStateWithSeed resets the Context's random number generator with the
// given seed. Variable initialization becomes deterministic on the seed.
func (ctx *Context) RngStateWithSeed(seed int64) *Context {
	ctx.data.rng = rand.New(rand.NewSource(seed))
	return ctx
}

// Rand returns the Context's random number generator.
func (ctx *Context) Rand() *rand.Rand { return ctx.data.rng }

// VariableWithValue creates (or returns the previously created) variable in
// the current scope, initialized with the given tensor value. Variables are
// created trainable -- see Variable.SetTrainable.
func (ctx *Context) VariableWithValue(name string, value *tensors.Tensor) *Variable {
	if v := ctx.GetVariable(name); v != nil {
		return v
	}
	v := &Variable{
		Scope:     ctx.scope,
		Name:      name,
		Trainable: true,
		value:     value,
	}
	scopeVars, found := ctx.data.variables[ctx.scope]
	if !found {
		scopeVars = make(map[string]*Variable)
		ctx.data.variables[ctx.scope] = scopeVars
	}
	scopeVars[name] = v
	return v
}

// VariableWithShape creates (or returns the previously created) variable in
// the current scope, initialized with the default Glorot (Xavier) uniform
// initializer -- fan-in/fan-out taken from the first/last dimensions.
func (ctx *Context) VariableWithShape(name string, shape shapes.Shape) *Variable {
	if v := ctx.GetVariable(name); v != nil {
		return v
	}
	return ctx.VariableWithValue(name, glorotUniform(ctx.data.rng, shape))
}

// GetVariable returns the variable with the given name in the current scope,
// or nil if it does not exist.
func (ctx *Context) GetVariable(name string) *Variable {
	scopeVars, found := ctx.data.variables[ctx.scope]
	if !found {
		return nil
	}
	return scopeVars[name]
}

// InspectVariable returns the variable at an arbitrary scope and name, or
// nil if it does not exist.
func (ctx *Context) InspectVariable(scope, name string) *Variable {
	scopeVars, found := ctx.data.variables[scope]
	if !found {
		return nil
	}
	return scopeVars[name]
}

// DeleteVariable removes the variable from the Context, if it exists.
func (ctx *Context) DeleteVariable(scope, name string) {
	if scopeVars, found := ctx.data.variables[scope]; found {
		delete(scopeVars, name)
	}
}

// EnumerateVariables calls fn for each variable of the Context, in
// deterministic (sorted by scope, then name) order.
func (ctx *Context) EnumerateVariables(fn func(v *Variable)) {
	scopeNames := make([]string, 0, len(ctx.data.variables))
	for scope := range ctx.data.variables {
		scopeNames = append(scopeNames, scope)
	}
	sort.Strings(scopeNames)
	for _, scope := range scopeNames {
		scopeVars := ctx.data.variables[scope]
		names := make([]string, 0, len(scopeVars))
		for name := range scopeVars {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fn(scopeVars[name])
		}
	}
}

// NumParameters returns the total number of values across all trainable
// variables.
func (ctx *Context) NumParameters() int {
	total := 0
	ctx.EnumerateVariables(func(v *Variable) {
		if v.Trainable {
			total += v.value.Size()
		}
	})
	return total
}

// ZeroGrads clears the accumulated gradient of every variable. Called by the
// trainer before each sample's backward pass.
func (ctx *Context) ZeroGrads() {
	ctx.EnumerateVariables(func(v *Variable) {
		v.ZeroGrad()
	})
}

// glorotUniform samples from U(-limit, limit), limit=sqrt(6/(fanIn+fanOut)).
func glorotUniform(rng *rand.Rand, shape shapes.Shape) *tensors.Tensor {
	fanIn, fanOut := 1, 1
	if shape.Rank() >= 1 {
		fanIn = shape.Dimensions[0]
	}
	if shape.Rank() >= 2 {
		fanOut = shape.Dimensions[shape.Rank()-1]
	}
	limit := 1.0
	if fanIn+fanOut > 0 {
		limit = math.Sqrt(6.0 / float64(fanIn+fanOut))
	}
	t := tensors.FromShape(shape)
	flat := t.Flat()
	for ii := range flat {
		flat[ii] = (2.0*rng.Float64() - 1.0) * limit
	}
	return t
}
