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

// Package train holds tools to train models and evaluate their quality: the
// Trainer (one training/evaluation step over one sample), the Loop (epochs
// over a Dataset, with hooks), and the Dataset interface that feeds them.
package train

import "github.com/gomlx/topomlx/types/tensors"

// Model is the contract between the training loop and the model variants
// (cell complex, hypergraph, simplicial): one shared forward/backward
// surface, whatever the topology behind it.
type Model interface {
	// Forward computes the prediction for one sample. The inputs are the
	// sample's per-rank feature tensors followed by its structure matrices;
	// each implementation documents its exact input layout. Forward caches
	// intermediate values for Backward, so calls must alternate
	// Forward/Backward for the same sample.
	Forward(inputs []*tensors.Tensor) *tensors.Tensor

	// Backward takes d(loss)/d(prediction) for the last Forward call and
	// accumulates the parameter gradients into the model's variables.
	Backward(grad *tensors.Tensor)

	// SetTraining switches the model between training and inference
	// behavior. The layers here have no train-only behavior (no dropout),
	// so predictions are identical in both modes, but the trainer still
	// flips the mode as part of its contract.
	SetTraining(training bool)
}
