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

import "github.com/gomlx/topomlx/types/tensors"

// Dataset provides the data for a train.Trainer, one sample at a time.
//
// Each sample is a slice of tensors for `inputs` (feature tensors followed
// by structure matrices) and a slice for `labels` (usually a single tensor:
// a scalar class index or a vector of per-entity binary labels).
//
// Yield also returns an opaque `spec` object, normally the same for the
// whole dataset, that is passed through to hooks -- it can simply be nil.
//
// Samples are yielded in a fixed order: the training loop iterates them
// without shuffling, so the order defines the train/test split alignment.
type Dataset interface {
	// Name identifies the dataset. Used for debugging and pretty-printing.
	Name() string

	// Reset restarts the dataset from the beginning. It is called after
	// io.EOF is reached, e.g. at the end of every epoch or evaluation pass.
	Reset()

	// Yield one sample, or an error. io.EOF indicates the end of the data
	// for finite datasets -- the end of the epoch. Any other error
	// interrupts the training/evaluation and is returned to the user.
	Yield() (spec any, inputs, labels []*tensors.Tensor, err error)
}
