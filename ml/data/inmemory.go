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

package data

import (
	"io"

	"github.com/gomlx/topomlx/types/tensors"
	"github.com/pkg/errors"
)

// Example is one sample of an InMemoryDataset: the input tensors fed to the
// model and the label tensors fed to the loss and metrics.
type Example struct {
	Inputs, Labels []*tensors.Tensor
}

// InMemoryDataset holds a fixed list of examples in memory and yields them
// one at a time, always in the same order. It implements train.Dataset.
//
// It is not safe for concurrent use.
type InMemoryDataset struct {
	name     string
	spec     any
	examples []Example
	next     int
}

// InMemory creates an InMemoryDataset with the given name, spec and
// examples. The examples slice is owned by the dataset afterwards.
//
// The spec is passed through to the model on every yield; it can carry
// anything the model's Forward needs beyond the per-example tensors, or nil.
func InMemory(name string, spec any, examples []Example) *InMemoryDataset {
	return &InMemoryDataset{name: name, spec: spec, examples: examples}
}

// Name implements train.Dataset.
func (ds *InMemoryDataset) Name() string { return ds.name }

// NumExamples returns the number of examples held.
func (ds *InMemoryDataset) NumExamples() int { return len(ds.examples) }

// Yield implements train.Dataset: examples are yielded in insertion order,
// and io.EOF is returned after the last one, until Reset is called.
func (ds *InMemoryDataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	if ds.next >= len(ds.examples) {
		return nil, nil, nil, io.EOF
	}
	example := ds.examples[ds.next]
	ds.next++
	return ds.spec, example.Inputs, example.Labels, nil
}

// Reset implements train.Dataset, restarting the dataset from the first
// example.
func (ds *InMemoryDataset) Reset() { ds.next = 0 }

// TakeSplit splits the dataset in two, preserving order: the first
// int(trainFraction*N) examples become the training dataset, the remaining
// ones the evaluation dataset. No shuffling happens, the suffix names
// ("-train" and "-eval") are appended to the dataset name.
//
// E.g.: with 20 examples and trainFraction=0.8 the split is 16/4.
func (ds *InMemoryDataset) TakeSplit(trainFraction float64) (train, eval *InMemoryDataset, err error) {
	if trainFraction < 0 || trainFraction > 1 {
		return nil, nil, errors.Errorf("InMemoryDataset(%q).TakeSplit(%g): fraction must be in [0, 1]",
			ds.name, trainFraction)
	}
	numTrain := int(trainFraction * float64(len(ds.examples)))
	train = InMemory(ds.name+"-train", ds.spec, ds.examples[:numTrain])
	eval = InMemory(ds.name+"-eval", ds.spec, ds.examples[numTrain:])
	return train, eval, nil
}
