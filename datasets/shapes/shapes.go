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

// Package shapes generates small synthetic graphs labeled by their topology
// class: chains (no cycle), rings (a cycle but no triangle) and cliques
// (many triangles). The generator is fully deterministic given its seed, so
// repeated runs produce the same sample sequence in the same order.
package shapes

import (
	"math/rand"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/topomlx/topo"
	"github.com/gomlx/topomlx/types/tensors"
)

// Topology classes, also the integer labels of the generated samples.
const (
	ClassChain = iota // Acyclic: a path with random tree branches.
	ClassRing         // One cycle of length >= 4, with path tails.
	ClassClique       // A K4 clique with path tails.

	NumClasses = 3
)

// NumFeatures of the node feature matrix built by NodeFeatures.
const NumFeatures = 2

// Sample is one labeled graph.
type Sample struct {
	Graph *topo.Graph
	Label int
}

// Generate returns numSamples labeled graphs, cycling through the three
// classes (sample i has label i%3). Graph sizes vary between 6 and 12
// nodes, drawn from a rand.Rand seeded with seed.
func Generate(numSamples int, seed int64) []Sample {
	if numSamples < 0 {
		exceptions.Panicf("shapes.Generate(numSamples=%d): negative number of samples", numSamples)
	}
	rng := rand.New(rand.NewSource(seed))
	samples := make([]Sample, 0, numSamples)
	for ii := 0; ii < numSamples; ii++ {
		label := ii % NumClasses
		numNodes := 6 + rng.Intn(7)
		var g *topo.Graph
		switch label {
		case ClassChain:
			g = chainGraph(numNodes, rng)
		case ClassRing:
			g = ringGraph(numNodes, rng)
		case ClassClique:
			g = cliqueGraph(numNodes)
		}
		samples = append(samples, Sample{Graph: g, Label: label})
	}
	return samples
}

// chainGraph builds a random tree: node i attaches to a random earlier
// node. No cycles, hence no 2-cells and no triangles.
func chainGraph(numNodes int, rng *rand.Rand) *topo.Graph {
	g := topo.NewGraph(numNodes)
	for node := 1; node < numNodes; node++ {
		g.AddEdge(rng.Intn(node), node)
	}
	return g
}

// ringGraph builds one cycle of length >= 4 (so that it carries no
// triangle) and attaches the remaining nodes as a path tail.
func ringGraph(numNodes int, rng *rand.Rand) *topo.Graph {
	ringLen := 4 + rng.Intn(numNodes-4)
	g := topo.NewGraph(numNodes)
	for node := 0; node < ringLen; node++ {
		g.AddEdge(node, (node+1)%ringLen)
	}
	for node := ringLen; node < numNodes; node++ {
		g.AddEdge(node-1, node)
	}
	return g
}

// cliqueGraph builds a K4 on nodes 0..3 and attaches the remaining nodes
// as a path tail. The clique contributes 4 triangles.
func cliqueGraph(numNodes int) *topo.Graph {
	g := topo.NewGraph(numNodes)
	for a := 0; a < 4; a++ {
		for b := a + 1; b < 4; b++ {
			g.AddEdge(a, b)
		}
	}
	for node := 4; node < numNodes; node++ {
		g.AddEdge(node-1, node)
	}
	return g
}

// NodeFeatures builds the [numNodes, NumFeatures] input feature matrix for
// a graph: a constant bias column and the node degree normalized by the
// maximum possible degree.
func NodeFeatures(g *topo.Graph) *tensors.Tensor {
	numNodes := g.NumNodes()
	features := tensors.FromFlatDataAndDimensions(
		make([]float64, numNodes*NumFeatures), numNodes, NumFeatures)
	for node := 0; node < numNodes; node++ {
		features.Set(1.0, node, 0)
		features.Set(float64(g.Degree(node))/float64(numNodes-1), node, 1)
	}
	return features
}
