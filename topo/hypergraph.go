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

package topo

import (
	"sort"

	. "github.com/gomlx/exceptions"
	"github.com/gomlx/topomlx/types/shapes"
	"github.com/gomlx/topomlx/types/tensors"
)

// Hypergraph holds a fixed set of nodes and a list of hyperedges, each
// connecting an arbitrary subset of the nodes.
type Hypergraph struct {
	numNodes   int
	hyperedges [][]int // Each sorted, without duplicates.
}

// NewHypergraph creates a hypergraph with the given number of nodes and no
// hyperedges.
func NewHypergraph(numNodes int) *Hypergraph {
	if numNodes < 0 {
		Panicf("topo.NewHypergraph: negative number of nodes %d", numNodes)
	}
	return &Hypergraph{numNodes: numNodes}
}

// AddHyperedge adds a hyperedge over the given nodes. Duplicated nodes are
// collapsed; a hyperedge needs at least one node.
func (h *Hypergraph) AddHyperedge(nodes ...int) *Hypergraph {
	if len(nodes) == 0 {
		Panicf("topo.Hypergraph.AddHyperedge: empty hyperedge")
	}
	seen := make(map[int]struct{}, len(nodes))
	var members []int
	for _, node := range nodes {
		if node < 0 || node >= h.numNodes {
			Panicf("topo.Hypergraph.AddHyperedge: node %d out of range [0, %d)", node, h.numNodes)
		}
		if _, dup := seen[node]; dup {
			continue
		}
		seen[node] = struct{}{}
		members = append(members, node)
	}
	sort.Ints(members)
	h.hyperedges = append(h.hyperedges, members)
	return h
}

// NeighborhoodLifting lifts a graph to a hypergraph by creating, for each
// node, one hyperedge with the node's closed neighborhood (the node itself
// plus its graph neighbors). Hyperedges are ordered by node index.
func NeighborhoodLifting(g *Graph) *Hypergraph {
	h := NewHypergraph(g.NumNodes())
	for node := 0; node < g.NumNodes(); node++ {
		members := append([]int{node}, g.Neighbors(node)...)
		h.AddHyperedge(members...)
	}
	return h
}

// NumNodes returns the number of nodes.
func (h *Hypergraph) NumNodes() int { return h.numNodes }

// NumHyperedges returns the number of hyperedges.
func (h *Hypergraph) NumHyperedges() int { return len(h.hyperedges) }

// Hyperedges returns the hyperedges, each sorted, in insertion order.
func (h *Hypergraph) Hyperedges() [][]int { return h.hyperedges }

// IncidenceMatrix returns the boolean incidence matrix H, shape
// [numNodes, numHyperedges]: entry (n, e) is 1 iff node n belongs to
// hyperedge e.
func (h *Hypergraph) IncidenceMatrix() *tensors.Tensor {
	incidence := tensors.FromShape(shapes.Make(h.numNodes, len(h.hyperedges)))
	for edgeIdx, members := range h.hyperedges {
		for _, node := range members {
			incidence.Set(1, node, edgeIdx)
		}
	}
	return incidence
}

// PropagationMatrix returns the two-phase message-passing operator
// Dv⁻¹·H·De⁻¹·Hᵀ, shape [numNodes, numNodes]: node features are averaged
// into each hyperedge, then hyperedge features averaged back into each node.
// Nodes belonging to no hyperedge get an all-zero row.
func (h *Hypergraph) PropagationMatrix() *tensors.Tensor {
	incidence := h.IncidenceMatrix()
	// De⁻¹·Hᵀ: average nodes into hyperedges.
	nodesToEdges := RowNormalize(tensors.Transpose(incidence))
	// Dv⁻¹·H: average hyperedges into nodes.
	edgesToNodes := RowNormalize(incidence)
	return tensors.MatMul(edgesToNodes, nodesToEdges)
}
