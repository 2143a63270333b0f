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

// Package topo implements the topological structures fed to the models:
// graphs and their liftings to cell complexes, hypergraphs and simplicial
// complexes, along with the extraction of the neighborhood (structure)
// matrices -- adjacency, incidence/boundary and Laplacians -- as dense
// tensors.
//
// Entity ordering is always deterministic: nodes by index, edges and
// higher-rank cells in lexicographic order of their sorted vertices. All
// matrix rows/columns follow that ordering, so feature tensors built from
// the same structures stay index-aligned.
package topo

import (
	"sort"

	. "github.com/gomlx/exceptions"
	"github.com/gomlx/topomlx/types/shapes"
	"github.com/gomlx/topomlx/types/tensors"
)

// Edge is an undirected edge, stored with the smaller node index first.
type Edge [2]int

// MakeEdge normalizes the pair (u, v) into an Edge.
func MakeEdge(u, v int) Edge {
	if u > v {
		u, v = v, u
	}
	return Edge{u, v}
}

// Graph is a simple undirected graph: a fixed number of nodes (rank-0
// entities) and a set of edges (rank-1 entities). No self-loops, no
// multi-edges.
type Graph struct {
	numNodes int
	edgeSet  map[Edge]struct{}

	// Cached sorted edge list, invalidated by AddEdge.
	sortedEdges []Edge
}

// NewGraph creates a graph with the given number of nodes and no edges.
func NewGraph(numNodes int) *Graph {
	if numNodes < 0 {
		Panicf("topo.NewGraph: negative number of nodes %d", numNodes)
	}
	return &Graph{
		numNodes: numNodes,
		edgeSet:  make(map[Edge]struct{}),
	}
}

// AddEdge adds the undirected edge (u, v). Adding an existing edge is a
// no-op. Self-loops are invalid.
func (g *Graph) AddEdge(u, v int) *Graph {
	if u == v {
		Panicf("topo.Graph.AddEdge: self-loop on node %d", u)
	}
	if u < 0 || u >= g.numNodes || v < 0 || v >= g.numNodes {
		Panicf("topo.Graph.AddEdge(%d, %d): node out of range [0, %d)", u, v, g.numNodes)
	}
	g.edgeSet[MakeEdge(u, v)] = struct{}{}
	g.sortedEdges = nil
	return g
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return g.numNodes }

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int { return len(g.edgeSet) }

// HasEdge returns whether the edge (u, v) exists.
func (g *Graph) HasEdge(u, v int) bool {
	_, found := g.edgeSet[MakeEdge(u, v)]
	return found
}

// Edges returns the edges in lexicographic order. The returned slice is
// shared, don't modify it.
func (g *Graph) Edges() []Edge {
	if g.sortedEdges == nil {
		g.sortedEdges = make([]Edge, 0, len(g.edgeSet))
		for e := range g.edgeSet {
			g.sortedEdges = append(g.sortedEdges, e)
		}
		sort.Slice(g.sortedEdges, func(i, j int) bool {
			if g.sortedEdges[i][0] != g.sortedEdges[j][0] {
				return g.sortedEdges[i][0] < g.sortedEdges[j][0]
			}
			return g.sortedEdges[i][1] < g.sortedEdges[j][1]
		})
	}
	return g.sortedEdges
}

// EdgeIndex returns the position of edge (u, v) in the Edges ordering, or -1
// if the edge does not exist.
func (g *Graph) EdgeIndex(u, v int) int {
	edge := MakeEdge(u, v)
	edges := g.Edges()
	idx := sort.Search(len(edges), func(i int) bool {
		if edges[i][0] != edge[0] {
			return edges[i][0] >= edge[0]
		}
		return edges[i][1] >= edge[1]
	})
	if idx < len(edges) && edges[idx] == edge {
		return idx
	}
	return -1
}

// Neighbors returns the sorted list of nodes adjacent to u.
func (g *Graph) Neighbors(u int) []int {
	var neighbors []int
	for e := range g.edgeSet {
		if e[0] == u {
			neighbors = append(neighbors, e[1])
		} else if e[1] == u {
			neighbors = append(neighbors, e[0])
		}
	}
	sort.Ints(neighbors)
	return neighbors
}

// Degree returns the number of edges incident to u.
func (g *Graph) Degree(u int) int {
	degree := 0
	for e := range g.edgeSet {
		if e[0] == u || e[1] == u {
			degree++
		}
	}
	return degree
}

// Triangles returns every 3-clique as a sorted triple, in lexicographic
// order.
func (g *Graph) Triangles() [][3]int {
	var triangles [][3]int
	for a := 0; a < g.numNodes; a++ {
		for _, b := range g.Neighbors(a) {
			if b <= a {
				continue
			}
			for _, c := range g.Neighbors(b) {
				if c <= b {
					continue
				}
				if g.HasEdge(a, c) {
					triangles = append(triangles, [3]int{a, b, c})
				}
			}
		}
	}
	return triangles
}

// Subgraph returns the graph induced by the given nodes, re-indexed in their
// sorted order, plus the mapping from new index to original node.
func (g *Graph) Subgraph(nodes []int) (sub *Graph, originalIdx []int) {
	originalIdx = make([]int, len(nodes))
	copy(originalIdx, nodes)
	sort.Ints(originalIdx)
	newIdx := make(map[int]int, len(originalIdx))
	for ii, node := range originalIdx {
		if node < 0 || node >= g.numNodes {
			Panicf("topo.Graph.Subgraph: node %d out of range [0, %d)", node, g.numNodes)
		}
		if _, dup := newIdx[node]; dup {
			Panicf("topo.Graph.Subgraph: duplicated node %d", node)
		}
		newIdx[node] = ii
	}
	sub = NewGraph(len(originalIdx))
	for e := range g.edgeSet {
		u, uOK := newIdx[e[0]]
		v, vOK := newIdx[e[1]]
		if uOK && vOK {
			sub.AddEdge(u, v)
		}
	}
	return
}

// AdjacencyMatrix returns the boolean (0/1 valued) node adjacency matrix,
// shape [numNodes, numNodes].
func (g *Graph) AdjacencyMatrix() *tensors.Tensor {
	adj := tensors.FromShape(shapes.Make(g.numNodes, g.numNodes))
	for e := range g.edgeSet {
		adj.Set(1, e[0], e[1])
		adj.Set(1, e[1], e[0])
	}
	return adj
}
