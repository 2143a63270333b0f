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
	. "github.com/gomlx/exceptions"
	"github.com/gomlx/topomlx/types/shapes"
	"github.com/gomlx/topomlx/types/tensors"
)

// SimplicialComplex is a 2-dimensional simplicial complex: the nodes and
// edges of a graph (ranks 0 and 1) plus a set of triangles (rank 2).
// Orientation follows the sorted vertex order of each simplex.
type SimplicialComplex struct {
	graph     *Graph
	triangles [][3]int
}

// CliqueLifting lifts a graph to a simplicial complex by promoting every
// 3-clique to a rank-2 simplex.
func CliqueLifting(g *Graph) *SimplicialComplex {
	return &SimplicialComplex{
		graph:     g,
		triangles: g.Triangles(),
	}
}

// Graph returns the underlying 1-skeleton.
func (sc *SimplicialComplex) Graph() *Graph { return sc.graph }

// Triangles returns the rank-2 simplices, each a sorted triple, in
// lexicographic order.
func (sc *SimplicialComplex) Triangles() [][3]int { return sc.triangles }

// NumSimplices returns the number of simplices of the given rank (0, 1 or 2).
func (sc *SimplicialComplex) NumSimplices(rank int) int {
	switch rank {
	case 0:
		return sc.graph.NumNodes()
	case 1:
		return sc.graph.NumEdges()
	case 2:
		return len(sc.triangles)
	}
	Panicf("topo.SimplicialComplex.NumSimplices: invalid rank %d", rank)
	return 0
}

// BoundaryMatrix returns the signed boundary matrix mapping rank-k chains to
// rank-(k-1) chains, for k in {1, 2}:
//
//   - B1 is [numNodes, numEdges]: edge (u, v) with u<v has ∂ = v − u.
//   - B2 is [numEdges, numTriangles]: triangle (a, b, c) with a<b<c has
//     ∂ = (b,c) − (a,c) + (a,b).
//
// The composition of boundaries vanishes: B1·B2 = 0.
func (sc *SimplicialComplex) BoundaryMatrix(rank int) *tensors.Tensor {
	switch rank {
	case 1:
		b1 := tensors.FromShape(shapes.Make(sc.graph.NumNodes(), sc.graph.NumEdges()))
		for edgeIdx, edge := range sc.graph.Edges() {
			b1.Set(-1, edge[0], edgeIdx)
			b1.Set(+1, edge[1], edgeIdx)
		}
		return b1
	case 2:
		b2 := tensors.FromShape(shapes.Make(sc.graph.NumEdges(), len(sc.triangles)))
		for triIdx, tri := range sc.triangles {
			a, b, c := tri[0], tri[1], tri[2]
			b2.Set(+1, sc.graph.EdgeIndex(b, c), triIdx)
			b2.Set(-1, sc.graph.EdgeIndex(a, c), triIdx)
			b2.Set(+1, sc.graph.EdgeIndex(a, b), triIdx)
		}
		return b2
	}
	Panicf("topo.SimplicialComplex.BoundaryMatrix: invalid rank %d, must be 1 or 2", rank)
	return nil
}

// HodgeLaplacian returns the Hodge Laplacian of the given rank:
//
//	L0 = B1·B1ᵀ
//	L1 = B1ᵀ·B1 + B2·B2ᵀ
//	L2 = B2ᵀ·B2
func (sc *SimplicialComplex) HodgeLaplacian(rank int) *tensors.Tensor {
	switch rank {
	case 0:
		b1 := sc.BoundaryMatrix(1)
		return tensors.MatMul(b1, tensors.Transpose(b1))
	case 1:
		b1 := sc.BoundaryMatrix(1)
		b2 := sc.BoundaryMatrix(2)
		down := tensors.MatMul(tensors.Transpose(b1), b1)
		up := tensors.MatMul(b2, tensors.Transpose(b2))
		return tensors.Add(down, up)
	case 2:
		b2 := sc.BoundaryMatrix(2)
		return tensors.MatMul(tensors.Transpose(b2), b2)
	}
	Panicf("topo.SimplicialComplex.HodgeLaplacian: invalid rank %d", rank)
	return nil
}

// NormalizedAdjacency returns the symmetric-normalized, self-looped
// adjacency of the rank-0 simplices -- the propagation matrix used by the
// simplicial model's convolution over nodes.
func (sc *SimplicialComplex) NormalizedAdjacency() *tensors.Tensor {
	return SymNormalizeWithSelfLoops(sc.graph.AdjacencyMatrix())
}
