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

// CellComplex is a 2-dimensional cell complex: a graph skeleton (rank-0
// nodes, rank-1 edges) with polygonal 2-cells attached along closed walks of
// existing edges.
type CellComplex struct {
	graph *Graph
	cells [][]int // Each cell is its node cycle, in attachment order.
}

// NewCellComplex creates a cell complex over the given graph skeleton, with
// no 2-cells attached.
func NewCellComplex(g *Graph) *CellComplex {
	return &CellComplex{graph: g}
}

// CycleLifting lifts a graph to a cell complex by attaching a 2-cell along
// every 3-cycle (triangle). Larger cells can be attached afterwards with
// AttachCell.
func CycleLifting(g *Graph) *CellComplex {
	cc := NewCellComplex(g)
	for _, tri := range g.Triangles() {
		cc.AttachCell(tri[0], tri[1], tri[2])
	}
	return cc
}

// Graph returns the underlying 1-skeleton.
func (cc *CellComplex) Graph() *Graph { return cc.graph }

// Cells returns the attached 2-cells, each as its boundary cycle of nodes.
func (cc *CellComplex) Cells() [][]int { return cc.cells }

// AttachCell attaches a 2-cell along the closed walk nodes[0], nodes[1],
// ..., nodes[len-1], nodes[0]. Every consecutive pair must be an existing
// edge of the skeleton, and the cell needs at least 3 distinct nodes.
func (cc *CellComplex) AttachCell(nodes ...int) *CellComplex {
	if len(nodes) < 3 {
		Panicf("topo.CellComplex.AttachCell: a 2-cell needs at least 3 nodes, got %d", len(nodes))
	}
	seen := make(map[int]struct{}, len(nodes))
	for ii, node := range nodes {
		if _, dup := seen[node]; dup {
			Panicf("topo.CellComplex.AttachCell: repeated node %d in cell boundary %v", node, nodes)
		}
		seen[node] = struct{}{}
		next := nodes[(ii+1)%len(nodes)]
		if !cc.graph.HasEdge(node, next) {
			Panicf("topo.CellComplex.AttachCell: boundary step (%d, %d) is not an edge of the skeleton", node, next)
		}
	}
	cell := make([]int, len(nodes))
	copy(cell, nodes)
	cc.cells = append(cc.cells, cell)
	return cc
}

// NumCells returns the number of cells of the given rank (0, 1 or 2).
func (cc *CellComplex) NumCells(rank int) int {
	switch rank {
	case 0:
		return cc.graph.NumNodes()
	case 1:
		return cc.graph.NumEdges()
	case 2:
		return len(cc.cells)
	}
	Panicf("topo.CellComplex.NumCells: invalid rank %d", rank)
	return 0
}

// AdjacencyMatrix returns the boolean rank-0 adjacency matrix of the
// skeleton, shape [numNodes, numNodes].
func (cc *CellComplex) AdjacencyMatrix() *tensors.Tensor {
	return cc.graph.AdjacencyMatrix()
}

// IncidenceMatrix returns the unsigned incidence matrix between edges and
// 2-cells, shape [numEdges, numCells]: entry (e, c) is 1 iff edge e lies on
// the boundary of cell c.
func (cc *CellComplex) IncidenceMatrix() *tensors.Tensor {
	incidence := tensors.FromShape(shapes.Make(cc.graph.NumEdges(), len(cc.cells)))
	for cellIdx, cell := range cc.cells {
		for ii, node := range cell {
			next := cell[(ii+1)%len(cell)]
			incidence.Set(1, cc.graph.EdgeIndex(node, next), cellIdx)
		}
	}
	return incidence
}

// IncidenceMatrixTranspose returns the transpose of IncidenceMatrix, shape
// [numCells, numEdges] -- the form the cell-complex model consumes to send
// edge messages up to the faces.
func (cc *CellComplex) IncidenceMatrixTranspose() *tensors.Tensor {
	return tensors.Transpose(cc.IncidenceMatrix())
}
