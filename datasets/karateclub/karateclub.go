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

// Package karateclub embeds Zachary's karate club graph: 34 members, 78
// friendship ties, and the two factions the club split into (Mr. Hi's
// students and the officers'). No download needed, the data is tiny and
// compiled in.
//
// Besides the full graph it provides the per-member ego networks (the
// member, its friends and the ties among them), which turn the single
// graph into 34 small binary-labeled samples ordered by member id.
package karateclub

import (
	"github.com/gomlx/topomlx/topo"
	"github.com/gomlx/topomlx/types/tensors"
)

const (
	// NumNodes is the number of club members.
	NumNodes = 34

	// NumEdges is the number of friendship ties.
	NumEdges = 78
)

// Faction labels.
const (
	FactionMrHi = iota
	FactionOfficer
)

// NumFeatures of the matrices built by NodeFeatures.
const NumFeatures = 2

// edges of the club graph, members numbered from 0.
var edges = [NumEdges][2]int{
	{0, 1}, {0, 2}, {0, 3}, {0, 4}, {0, 5}, {0, 6}, {0, 7}, {0, 8},
	{0, 10}, {0, 11}, {0, 12}, {0, 13}, {0, 17}, {0, 19}, {0, 21}, {0, 31},
	{1, 2}, {1, 3}, {1, 7}, {1, 13}, {1, 17}, {1, 19}, {1, 21}, {1, 30},
	{2, 3}, {2, 7}, {2, 8}, {2, 9}, {2, 13}, {2, 27}, {2, 28}, {2, 32},
	{3, 7}, {3, 12}, {3, 13},
	{4, 6}, {4, 10},
	{5, 6}, {5, 10}, {5, 16},
	{6, 16},
	{8, 30}, {8, 32}, {8, 33},
	{9, 33},
	{13, 33},
	{14, 32}, {14, 33},
	{15, 32}, {15, 33},
	{18, 32}, {18, 33},
	{19, 33},
	{20, 32}, {20, 33},
	{22, 32}, {22, 33},
	{23, 25}, {23, 27}, {23, 29}, {23, 32}, {23, 33},
	{24, 25}, {24, 27}, {24, 31},
	{25, 31},
	{26, 29}, {26, 33},
	{27, 33},
	{28, 31}, {28, 33},
	{29, 32}, {29, 33},
	{30, 32}, {30, 33},
	{31, 32}, {31, 33},
	{32, 33},
}

// factions[member] is the faction the member joined after the split.
var factions = [NumNodes]int{
	FactionMrHi, FactionMrHi, FactionMrHi, FactionMrHi, FactionMrHi,
	FactionMrHi, FactionMrHi, FactionMrHi, FactionMrHi, FactionOfficer,
	FactionMrHi, FactionMrHi, FactionMrHi, FactionMrHi, FactionOfficer,
	FactionOfficer, FactionMrHi, FactionMrHi, FactionOfficer, FactionMrHi,
	FactionOfficer, FactionMrHi, FactionOfficer, FactionOfficer, FactionOfficer,
	FactionOfficer, FactionOfficer, FactionOfficer, FactionOfficer, FactionOfficer,
	FactionOfficer, FactionOfficer, FactionOfficer, FactionOfficer,
}

// Graph returns a fresh copy of the full club graph.
func Graph() *topo.Graph {
	g := topo.NewGraph(NumNodes)
	for _, edge := range edges {
		g.AddEdge(edge[0], edge[1])
	}
	return g
}

// Faction returns the faction label of the given member.
func Faction(member int) int { return factions[member] }

// EgoNetwork is the subgraph induced by a member and its friends, with the
// member's faction as binary label. Nodes are renumbered to 0..n-1 in
// increasing original member id; Center is the new index of the member.
type EgoNetwork struct {
	Member int
	Center int
	Graph  *topo.Graph
	Label  int
}

// EgoNetworks returns one EgoNetwork per member, ordered by member id.
func EgoNetworks() []EgoNetwork {
	full := Graph()
	egos := make([]EgoNetwork, 0, NumNodes)
	for member := 0; member < NumNodes; member++ {
		nodes := append([]int{member}, full.Neighbors(member)...)
		sub, originalIdx := full.Subgraph(nodes)
		center := 0
		for newIdx, origIdx := range originalIdx {
			if origIdx == member {
				center = newIdx
				break
			}
		}
		egos = append(egos, EgoNetwork{
			Member: member,
			Center: center,
			Graph:  sub,
			Label:  factions[member],
		})
	}
	return egos
}

// NodeFeatures builds the [numNodes, NumFeatures] input feature matrix for
// an ego network: a constant bias column and a one-hot marker on the ego's
// center node.
func (ego EgoNetwork) NodeFeatures() *tensors.Tensor {
	numNodes := ego.Graph.NumNodes()
	features := tensors.FromFlatDataAndDimensions(
		make([]float64, numNodes*NumFeatures), numNodes, NumFeatures)
	for node := 0; node < numNodes; node++ {
		features.Set(1.0, node, 0)
	}
	features.Set(1.0, ego.Center, 1)
	return features
}
