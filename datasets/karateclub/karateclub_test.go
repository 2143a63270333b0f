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

package karateclub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph(t *testing.T) {
	g := Graph()
	assert.Equal(t, NumNodes, g.NumNodes())
	assert.Equal(t, NumEdges, g.NumEdges())

	// Well known facts of the club: Mr. Hi (0) and the officer John A (33)
	// are the two hubs, and are not friends with each other.
	assert.Equal(t, 16, g.Degree(0))
	assert.Equal(t, 17, g.Degree(33))
	assert.False(t, g.HasEdge(0, 33))

	// Every member has at least one friend.
	for member := 0; member < NumNodes; member++ {
		assert.Greater(t, g.Degree(member), 0)
	}

	// Graph returns a fresh copy: mutations don't leak between calls.
	g.AddEdge(0, 33)
	assert.False(t, Graph().HasEdge(0, 33))
}

func TestFactionsSplitInHalf(t *testing.T) {
	counts := [2]int{}
	for member := 0; member < NumNodes; member++ {
		counts[Faction(member)]++
	}
	assert.Equal(t, 17, counts[FactionMrHi])
	assert.Equal(t, 17, counts[FactionOfficer])
	assert.Equal(t, FactionMrHi, Faction(0))
	assert.Equal(t, FactionOfficer, Faction(33))
}

func TestEgoNetworks(t *testing.T) {
	egos := EgoNetworks()
	require.Len(t, egos, NumNodes)
	full := Graph()
	for member, ego := range egos {
		assert.Equal(t, member, ego.Member)
		assert.Equal(t, factions[member], ego.Label)
		// The ego network has the member and its friends.
		assert.Equal(t, full.Degree(member)+1, ego.Graph.NumNodes())
		// The center keeps all its friendships in the subgraph.
		assert.Equal(t, full.Degree(member), ego.Graph.Degree(ego.Center))
	}
}

func TestEgoNodeFeatures(t *testing.T) {
	ego := EgoNetworks()[33]
	features := ego.NodeFeatures()
	require.Equal(t, []int{ego.Graph.NumNodes(), NumFeatures}, features.Shape().Dimensions)
	for node := 0; node < ego.Graph.NumNodes(); node++ {
		assert.Equal(t, 1.0, features.At(node, 0))
		if node == ego.Center {
			assert.Equal(t, 1.0, features.At(node, 1))
		} else {
			assert.Equal(t, 0.0, features.At(node, 1))
		}
	}
}
