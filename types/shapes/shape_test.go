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

package shapes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShape(t *testing.T) {
	s := Make(3, 4)
	assert.Equal(t, 2, s.Rank())
	assert.Equal(t, 12, s.Size())
	assert.Equal(t, 4, s.Dim(1))
	assert.Equal(t, 4, s.Dim(-1))
	assert.False(t, s.IsScalar())

	scalar := Scalar()
	assert.Equal(t, 0, scalar.Rank())
	assert.Equal(t, 1, scalar.Size())
	assert.True(t, scalar.IsScalar())

	assert.True(t, s.Equal(Make(3, 4)))
	assert.False(t, s.Equal(Make(4, 3)))

	clone := s.Clone()
	clone.Dimensions[0] = 7
	assert.Equal(t, 3, s.Dimensions[0])

	assert.Panics(t, func() { Make(3, -1) })
}
