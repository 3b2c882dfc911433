// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sets

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	// Sets are created empty.
	s := Make[int](10)
	assert.Equal(t, 0, s.Len())

	// Check inserting and recovery.
	assert.True(t, s.Insert(3))
	assert.True(t, s.Insert(7))
	assert.False(t, s.Insert(3))
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has(3))
	assert.True(t, s.Has(7))
	assert.False(t, s.Has(5))

	s2 := MakeWith(5, 7, 5)
	assert.Equal(t, 2, s2.Len())
	assert.True(t, s2.Has(5))
	assert.False(t, s2.Has(3))

	items := slices.Sorted(s.Items())
	assert.Equal(t, []int{3, 7}, items)

	delete(s, 7)
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.Has(7))
}
