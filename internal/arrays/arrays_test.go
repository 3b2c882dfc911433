// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package arrays

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocation(t *testing.T) {
	require.Equal(t, []float32{0, 0, 0}, Zeros(dtypes.Float32, 3))
	require.Equal(t, []float64{1, 1}, Ones(dtypes.Float64, 2))
	require.Equal(t, []float64{}, Zeros(dtypes.Float64, 0))
	require.Panics(t, func() { _ = Zeros(dtypes.Int32, 3) })

	flat := Zeros(dtypes.Float32, 2)
	Fill(flat, 7)
	require.Equal(t, []float32{7, 7}, flat)
	require.Equal(t, 2, Len(flat))
	require.False(t, IsZero(flat))
	require.True(t, IsZero(Zeros(dtypes.Float64, 4)))
}

func TestElementwise(t *testing.T) {
	t.Run("Float32", func(t *testing.T) {
		a, b := []float32{1, 2, 3}, []float32{10, 20, 30}
		dst := make([]float32, 3)
		Add(dst, a, b)
		assert.Equal(t, []float32{11, 22, 33}, dst)
		Mul(dst, a, b)
		assert.Equal(t, []float32{10, 40, 90}, dst)
		AddTo(dst, a)
		assert.Equal(t, []float32{11, 42, 93}, dst)
		MulAddTo(dst, a, a)
		assert.Equal(t, []float32{12, 46, 102}, dst)
		Copy(dst, b)
		assert.Equal(t, b, dst)
	})
	t.Run("Float64", func(t *testing.T) {
		a, b := []float64{1, 2, 3}, []float64{10, 20, 30}
		dst := make([]float64, 3)
		Add(dst, a, b)
		assert.Equal(t, []float64{11, 22, 33}, dst)
		Mul(dst, a, b)
		assert.Equal(t, []float64{10, 40, 90}, dst)
		AddTo(dst, a)
		assert.Equal(t, []float64{11, 42, 93}, dst)
		MulAddTo(dst, a, a)
		assert.Equal(t, []float64{12, 46, 102}, dst)
	})
	t.Run("Mismatches", func(t *testing.T) {
		require.Panics(t, func() { Add(make([]float32, 2), []float32{1, 2}, []float32{1}) })
		require.Panics(t, func() { AddTo(make([]float32, 2), []float64{1, 2}) })
		require.Panics(t, func() { Mul([]int{1}, []int{1}, []int{1}) })
	})
}

func TestAs2D(t *testing.T) {
	m := must.M1(As2D([]int{2, 3}))
	require.Equal(t, Matrix{Rows: 2, Cols: 3}, m)
	require.Equal(t, Matrix{Rows: 3, Cols: 2}, m.T())
	require.Equal(t, 6, m.Size())

	_, err := As2D([]int{2, 3, 4})
	require.Error(t, err)
	_, err = As2D(nil)
	require.Error(t, err)
}

func TestMatMul(t *testing.T) {
	// x: [1,3], y: [3,5] with every row equal to [1..5].
	x := []float32{1, 2, 3}
	y := []float32{
		1, 2, 3, 4, 5,
		1, 2, 3, 4, 5,
		1, 2, 3, 4, 5,
	}
	xM, yM := Matrix{1, 3}, Matrix{3, 5}
	z := make([]float32, 5)
	require.NoError(t, MatMul(z, Matrix{1, 5}, MatMulOp{Flat: x, Matrix: xM}, MatMulOp{Flat: y, Matrix: yM}, false))
	require.Equal(t, []float32{6, 12, 18, 24, 30}, z)

	// Accumulate.
	require.NoError(t, MatMul(z, Matrix{1, 5}, MatMulOp{Flat: x, Matrix: xM}, MatMulOp{Flat: y, Matrix: yM}, true))
	require.Equal(t, []float32{12, 24, 36, 48, 60}, z)

	// dz · yᵀ, with dz = ones([1,5]).
	dz := []float32{1, 1, 1, 1, 1}
	dx := make([]float32, 3)
	require.NoError(t, MatMul(dx, xM, MatMulOp{Flat: dz, Matrix: Matrix{1, 5}},
		MatMulOp{Flat: y, Matrix: yM, Transposed: true}, false))
	require.Equal(t, []float32{15, 15, 15}, dx)

	// xᵀ · dz.
	dy := make([]float32, 15)
	require.NoError(t, MatMul(dy, yM, MatMulOp{Flat: x, Matrix: xM, Transposed: true},
		MatMulOp{Flat: dz, Matrix: Matrix{1, 5}}, false))
	require.Equal(t, []float32{
		1, 1, 1, 1, 1,
		2, 2, 2, 2, 2,
		3, 3, 3, 3, 3,
	}, dy)

	// Float64 2x2.
	a := []float64{1, 2, 3, 4}
	b := []float64{5, 6, 7, 8}
	c := make([]float64, 4)
	require.NoError(t, MatMul(c, Matrix{2, 2}, MatMulOp{Flat: a, Matrix: Matrix{2, 2}},
		MatMulOp{Flat: b, Matrix: Matrix{2, 2}}, false))
	require.Equal(t, []float64{19, 22, 43, 50}, c)

	// Shape errors leave dst untouched.
	require.Error(t, MatMul(c, Matrix{2, 2}, MatMulOp{Flat: a, Matrix: Matrix{2, 2}},
		MatMulOp{Flat: []float64{1, 2, 3}, Matrix: Matrix{3, 1}}, false))
	require.Error(t, MatMul(c, Matrix{4, 1}, MatMulOp{Flat: a, Matrix: Matrix{2, 2}},
		MatMulOp{Flat: b, Matrix: Matrix{2, 2}}, false))
	require.Equal(t, []float64{19, 22, 43, 50}, c)

	// Empty inner dimension yields zeros.
	c = []float64{1, 1, 1, 1}
	require.NoError(t, MatMul(c, Matrix{2, 2}, MatMulOp{Flat: []float64{}, Matrix: Matrix{2, 0}},
		MatMulOp{Flat: []float64{}, Matrix: Matrix{0, 2}}, false))
	require.Equal(t, []float64{0, 0, 0, 0}, c)
}
