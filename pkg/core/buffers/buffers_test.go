// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package buffers_test

import (
	"fmt"
	"testing"

	. "github.com/gomlx/autograd/pkg/core/buffers"
	"github.com/gomlx/autograd/pkg/core/shapes"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	b := New(shapes.Make(dtypes.Float32, 2, 3))
	require.Equal(t, dtypes.Float32, b.DType())
	require.Equal(t, 6, b.Size())
	require.Equal(t, make([]float32, 6), CopyValue[float32](b))
	require.Equal(t, make([]float32, 6), CopyGrad[float32](b))
	require.True(t, b.IsGradZero())

	// Shape is cloned on construction.
	dims := []int{4}
	s := shapes.Shape{DType: dtypes.Float64, Dimensions: dims}
	b = New(s)
	dims[0] = 7
	require.Equal(t, 4, b.Shape().Dim(0))

	// Empty buffers are valid.
	b = New(shapes.Make(dtypes.Float64, 0, 3))
	require.Equal(t, 0, b.Size())
	require.Empty(t, CopyValue[float64](b))

	require.Panics(t, func() { _ = New(shapes.Invalid()) })
	require.Panics(t, func() { _ = New(shapes.Make(dtypes.Int64, 3)) })
}

func TestFromFlat(t *testing.T) {
	flat := []float64{1, 2, 3, 4}
	b := FromFlat(flat, 2, 2)
	flat[0] = 100
	require.Equal(t, []float64{1, 2, 3, 4}, CopyValue[float64](b))
	require.Equal(t, []float64{0, 0, 0, 0}, CopyGrad[float64](b))
	require.Panics(t, func() { _ = FromFlat([]float32{1, 2, 3}, 2, 2) })

	s := FromScalar(float32(7))
	require.True(t, s.Shape().IsScalar())
	require.Equal(t, float32(7), ToScalar[float32](s))
	require.Equal(t, float32(0), GradScalar[float32](s))
	require.Panics(t, func() { _ = ToScalar[float32](b) })
	require.Panics(t, func() { _ = ToScalar[float64](s) })
}

func TestGradients(t *testing.T) {
	b := FromFlat([]float32{1, 2, 3}, 3)
	b.SeedGrad()
	require.Equal(t, []float32{1, 1, 1}, CopyGrad[float32](b))
	b.AccumulateGrad([]float32{1, 2, 3})
	require.Equal(t, []float32{2, 3, 4}, CopyGrad[float32](b))
	b.ResetGrad()
	require.True(t, b.IsGradZero())
	require.Equal(t, []float32{1, 2, 3}, CopyValue[float32](b), "value must not change with the gradient")

	require.Panics(t, func() { b.AccumulateGrad([]float64{1, 2, 3}) })
	require.Panics(t, func() { b.AccumulateGrad([]float32{1, 2}) })

	FillValue(b, float32(5))
	require.Equal(t, []float32{5, 5, 5}, CopyValue[float32](b))
	b.ZeroValue()
	require.Equal(t, []float32{0, 0, 0}, CopyValue[float32](b))
}

func TestGenericAccessors(t *testing.T) {
	b := New(shapes.Make(dtypes.Float64, 2))
	MutableValue(b, func(flat []float64) {
		flat[0], flat[1] = 3, 4
	})
	MutableGrad(b, func(flat []float64) {
		flat[1] = -1
	})
	ConstValue(b, func(flat []float64) { assert.Equal(t, []float64{3, 4}, flat) })
	ConstGrad(b, func(flat []float64) { assert.Equal(t, []float64{0, -1}, flat) })

	// Wrong dtype.
	require.Panics(t, func() { ConstValue(b, func(flat []float32) {}) })
	require.Panics(t, func() { MutableGrad(b, func(flat []float32) {}) })
}

func TestBorrows(t *testing.T) {
	b := FromFlat([]float32{1, 2}, 2)

	// Many const borrows can coexist.
	require.NotPanics(t, func() {
		b.ConstValue(func(_ any) {
			b.ConstValue(func(_ any) {})
		})
	})

	// Value and gradient are independent arrays.
	require.NotPanics(t, func() {
		b.ConstValue(func(value any) {
			b.AccumulateGrad(value)
		})
	})
	require.Equal(t, []float32{1, 2}, CopyGrad[float32](b))

	// Write while reading.
	err := exceptions.TryCatch[error](func() {
		b.ConstValue(func(_ any) {
			b.ZeroValue()
		})
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrAlreadyBorrowed), "unexpected error: %v", err)

	// Read while writing.
	err = exceptions.TryCatch[error](func() {
		b.MutableGrad(func(_ any) {
			_ = b.IsGradZero()
		})
	})
	require.ErrorIs(t, err, ErrAlreadyBorrowed)

	// Borrows are released even if the access function panics.
	_ = exceptions.TryCatch[error](func() {
		b.MutableValue(func(_ any) { panic(errors.New("boom")) })
	})
	require.NotPanics(t, func() { b.ZeroValue() })
	require.Equal(t, []float32{0, 0}, CopyValue[float32](b))
}

func TestString(t *testing.T) {
	b := New(shapes.Make(dtypes.Float32, 2, 3))
	require.Equal(t, "Buffer(Float32)[2 3] - mem: 48 B", b.String())
	var nilBuffer *Buffer
	require.Equal(t, "Buffer(nil)", fmt.Sprint(nilBuffer))
}
