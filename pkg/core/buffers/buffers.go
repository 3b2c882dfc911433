// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package buffers implements Buffer, the storage of a value and of its gradient, two flat arrays of the
// same shape.
//
// Buffers are the only place where numbers live: leaf nodes of a graph wrap a Buffer owned by the caller,
// and every operation node owns one Buffer for its output.
//
// Access to the arrays is scoped: ConstValue, MutableValue, ConstGrad and MutableGrad call a function with
// the flat data (not a copy), and the array is "borrowed" until the function returns. Any number of const
// borrows can coexist, but a mutable borrow is exclusive. A conflicting borrow panics with
// ErrAlreadyBorrowed. This keeps a single writer per array at any time.
//
// Buffers are not safe for concurrent use.
package buffers

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/autograd/internal/arrays"
	"github.com/gomlx/autograd/pkg/core/shapes"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// ErrAlreadyBorrowed is thrown (panic) when accessing an array that is borrowed in a conflicting way.
var ErrAlreadyBorrowed = errors.New("buffer array already borrowed")

// Buffer holds a value array and a gradient array, both of the same shape.
type Buffer struct {
	shape shapes.Shape
	value array
	grad  array
}

// array is one flat slice plus its borrow state.
type array struct {
	flat any // []float32 or []float64.

	// borrows counts active const borrows; -1 means mutably borrowed.
	borrows int
}

// New returns a Buffer with the given shape, with value and gradient initialized with zeros.
//
// It panics if the shape is invalid or if its dtype is not Float32 or Float64.
func New(shape shapes.Shape) *Buffer {
	if !shape.Ok() {
		exceptions.Panicf("buffers.New(%s): invalid shape", shape)
	}
	if !shape.IsFloat() {
		exceptions.Panicf("buffers.New(%s): only Float32 and Float64 buffers are supported", shape)
	}
	shape = shape.Clone()
	size := shape.Size()
	return &Buffer{
		shape: shape,
		value: array{flat: arrays.Zeros(shape.DType, size)},
		grad:  array{flat: arrays.Zeros(shape.DType, size)},
	}
}

// FromFlat returns a Buffer with the given dimensions and with value initialized with a copy of flat.
// The gradient is initialized with zeros.
//
// It panics if len(flat) doesn't match the dimensions.
func FromFlat[T interface{ float32 | float64 }](flat []T, dimensions ...int) *Buffer {
	b := New(shapes.Make(dtypes.FromGenericsType[T](), dimensions...))
	AssignValue(b, flat)
	return b
}

// FromScalar returns a scalar (rank 0) Buffer with the given value.
func FromScalar[T interface{ float32 | float64 }](value T) *Buffer {
	return FromFlat([]T{value})
}

// Shape of the buffer. It is fixed at construction.
func (b *Buffer) Shape() shapes.Shape {
	return b.shape
}

// DType of the buffer elements.
func (b *Buffer) DType() dtypes.DType {
	return b.shape.DType
}

// Size is the number of elements of each of the arrays.
func (b *Buffer) Size() int {
	return b.shape.Size()
}

// String implements fmt.Stringer.
func (b *Buffer) String() string {
	if b == nil {
		return "Buffer(nil)"
	}
	return fmt.Sprintf("Buffer%s - mem: %s", b.shape, humanize.Bytes(uint64(2*b.shape.Memory())))
}

// ConstValue calls accessFn with the flat value data, a []float32 or a []float64 depending on the dtype.
// The data should not be changed, and it is only valid until accessFn returns.
//
// It panics with ErrAlreadyBorrowed if the value is mutably borrowed.
func (b *Buffer) ConstValue(accessFn func(flat any)) {
	b.value.constBorrow(b, "value", accessFn)
}

// MutableValue calls accessFn with the flat value data, that can be changed until accessFn returns.
//
// It panics with ErrAlreadyBorrowed if the value is borrowed in any way.
func (b *Buffer) MutableValue(accessFn func(flat any)) {
	b.value.mutableBorrow(b, "value", accessFn)
}

// ConstGrad calls accessFn with the flat gradient data.
// See ConstValue.
func (b *Buffer) ConstGrad(accessFn func(flat any)) {
	b.grad.constBorrow(b, "grad", accessFn)
}

// MutableGrad calls accessFn with the flat gradient data, that can be changed until accessFn returns.
// See MutableValue.
func (b *Buffer) MutableGrad(accessFn func(flat any)) {
	b.grad.mutableBorrow(b, "grad", accessFn)
}

// ResetGrad sets the gradient to zeros.
func (b *Buffer) ResetGrad() {
	b.MutableGrad(func(flat any) { arrays.Fill(flat, 0) })
}

// SeedGrad sets the gradient to ones: the starting condition of reverse-mode differentiation,
// since the derivative of a value with respect to itself is 1.
func (b *Buffer) SeedGrad() {
	b.MutableGrad(func(flat any) { arrays.Fill(flat, 1) })
}

// ZeroValue sets the value to zeros.
func (b *Buffer) ZeroValue() {
	b.MutableValue(func(flat any) { arrays.Fill(flat, 0) })
}

// AccumulateGrad adds delta to the gradient: grad += delta.
// delta must be a flat slice of the same type and size as the gradient.
func (b *Buffer) AccumulateGrad(delta any) {
	b.MutableGrad(func(flat any) { arrays.AddTo(flat, delta) })
}

// IsGradZero returns whether all elements of the gradient are zero.
func (b *Buffer) IsGradZero() (isZero bool) {
	b.ConstGrad(func(flat any) { isZero = arrays.IsZero(flat) })
	return
}

func (a *array) constBorrow(b *Buffer, name string, accessFn func(flat any)) {
	if a.borrows < 0 {
		panic(errors.Wrapf(ErrAlreadyBorrowed, "%s of %s is mutably borrowed, cannot read it", name, b))
	}
	a.borrows++
	defer func() { a.borrows-- }()
	accessFn(a.flat)
}

func (a *array) mutableBorrow(b *Buffer, name string, accessFn func(flat any)) {
	if a.borrows != 0 {
		panic(errors.Wrapf(ErrAlreadyBorrowed, "%s of %s is in use, cannot write to it", name, b))
	}
	a.borrows = -1
	defer func() { a.borrows = 0 }()
	accessFn(a.flat)
}
