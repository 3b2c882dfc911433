// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package buffers

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// Float is the set of Go types a Buffer can hold.
type Float interface {
	float32 | float64
}

func checkDType[T Float](b *Buffer, fnName string) {
	if b.shape.DType != dtypes.FromGenericsType[T]() {
		var v T
		exceptions.Panicf("%s[%T] is incompatible with Buffer's dtype %s", fnName, v, b.shape.DType)
	}
}

// ConstValue is the generics version of Buffer.ConstValue.
// It panics if T doesn't match the Buffer's dtype.
func ConstValue[T Float](b *Buffer, accessFn func(flat []T)) {
	checkDType[T](b, "ConstValue")
	b.ConstValue(func(flat any) { accessFn(flat.([]T)) })
}

// MutableValue is the generics version of Buffer.MutableValue.
// It panics if T doesn't match the Buffer's dtype.
func MutableValue[T Float](b *Buffer, accessFn func(flat []T)) {
	checkDType[T](b, "MutableValue")
	b.MutableValue(func(flat any) { accessFn(flat.([]T)) })
}

// ConstGrad is the generics version of Buffer.ConstGrad.
// It panics if T doesn't match the Buffer's dtype.
func ConstGrad[T Float](b *Buffer, accessFn func(flat []T)) {
	checkDType[T](b, "ConstGrad")
	b.ConstGrad(func(flat any) { accessFn(flat.([]T)) })
}

// MutableGrad is the generics version of Buffer.MutableGrad.
// It panics if T doesn't match the Buffer's dtype.
func MutableGrad[T Float](b *Buffer, accessFn func(flat []T)) {
	checkDType[T](b, "MutableGrad")
	b.MutableGrad(func(flat any) { accessFn(flat.([]T)) })
}

// CopyValue returns a copy of the flat value data.
func CopyValue[T Float](b *Buffer) (values []T) {
	ConstValue(b, func(flat []T) { values = slices.Clone(flat) })
	return
}

// CopyGrad returns a copy of the flat gradient data.
func CopyGrad[T Float](b *Buffer) (grads []T) {
	ConstGrad(b, func(flat []T) { grads = slices.Clone(flat) })
	return
}

// AssignValue copies fromFlat into the value of the Buffer.
// It panics if the dtype or the size is wrong.
func AssignValue[T Float](b *Buffer, fromFlat []T) {
	MutableValue(b, func(flat []T) {
		if len(flat) != len(fromFlat) {
			var v T
			exceptions.Panicf("AssignValue[%T] is trying to store %d values into shape %s, which requires %d values",
				v, len(fromFlat), b.shape, b.shape.Size())
		}
		copy(flat, fromFlat)
	})
}

// FillValue sets every element of the value to v.
func FillValue[T Float](b *Buffer, v T) {
	MutableValue(b, func(flat []T) {
		for ii := range flat {
			flat[ii] = v
		}
	})
}

// ToScalar returns the value of a scalar Buffer.
// It panics if the Buffer is not a scalar or T doesn't match its dtype.
func ToScalar[T Float](b *Buffer) (v T) {
	if !b.shape.IsScalar() {
		exceptions.Panicf("ToScalar[%T] requires scalar Buffer, got shape %s instead", v, b.shape)
	}
	ConstValue(b, func(flat []T) { v = flat[0] })
	return
}

// GradScalar returns the gradient of a scalar Buffer.
// It panics if the Buffer is not a scalar or T doesn't match its dtype.
func GradScalar[T Float](b *Buffer) (v T) {
	if !b.shape.IsScalar() {
		exceptions.Panicf("GradScalar[%T] requires scalar Buffer, got shape %s instead", v, b.shape)
	}
	ConstGrad(b, func(flat []T) { v = flat[0] })
	return
}
