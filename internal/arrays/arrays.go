// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package arrays implements the dense numeric kernels used by the graph: allocation, elementwise
// arithmetic, in-place accumulation and matrix multiplication.
//
// Arrays are flat row-major slices, either []float32 or []float64, passed around as `any` (the same
// representation used by buffers.Buffer). Kernels dispatch on the concrete slice type and delegate to
// gonum (blas32, blas64 and floats) where it has a matching primitive.
//
// All kernels panic if the operands have different lengths or different types: those are bugs in the
// caller, since shapes are checked when the graph is built.
package arrays

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/floats"
)

// Zeros returns a zero-filled flat slice with size elements of the given dtype.
func Zeros(dtype dtypes.DType, size int) any {
	switch dtype {
	case dtypes.Float32:
		return make([]float32, size)
	case dtypes.Float64:
		return make([]float64, size)
	default:
		exceptions.Panicf("arrays.Zeros: dtype %s not supported, only Float32 and Float64", dtype)
	}
	return nil
}

// Ones returns a flat slice with size elements of the given dtype, all set to 1.
func Ones(dtype dtypes.DType, size int) any {
	flat := Zeros(dtype, size)
	Fill(flat, 1)
	return flat
}

// Fill sets every element of flat to value.
func Fill(flat any, value float64) {
	switch f := flat.(type) {
	case []float32:
		fill(f, float32(value))
	case []float64:
		fill(f, value)
	default:
		exceptions.Panicf("arrays.Fill: unsupported array type %T", flat)
	}
}

// Len returns the number of elements of flat.
func Len(flat any) int {
	switch f := flat.(type) {
	case []float32:
		return len(f)
	case []float64:
		return len(f)
	default:
		exceptions.Panicf("arrays.Len: unsupported array type %T", flat)
	}
	return 0
}

// Copy copies src into dst.
func Copy(dst, src any) {
	switch d := dst.(type) {
	case []float32:
		s := sameType(d, src, "Copy")
		checkLen("Copy", len(d), len(s))
		copy(d, s)
	case []float64:
		s := sameType(d, src, "Copy")
		checkLen("Copy", len(d), len(s))
		copy(d, s)
	default:
		exceptions.Panicf("arrays.Copy: unsupported array type %T", dst)
	}
}

// Add computes dst = a + b, elementwise.
func Add(dst, a, b any) {
	switch d := dst.(type) {
	case []float32:
		fa, fb := sameType(d, a, "Add"), sameType(d, b, "Add")
		checkLen("Add", len(d), len(fa), len(fb))
		add(d, fa, fb)
	case []float64:
		fa, fb := sameType(d, a, "Add"), sameType(d, b, "Add")
		checkLen("Add", len(d), len(fa), len(fb))
		floats.AddTo(d, fa, fb)
	default:
		exceptions.Panicf("arrays.Add: unsupported array type %T", dst)
	}
}

// Mul computes dst = a ⊙ b, elementwise (Hadamard product).
func Mul(dst, a, b any) {
	switch d := dst.(type) {
	case []float32:
		fa, fb := sameType(d, a, "Mul"), sameType(d, b, "Mul")
		checkLen("Mul", len(d), len(fa), len(fb))
		mul(d, fa, fb)
	case []float64:
		fa, fb := sameType(d, a, "Mul"), sameType(d, b, "Mul")
		checkLen("Mul", len(d), len(fa), len(fb))
		floats.MulTo(d, fa, fb)
	default:
		exceptions.Panicf("arrays.Mul: unsupported array type %T", dst)
	}
}

// AddTo accumulates src into dst in place: dst += src.
func AddTo(dst, src any) {
	switch d := dst.(type) {
	case []float32:
		s := sameType(d, src, "AddTo")
		checkLen("AddTo", len(d), len(s))
		blas32.Axpy(1, blas32.Vector{N: len(s), Inc: 1, Data: s}, blas32.Vector{N: len(d), Inc: 1, Data: d})
	case []float64:
		s := sameType(d, src, "AddTo")
		checkLen("AddTo", len(d), len(s))
		floats.Add(d, s)
	default:
		exceptions.Panicf("arrays.AddTo: unsupported array type %T", dst)
	}
}

// MulAddTo accumulates the elementwise product of a and b into dst: dst += a ⊙ b.
func MulAddTo(dst, a, b any) {
	switch d := dst.(type) {
	case []float32:
		fa, fb := sameType(d, a, "MulAddTo"), sameType(d, b, "MulAddTo")
		checkLen("MulAddTo", len(d), len(fa), len(fb))
		mulAddTo(d, fa, fb)
	case []float64:
		fa, fb := sameType(d, a, "MulAddTo"), sameType(d, b, "MulAddTo")
		checkLen("MulAddTo", len(d), len(fa), len(fb))
		mulAddTo(d, fa, fb)
	default:
		exceptions.Panicf("arrays.MulAddTo: unsupported array type %T", dst)
	}
}

// IsZero returns whether all elements of flat are 0.
func IsZero(flat any) bool {
	switch f := flat.(type) {
	case []float32:
		return isZero(f)
	case []float64:
		return isZero(f)
	default:
		exceptions.Panicf("arrays.IsZero: unsupported array type %T", flat)
	}
	return false
}

func sameType[T constraints.Float](_ []T, other any, kernel string) []T {
	flat, ok := other.([]T)
	if !ok {
		var v T
		exceptions.Panicf("arrays.%s: operand of type %T, wanted []%T", kernel, other, v)
	}
	return flat
}

func checkLen(kernel string, want int, lengths ...int) {
	for _, l := range lengths {
		if l != want {
			exceptions.Panicf("arrays.%s: operands have different lengths (%d != %d)", kernel, l, want)
		}
	}
}

func fill[T constraints.Float](flat []T, value T) {
	for ii := range flat {
		flat[ii] = value
	}
}

func add[T constraints.Float](dst, a, b []T) {
	for ii := range dst {
		dst[ii] = a[ii] + b[ii]
	}
}

func mul[T constraints.Float](dst, a, b []T) {
	for ii := range dst {
		dst[ii] = a[ii] * b[ii]
	}
}

func mulAddTo[T constraints.Float](dst, a, b []T) {
	for ii := range dst {
		dst[ii] += a[ii] * b[ii]
	}
}

func isZero[T constraints.Float](flat []T) bool {
	for _, v := range flat {
		if v != 0 {
			return false
		}
	}
	return true
}
