// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/pkg/errors"
)

var (
	// ErrShapeMismatch is thrown (with panic) when the operands of an operation have incompatible shapes or dtypes,
	// or when the declared output shape of a MatMul doesn't match its operands.
	//
	// Use errors.Is on the recovered error to test for it.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrDimensionalityMismatch is thrown (with panic) when an operand has the wrong rank: e.g., MatMul operands
	// must be 2-D.
	ErrDimensionalityMismatch = errors.New("dimensionality mismatch")
)

// panicShapeMismatch throws an ErrShapeMismatch with a formatted message and a stack-trace.
func panicShapeMismatch(format string, args ...any) {
	panic(errors.Wrapf(ErrShapeMismatch, format, args...))
}

// panicDimensionalityMismatch throws an ErrDimensionalityMismatch with a formatted message and a stack-trace.
func panicDimensionalityMismatch(format string, args ...any) {
	panic(errors.Wrapf(ErrDimensionalityMismatch, format, args...))
}
