// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package arrays

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
)

// Matrix describes how a flat row-major array is viewed as a 2-D matrix.
type Matrix struct {
	Rows, Cols int
}

// T returns the dimensions of the transposed matrix.
func (m Matrix) T() Matrix {
	return Matrix{Rows: m.Cols, Cols: m.Rows}
}

// Size is the number of elements of the matrix.
func (m Matrix) Size() int {
	return m.Rows * m.Cols
}

// As2D reinterprets an array with the given dimensions as a matrix.
// It fails if the array is not of rank 2.
func As2D(dimensions []int) (Matrix, error) {
	if len(dimensions) != 2 {
		return Matrix{}, errors.Errorf("array with dimensions %v (rank %d) cannot be viewed as a 2-D matrix",
			dimensions, len(dimensions))
	}
	return Matrix{Rows: dimensions[0], Cols: dimensions[1]}, nil
}

// MatMulOp describes one operand of MatMul: the flat data, its stored dimensions, and whether it should
// be transposed before the multiplication.
type MatMulOp struct {
	Flat       any
	Matrix     Matrix
	Transposed bool
}

func (op MatMulOp) effective() Matrix {
	if op.Transposed {
		return op.Matrix.T()
	}
	return op.Matrix
}

// MatMul computes dst = op(a) · op(b), or dst += op(a) · op(b) if accumulate is true, where op() optionally
// transposes the operand. dst is viewed as the matrix dstMatrix.
//
// It returns an error if the inner dimensions disagree or if dstMatrix doesn't match the result, and leaves
// dst untouched in that case.
func MatMul(dst any, dstMatrix Matrix, a, b MatMulOp, accumulate bool) error {
	opA, opB := a.effective(), b.effective()
	if opA.Cols != opB.Rows {
		return errors.Errorf("matmul inner dimensions disagree: %v · %v", opA, opB)
	}
	if dstMatrix.Rows != opA.Rows || dstMatrix.Cols != opB.Cols {
		return errors.Errorf("matmul of %v · %v produces [%d %d], but output is %v",
			opA, opB, opA.Rows, opB.Cols, dstMatrix)
	}
	checkLen("MatMul", a.Matrix.Size(), Len(a.Flat))
	checkLen("MatMul", b.Matrix.Size(), Len(b.Flat))
	checkLen("MatMul", dstMatrix.Size(), Len(dst))
	if dstMatrix.Size() == 0 {
		return nil
	}
	if opA.Cols == 0 {
		// Empty inner dimension: the product is all zeros.
		if !accumulate {
			Fill(dst, 0)
		}
		return nil
	}

	var beta float64
	if accumulate {
		beta = 1
	}
	tA, tB := transpose(a.Transposed), transpose(b.Transposed)
	switch d := dst.(type) {
	case []float32:
		blas32.Gemm(tA, tB, 1,
			general32(sameType(d, a.Flat, "MatMul"), a.Matrix),
			general32(sameType(d, b.Flat, "MatMul"), b.Matrix),
			float32(beta), general32(d, dstMatrix))
	case []float64:
		blas64.Gemm(tA, tB, 1,
			general64(sameType(d, a.Flat, "MatMul"), a.Matrix),
			general64(sameType(d, b.Flat, "MatMul"), b.Matrix),
			beta, general64(d, dstMatrix))
	default:
		exceptions.Panicf("arrays.MatMul: unsupported array type %T", dst)
	}
	return nil
}

func transpose(t bool) blas.Transpose {
	if t {
		return blas.Trans
	}
	return blas.NoTrans
}

func general32(flat []float32, m Matrix) blas32.General {
	return blas32.General{Rows: m.Rows, Cols: m.Cols, Stride: m.Cols, Data: flat}
}

func general64(flat []float64, m Matrix) blas64.General {
	return blas64.General{Rows: m.Rows, Cols: m.Cols, Stride: m.Cols, Data: flat}
}
