package frame

import (
	"errors"
	"fmt"
)

// ErrInvalidPattern reports an unknown pattern kind or an out of range index.
var ErrInvalidPattern = errors.New("invalid pattern")

type PatternKind string

const (
	ROW_PATTERN      PatternKind = "row"
	COLUMN_PATTERN   PatternKind = "column"
	DIAGONAL_PATTERN PatternKind = "diagonal"
)

// PatternCount is the length of the test sequence: every row, then every bit column.
const PatternCount = Rows + 8

// RowPattern lights every cell of one row.
func RowPattern(row int) Frame {
	var f Frame
	if row < 0 || row >= Rows {
		return f
	}
	for index := range f[row] {
		f[row][index] = 0xFF
	}
	return f
}

// ColumnPattern sets bit (1 << bit) in every byte of every row, lighting one
// column out of eight across the whole board.
func ColumnPattern(bit int) Frame {
	var f Frame
	if bit < 0 || bit > 7 {
		return f
	}
	for row := range f {
		for index := range f[row] {
			f[row][index] = 1 << uint(bit)
		}
	}
	return f
}

// Pattern returns the frame for a named test pattern.
func Pattern(kind PatternKind, index int) (Frame, error) {
	switch kind {
	case ROW_PATTERN:
		if index < 0 || index >= Rows {
			return Frame{}, fmt.Errorf("%w: row index %d out of range [0,%d)", ErrInvalidPattern, index, Rows)
		}
		return RowPattern(index), nil
	case COLUMN_PATTERN:
		if index < 0 || index > 7 {
			return Frame{}, fmt.Errorf("%w: column index %d out of range [0,8)", ErrInvalidPattern, index)
		}
		return ColumnPattern(index), nil
	case DIAGONAL_PATTERN:
		return Diagonal(), nil
	}
	return Frame{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidPattern, kind)
}

// SequencePattern returns step n of the test sequence (rows 0..7, then columns 0..7), wrapping.
func SequencePattern(n int) Frame {
	n %= PatternCount
	if n < 0 {
		n += PatternCount
	}
	if n < Rows {
		return RowPattern(n)
	}
	return ColumnPattern(n - Rows)
}
