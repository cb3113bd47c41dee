package frame

import (
	"encoding/hex"
	"image"
	"image/color"
	"strings"
)

const (
	Rows     = 8
	RowBytes = 18
	Columns  = RowBytes * 8

	// HexLength is the size of a textual frame: two hex characters per byte, row-major.
	HexLength = Rows * RowBytes * 2
)

// Frame is one full display image. Column 0 is the most significant bit of
// byte 0, which is also the first bit shifted out on the wire.
type Frame [Rows][RowBytes]byte

// Diagonal is the startup pattern: one lit cell per row, walking across byte 0.
func Diagonal() Frame {
	var f Frame
	for row := 0; row < Rows; row++ {
		f[row][0] = 1 << uint(row)
	}
	return f
}

func (f *Frame) Set(row, col int, on bool) {
	if row < 0 || row >= Rows || col < 0 || col >= Columns {
		return
	}
	mask := byte(0x80) >> uint(col%8)
	if on {
		f[row][col/8] |= mask
	} else {
		f[row][col/8] &^= mask
	}
}

func (f *Frame) Get(row, col int) bool {
	if row < 0 || row >= Rows || col < 0 || col >= Columns {
		return false
	}
	return f[row][col/8]&(byte(0x80)>>uint(col%8)) != 0
}

// Hex encodes the frame the way producers write it: row-major, upper case, no separator.
func (f *Frame) Hex() string {
	var sb strings.Builder
	sb.Grow(HexLength)
	for row := range f {
		sb.WriteString(strings.ToUpper(hex.EncodeToString(f[row][:])))
	}
	return sb.String()
}

// litCount returns the number of illuminated cells.
func (f *Frame) litCount() int {
	count := 0
	for row := range f {
		for _, b := range f[row] {
			for ; b != 0; b &= b - 1 {
				count++
			}
		}
	}
	return count
}

// String draws the frame as ASCII art, one line per row.
func (f *Frame) String() string {
	var sb strings.Builder
	sb.Grow(Rows * (Columns + 1))
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			if f.Get(row, col) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Image returns a Columns x Rows grayscale image of the frame, lit cells in white.
func (f *Frame) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, Columns, Rows))
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			if f.Get(row, col) {
				img.SetGray(col, row, color.Gray{Y: 0xFF})
			}
		}
	}
	return img
}
