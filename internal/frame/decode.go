package frame

import (
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidHex       = errors.New("invalid hex data")
)

// Decode builds a frame from its textual form. Only the first HexLength
// characters are read, anything after them is ignored. Upper and lower case
// digits are accepted; any other character rejects the whole frame.
func Decode(data []byte) (Frame, error) {
	var f Frame

	if len(data) < HexLength {
		return f, fmt.Errorf("%w: received %d of %d characters", ErrInsufficientData, len(data), HexLength)
	}

	var raw [Rows * RowBytes]byte
	if _, err := hex.Decode(raw[:], data[:HexLength]); err != nil {
		return f, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}

	for row := 0; row < Rows; row++ {
		copy(f[row][:], raw[row*RowBytes:(row+1)*RowBytes])
	}

	return f, nil
}
