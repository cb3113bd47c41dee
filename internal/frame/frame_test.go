package frame

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image"
	"image/color"
	"math/rand"
	"strings"
	"testing"
)

func randomFrame(r *rand.Rand) Frame {
	var f Frame
	for row := range f {
		r.Read(f[row][:])
	}
	return f
}

func TestDecodeRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		f := randomFrame(r)
		text := f.Hex()
		require.Len(t, text, HexLength)

		for _, variant := range []string{text, strings.ToLower(text)} {
			decoded, err := Decode([]byte(variant))
			require.NoError(t, err)
			assert.Equal(t, f, decoded)
			assert.True(t, strings.EqualFold(variant, decoded.Hex()))
		}
	}
}

func TestDecodeRowMajor(t *testing.T) {
	var sb strings.Builder
	for row := 0; row < Rows; row++ {
		for index := 0; index < RowBytes; index++ {
			sb.WriteString(strings.ToUpper(string("0123456789abcdef"[row]) + string("0123456789abcdef"[index%16])))
		}
	}
	f, err := Decode([]byte(sb.String()))
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), f[0][0])
	assert.Equal(t, byte(0x01), f[0][1])
	assert.Equal(t, byte(0x3F), f[3][15])
	assert.Equal(t, byte(0x71), f[7][17])
}

func TestDecodeInsufficientData(t *testing.T) {
	diag := Diagonal()
	full := diag.Hex()
	for _, n := range []int{0, 1, 2, HexLength / 2, HexLength - 1} {
		f, err := Decode([]byte(full[:n]))
		assert.True(t, errors.Is(err, ErrInsufficientData), "length %d", n)
		assert.Equal(t, Frame{}, f)
	}
}

func TestDecodeIgnoresTrailingData(t *testing.T) {
	want := RowPattern(5)
	f, err := Decode([]byte(want.Hex() + "\n"))
	require.NoError(t, err)
	assert.Equal(t, want, f)
}

func TestDecodeRejectsInvalidHex(t *testing.T) {
	for _, bad := range []byte{'g', 'G', ':', '@', ' ', 'z'} {
		diag := Diagonal()
		text := []byte(diag.Hex())
		text[37] = bad
		f, err := Decode(text)
		assert.True(t, errors.Is(err, ErrInvalidHex), "character %q", bad)
		assert.Equal(t, Frame{}, f)
	}
}

func TestDiagonal(t *testing.T) {
	f := Diagonal()
	for row := 0; row < Rows; row++ {
		assert.Equal(t, byte(1)<<uint(row), f[row][0])
		for index := 1; index < RowBytes; index++ {
			assert.Zero(t, f[row][index])
		}
	}
	assert.Equal(t, Rows, f.litCount())
}

func TestSetGet(t *testing.T) {
	var f Frame
	f.Set(3, 0, true)
	f.Set(3, 9, true)
	f.Set(7, Columns-1, true)
	f.Set(8, 0, true)
	f.Set(0, Columns, true)

	assert.Equal(t, byte(0x80), f[3][0])
	assert.Equal(t, byte(0x40), f[3][1])
	assert.Equal(t, byte(0x01), f[7][RowBytes-1])
	assert.True(t, f.Get(3, 9))
	assert.False(t, f.Get(3, 8))
	assert.Equal(t, 3, f.litCount())

	f.Set(3, 9, false)
	assert.False(t, f.Get(3, 9))
}

func TestPatterns(t *testing.T) {
	row := RowPattern(2)
	assert.Equal(t, Columns, row.litCount())
	assert.True(t, row.Get(2, 77))
	assert.False(t, row.Get(1, 77))

	col := ColumnPattern(0)
	assert.Equal(t, Rows*RowBytes, col.litCount())
	assert.Equal(t, byte(0x01), col[6][4])

	_, err := Pattern(ROW_PATTERN, 8)
	assert.ErrorIs(t, err, ErrInvalidPattern)
	_, err = Pattern(COLUMN_PATTERN, -1)
	assert.ErrorIs(t, err, ErrInvalidPattern)
	_, err = Pattern("spiral", 0)
	assert.ErrorIs(t, err, ErrInvalidPattern)

	f, err := Pattern(DIAGONAL_PATTERN, 0)
	require.NoError(t, err)
	assert.Equal(t, Diagonal(), f)

	assert.Equal(t, RowPattern(0), SequencePattern(0))
	assert.Equal(t, ColumnPattern(7), SequencePattern(15))
	assert.Equal(t, RowPattern(0), SequencePattern(16))
}

func TestStringDump(t *testing.T) {
	f := RowPattern(1)
	lines := strings.Split(strings.TrimSuffix(f.String(), "\n"), "\n")
	require.Len(t, lines, Rows)
	assert.Equal(t, strings.Repeat(".", Columns), lines[0])
	assert.Equal(t, strings.Repeat("#", Columns), lines[1])
}

func TestImageRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	f := randomFrame(r)
	assert.Equal(t, f, NewImageStrip(f.Image()).Frame(0))
}

func TestImageFrameScalesToBoardHeight(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 32, 16))
	for x := 0; x < 32; x++ {
		for y := 0; y < 16; y++ {
			src.SetGray(x, y, color.Gray{Y: 0xFF})
		}
	}
	strip := NewImageStrip(src)
	assert.Equal(t, 16, strip.Width())

	f := strip.Frame(0)
	assert.Equal(t, 16*Rows, f.litCount())
	assert.False(t, f.Get(0, 16))
}

func TestTextStrip(t *testing.T) {
	strip := NewTextStrip("HI")
	assert.Greater(t, strip.Width(), 0)
	assert.False(t, strip.Scrolls())

	f := strip.Frame(0)
	assert.Greater(t, f.litCount(), 0)
	for col := strip.Width(); col < Columns; col++ {
		for row := 0; row < Rows; row++ {
			assert.False(t, f.Get(row, col))
		}
	}

	empty := NewTextStrip("")
	assert.Equal(t, 0, empty.Width())
	assert.Equal(t, Frame{}, empty.Frame(0))
}

func TestScrollFrame(t *testing.T) {
	strip := NewTextStrip(strings.Repeat("scrolling message ", 4))
	require.True(t, strip.Scrolls())

	period := strip.Width() + ScrollGap
	assert.Equal(t, strip.Frame(0), strip.ScrollFrame(0))
	assert.Equal(t, strip.ScrollFrame(3), strip.ScrollFrame(3+period))
	assert.Equal(t, strip.Frame(5), strip.ScrollFrame(5))
}
