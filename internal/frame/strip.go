package frame

import (
	"github.com/hajimehoshi/bitmapfont/v2"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"image"
)

// ScrollGap is the blank space, in columns, between two copies of a scrolling strip.
const ScrollGap = 20

// Strip is a monochrome picture exactly Rows pixels high and of any width.
// It is cut into frames, scrolling when wider than the board.
type Strip struct {
	img *image.Gray
}

// NewTextStrip renders label with the bitmap font, then scales the glyphs down to the board height.
func NewTextStrip(label string) *Strip {
	face := bitmapfont.Face
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := (metrics.Ascent + metrics.Descent).Ceil()
	width := font.MeasureString(face, label).Ceil()
	if width <= 0 || height <= 0 {
		return &Strip{img: image.NewGray(image.Rect(0, 0, 0, Rows))}
	}

	canvas := image.NewGray(image.Rect(0, 0, width, height))
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(0, ascent),
	}
	d.DrawString(label)

	return newStrip(canvas, draw.NearestNeighbor)
}

// NewImageStrip scales src to the board height, keeping its aspect ratio.
func NewImageStrip(src image.Image) *Strip {
	return newStrip(src, draw.ApproxBiLinear)
}

func newStrip(src image.Image, scaler draw.Scaler) *Strip {
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return &Strip{img: image.NewGray(image.Rect(0, 0, 0, Rows))}
	}
	width := b.Dx()
	if b.Dy() != Rows {
		width = (b.Dx()*Rows + b.Dy() - 1) / b.Dy()
	}
	dst := image.NewGray(image.Rect(0, 0, width, Rows))
	if b.Dy() == Rows {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		scaler.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}
	return &Strip{img: dst}
}

func (s *Strip) Width() int {
	return s.img.Bounds().Dx()
}

// Scrolls reports whether the strip is wider than the board.
func (s *Strip) Scrolls() bool {
	return s.Width() > Columns
}

func (s *Strip) lit(x, y int) bool {
	if x < 0 || x >= s.Width() {
		return false
	}
	return s.img.GrayAt(x, y).Y >= 0x80
}

// Frame cuts the board-wide window starting at column offset of the strip.
func (s *Strip) Frame(offset int) Frame {
	var f Frame
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			if s.lit(offset+col, row) {
				f.Set(row, col, true)
			}
		}
	}
	return f
}

// ScrollFrame is step tick of a looping marquee: the strip moves one column
// left per tick and reappears ScrollGap columns after its end.
func (s *Strip) ScrollFrame(tick int) Frame {
	if !s.Scrolls() {
		return s.Frame(0)
	}
	period := s.Width() + ScrollGap
	shift := tick % period
	if shift < 0 {
		shift += period
	}
	var f Frame
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			if s.lit(shift+col, row) || s.lit(shift+col-period, row) {
				f.Set(row, col, true)
			}
		}
	}
	return f
}
