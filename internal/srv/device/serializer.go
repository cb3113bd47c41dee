package device

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/host/v3/cpu"
	"time"
)

// Serializer bit-bangs row data into the column shift registers.
// It never touches the latch: committing the shifted row is up to the caller.
type Serializer struct {
	data       gpio.PinOut
	clock      gpio.PinOut
	clockPulse time.Duration
}

func NewSerializer(data, clock gpio.PinOut, clockPulse time.Duration) *Serializer {
	return &Serializer{
		data:       data,
		clock:      clock,
		clockPulse: clockPulse,
	}
}

// ShiftRow writes len(row)*8 bits, byte 0 first and most significant bit
// first, so that the row reads left to right on the board. The clock is held
// high and then low for clockPulse on every bit.
func (s *Serializer) ShiftRow(row []byte) {
	for _, b := range row {
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			_ = s.data.Out(gpio.Level(b&mask != 0))
			_ = s.clock.Out(gpio.High)
			hold(s.clockPulse)
			_ = s.clock.Out(gpio.Low)
			hold(s.clockPulse)
		}
	}
}

// hold busy-waits for d; these delays are far below the scheduler's resolution.
func hold(d time.Duration) {
	if d > 0 {
		cpu.Nanospin(d)
	}
}
