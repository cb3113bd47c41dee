package device

import (
	"errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"sync"
)

var testLineNames = LineNames{
	A0:    "A0",
	A1:    "A1",
	A2:    "A2",
	Clock: "CLK",
	Data:  "D0",
	Latch: "STB",
	Blank: "BLK",
}

type wireEdge struct {
	Pin   string
	Level gpio.Level
}

// wire records every level written on every line, in order.
type wire struct {
	lock     sync.Mutex
	edges    []wireEdge
	held     map[string]bool
	released []string
}

func newWire() *wire {
	return &wire{held: make(map[string]bool)}
}

func (w *wire) record(pin string, level gpio.Level) {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.edges = append(w.edges, wireEdge{Pin: pin, Level: level})
}

func (w *wire) Edges() []wireEdge {
	w.lock.Lock()
	defer w.lock.Unlock()
	return append([]wireEdge(nil), w.edges...)
}

func (w *wire) Held() []string {
	w.lock.Lock()
	defer w.lock.Unlock()
	var held []string
	for name, ok := range w.held {
		if ok {
			held = append(held, name)
		}
	}
	return held
}

func (w *wire) Released() []string {
	w.lock.Lock()
	defer w.lock.Unlock()
	return append([]string(nil), w.released...)
}

// Level returns the last level written on pin.
func (w *wire) Level(pin string) gpio.Level {
	w.lock.Lock()
	defer w.lock.Unlock()
	for i := len(w.edges) - 1; i >= 0; i-- {
		if w.edges[i].Pin == pin {
			return w.edges[i].Level
		}
	}
	return gpio.Low
}

type recPin struct {
	*gpiotest.Pin
	wire *wire
}

func (p *recPin) Out(l gpio.Level) error {
	p.wire.record(p.N, l)
	return p.Pin.Out(l)
}

func (p *recPin) Halt() error {
	p.wire.lock.Lock()
	defer p.wire.lock.Unlock()
	p.wire.held[p.N] = false
	p.wire.released = append(p.wire.released, p.N)
	return nil
}

type fakeProvider struct {
	wire *wire
	fail map[string]bool
}

func newFakeProvider(fail ...string) *fakeProvider {
	p := &fakeProvider{wire: newWire(), fail: make(map[string]bool)}
	for _, name := range fail {
		p.fail[name] = true
	}
	return p
}

func (p *fakeProvider) Acquire(name string) (gpio.PinOut, error) {
	if p.fail[name] {
		return nil, errors.New("gpio is not valid")
	}
	p.wire.lock.Lock()
	p.wire.held[name] = true
	p.wire.lock.Unlock()
	return &recPin{Pin: &gpiotest.Pin{N: name}, wire: p.wire}, nil
}

// latchedRow is what the board shows after one latch pulse.
type latchedRow struct {
	Address   int
	Bits      []bool
	BlankHigh bool
}

// Byte returns byte i of the shifted row, most significant bit first.
func (r latchedRow) Byte(i int) byte {
	var b byte
	for bit := 0; bit < 8; bit++ {
		if r.Bits[i*8+bit] {
			b |= 0x80 >> uint(bit)
		}
	}
	return b
}

// decodeWire replays the recorded edges like the shift registers and row
// decoder would: data is sampled on each clock rising edge and the row is
// committed on each latch rising edge.
func decodeWire(edges []wireEdge) []latchedRow {
	levels := map[string]gpio.Level{}
	var bits []bool
	var rows []latchedRow
	for _, e := range edges {
		previous := levels[e.Pin]
		levels[e.Pin] = e.Level
		switch {
		case e.Pin == testLineNames.Clock && previous == gpio.Low && e.Level == gpio.High:
			bits = append(bits, bool(levels[testLineNames.Data]))
		case e.Pin == testLineNames.Latch && previous == gpio.Low && e.Level == gpio.High:
			address := 0
			for bit, name := range []string{testLineNames.A0, testLineNames.A1, testLineNames.A2} {
				if levels[name] == gpio.High {
					address |= 1 << uint(bit)
				}
			}
			rows = append(rows, latchedRow{
				Address:   address,
				Bits:      bits,
				BlankHigh: bool(levels[testLineNames.Blank]),
			})
			bits = nil
		}
	}
	return rows
}
