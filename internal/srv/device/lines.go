package device

import (
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/host/v3"
	"sync"
)

var (
	ErrInitialization = errors.New("hardware initialization failure")
	ErrTaskStart      = errors.New("scan task start failure")
)

// LineProvider hands out output lines, driven low, by name.
type LineProvider interface {
	Acquire(name string) (gpio.PinOut, error)
}

// PeriphLineProvider resolves lines through the periph.io pin registry.
type PeriphLineProvider struct{}

func NewPeriphLineProvider() (*PeriphLineProvider, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: periph host init: %v", ErrInitialization, err)
	}
	return &PeriphLineProvider{}, nil
}

func (p *PeriphLineProvider) Acquire(name string) (gpio.PinOut, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("unknown gpio %s", name)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("unable to set gpio %s as output: %v", name, err)
	}
	return pin, nil
}

// SimulationLineProvider hands out in-memory pins, for running without the board.
type SimulationLineProvider struct {
	lock sync.Mutex
	pins map[string]*gpiotest.Pin
}

func NewSimulationLineProvider() *SimulationLineProvider {
	return &SimulationLineProvider{pins: make(map[string]*gpiotest.Pin)}
}

func (p *SimulationLineProvider) Acquire(name string) (gpio.PinOut, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if name == "" {
		return nil, errors.New("empty gpio name")
	}
	pin, ok := p.pins[name]
	if !ok {
		pin = &gpiotest.Pin{N: name, Num: len(p.pins), L: gpio.Low}
		p.pins[name] = pin
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, err
	}
	return pin, nil
}

// Pin returns a simulated pin previously acquired, or nil.
func (p *SimulationLineProvider) Pin(name string) *gpiotest.Pin {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.pins[name]
}

type LineNames struct {
	A0, A1, A2 string
	Clock      string
	Data       string
	Latch      string
	Blank      string
}

// Lines are the seven signal lines of the board, owned by the scanner once started.
type Lines struct {
	Address [3]gpio.PinOut
	Clock   gpio.PinOut
	Data    gpio.PinOut
	Latch   gpio.PinOut
	Blank   gpio.PinOut

	lock     sync.Mutex
	acquired []gpio.PinOut
}

// lineAcquirer remembers every line taken so far and the first error met.
type lineAcquirer struct {
	provider LineProvider
	acquired []gpio.PinOut
	err      error
}

func (a *lineAcquirer) take(role, name string) gpio.PinOut {
	if a.err != nil {
		return nil
	}
	pin, err := a.provider.Acquire(name)
	if err != nil {
		a.err = fmt.Errorf("%w: %s line %q: %v", ErrInitialization, role, name, err)
		return nil
	}
	a.acquired = append(a.acquired, pin)
	return pin
}

// AcquireLines takes every line of the board, in order A0, A1, A2, clock,
// data, latch, blank. If one of them cannot be acquired, the lines already
// taken are released in reverse order and the error wraps ErrInitialization.
func AcquireLines(provider LineProvider, names LineNames) (*Lines, error) {
	a := &lineAcquirer{provider: provider}

	lines := &Lines{}
	lines.Address[0] = a.take("a0", names.A0)
	lines.Address[1] = a.take("a1", names.A1)
	lines.Address[2] = a.take("a2", names.A2)
	lines.Clock = a.take("clock", names.Clock)
	lines.Data = a.take("data", names.Data)
	lines.Latch = a.take("latch", names.Latch)
	lines.Blank = a.take("blank", names.Blank)

	if a.err != nil {
		releaseLines(a.acquired)
		return nil, a.err
	}

	lines.acquired = a.acquired
	return lines, nil
}

// Release drives every line low and halts it, in reverse acquisition order. Calling it twice is a no-op.
func (l *Lines) Release() {
	l.lock.Lock()
	acquired := l.acquired
	l.acquired = nil
	l.lock.Unlock()

	releaseLines(acquired)
}

func releaseLines(acquired []gpio.PinOut) {
	for i := len(acquired) - 1; i >= 0; i-- {
		pin := acquired[i]
		if err := pin.Out(gpio.Low); err != nil {
			logrus.Warnf("Unable to drive %s low: %v", pin, err)
		}
		if err := pin.Halt(); err != nil {
			logrus.Warnf("Unable to halt %s: %v", pin, err)
		}
	}
}
