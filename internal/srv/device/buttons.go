package device

import (
	"fmt"
	"github.com/jypelle/ledmsg/internal/srv/event"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"sync"
	"time"
)

// A held button repeats its press event at this rate.
const pressStepDuration = 160 * time.Millisecond

type Button struct {
	buttonId       event.ButtonId
	pin            gpio.PinIO
	isPressed      bool
	pressStepCount int64
	lastChange     time.Time
}

// NewButton sets pin as an input with its pull-up: the button pulls it low when pressed.
func NewButton(buttonId event.ButtonId, pin gpio.PinIO) (*Button, error) {
	if pin == nil {
		return nil, fmt.Errorf("%w: missing button gpio", ErrInitialization)
	}
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("%w: unable to setup %s button: %v", ErrInitialization, pin.Name(), err)
	}
	return &Button{buttonId: buttonId, pin: pin}, nil
}

// NewButtonByName resolves the button gpio through the periph.io registry.
func NewButtonByName(buttonId event.ButtonId, name string) (*Button, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: unknown button gpio %s", ErrInitialization, name)
	}
	return NewButton(buttonId, pin)
}

// Refresh samples the pin and returns the event it triggers, if any.
func (b *Button) Refresh(now time.Time) (event.ButtonEvent, bool) {
	wasPressed := b.isPressed
	b.isPressed = bool(!b.pin.Read())

	if !b.isPressed && wasPressed {
		b.lastChange = now
		ev := event.ButtonEvent{ButtonId: b.buttonId, ButtonEventType: event.RELEASE_EVENT_TYPE, PressStepCount: b.pressStepCount}
		b.pressStepCount = 0
		return ev, true
	} else if b.isPressed && b.lastChange.Add(pressStepDuration).Before(now) {
		b.lastChange = now
		b.pressStepCount++
		return event.ButtonEvent{ButtonId: b.buttonId, ButtonEventType: event.PRESS_EVENT_TYPE, PressStepCount: b.pressStepCount}, true
	}
	return event.ButtonEvent{}, false
}

type Buttons struct {
	lock         sync.Mutex
	eventChannel chan event.ButtonEvent

	buttons []*Button

	checkTicker *time.Ticker
	started     bool

	askDone chan struct{}
	done    chan struct{}
}

func NewButtons(buttons ...*Button) *Buttons {
	return &Buttons{
		eventChannel: make(chan event.ButtonEvent),
		buttons:      buttons,
		askDone:      make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (d *Buttons) Start() {
	logrus.Infof("Start buttons device")

	d.lock.Lock()
	defer d.lock.Unlock()

	if d.started {
		return
	}
	d.started = true

	// Start periodic check
	d.checkTicker = time.NewTicker(5 * time.Millisecond)
	go func() {
		defer close(d.done)
		for {
			select {
			case now := <-d.checkTicker.C:
				for _, button := range d.buttons {
					ev, ok := button.Refresh(now)
					if !ok {
						continue
					}
					select {
					case d.eventChannel <- ev:
					case <-d.askDone:
						return
					}
				}
			case <-d.askDone:
				return
			}
		}
	}()
}

func (d *Buttons) StopSendingEvent() {
	logrus.Infof("Stop buttons device")

	d.lock.Lock()
	defer d.lock.Unlock()

	if !d.started {
		return
	}
	d.started = false
	d.checkTicker.Stop()
	close(d.askDone)
	<-d.done
}

func (d *Buttons) EventChannel() chan event.ButtonEvent {
	return d.eventChannel
}
