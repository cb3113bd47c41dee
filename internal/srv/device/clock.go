package device

import (
	"github.com/jypelle/ledmsg/internal/srv/event"
	"github.com/sirupsen/logrus"
	"sync"
	"time"
)

// Clock emits a tick event each time the displayed minute changes.
type Clock struct {
	lock         sync.Mutex
	eventChannel chan event.TickerEvent

	now          func() time.Time
	checkPeriod  time.Duration
	refreshClock *time.Ticker
	started      bool

	askDone chan struct{}
	done    chan struct{}
}

func NewClock() *Clock {
	return newClock(time.Now, time.Second)
}

func newClock(now func() time.Time, checkPeriod time.Duration) *Clock {
	return &Clock{
		eventChannel: make(chan event.TickerEvent),
		now:          now,
		checkPeriod:  checkPeriod,
		askDone:      make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (d *Clock) Start() {
	logrus.Infof("Start clock device")
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.started {
		return
	}
	d.started = true
	d.refreshClock = time.NewTicker(d.checkPeriod)

	go func() {
		defer close(d.done)
		var oldDisplayedTime string

		for {
			select {
			case <-d.refreshClock.C:
				now := d.now()

				// Check starting minute
				displayedTime := now.Format("15:04")
				if oldDisplayedTime == displayedTime {
					continue
				}
				oldDisplayedTime = displayedTime

				select {
				case d.eventChannel <- event.TickerEvent{Data: event.TickerEventTickData{Time: now}}:
				case <-d.askDone:
					return
				}
			case <-d.askDone:
				return
			}
		}
	}()
}

func (d *Clock) StopSendingEvent() {
	logrus.Infof("Stop clock device")
	d.lock.Lock()
	defer d.lock.Unlock()

	if !d.started {
		return
	}
	d.started = false
	d.refreshClock.Stop()
	close(d.askDone)
	<-d.done
}

func (d *Clock) EventChannel() chan event.TickerEvent {
	return d.eventChannel
}
