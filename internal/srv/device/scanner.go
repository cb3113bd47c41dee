package device

import (
	"fmt"
	"github.com/jypelle/ledmsg/internal/frame"
	"github.com/jypelle/ledmsg/internal/srv/event"
	"github.com/jypelle/ledmsg/internal/srv/mailbox"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"sync"
	"sync/atomic"
	"time"
)

type ScanState int32

const (
	STOPPED_STATE ScanState = iota
	RUNNING_STATE
	STOPPING_STATE
)

func (s ScanState) String() string {
	switch s {
	case STOPPED_STATE:
		return "stopped"
	case RUNNING_STATE:
		return "running"
	case STOPPING_STATE:
		return "stopping"
	}
	return fmt.Sprintf("ScanState(%d)", int32(s))
}

type ScannerTiming struct {
	RowDwell   time.Duration
	ClockPulse time.Duration
	LatchPulse time.Duration
	Settle     time.Duration
}

type ScanStatus struct {
	State  ScanState
	Row    int
	Cycles uint64
	Swaps  uint64
}

// Scanner multiplexes the board: every cycle it shows one row, then sleeps
// for the row dwell time. It runs in its own goroutine between Start and Stop.
type Scanner struct {
	lock    sync.Mutex
	state   ScanState
	started bool

	lines      *Lines
	slot       *mailbox.Slot
	serializer *Serializer
	timing     ScannerTiming

	// Owned by the scan goroutine
	active frame.Frame
	row    int

	currentRow int32
	cycles     uint64
	swaps      uint64
	displayed  atomic.Value

	eventChannel chan event.ScanEvent

	askDone chan struct{}
	done    chan struct{}
}

func NewScanner(lines *Lines, slot *mailbox.Slot, timing ScannerTiming) *Scanner {
	s := &Scanner{
		state:        STOPPED_STATE,
		lines:        lines,
		slot:         slot,
		timing:       timing,
		active:       frame.Diagonal(),
		eventChannel: make(chan event.ScanEvent, 1),
		askDone:      make(chan struct{}),
		done:         make(chan struct{}),
	}
	if lines != nil {
		s.serializer = NewSerializer(lines.Data, lines.Clock, timing.ClockPulse)
	}
	s.displayed.Store(s.active)
	return s
}

// Start launches the scan loop. A scanner runs once: starting it again, or
// starting it without lines, fails with ErrTaskStart.
func (s *Scanner) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.started {
		return fmt.Errorf("%w: scanner already started", ErrTaskStart)
	}
	if s.lines == nil || s.slot == nil {
		return fmt.Errorf("%w: scanner has no lines or no frame slot", ErrTaskStart)
	}

	logrus.Infof("Start scanner device")
	s.started = true
	s.state = RUNNING_STATE
	go s.scanLoop()
	return nil
}

// Stop asks the loop to finish its current cycle and waits for it to exit.
func (s *Scanner) Stop() {
	logrus.Infof("Stop scanner device")

	s.lock.Lock()
	if !s.started {
		s.lock.Unlock()
		return
	}
	if s.state == RUNNING_STATE {
		s.state = STOPPING_STATE
		close(s.askDone)
	}
	s.lock.Unlock()

	<-s.done

	s.lock.Lock()
	s.state = STOPPED_STATE
	s.lock.Unlock()
}

func (s *Scanner) State() ScanState {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

func (s *Scanner) Status() ScanStatus {
	return ScanStatus{
		State:  s.State(),
		Row:    int(atomic.LoadInt32(&s.currentRow)),
		Cycles: atomic.LoadUint64(&s.cycles),
		Swaps:  atomic.LoadUint64(&s.swaps),
	}
}

// Displayed returns a copy of the frame being scanned out.
func (s *Scanner) Displayed() frame.Frame {
	return s.displayed.Load().(frame.Frame)
}

// EventChannel reports frame swaps. Events are dropped when nobody listens.
func (s *Scanner) EventChannel() chan event.ScanEvent {
	return s.eventChannel
}

func (s *Scanner) scanLoop() {
	defer close(s.done)
	logrus.Debugf("Scan loop has started running")

	dwell := time.NewTimer(time.Hour)
	dwell.Stop()

	for {
		// Stop is only honoured between cycles
		select {
		case <-s.askDone:
			s.leave()
			return
		default:
		}

		s.scanCycle()

		dwell.Reset(s.timing.RowDwell)
		select {
		case <-dwell.C:
		case <-s.askDone:
			dwell.Stop()
			s.leave()
			return
		}
	}
}

func (s *Scanner) leave() {
	// Blank is released at the end of every cycle; make sure of it on the way out.
	_ = s.lines.Blank.Out(gpio.Low)
	logrus.Debugf("Scan loop has run to completion")
}

// scanCycle shows the next row: swap in a pending frame, shift the row out,
// then select and latch it with the display blanked.
func (s *Scanner) scanCycle() {
	if f, ok := s.slot.TakeIfReady(); ok {
		s.active = f
		s.displayed.Store(f)
		atomic.AddUint64(&s.swaps, 1)
		select {
		case s.eventChannel <- event.ScanEvent{Data: event.ScanEventSwapData{Frame: f}}:
		default:
		}
	}

	if s.row < frame.Rows-1 {
		s.row++
	} else {
		s.row = 0
	}
	atomic.StoreInt32(&s.currentRow, int32(s.row))

	s.serializer.ShiftRow(s.active[s.row][:])

	_ = s.lines.Blank.Out(gpio.High)
	hold(s.timing.Settle)
	for bit, line := range s.lines.Address {
		_ = line.Out(gpio.Level(s.row&(1<<uint(bit)) != 0))
	}
	_ = s.lines.Latch.Out(gpio.High)
	hold(s.timing.LatchPulse)
	_ = s.lines.Latch.Out(gpio.Low)
	hold(s.timing.Settle)
	_ = s.lines.Blank.Out(gpio.Low)

	atomic.AddUint64(&s.cycles, 1)
}
