package srv

import (
	"context"
	"github.com/jypelle/ledmsg/internal/frame"
	"github.com/jypelle/ledmsg/internal/srv/event"
	"github.com/sirupsen/logrus"
	"time"
)

const scrollTickDuration = 60 * time.Millisecond

// A long press on the pattern button switches the mirror.
const mirrorSwitchPressSteps = 6

func (s *ServerApp) eventLoop() {
	defer close(s.eventLoopDone)

	for {
		select {
		case ev := <-s.internalEventChannel:
			switch data := ev.Data.(type) {
			case event.InternalEventScrollTickData:
				s.onScrollTick(data)
			}
		case ev := <-s.scannerDevice.EventChannel():
			switch data := ev.Data.(type) {
			case event.ScanEventSwapData:
				s.mirrorDevice.ShowFrame(data.Frame)
			}
		case ev := <-s.clockDevice.EventChannel():
			switch data := ev.Data.(type) {
			case event.TickerEventTickData:
				logrus.Debugf("Receive clock tick event")
				if err := s.showText(data.Time.Format("15:04")); err != nil {
					logrus.Warn(err)
				}
			}
		case ev := <-s.apiDevice.EventChannel():
			switch data := ev.Data.(type) {
			case event.ApiEventMessageData:
				ev.Result <- s.showText(data.Text)
			case event.ApiEventImageData:
				ev.Result <- s.showStrip(frame.NewImageStrip(data.Image))
			case event.ApiEventPatternData:
				f, err := frame.Pattern(data.Kind, data.Index)
				if err == nil {
					err = s.show(f)
				}
				ev.Result <- err
			}
		case ev := <-s.buttonsDevice.EventChannel():
			logrus.Debugf("Receive button event: %d, %d, %d", ev.ButtonId, ev.ButtonEventType, ev.PressStepCount)
			switch ev.ButtonId {
			case event.PATTERN_BUTTON:
				if ev.ButtonEventType == event.PRESS_EVENT_TYPE && ev.PressStepCount == 1 {
					s.showNextPattern()
				} else if ev.ButtonEventType == event.RELEASE_EVENT_TYPE && ev.PressStepCount >= mirrorSwitchPressSteps {
					logrus.Debugf("Switch mirror on/off")
					s.mirrorDevice.Switch()
				}
			}
		case <-s.eventLoopAskDone:
			return
		}
	}
}

// show hands f to the scanner, replacing any running marquee.
func (s *ServerApp) show(f frame.Frame) error {
	s.stopScroll()
	return s.deposit(f)
}

func (s *ServerApp) deposit(f frame.Frame) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.ApiParam.WriteTimeout())
	defer cancel()
	return s.charDevice.Show(ctx, f)
}

func (s *ServerApp) showText(text string) error {
	return s.showStrip(frame.NewTextStrip(text))
}

// showStrip displays strip centred, or as a marquee when it is wider than the board.
func (s *ServerApp) showStrip(strip *frame.Strip) error {
	if !strip.Scrolls() {
		return s.show(centeredStrip(strip))
	}

	s.stopScroll()
	s.scrollStrip = strip
	s.scrollTickCount = 0
	return s.showScroll()
}

// onScrollTick advances the running marquee. Ticks left over from a stopped
// or replaced marquee are dropped.
func (s *ServerApp) onScrollTick(tick event.InternalEventScrollTickData) bool {
	if s.scrollStrip == nil || tick.Generation != s.scrollGeneration {
		return false
	}
	s.scrollTickCount++
	if err := s.showScroll(); err != nil {
		logrus.Warn(err)
	}
	return true
}

func (s *ServerApp) showScroll() error {
	err := s.deposit(s.scrollStrip.ScrollFrame(s.scrollTickCount))
	tick := event.InternalEventScrollTickData{Generation: s.scrollGeneration}
	s.scrollTickTimer = time.AfterFunc(scrollTickDuration, func() {
		select {
		case s.internalEventChannel <- event.InternalEvent{Data: tick}:
		case <-s.eventLoopAskDone:
		}
	})
	return err
}

func (s *ServerApp) stopScroll() {
	if s.scrollTickTimer != nil {
		s.scrollTickTimer.Stop()
		s.scrollTickTimer = nil
	}
	s.scrollStrip = nil
	s.scrollGeneration++
}

// showNextPattern steps through every row, then every column.
func (s *ServerApp) showNextPattern() {
	logrus.Debugf("Show test pattern %d", s.patternStep)
	if err := s.show(frame.SequencePattern(s.patternStep)); err != nil {
		logrus.Warn(err)
	}
	s.patternStep = (s.patternStep + 1) % frame.PatternCount
}

func centeredText(text string) frame.Frame {
	return centeredStrip(frame.NewTextStrip(text))
}

func centeredStrip(strip *frame.Strip) frame.Frame {
	if strip.Scrolls() {
		return strip.Frame(0)
	}
	return strip.Frame(-(frame.Columns - strip.Width()) / 2)
}
