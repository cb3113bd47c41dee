package event

import (
	"github.com/jypelle/ledmsg/internal/frame"
	"image"
	"time"
)

// Internal
type InternalEvent struct {
	Data interface{}
}

// A tick only advances the marquee it was scheduled for.
type InternalEventScrollTickData struct {
	Generation int
}

// Scanner
type ScanEvent struct {
	Data interface{}
}

type ScanEventSwapData struct {
	Frame frame.Frame
}

// Ticker
type TickerEvent struct {
	Data interface{}
}

type TickerEventTickData struct {
	Time time.Time
}

// Buttons
type ButtonId int

const (
	PATTERN_BUTTON ButtonId = iota
)

type ButtonEventType int

const (
	PRESS_EVENT_TYPE ButtonEventType = iota
	RELEASE_EVENT_TYPE
)

type ButtonEvent struct {
	ButtonId        ButtonId
	ButtonEventType ButtonEventType
	PressStepCount  int64
}

// Api
type ApiEvent struct {
	Result chan error
	Data   interface{}
}

type ApiEventMessageData struct {
	Text string
}

type ApiEventPatternData struct {
	Kind  frame.PatternKind
	Index int
}

type ApiEventImageData struct {
	Image image.Image
}
