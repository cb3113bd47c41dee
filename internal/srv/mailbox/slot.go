package mailbox

import (
	"context"
	"github.com/jypelle/ledmsg/internal/frame"
	"github.com/sirupsen/logrus"
	"sync/atomic"
)

// Slot hands frames from producers to the row scanner. It holds at most one
// frame: a deposit waits while the previous frame is unconsumed, and the
// scanner takes without ever blocking.
//
// The buffered channel is the ready flag. Only a producer's send sets it and
// only the scanner's receive clears it; frames are copied in and out by value.
//
// Concurrent producers waiting on a busy slot are served in no particular order.
type Slot struct {
	pending chan frame.Frame

	deposits uint64
	takes    uint64
	waits    uint64
}

type Stats struct {
	Deposits uint64 `json:"deposits"`
	Takes    uint64 `json:"takes"`
	Waits    uint64 `json:"waits"`
	Ready    bool   `json:"ready"`
}

func NewSlot() *Slot {
	return &Slot{
		pending: make(chan frame.Frame, 1),
	}
}

// Deposit stores f once the slot is empty. It returns ctx.Err() if ctx ends
// first, in which case the slot is left untouched.
func (s *Slot) Deposit(ctx context.Context, f frame.Frame) error {
	select {
	case s.pending <- f:
		atomic.AddUint64(&s.deposits, 1)
		return nil
	default:
	}

	atomic.AddUint64(&s.waits, 1)
	logrus.Debugf("Frame deposited before last one was consumed, waiting for scanner")

	select {
	case s.pending <- f:
		atomic.AddUint64(&s.deposits, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TakeIfReady returns the pending frame and empties the slot, or false if no frame is waiting.
func (s *Slot) TakeIfReady() (frame.Frame, bool) {
	select {
	case f := <-s.pending:
		atomic.AddUint64(&s.takes, 1)
		return f, true
	default:
		return frame.Frame{}, false
	}
}

func (s *Slot) Ready() bool {
	return len(s.pending) > 0
}

func (s *Slot) Stats() Stats {
	return Stats{
		Deposits: atomic.LoadUint64(&s.deposits),
		Takes:    atomic.LoadUint64(&s.takes),
		Waits:    atomic.LoadUint64(&s.waits),
		Ready:    s.Ready(),
	}
}
