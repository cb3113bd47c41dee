package device

import (
	"context"
	"fmt"
	"github.com/jypelle/ledmsg/internal/frame"
	"github.com/jypelle/ledmsg/internal/srv/mailbox"
	"github.com/sirupsen/logrus"
	"sync"
	"sync/atomic"
)

// Counters receives the lifetime bookkeeping of the device.
type Counters interface {
	IncOpenCount() int64
	IncFrameCount() int64
}

// CharDevice is the byte-stream face of the board: producers open it, write
// a hex frame, and may read back an acknowledgement.
type CharDevice struct {
	slot     *mailbox.Slot
	counters Counters

	openCount int64

	lock    sync.Mutex
	message string
}

func NewCharDevice(slot *mailbox.Slot, counters Counters) *CharDevice {
	return &CharDevice{
		slot:     slot,
		counters: counters,
	}
}

func (d *CharDevice) Open() {
	count := atomic.AddInt64(&d.openCount, 1)
	if d.counters != nil {
		d.counters.IncOpenCount()
	}
	logrus.Debugf("Device has been opened %d time(s)", count)
}

func (d *CharDevice) OpenCount() int64 {
	return atomic.LoadInt64(&d.openCount)
}

// Read returns the last acknowledgement and clears it.
func (d *CharDevice) Read() string {
	d.lock.Lock()
	defer d.lock.Unlock()
	message := d.message
	d.message = ""
	return message
}

// Write decodes data and hands the frame to the scanner, waiting while the
// previous frame is still pending. On success it reports every byte of data
// as consumed; on error nothing is changed.
func (d *CharDevice) Write(ctx context.Context, data []byte) (int, error) {
	f, err := frame.Decode(data)
	if err != nil {
		logrus.Infof("Frame rejected: %v", err)
		return 0, err
	}

	if err := d.Show(ctx, f); err != nil {
		return 0, err
	}

	d.lock.Lock()
	d.message = fmt.Sprintf("Consumed %d bytes", len(data))
	d.lock.Unlock()
	logrus.Debugf("Consumed %d bytes from user", len(data))

	return len(data), nil
}

// Show hands an already built frame to the scanner.
func (d *CharDevice) Show(ctx context.Context, f frame.Frame) error {
	if err := d.slot.Deposit(ctx, f); err != nil {
		return fmt.Errorf("frame not delivered to scanner: %w", err)
	}
	if d.counters != nil {
		d.counters.IncFrameCount()
	}
	return nil
}

func (d *CharDevice) Close() {
	logrus.Debugf("Device successfully closed")
}
