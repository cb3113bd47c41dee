package device

import (
	"context"
	"github.com/jypelle/ledmsg/internal/frame"
	"github.com/jypelle/ledmsg/internal/srv/mailbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countersMock struct {
	opens  int64
	frames int64
}

func (c *countersMock) IncOpenCount() int64  { return atomic.AddInt64(&c.opens, 1) }
func (c *countersMock) IncFrameCount() int64 { return atomic.AddInt64(&c.frames, 1) }

func TestCharDeviceWrite(t *testing.T) {
	slot := mailbox.NewSlot()
	counters := &countersMock{}
	dev := NewCharDevice(slot, counters)

	dev.Open()
	dev.Open()
	assert.EqualValues(t, 2, dev.OpenCount())
	assert.EqualValues(t, 2, counters.opens)

	// Trailing bytes past the frame are accepted and reported
	payload := strings.Repeat("ff", frame.RowBytes) + strings.Repeat("00", 7*frame.RowBytes) + "\n"
	n, err := dev.Write(context.Background(), []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, frame.HexLength+1, n)
	assert.EqualValues(t, 1, counters.frames)

	assert.Equal(t, "Consumed 289 bytes", dev.Read())
	assert.Equal(t, "", dev.Read())

	f, ok := slot.TakeIfReady()
	require.True(t, ok)
	assert.Equal(t, byte(0xFF), f[0][17])
	assert.Equal(t, byte(0x00), f[1][0])
	dev.Close()
}

func TestCharDeviceRejectsBadFrames(t *testing.T) {
	slot := mailbox.NewSlot()
	counters := &countersMock{}
	dev := NewCharDevice(slot, counters)

	n, err := dev.Write(context.Background(), []byte(strings.Repeat("0", frame.HexLength-1)))
	assert.ErrorIs(t, err, frame.ErrInsufficientData)
	assert.Zero(t, n)

	n, err = dev.Write(context.Background(), []byte(strings.Repeat("zz", frame.HexLength/2)))
	assert.ErrorIs(t, err, frame.ErrInvalidHex)
	assert.Zero(t, n)

	assert.False(t, slot.Ready())
	assert.Equal(t, mailbox.Stats{}, slot.Stats())
	assert.Zero(t, counters.frames)
	assert.Equal(t, "", dev.Read())
}

func TestCharDeviceWriteTimesOutOnBusySlot(t *testing.T) {
	slot := mailbox.NewSlot()
	dev := NewCharDevice(slot, nil)
	require.NoError(t, dev.Show(context.Background(), frame.RowPattern(0)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	n, err := dev.Write(ctx, []byte(strings.Repeat("00", frame.HexLength/2)))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, n)

	// The first frame is still the one waiting
	f, ok := slot.TakeIfReady()
	require.True(t, ok)
	assert.Equal(t, frame.RowPattern(0), f)
}
