package device

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"testing"
)

func TestAcquireLines(t *testing.T) {
	provider := newFakeProvider()

	lines, err := AcquireLines(provider, testLineNames)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"A0", "A1", "A2", "CLK", "D0", "STB", "BLK"}, provider.wire.Held())
	assert.Equal(t, "A0", lines.Address[0].Name())
	assert.Equal(t, "A2", lines.Address[2].Name())
	assert.Equal(t, "CLK", lines.Clock.Name())
	assert.Equal(t, "D0", lines.Data.Name())
	assert.Equal(t, "STB", lines.Latch.Name())
	assert.Equal(t, "BLK", lines.Blank.Name())

	lines.Release()
	assert.Empty(t, provider.wire.Held())
	assert.Equal(t, []string{"BLK", "STB", "D0", "CLK", "A2", "A1", "A0"}, provider.wire.Released())
	for _, name := range provider.wire.Released() {
		assert.Equal(t, gpio.Low, provider.wire.Level(name), name)
	}

	// Second release is a no-op
	lines.Release()
	assert.Len(t, provider.wire.Released(), 7)
}

func TestAcquireLinesRollback(t *testing.T) {
	provider := newFakeProvider("STB")

	lines, err := AcquireLines(provider, testLineNames)
	assert.Nil(t, lines)
	require.ErrorIs(t, err, ErrInitialization)
	assert.Contains(t, err.Error(), "latch")
	assert.Contains(t, err.Error(), "STB")

	// Nothing stays held, and what was taken is given back last to first
	assert.Empty(t, provider.wire.Held())
	assert.Equal(t, []string{"D0", "CLK", "A2", "A1", "A0"}, provider.wire.Released())
}

func TestAcquireLinesFirstLineFails(t *testing.T) {
	provider := newFakeProvider("A0")

	_, err := AcquireLines(provider, testLineNames)
	require.ErrorIs(t, err, ErrInitialization)
	assert.Empty(t, provider.wire.Released())
}

func TestSimulationLineProvider(t *testing.T) {
	provider := NewSimulationLineProvider()

	lines, err := AcquireLines(provider, testLineNames)
	require.NoError(t, err)

	require.NoError(t, lines.Latch.Out(gpio.High))
	assert.Equal(t, gpio.High, provider.Pin("STB").Read())

	lines.Release()
	assert.Equal(t, gpio.Low, provider.Pin("STB").Read())

	_, err = AcquireLines(provider, LineNames{A0: "A0"})
	require.ErrorIs(t, err, ErrInitialization)
	assert.Nil(t, provider.Pin("missing"))
}
