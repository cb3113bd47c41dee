package config

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultParam(t *testing.T) {
	param, err := ParseParam(ParamDefaultFile)
	require.NoError(t, err)

	assert.Equal(t, "GPIO62", param.Pins.A0)
	assert.Equal(t, "GPIO117", param.Pins.Blank)
	assert.Equal(t, 2000*time.Microsecond, param.Timing.RowDwell())
	assert.Equal(t, 100*time.Nanosecond, param.Timing.ClockPulse())
	assert.Equal(t, time.Duration(0), param.Timing.Settle())
	assert.True(t, param.ApiParam.Enabled)
	assert.Equal(t, 2*time.Second, param.ApiParam.WriteTimeout())
	assert.False(t, param.Clock.Enabled)
	assert.Empty(t, param.Button.Pin)
}

func TestParseParamKeepsDefaultsForMissingKeys(t *testing.T) {
	param, err := ParseParam([]byte("timing:\n  row_dwell_us: 500\npins:\n  a0: GPIO5\n"))
	require.NoError(t, err)

	assert.Equal(t, 500*time.Microsecond, param.Timing.RowDwell())
	assert.Equal(t, "GPIO5", param.Pins.A0)
	assert.Equal(t, "GPIO36", param.Pins.A1)
	assert.Equal(t, 100*time.Nanosecond, param.Timing.LatchPulse())
}

func TestTimingFallbacks(t *testing.T) {
	var timing TimingParam
	assert.Equal(t, DefaultRowDwell, timing.RowDwell())
	assert.Equal(t, DefaultClockPulse, timing.ClockPulse())
	assert.Equal(t, DefaultLatchPulse, timing.LatchPulse())
	assert.Equal(t, time.Duration(0), timing.Settle())
}

func TestParseParamInvalid(t *testing.T) {
	_, err := ParseParam([]byte("pins: [unterminated"))
	assert.Error(t, err)
}

func TestNewServerConfigCreatesDefaultParamFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ledmsg")
	sc := NewServerConfig(dir, false, true)

	_, err := os.Stat(sc.GetCompleteParamFilename())
	require.NoError(t, err)
	assert.Equal(t, "GPIO48", sc.Pins.Clock)
	assert.True(t, sc.SimulationMode)

	reloaded := NewServerConfig(dir, false, true)
	assert.Equal(t, sc.ServerParam, reloaded.ServerParam)
}

func TestServerStateCounters(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "state.yaml")
	ss := NewServerState(filename)

	assert.Equal(t, int64(1), ss.IncOpenCount())
	assert.Equal(t, int64(2), ss.IncOpenCount())
	assert.Equal(t, int64(1), ss.IncFrameCount())
	ss.FlushSave()

	reloaded := NewServerState(filename)
	assert.Equal(t, int64(2), reloaded.OpenCount())
	assert.Equal(t, int64(1), reloaded.FrameCount())
}
