package config

import (
	_ "embed"
	"time"
)

//go:embed param_default.yaml
var ParamDefaultFile []byte

const (
	DefaultRowDwell   = 2000 * time.Microsecond
	DefaultClockPulse = 100 * time.Nanosecond
	DefaultLatchPulse = 100 * time.Nanosecond

	DefaultWriteTimeout = 2 * time.Second
)

type ServerParam struct {
	Pins     PinParam    `yaml:"pins"`
	Timing   TimingParam `yaml:"timing"`
	ApiParam ApiParam    `yaml:"api"`
	Clock    ClockParam  `yaml:"clock"`
	Button   ButtonParam `yaml:"button"`
	Mirror   MirrorParam `yaml:"mirror"`
	Farewell string      `yaml:"farewell"`
}

type PinParam struct {
	A0    string `yaml:"a0"`
	A1    string `yaml:"a1"`
	A2    string `yaml:"a2"`
	Clock string `yaml:"clock"`
	Data  string `yaml:"data"`
	Latch string `yaml:"latch"`
	Blank string `yaml:"blank"`
}

// TimingParam holds the signal timings of the board. Zero values fall back to
// the defaults, except SettleNs where zero means no settle delay.
type TimingParam struct {
	RowDwellUs   int64 `yaml:"row_dwell_us"`
	ClockPulseNs int64 `yaml:"clock_pulse_ns"`
	LatchPulseNs int64 `yaml:"latch_pulse_ns"`
	SettleNs     int64 `yaml:"settle_ns"`
}

func (t TimingParam) RowDwell() time.Duration {
	if t.RowDwellUs <= 0 {
		return DefaultRowDwell
	}
	return time.Duration(t.RowDwellUs) * time.Microsecond
}

func (t TimingParam) ClockPulse() time.Duration {
	if t.ClockPulseNs <= 0 {
		return DefaultClockPulse
	}
	return time.Duration(t.ClockPulseNs) * time.Nanosecond
}

func (t TimingParam) LatchPulse() time.Duration {
	if t.LatchPulseNs <= 0 {
		return DefaultLatchPulse
	}
	return time.Duration(t.LatchPulseNs) * time.Nanosecond
}

func (t TimingParam) Settle() time.Duration {
	if t.SettleNs <= 0 {
		return 0
	}
	return time.Duration(t.SettleNs) * time.Nanosecond
}

type ApiParam struct {
	Enabled        bool   `yaml:"enabled"`
	SslPort        int64  `yaml:"ssl_port"`
	Tls            bool   `yaml:"tls"`
	ApiKey         string `yaml:"api_key"`
	WriteTimeoutMs int64  `yaml:"write_timeout_ms"`
}

func (a ApiParam) WriteTimeout() time.Duration {
	if a.WriteTimeoutMs <= 0 {
		return DefaultWriteTimeout
	}
	return time.Duration(a.WriteTimeoutMs) * time.Millisecond
}

type ClockParam struct {
	Enabled bool `yaml:"enabled"`
}

type ButtonParam struct {
	Pin string `yaml:"pin"`
}

type MirrorParam struct {
	Enabled bool   `yaml:"enabled"`
	I2cBus  string `yaml:"i2c_bus"`
}
