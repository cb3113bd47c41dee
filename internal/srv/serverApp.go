package srv

import (
	"context"
	"github.com/jypelle/ledmsg/apimodel"
	"github.com/jypelle/ledmsg/internal/frame"
	"github.com/jypelle/ledmsg/internal/srv/config"
	"github.com/jypelle/ledmsg/internal/srv/device"
	"github.com/jypelle/ledmsg/internal/srv/event"
	"github.com/jypelle/ledmsg/internal/srv/mailbox"
	"github.com/jypelle/ledmsg/internal/version"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"strings"
	"time"
)

// How long Stop waits for the farewell frame to reach the board.
const farewellDelay = 500 * time.Millisecond

type ServerApp struct {
	*config.ServerConfig

	lineProvider device.LineProvider
	lines        *device.Lines
	slot         *mailbox.Slot

	scannerDevice *device.Scanner
	charDevice    *device.CharDevice
	mirrorDevice  *device.Mirror
	clockDevice   *device.Clock
	buttonsDevice *device.Buttons
	apiDevice     *device.Api

	scrollStrip      *frame.Strip
	scrollTickCount  int
	scrollTickTimer  *time.Timer
	scrollGeneration int

	patternStep int

	started bool

	internalEventChannel chan event.InternalEvent

	eventLoopAskDone chan struct{}
	eventLoopDone    chan struct{}
}

func NewServerApp(configDir string, debugMode bool, simulationMode bool) *ServerApp {
	logrus.Debugf("Creation of ledmsg server %s ...", version.AppVersion.String())

	app := newServerApp(config.NewServerConfig(configDir, debugMode, simulationMode), nil)

	logrus.Debugln("Server created")

	return app
}

// newServerApp builds the server around serverConfig. A nil lineProvider is
// chosen at start: simulated lines in simulation mode, periph.io ones otherwise.
func newServerApp(serverConfig *config.ServerConfig, lineProvider device.LineProvider) *ServerApp {
	app := &ServerApp{
		ServerConfig:         serverConfig,
		lineProvider:         lineProvider,
		slot:                 mailbox.NewSlot(),
		internalEventChannel: make(chan event.InternalEvent),
		eventLoopAskDone:     make(chan struct{}),
		eventLoopDone:        make(chan struct{}),
	}

	app.charDevice = device.NewCharDevice(app.slot, app.ServerState)
	app.mirrorDevice = device.NewMirror(app.Mirror.Enabled, app.SimulationMode, app.Mirror.I2cBus)
	app.clockDevice = device.NewClock()
	app.buttonsDevice = device.NewButtons()
	app.apiDevice = device.NewApi(app.ServerConfig, app.charDevice, app.Status)

	return app
}

// Start takes the board lines and starts scanning, then starts the producers.
// If the board cannot be driven, everything already taken is given back and
// the error is returned.
func (s *ServerApp) Start() error {
	logrus.Printf("Starting ledmsg server ...")

	if s.lineProvider == nil {
		if s.SimulationMode {
			s.lineProvider = device.NewSimulationLineProvider()
		} else {
			provider, err := device.NewPeriphLineProvider()
			if err != nil {
				return err
			}
			s.lineProvider = provider
		}
	}

	lines, err := device.AcquireLines(s.lineProvider, device.LineNames{
		A0:    s.Pins.A0,
		A1:    s.Pins.A1,
		A2:    s.Pins.A2,
		Clock: s.Pins.Clock,
		Data:  s.Pins.Data,
		Latch: s.Pins.Latch,
		Blank: s.Pins.Blank,
	})
	if err != nil {
		return err
	}
	s.lines = lines

	s.scannerDevice = device.NewScanner(s.lines, s.slot, device.ScannerTiming{
		RowDwell:   s.Timing.RowDwell(),
		ClockPulse: s.Timing.ClockPulse(),
		LatchPulse: s.Timing.LatchPulse(),
		Settle:     s.Timing.Settle(),
	})
	if err := s.scannerDevice.Start(); err != nil {
		s.lines.Release()
		return err
	}

	logrus.Printf("Starting devices ...")

	// Optional devices only log their failures
	if err := s.mirrorDevice.Start(); err != nil {
		logrus.Warnf("Mirror disabled: %v", err)
		s.mirrorDevice = device.NewMirror(false, false, "")
	}
	s.mirrorDevice.ShowFrame(s.scannerDevice.Displayed())

	if s.Button.Pin != "" {
		button, err := s.newPatternButton()
		if err != nil {
			logrus.Warnf("Pattern button disabled: %v", err)
		} else {
			s.buttonsDevice = device.NewButtons(button)
		}
	}

	// Start event loop
	go s.eventLoop()
	s.started = true

	if s.Clock.Enabled {
		s.clockDevice.Start()
	}

	s.buttonsDevice.Start()

	if s.ApiParam.Enabled {
		if err := s.apiDevice.Start(); err != nil {
			s.Stop()
			return err
		}
	}

	return nil
}

func (s *ServerApp) newPatternButton() (*device.Button, error) {
	if s.SimulationMode {
		return device.NewButton(event.PATTERN_BUTTON, &gpiotest.Pin{N: s.Button.Pin, L: gpio.High})
	}
	return device.NewButtonByName(event.PATTERN_BUTTON, s.Button.Pin)
}

// Stop stops the producers, says farewell on the board, then stops scanning
// and gives the lines back.
func (s *ServerApp) Stop() {
	if !s.started {
		return
	}
	s.started = false
	logrus.Printf("Stopping ledmsg server ...")

	// Stop producers
	s.apiDevice.StopSendingEvent()
	s.buttonsDevice.StopSendingEvent()
	s.clockDevice.StopSendingEvent()

	// Stop event loop
	logrus.Infof("Stop event loop")
	close(s.eventLoopAskDone)
	<-s.eventLoopDone
	s.stopScroll()

	if s.Farewell != "" {
		s.showFarewell()
	}

	s.scannerDevice.Stop()
	s.mirrorDevice.Stop()
	s.lines.Release()

	// Flush state backup
	s.ServerConfig.ServerState.FlushSave()

	logrus.Printf("Server stopped")
}

func (s *ServerApp) showFarewell() {
	ctx, cancel := context.WithTimeout(context.Background(), farewellDelay)
	defer cancel()

	// Drop a swap left unread by the event loop
	select {
	case <-s.scannerDevice.EventChannel():
	default:
	}

	farewell := centeredText(s.Farewell)
	if err := s.charDevice.Show(ctx, farewell); err != nil {
		logrus.Warnf("Unable to show farewell: %v", err)
		return
	}

	// The event loop is gone, wait for the swap here. A frame still pending
	// when Show was called is swapped in first.
	for {
		select {
		case ev := <-s.scannerDevice.EventChannel():
			if data, ok := ev.Data.(event.ScanEventSwapData); ok && data.Frame == farewell {
				return
			}
			// The farewell swap event is dropped while an older one is unread
			if s.scannerDevice.Displayed() == farewell {
				return
			}
		case <-ctx.Done():
			if s.scannerDevice.Displayed() != farewell {
				logrus.Warnf("Farewell not displayed in time")
			}
			return
		}
	}
}

// Status gathers the state of the board for the api.
func (s *ServerApp) Status() apimodel.Status {
	status := apimodel.Status{
		Version: version.AppVersion.String(),
		Device: apimodel.DeviceStatus{
			OpenCount:          s.charDevice.OpenCount(),
			LifetimeOpenCount:  s.ServerState.OpenCount(),
			LifetimeFrameCount: s.ServerState.FrameCount(),
		},
	}

	slotStats := s.slot.Stats()
	status.Slot = apimodel.SlotStatus{
		Deposits: slotStats.Deposits,
		Takes:    slotStats.Takes,
		Waits:    slotStats.Waits,
		Ready:    slotStats.Ready,
	}

	if s.scannerDevice != nil {
		scanStatus := s.scannerDevice.Status()
		status.Scanner = apimodel.ScannerStatus{
			State:  scanStatus.State.String(),
			Row:    scanStatus.Row,
			Cycles: scanStatus.Cycles,
			Swaps:  scanStatus.Swaps,
		}
		displayed := s.scannerDevice.Displayed()
		status.Displayed = strings.Split(strings.TrimSuffix(displayed.String(), "\n"), "\n")
	} else {
		status.Scanner.State = device.STOPPED_STATE.String()
	}

	return status
}
