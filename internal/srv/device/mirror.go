package device

import (
	"fmt"
	"github.com/jypelle/ledmsg/internal/frame"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	"image"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"sync"
)

// Geometry of the mirror panel and of the band the board is drawn into.
const (
	mirrorWidth  = 128
	mirrorHeight = 64
	bandHeight   = 32
)

// mirrorPanel is the part of the ssd1306 driver the mirror draws with.
type mirrorPanel interface {
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// Mirror copies every displayed frame onto a small OLED panel. In simulation
// mode the frame is painted in a desktop window, where there is one, and
// written to the debug log.
type Mirror struct {
	lock           sync.Mutex
	enabled        bool
	simulationMode bool
	busName        string
	on             bool
	lastFrame      frame.Frame

	panelLock sync.Mutex
	panel     mirrorPanel
	i2cBus    i2c.BusCloser

	window *simulationWindow

	askDone chan struct{}
	askImg  chan image.Image
	done    chan struct{}
}

func NewMirror(enabled bool, simulationMode bool, busName string) *Mirror {
	return &Mirror{
		enabled:        enabled,
		simulationMode: simulationMode,
		busName:        busName,
		askDone:        make(chan struct{}),
		askImg:         make(chan image.Image),
		done:           make(chan struct{}),
	}
}

// Start opens the panel. periph.io host drivers must already be initialized.
func (d *Mirror) Start() error {
	if !d.enabled {
		return nil
	}
	logrus.Infof("Start mirror device")

	d.lock.Lock()
	defer d.lock.Unlock()

	if d.simulationMode {
		d.window = openSimulationWindow()
		d.on = true
		return nil
	}

	var err error
	// Open a handle to the I²C bus, the first available one when busName is empty
	d.i2cBus, err = i2creg.Open(d.busName)
	if err != nil {
		return fmt.Errorf("%w: unable to open i2c bus: %v", ErrInitialization, err)
	}

	// Open a handle to a ssd1306 connected on the I²C bus
	oledDisplay, err := ssd1306.NewI2C(d.i2cBus, &ssd1306.DefaultOpts)
	if err != nil {
		d.i2cBus.Close()
		return fmt.Errorf("%w: unable to initialize oled display: %v", ErrInitialization, err)
	}
	oledDisplay.SetContrast(1)

	d.startPanel(oledDisplay)
	return nil
}

func (d *Mirror) startPanel(panel mirrorPanel) {
	d.panel = panel
	d.on = true

	go func() {
		defer close(d.done)
		for {
			select {
			case <-d.askDone:
				d.panelLock.Lock()
				if err := d.panel.Halt(); err != nil {
					logrus.Warnf("Unable to halt oled display: %v", err)
				}
				if d.i2cBus != nil {
					d.i2cBus.Close()
				}
				d.panelLock.Unlock()
				return
			case newImg := <-d.askImg:
				d.panelLock.Lock()
				if err := d.panel.Draw(newImg.Bounds(), newImg, image.Point{}); err != nil {
					logrus.Warnf("Unable to draw on oled display: %v", err)
				}
				d.panelLock.Unlock()
			}
		}
	}()
}

func (d *Mirror) Stop() {
	if !d.enabled {
		return
	}
	logrus.Infof("Stop mirror device")

	d.lock.Lock()
	defer d.lock.Unlock()

	if d.panel != nil {
		close(d.askDone)
		<-d.done
		d.panel = nil
	}
	if d.window != nil {
		d.window.close()
		d.window = nil
	}
	d.on = false
}

// ShowFrame mirrors f, or just remembers it while the mirror is off.
func (d *Mirror) ShowFrame(f frame.Frame) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.lastFrame = f
	if d.on {
		d.show()
	}
}

// Switch turns the mirror on or off and returns the new state.
func (d *Mirror) Switch() bool {
	d.lock.Lock()
	defer d.lock.Unlock()

	if !d.enabled {
		return false
	}
	d.on = !d.on
	if d.on {
		d.show()
	} else {
		blank := image.NewGray(image.Rect(0, 0, mirrorWidth, mirrorHeight))
		if d.panel != nil {
			d.askImg <- blank
		} else if d.window != nil {
			d.window.show(blank)
		}
	}
	return d.on
}

func (d *Mirror) isOn() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.on
}

func (d *Mirror) show() {
	if d.panel != nil {
		d.askImg <- MirrorImage(d.lastFrame)
	} else if d.simulationMode {
		logrus.Debugf("Board:\n%s", d.lastFrame.String())
		if d.window != nil {
			d.window.show(MirrorImage(d.lastFrame))
		}
	}
}

// MirrorImage draws f stretched over a 128×32 band centred on a 128×64 panel.
func MirrorImage(f frame.Frame) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, mirrorWidth, mirrorHeight))
	top := (mirrorHeight - bandHeight) / 2
	band := image.Rect(0, top, mirrorWidth, top+bandHeight)
	draw.NearestNeighbor.Scale(img, band, f.Image(), image.Rect(0, 0, frame.Columns, frame.Rows), draw.Src, nil)
	return img
}
