package device

import (
	"gioui.org/app"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"github.com/sirupsen/logrus"
	"image"
	"sync"
)

// simulationWindow paints the mirror image in a desktop window.
type simulationWindow struct {
	window *app.Window

	lock    sync.RWMutex
	lastImg image.Image
	closed  bool
}

func openSimulationWindow() *simulationWindow {
	w := &simulationWindow{
		window:  app.NewWindow(app.Size(unit.Px(2*mirrorWidth), unit.Px(2*mirrorHeight)), app.MinSize(unit.Px(mirrorWidth), unit.Px(mirrorHeight))),
		lastImg: image.NewGray(image.Rect(0, 0, mirrorWidth, mirrorHeight)),
	}
	go func() {
		if err := w.gioloop(); err != nil {
			logrus.Warnf("Simulation window closed: %v", err)
		}
	}()
	go app.Main()
	return w
}

func (w *simulationWindow) show(img image.Image) {
	w.lock.Lock()
	w.lastImg = img
	closed := w.closed
	w.lock.Unlock()

	if !closed {
		w.window.Invalidate()
	}
}

func (w *simulationWindow) image() image.Image {
	w.lock.RLock()
	defer w.lock.RUnlock()
	return w.lastImg
}

func (w *simulationWindow) close() {
	w.lock.Lock()
	closed := w.closed
	w.closed = true
	w.lock.Unlock()

	if !closed {
		w.window.Close()
	}
}

func (w *simulationWindow) gioloop() error {
	var ops op.Ops
	for {
		e := <-w.window.Events()
		switch e := e.(type) {
		case system.DestroyEvent:
			w.lock.Lock()
			w.closed = true
			w.lock.Unlock()
			return e.Err
		case system.FrameEvent:
			gtx := layout.NewContext(&ops, e)
			img := widget.Image{Src: paint.NewImageOp(w.image()), Fit: widget.Contain}
			img.Layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}
