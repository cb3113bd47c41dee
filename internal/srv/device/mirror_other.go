//go:build !amd64

package device

import (
	"image"
)

// No desktop window off amd64: the simulated board only goes to the debug log.
type simulationWindow struct{}

func openSimulationWindow() *simulationWindow {
	return &simulationWindow{}
}

func (w *simulationWindow) show(img image.Image) {
}

func (w *simulationWindow) close() {
}
