//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/led-sequencer/internal/logic"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealButton is not available on non-Linux platforms.
type RealButton struct{}

// NewRealButton returns an error on non-Linux platforms.
func NewRealButton(chip string, pin int) (*RealButton, error) {
	return nil, errUnsupported
}

// Level is not implemented on non-Linux platforms.
func (b *RealButton) Level() (logic.Level, error) {
	return logic.High, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (b *RealButton) Close() error {
	return nil
}

// RealLights is not available on non-Linux platforms.
type RealLights struct{}

// NewRealLights returns an error on non-Linux platforms.
func NewRealLights(chip string, first, second, third int) (*RealLights, error) {
	return nil, errUnsupported
}

// Set is not implemented on non-Linux platforms.
func (r *RealLights) Set(l logic.Lights) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealLights) Close() error {
	return nil
}
