// Package gpio provides the button input and LED outputs with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/led-sequencer/internal/logic"

// Button reads the push button input.
type Button interface {
	// Level returns the raw pin level. The line is pulled up, so a
	// pressed button reads logic.Low.
	Level() (logic.Level, error)

	// Close releases GPIO resources.
	Close() error
}

// Lights drives the three LED outputs.
type Lights interface {
	// Set writes all three outputs.
	Set(l logic.Lights) error

	// Close switches the outputs off and releases GPIO resources.
	Close() error
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinButton = 5
	DefaultPinFirst  = 11 // blue on the crossing, red on the traffic light
	DefaultPinSecond = 12 // red on the crossing, unused on the traffic light
	DefaultPinThird  = 13 // green
)

// DefaultChip is the GPIO character device.
const DefaultChip = "gpiochip0"

func levels(l logic.Lights) []int {
	return []int{bit(l.First), bit(l.Second), bit(l.Third)}
}

func bit(on bool) int {
	if on {
		return 1
	}
	return 0
}
