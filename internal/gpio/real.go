//go:build linux

package gpio

import (
	"fmt"

	"github.com/sweeney/led-sequencer/internal/logic"
	"github.com/warthog618/go-gpiocdev"
)

// RealButton reads the button from actual hardware using Linux GPIO character device.
type RealButton struct {
	line *gpiocdev.Line
}

// NewRealButton requests the button line as an input with pull-up.
func NewRealButton(chip string, pin int) (*RealButton, error) {
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return nil, fmt.Errorf("request button pin %d: %w", pin, err)
	}
	return &RealButton{line: line}, nil
}

// Level returns the raw level. Released reads 1 through the pull-up, pressed reads 0.
func (b *RealButton) Level() (logic.Level, error) {
	v, err := b.line.Value()
	if err != nil {
		return logic.High, fmt.Errorf("read button pin: %w", err)
	}
	if v == 0 {
		return logic.Low, nil
	}
	return logic.High, nil
}

// Close releases the button line.
func (b *RealButton) Close() error {
	if b.line == nil {
		return nil
	}
	if err := b.line.Close(); err != nil {
		return fmt.Errorf("close button pin: %w", err)
	}
	return nil
}

// RealLights drives the three outputs as one line request, so a phase change
// is a single write.
type RealLights struct {
	lines *gpiocdev.Lines
}

// NewRealLights requests the three output lines, initially off.
func NewRealLights(chip string, first, second, third int) (*RealLights, error) {
	lines, err := gpiocdev.RequestLines(chip, []int{first, second, third}, gpiocdev.AsOutput(0, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("request output pins %d,%d,%d: %w", first, second, third, err)
	}
	return &RealLights{lines: lines}, nil
}

// Set writes all three outputs.
func (r *RealLights) Set(l logic.Lights) error {
	if err := r.lines.SetValues(levels(l)); err != nil {
		return fmt.Errorf("write output pins: %w", err)
	}
	return nil
}

// Close switches the outputs off and reconfigures the lines as inputs before
// releasing them, so nothing is left driven after shutdown.
func (r *RealLights) Close() error {
	if r.lines == nil {
		return nil
	}

	var errs []error
	if err := r.lines.SetValues(levels(logic.Lights{})); err != nil {
		errs = append(errs, fmt.Errorf("switch outputs off: %w", err))
	}
	if err := r.lines.Reconfigure(gpiocdev.AsInput); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure output pins: %w", err))
	}
	if err := r.lines.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close output pins: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
