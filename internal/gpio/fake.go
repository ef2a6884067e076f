package gpio

import (
	"errors"

	"github.com/sweeney/led-sequencer/internal/logic"
)

// FakeButton is a test double that returns scripted button levels.
type FakeButton struct {
	// Levels contains scripted raw levels to return.
	// Each call to Level() consumes the next sample.
	Levels []logic.Level

	// index tracks current position in Levels
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Level()
	ReadError error
}

// NewFakeButton creates a FakeButton with the given levels.
func NewFakeButton(levels []logic.Level) *FakeButton {
	return &FakeButton{Levels: levels}
}

// Level returns the next scripted level.
// If levels are exhausted, returns the last level repeatedly.
func (f *FakeButton) Level() (logic.Level, error) {
	if f.ReadError != nil {
		return logic.High, f.ReadError
	}

	if len(f.Levels) == 0 {
		return logic.High, errors.New("no levels configured")
	}

	level := f.Levels[f.index]
	if f.index < len(f.Levels)-1 {
		f.index++
	}

	return level, nil
}

// Close marks the button as closed.
func (f *FakeButton) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the button to the first level.
func (f *FakeButton) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeLights records every write for test assertions.
type FakeLights struct {
	// Writes contains every successful Set, in order.
	Writes []logic.Lights

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeLights creates a FakeLights for testing.
func NewFakeLights() *FakeLights {
	return &FakeLights{}
}

// Set records the write.
func (f *FakeLights) Set(l logic.Lights) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Writes = append(f.Writes, l)
	return nil
}

// Current returns the last written state (all off if nothing was written).
func (f *FakeLights) Current() logic.Lights {
	if len(f.Writes) == 0 {
		return logic.Lights{}
	}
	return f.Writes[len(f.Writes)-1]
}

// Close switches the outputs off and marks the lights as closed.
func (f *FakeLights) Close() error {
	f.Writes = append(f.Writes, logic.Lights{})
	f.Closed = true
	return nil
}
