//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the sensors from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip      *gpiocdev.Chip
	leftPin   *gpiocdev.Line
	rightPin  *gpiocdev.Line
	activeLow bool
}

// NewRealReader requests both sensor lines as inputs.
func NewRealReader(pins Pins) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(pins.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", pins.Chip, err)
	}

	// Open-drain hall sensors need a pull-up. Lines are requested with their
	// physical polarity and Read applies pins.ActiveLow.
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp}

	leftLine, err := chip.RequestLine(pins.Left, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request left pin %d: %w", pins.Left, err)
	}

	rightLine, err := chip.RequestLine(pins.Right, opts...)
	if err != nil {
		leftLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request right pin %d: %w", pins.Right, err)
	}

	return &RealReader{
		chip:      chip,
		leftPin:   leftLine,
		rightPin:  rightLine,
		activeLow: pins.ActiveLow,
	}, nil
}

// Read returns the logical states of the left and right sensors.
func (r *RealReader) Read() (bool, bool, error) {
	left, err := r.leftPin.Value()
	if err != nil {
		return false, false, fmt.Errorf("read left pin: %w", err)
	}

	right, err := r.rightPin.Value()
	if err != nil {
		return false, false, fmt.Errorf("read right pin: %w", err)
	}

	return Active(left, r.activeLow), Active(right, r.activeLow), nil
}

// Close releases GPIO resources.
// Reconfigures pins to input with pull-down (matching Pi boot defaults) before
// closing to ensure clean state for system shutdown/reboot.
func (r *RealReader) Close() error {
	var errs []error

	for _, l := range []struct {
		name string
		line *gpiocdev.Line
	}{
		{"left", r.leftPin},
		{"right", r.rightPin},
	} {
		if l.line == nil {
			continue
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
