// Package gpio provides hall-effect sensor reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the two sensor inputs.
type Reader interface {
	// Read returns the logical states of the left and right sensors,
	// true meaning a magnet is present.
	// Returns (leftActive, rightActive, error).
	Read() (bool, bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Default wiring (BCM numbering).
const (
	DefaultChip     = "gpiochip0"
	DefaultPinLeft  = 17
	DefaultPinRight = 27

	// DefaultActiveLow matches open-drain hall sensors on a pulled-up line:
	// the line idles high and reads low while a magnet is present.
	DefaultActiveLow = true
)

// Pins describes how the sensors are wired.
type Pins struct {
	Chip  string
	Left  int
	Right int
	// ActiveLow is true when the sensor pulls the line low while a magnet
	// is present (open-drain hall sensors).
	ActiveLow bool
}

// Active converts a raw line level into "magnet present".
func Active(raw int, activeLow bool) bool {
	if activeLow {
		return raw == 0
	}
	return raw != 0
}
