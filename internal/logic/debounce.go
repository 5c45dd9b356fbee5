package logic

import "time"

// Debouncer turns a noisy boolean input into a stable one. A new value is
// accepted only after it has been observed continuously for the debounce
// duration; any change restarts the timer.
type Debouncer struct {
	duration     time.Duration
	stable       bool
	pending      bool
	pendingSince time.Time
}

// NewDebouncer creates a debouncer that starts stable at false.
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{duration: duration}
}

// Update incorporates one raw sample and returns the current stable value.
func (d *Debouncer) Update(raw bool, now time.Time) bool {
	if raw != d.pending {
		d.pending = raw
		d.pendingSince = now
		return d.stable
	}

	if now.Sub(d.pendingSince) >= d.duration {
		d.stable = d.pending
	}
	return d.stable
}

// Stable returns the current stable value without sampling.
func (d *Debouncer) Stable() bool {
	return d.stable
}

// Duration returns the configured debounce duration.
func (d *Debouncer) Duration() time.Duration {
	return d.duration
}
