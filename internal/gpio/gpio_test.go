package gpio

import "testing"

func TestActive(t *testing.T) {
	tests := []struct {
		name      string
		raw       int
		activeLow bool
		want      bool
	}{
		{"active-low idle high", 1, true, false},
		{"active-low magnet pulls low", 0, true, true},
		{"active-high idle low", 0, false, false},
		{"active-high magnet drives high", 1, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Active(tt.raw, tt.activeLow); got != tt.want {
				t.Errorf("Active(%d, %v): got %v, want %v", tt.raw, tt.activeLow, got, tt.want)
			}
		})
	}
}

func TestDefaultPolarityIdleLineIsInactive(t *testing.T) {
	// With the default pull-up wiring an idle line reads 1.
	if Active(1, DefaultActiveLow) {
		t.Error("idle pulled-up line must not read as magnet present")
	}
}
