package comlink

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"
)

// TestDecodeModemStatus tests TIOCMGET bit decoding
func TestDecodeModemStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected ModemSignals
	}{
		{
			name:     "Nothing asserted",
			status:   0,
			expected: ModemSignals{},
		},
		{
			name:     "CTS only",
			status:   unix.TIOCM_CTS,
			expected: ModemSignals{CTS: true},
		},
		{
			name:     "DCD maps from CAR",
			status:   unix.TIOCM_CAR,
			expected: ModemSignals{DCD: true},
		},
		{
			name:     "Outputs",
			status:   unix.TIOCM_RTS | unix.TIOCM_DTR,
			expected: ModemSignals{RTS: true, DTR: true},
		},
		{
			name:   "All signals",
			status: unix.TIOCM_CTS | unix.TIOCM_DSR | unix.TIOCM_RI | unix.TIOCM_CAR | unix.TIOCM_RTS | unix.TIOCM_DTR,
			expected: ModemSignals{
				CTS: true, DSR: true, RI: true, DCD: true, RTS: true, DTR: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := decodeModemStatus(tt.status)
			if result != tt.expected {
				t.Errorf("decodeModemStatus(%#x) = %+v, want %+v", tt.status, result, tt.expected)
			}
		})
	}
}

// TestSignalChanges tests signal change detection
func TestSignalChanges(t *testing.T) {
	tests := []struct {
		name     string
		old      ModemSignals
		next     ModemSignals
		expected SignalMask
	}{
		{
			name:     "No change",
			old:      ModemSignals{CTS: true, DSR: true},
			next:     ModemSignals{CTS: true, DSR: true},
			expected: 0,
		},
		{
			name:     "CTS changed",
			next:     ModemSignals{CTS: true},
			expected: SignalCTS,
		},
		{
			name:     "RI changed",
			next:     ModemSignals{RI: true},
			expected: SignalRI,
		},
		{
			name:     "Multiple signals changed",
			next:     ModemSignals{CTS: true, DSR: true},
			expected: SignalCTS | SignalDSR,
		},
		{
			name:     "Signal went low",
			old:      ModemSignals{DTR: true},
			expected: SignalDTR,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.old.Changed(tt.next)
			if result != tt.expected {
				t.Errorf("Changed() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestSignalMaskString(t *testing.T) {
	tests := []struct {
		mask     SignalMask
		expected string
	}{
		{0, "none"},
		{SignalCTS, "CTS"},
		{SignalCTS | SignalDCD, "CTS|DCD"},
		{SignalAll, "CTS|DSR|RI|DCD|RTS|DTR"},
	}

	for _, tt := range tests {
		if got := tt.mask.String(); got != tt.expected {
			t.Errorf("SignalMask(%d).String() = %q, want %q", int(tt.mask), got, tt.expected)
		}
	}
}

// TestModemSignalsOnClosedPort tests that methods return appropriate errors on closed ports
func TestModemSignalsOnClosedPort(t *testing.T) {
	s, err := NewSerial("/dev/ttyUSB0")
	if err != nil {
		t.Fatalf("NewSerial: %v", err)
	}

	t.Run("ModemSignals", func(t *testing.T) {
		_, err := s.ModemSignals()
		if !errors.Is(err, ErrClosed) {
			t.Errorf("ModemSignals() on closed port error = %v, want %v", err, ErrClosed)
		}
	})

	t.Run("SetRTS", func(t *testing.T) {
		if err := s.SetRTS(true); !errors.Is(err, ErrClosed) {
			t.Errorf("SetRTS() on closed port error = %v, want %v", err, ErrClosed)
		}
	})

	t.Run("SetDTR", func(t *testing.T) {
		if err := s.SetDTR(false); !errors.Is(err, ErrClosed) {
			t.Errorf("SetDTR() on closed port error = %v, want %v", err, ErrClosed)
		}
	})

	t.Run("Drain", func(t *testing.T) {
		if err := s.Drain(); !errors.Is(err, ErrClosed) {
			t.Errorf("Drain() on closed port error = %v, want %v", err, ErrClosed)
		}
	})
}
