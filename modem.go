package comlink

import (
	"strings"

	"golang.org/x/sys/unix"
)

// ModemSignals represents modem control signal states
type ModemSignals struct {
	CTS bool // Clear To Send
	DSR bool // Data Set Ready
	RI  bool // Ring Indicator
	DCD bool // Data Carrier Detect
	RTS bool // Request To Send
	DTR bool // Data Terminal Ready
}

// SignalMask identifies a set of modem signals
type SignalMask int

const (
	SignalCTS SignalMask = 1 << iota
	SignalDSR
	SignalRI
	SignalDCD
	SignalRTS
	SignalDTR
)

// SignalAll selects every signal ModemSignals carries.
const SignalAll = SignalCTS | SignalDSR | SignalRI | SignalDCD | SignalRTS | SignalDTR

var signalNames = []struct {
	mask SignalMask
	name string
}{
	{SignalCTS, "CTS"},
	{SignalDSR, "DSR"},
	{SignalRI, "RI"},
	{SignalDCD, "DCD"},
	{SignalRTS, "RTS"},
	{SignalDTR, "DTR"},
}

func (m SignalMask) String() string {
	if m == 0 {
		return "none"
	}
	var names []string
	for _, s := range signalNames {
		if m&s.mask != 0 {
			names = append(names, s.name)
		}
	}
	return strings.Join(names, "|")
}

// decodeModemStatus converts TIOCMGET bits into ModemSignals
func decodeModemStatus(status int) ModemSignals {
	return ModemSignals{
		CTS: status&unix.TIOCM_CTS != 0,
		DSR: status&unix.TIOCM_DSR != 0,
		RI:  status&unix.TIOCM_RI != 0,
		DCD: status&unix.TIOCM_CAR != 0,
		RTS: status&unix.TIOCM_RTS != 0,
		DTR: status&unix.TIOCM_DTR != 0,
	}
}

// Mask returns the set of asserted signals
func (s ModemSignals) Mask() SignalMask {
	var m SignalMask
	for sig, on := range map[SignalMask]bool{
		SignalCTS: s.CTS, SignalDSR: s.DSR, SignalRI: s.RI,
		SignalDCD: s.DCD, SignalRTS: s.RTS, SignalDTR: s.DTR,
	} {
		if on {
			m |= sig
		}
	}
	return m
}

// Changed reports which signals differ between s and next
func (s ModemSignals) Changed(next ModemSignals) SignalMask {
	return s.Mask() ^ next.Mask()
}
