/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// parseHex converts hex text to bytes. Whitespace, 0x prefixes and
// separators like ':' or ',' are ignored:
//
//	"48 65 6C 6C 6F", "48656c6c6f", "0x48,0x65"
func parseHex(s string) ([]byte, error) {
	clean := strings.NewReplacer("0x", "", "0X", "", ":", "", ",", "").Replace(s)
	clean = strings.Join(strings.Fields(clean), "")
	if clean == "" {
		return nil, fmt.Errorf("empty input")
	}
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even number of digits (got %d)", len(clean))
	}
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return data, nil
}

// preview renders up to limit bytes for display, replacing anything
// unprintable.
func preview(data []byte, limit int) string {
	suffix := ""
	if len(data) > limit {
		data = data[:limit]
		suffix = "..."
	}
	return strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return '·'
		}
		return r
	}, string(data)) + suffix
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}

func parseSignalState(state string) (bool, error) {
	switch strings.ToLower(state) {
	case "high", "on", "true", "1":
		return true, nil
	case "low", "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state: %s (valid: high, low, on, off, true, false, 1, 0)", state)
	}
}
