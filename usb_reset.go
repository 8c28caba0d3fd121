package comlink

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotUSB              = errors.New("device has no USB bus and device number")
	ErrUSBResetUnavailable = errors.New("usbreset utility not found")
)

// usbresetCommand is resolved through PATH unless it contains a slash.
var usbresetCommand = "usbreset"

// USBResetPath returns the device address usbreset expects, "BBB/DDD".
func (p *PortInfo) USBResetPath() (string, error) {
	bus, err1 := strconv.Atoi(p.BusNumber)
	dev, err2 := strconv.Atoi(p.DeviceNumber)
	if err1 != nil || err2 != nil {
		return "", fmt.Errorf("%s: %w", p.Path, ErrNotUSB)
	}
	return fmt.Sprintf("%03d/%03d", bus, dev), nil
}

// ResetUSB performs a USB-level reset of the adapter behind info, which can
// recover a hung device without unplugging it. It then waits settle for the
// device to re-enumerate; the port path may differ afterwards.
//
// Requires the usbreset utility (usbutils) and usually root.
func ResetUSB(ctx context.Context, info *PortInfo, settle time.Duration) error {
	addr, err := info.USBResetPath()
	if err != nil {
		return err
	}
	bin, err := exec.LookPath(usbresetCommand)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUSBResetUnavailable, err)
	}

	out, err := exec.CommandContext(ctx, bin, addr).CombinedOutput()
	if err != nil {
		return fmt.Errorf("usbreset %s: %w (output: %s)", addr, err, strings.TrimSpace(string(out)))
	}

	timer := time.NewTimer(settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FindPortBySerial returns the port whose USB serial number is serial.
// Useful when port paths move between boots or after a reset.
func FindPortBySerial(serial string) (*PortInfo, error) {
	ports, err := ListPortInfo()
	if err != nil {
		return nil, err
	}
	for _, p := range ports {
		if p.SerialNumber == serial {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: no port with USB serial %s", ErrDeviceNotFound, serial)
}
