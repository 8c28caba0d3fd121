package comlink

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// Predefined error kinds. Every error returned by a transport wraps one of
// ErrInvalidConfig, ErrOpen, ErrIO, ErrCancelled or ErrClosed.
var (
	ErrInvalidConfig = errors.New("invalid transport configuration")
	ErrOpen          = errors.New("transport open failed")
	ErrIO            = errors.New("transport I/O error")
	ErrCancelled     = errors.New("operation could not be cancelled, transport closed")
	ErrClosed        = errors.New("transport is closed")

	// Open failure causes, wrapped together with ErrOpen
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrUnsupported      = errors.New("setting not supported by platform")

	// Configuration causes, wrapped together with ErrInvalidConfig
	ErrInvalidBaudRate = errors.New("invalid baud rate")
	ErrInvalidAddress  = errors.New("invalid IP address")
	ErrInvalidPort     = errors.New("invalid TCP port")
	ErrInvalidTimeout  = errors.New("invalid timeout value")
)

// configError wraps a configuration cause so both it and ErrInvalidConfig match.
func configError(cause error) error {
	if errors.Is(cause, ErrInvalidConfig) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, cause)
}

// openError converts an open-time failure into an ErrOpen chain with the
// platform errno folded into one of the known causes.
func openError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrOpen, op, classifyOpenError(err))
}

func classifyOpenError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrDeviceNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	case errors.Is(err, unix.EBUSY), errors.Is(err, unix.EWOULDBLOCK):
		return ErrDeviceInUse
	case errors.Is(err, unix.EINVAL), errors.Is(err, unix.ENOTTY):
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}

func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrIO, op, err)
}
