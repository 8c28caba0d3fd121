package comlink

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// linePlatform answers the kernel buffer questions the non-blocking serial
// calls depend on. Tests swap it to simulate backpressure.
type linePlatform interface {
	// available reports bytes waiting in the input queue.
	available(fd int) (int, error)
	// pending reports bytes not yet transmitted from the output queue.
	pending(fd int) (int, error)
}

type unixLine struct{}

func (unixLine) available(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCINQ)
}

func (unixLine) pending(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCOUTQ)
}

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	switch rate {
	case 50:
		return unix.B50, nil
	case 75:
		return unix.B75, nil
	case 110:
		return unix.B110, nil
	case 134:
		return unix.B134, nil
	case 150:
		return unix.B150, nil
	case 200:
		return unix.B200, nil
	case 300:
		return unix.B300, nil
	case 600:
		return unix.B600, nil
	case 1200:
		return unix.B1200, nil
	case 1800:
		return unix.B1800, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 500000:
		return unix.B500000, nil
	case 576000:
		return unix.B576000, nil
	case 921600:
		return unix.B921600, nil
	case 1000000:
		return unix.B1000000, nil
	case 1152000:
		return unix.B1152000, nil
	case 1500000:
		return unix.B1500000, nil
	case 2000000:
		return unix.B2000000, nil
	case 2500000:
		return unix.B2500000, nil
	case 3000000:
		return unix.B3000000, nil
	case 3500000:
		return unix.B3500000, nil
	case 4000000:
		return unix.B4000000, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidBaudRate, rate)
	}
}

// withFD runs fn against the descriptor behind f without switching it back
// to blocking mode, which f.Fd() would do.
func withFD(f *os.File, fn func(fd int) error) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	if err := rc.Control(func(fd uintptr) { opErr = fn(int(fd)) }); err != nil {
		return err
	}
	return opErr
}

// claimLine takes the line for this process. The flock comes first so a
// line another process holds is never left in exclusive mode by us.
func claimLine(fd int) error {
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if err == unix.EWOULDBLOCK {
			return ErrDeviceInUse
		}
		return err
	}
	return unix.IoctlSetInt(fd, unix.TIOCEXCL, 0)
}

// releaseLine clears TIOCEXCL, which outlives the descriptor while any other
// holder keeps the tty alive.
func releaseLine(fd int) error {
	return unix.IoctlSetInt(fd, unix.TIOCNXCL, 0)
}

// configureLine puts the line in raw mode with the given framing. Reads are
// VMIN=1/VTIME=0; the descriptor is non-blocking so that never waits.
func configureLine(fd int, c SerialConfig) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}

	termios.Cflag = unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	baudRate, err := getBaudRate(c.BaudRate)
	if err != nil {
		return err
	}
	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | baudRate
	termios.Ispeed = baudRate
	termios.Ospeed = baudRate

	switch c.DataBits {
	case 5:
		termios.Cflag |= unix.CS5
	case 6:
		termios.Cflag |= unix.CS6
	case 7:
		termios.Cflag |= unix.CS7
	default:
		termios.Cflag |= unix.CS8
	}

	switch c.StopBits {
	case StopBitsOne:
	case StopBitsTwo:
		termios.Cflag |= unix.CSTOPB
	default:
		// termios has no encoding for one and a half stop bits
		return fmt.Errorf("%w: %s stop bits", ErrUnsupported, c.StopBits)
	}

	switch c.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		termios.Cflag |= unix.PARENB
	}

	switch c.FlowControl {
	case FlowControlHardware:
		termios.Cflag |= unix.CRTSCTS
	case FlowControlSoftware:
		termios.Iflag |= unix.IXON | unix.IXOFF
	}

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}

	// Assert RTS so the peer may send; some adapters lack manual control.
	if c.FlowControl == FlowControlHardware {
		_ = setModemLine(fd, unix.TIOCM_RTS, true)
	}
	return nil
}

func setModemLine(fd int, bit int, on bool) error {
	if on {
		return unix.IoctlSetInt(fd, unix.TIOCMBIS, bit)
	}
	return unix.IoctlSetInt(fd, unix.TIOCMBIC, bit)
}

func getModemStatus(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCMGET)
}

// rawRead performs exactly one non-blocking read through rc. EAGAIN is
// reported as 0 bytes; a zero-byte read on a non-empty buffer is end of stream.
func rawRead(rc syscall.RawConn, buf []byte) (int, error) {
	var (
		n     int
		opErr error
	)
	err := rc.Read(func(fd uintptr) bool {
		n, opErr = unix.Read(int(fd), buf)
		return true
	})
	if err != nil {
		return 0, err
	}
	return settleRaw(n, opErr, len(buf) > 0)
}

// rawWrite performs exactly one non-blocking write through rc.
func rawWrite(rc syscall.RawConn, buf []byte) (int, error) {
	var (
		n     int
		opErr error
	)
	err := rc.Write(func(fd uintptr) bool {
		n, opErr = unix.Write(int(fd), buf)
		return true
	})
	if err != nil {
		return 0, err
	}
	return settleRaw(n, opErr, false)
}

func settleRaw(n int, err error, eofOnZero bool) (int, error) {
	if n < 0 {
		n = 0
	}
	switch {
	case err == unix.EAGAIN || err == unix.EINTR:
		return 0, nil
	case err != nil:
		return n, os.NewSyscallError("raw", err)
	case n == 0 && eofOnZero:
		return 0, io.EOF
	}
	return n, nil
}
