// Package comlink provides one byte-stream abstraction over a serial line and
// a TCP connection, with bounded blocking and non-blocking read/write.
//
// Callers hold a Transport and do not care which medium is behind it. Every
// blocking call returns within its configured timeout; a timeout is reported
// as a short byte count with a nil error, never as an error of its own.
//
// # Serial Lines
//
// Open a serial line with default configuration (115200 8N1, no flow control,
// 1s timeouts):
//
//	line, err := comlink.NewSerial("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err) // wraps comlink.ErrInvalidConfig
//	}
//	if err := line.Open(); err != nil {
//	    log.Fatal(err) // wraps comlink.ErrOpen
//	}
//	defer line.Close()
//
// Line settings use single-character codes for parity ('e', 'o', 'n') and
// flow control ('h', 's', 'n'), and a stop-bits code (1, 2, or 3 for one and
// a half):
//
//	line, err := comlink.NewSerial("/dev/ttyUSB0",
//	    comlink.WithBaudRate(9600),
//	    comlink.WithParity('e'),
//	    comlink.WithFlowControl('h'),
//	    comlink.WithSerialTimeout(250*time.Millisecond),
//	)
//
// The line is claimed for exclusive use on Open; a second opener gets an
// error wrapping ErrDeviceInUse.
//
// # TCP Sockets
//
// An address selects client mode, an empty address server mode. A server
// accepts exactly one connection within the open timeout and then stops
// listening:
//
//	server, _ := comlink.NewSocket("", 3444, comlink.WithOpenTimeout(10*time.Second))
//	client, _ := comlink.NewSocket("127.0.0.1", 3444)
//
// # Blocking and Non-blocking I/O
//
// Read and Write move the whole buffer or stop at the timeout:
//
//	buf := make([]byte, 4)
//	n, err := t.Read(buf)
//	switch {
//	case err != nil:
//	    // I/O error, the transport may need reopening
//	case n < len(buf):
//	    // timed out after n bytes
//	}
//
// ReadSome and WriteSome never wait. They return 0 when nothing can move
// right now. For serial lines WriteSome returns 0 while any earlier output is
// still queued in the driver.
//
// # Cancellation
//
// Abort may be called from any goroutine. It cuts short the Open, Read or
// Write in progress, which returns what it had transferred so far:
//
//	go func() {
//	    <-ctx.Done()
//	    t.Abort()
//	}()
//
// If the platform refuses to cancel, the resource is closed instead and the
// call returns ErrCancelled.
//
// # Port Discovery
//
// List available serial ports and get USB device metadata:
//
//	ports, err := comlink.ListPorts()
//	for _, portPath := range ports {
//	    info, _ := comlink.GetPortInfo(portPath)
//	    fmt.Printf("%s: %s (VID=%s PID=%s Serial=%s)\n",
//	        info.Path, info.Description, info.VendorID, info.ProductID, info.SerialNumber)
//	}
//
// # Modem Signals
//
//	signals, err := line.ModemSignals()
//	fmt.Printf("CTS=%v DSR=%v DCD=%v RI=%v\n",
//	    signals.CTS, signals.DSR, signals.DCD, signals.RI)
//
//	err = line.SetRTS(true)
//	err = line.SetDTR(false)
//
// # Error Handling
//
// Every error wraps one of ErrInvalidConfig, ErrOpen, ErrIO, ErrCancelled or
// ErrClosed. Use errors.Is() for error type checking:
//
//	if errors.Is(err, comlink.ErrDeviceInUse) {
//	    // another process holds the line
//	}
//
// # Platform Support
//
// Linux only. Serial configuration uses termios ioctls; USB metadata comes
// from sysfs and go.bug.st/serial/enumerator.
package comlink
