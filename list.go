package comlink

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// sysfsRoot is where USB metadata for tty devices is read from
var sysfsRoot = "/sys"

var (
	// Serial device name patterns
	portPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
		regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
		regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
		regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
		regexp.MustCompile(`^ttymxc\d+$`), // i.MX serial ports
		regexp.MustCompile(`^ttyO\d+$`),   // OMAP serial ports
		regexp.MustCompile(`^ttySAC\d+$`), // Samsung serial ports
		regexp.MustCompile(`^ttyTHS\d+$`), // Tegra serial ports
	}

	// Virtual terminals and other non-serial devices
	excludePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^tty\d+$`),
		regexp.MustCompile(`^console$`),
		regexp.MustCompile(`^ptmx$`),
		regexp.MustCompile(`^pty.*$`),
		regexp.MustCompile(`^pts/.*$`),
	}
)

// ListPorts returns the serial ports present on the system, sorted by path.
// Devices found by name in /dev are merged with those the USB enumerator
// reports, so adapters with unusual driver names are included too.
func ListPorts() ([]string, error) {
	entries, err := os.ReadDir("/dev")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var ports []string
	add := func(path string) {
		if !seen[path] && isCharacterDevice(path) {
			seen[path] = true
			ports = append(ports, path)
		}
	}

	for _, entry := range entries {
		if isSerialName(entry.Name()) {
			add(filepath.Join("/dev", entry.Name()))
		}
	}
	for path := range usbDetails() {
		add(path)
	}

	sort.Strings(ports)
	return ports, nil
}

func isSerialName(name string) bool {
	for _, p := range excludePatterns {
		if p.MatchString(name) {
			return false
		}
	}
	for _, p := range portPatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// PortInfo describes one serial port and, for USB adapters, its device
type PortInfo struct {
	Name         string
	Path         string
	Description  string
	VendorID     string
	ProductID    string
	SerialNumber string
	Manufacturer string
	Product      string

	InterfaceNumber string
	BusNumber       string
	DeviceNumber    string
}

// IsUSB reports whether USB metadata was found for the port
func (p *PortInfo) IsUSB() bool {
	return p.VendorID != "" || p.ProductID != ""
}

// GetPortInfo returns detailed information about a specific port
func GetPortInfo(portPath string) (*PortInfo, error) {
	return portInfo(portPath, usbDetails())
}

// ListPortInfo returns GetPortInfo for every port ListPorts finds
func ListPortInfo() ([]*PortInfo, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}
	details := usbDetails()
	infos := make([]*PortInfo, 0, len(ports))
	for _, path := range ports {
		info, err := portInfo(path, details)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func portInfo(portPath string, details map[string]*enumerator.PortDetails) (*PortInfo, error) {
	if !isCharacterDevice(portPath) {
		return nil, ErrDeviceNotFound
	}

	name := filepath.Base(portPath)
	info := &PortInfo{
		Name:        name,
		Path:        portPath,
		Description: getPortDescription(name),
	}

	enrichUSBInfo(info)
	if d, ok := details[portPath]; ok && d.IsUSB {
		mergeEnumerated(info, d)
	}
	return info, nil
}

// getPortDescription provides human-readable descriptions for different port types
func getPortDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}

// enrichUSBInfo reads USB metadata from sysfs. The tty's device link points
// at the USB interface (cdc-acm) or at a port node below it (usb-serial);
// the interface's parent is the USB device.
func enrichUSBInfo(info *PortInfo) {
	devicePath := filepath.Join(sysfsRoot, "class", "tty", info.Name, "device")
	resolved, err := filepath.EvalSymlinks(devicePath)
	if err != nil {
		return
	}

	interfacePath := resolved
	if _, err := os.Stat(filepath.Join(resolved, "bInterfaceNumber")); err != nil {
		interfacePath = filepath.Dir(resolved)
	}

	info.InterfaceNumber = readSysfsFile(filepath.Join(interfacePath, "bInterfaceNumber"))

	usbDevicePath := filepath.Dir(interfacePath)
	info.VendorID = readSysfsFile(filepath.Join(usbDevicePath, "idVendor"))
	info.ProductID = readSysfsFile(filepath.Join(usbDevicePath, "idProduct"))
	info.SerialNumber = readSysfsFile(filepath.Join(usbDevicePath, "serial"))
	info.Manufacturer = readSysfsFile(filepath.Join(usbDevicePath, "manufacturer"))
	info.Product = readSysfsFile(filepath.Join(usbDevicePath, "product"))
	info.BusNumber = readSysfsFile(filepath.Join(usbDevicePath, "busnum"))
	info.DeviceNumber = readSysfsFile(filepath.Join(usbDevicePath, "devnum"))
}

// mergeEnumerated fills fields sysfs left empty from the enumerator's view
func mergeEnumerated(info *PortInfo, d *enumerator.PortDetails) {
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = strings.ToLower(v)
		}
	}
	fill(&info.VendorID, d.VID)
	fill(&info.ProductID, d.PID)
	if info.SerialNumber == "" {
		info.SerialNumber = d.SerialNumber
	}
	if info.Product == "" {
		info.Product = d.Product
	}
}

// usbDetails indexes the enumerator's port list by device path. Enumeration
// failures yield an empty index; sysfs data still applies.
func usbDetails() map[string]*enumerator.PortDetails {
	list, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil
	}
	details := make(map[string]*enumerator.PortDetails, len(list))
	for _, d := range list {
		details[d.Name] = d
	}
	return details
}

func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
