package reader

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/patiponrmutl/ScanAttendance/apperr"
)

// Port is the part of a serial port the session needs.
type Port interface {
	io.ReadCloser
	SetReadTimeout(t time.Duration) error
}

// Opener opens a port by name at a baud rate.
type Opener func(name string, baud int) (Port, error)

// SerialOpener opens a real serial port, 8N1.
func SerialOpener(name string, baud int) (Port, error) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePeripheralUnavailable, fmt.Sprintf("open %s", name), err)
	}
	return p, nil
}

type PortInfo struct {
	Name    string `json:"name"`
	Product string `json:"product"`
	IsUSB   bool   `json:"is_usb"`
	VID     string `json:"vid,omitempty"`
	PID     string `json:"pid,omitempty"`
}

// ListPorts enumerates the serial ports present on this machine.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePeripheralUnavailable, "list serial ports", err)
	}
	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		out = append(out, PortInfo{Name: d.Name, Product: d.Product, IsUSB: d.IsUSB, VID: d.VID, PID: d.PID})
	}
	return out, nil
}

// DetectPort prefers a port whose description contains one of keywords,
// case-insensitively, then falls back to the first port.
func DetectPort(ports []PortInfo, keywords []string) (string, error) {
	if len(ports) == 0 {
		return "", apperr.New(apperr.CodePeripheralUnavailable, "no serial ports found, choose a port manually")
	}
	for _, p := range ports {
		desc := strings.ToLower(p.Product + " " + p.Name)
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(desc, kw) {
				return p.Name, nil
			}
		}
	}
	return ports[0].Name, nil
}

// AutoDetect lists the ports and picks one with DetectPort.
func AutoDetect(keywords []string) (string, error) {
	ports, err := ListPorts()
	if err != nil {
		return "", err
	}
	return DetectPort(ports, keywords)
}
