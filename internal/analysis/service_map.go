package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"fwpanel/internal/models"

	"github.com/google/gopacket/layers"
)

var commonPorts = map[int]string{
	20:   "FTP-DATA",
	21:   "FTP",
	22:   "SSH",
	23:   "Telnet",
	25:   "SMTP",
	53:   "DNS",
	80:   "HTTP",
	110:  "POP3",
	143:  "IMAP",
	443:  "HTTPS",
	3306: "MySQL",
	5432: "PostgreSQL",
	6379: "Redis",
	8080: "HTTP-Alt",
}

// GetServiceName returns the common name for a port, falling back to the
// IANA names gopacket ships, or the port number as a string.
func GetServiceName(port int) string {
	if name, ok := commonPorts[port]; ok {
		return name
	}
	if port > 0 && port <= 65535 {
		if name, ok := layers.TCPPortNames[layers.TCPPort(port)]; ok {
			return strings.ToUpper(name)
		}
		if name, ok := layers.UDPPortNames[layers.UDPPort(port)]; ok {
			return strings.ToUpper(name)
		}
	}
	return strconv.Itoa(port)
}

// PortLabel renders a port cell, e.g. "443 (HTTPS)". Values that are not
// whole numbers are shown as sent.
func PortLabel(v models.Value) string {
	port, ok := v.Int()
	if !ok {
		return v.String()
	}
	name := GetServiceName(port)
	if name == strconv.Itoa(port) {
		return name
	}
	return fmt.Sprintf("%d (%s)", port, name)
}
