package model

import (
	"fmt"
	"net"
	"time"
)

// HardwareAddr is the link-layer address of a relay.
type HardwareAddr [6]byte

func ParseHardwareAddr(s string) (HardwareAddr, error) {
	var h HardwareAddr
	mac, err := net.ParseMAC(s)
	if err != nil {
		return h, fmt.Errorf("parse mac %q: %w", s, err)
	}
	if len(mac) != len(h) {
		return h, fmt.Errorf("mac %q is not a 6-octet address", s)
	}
	copy(h[:], mac)
	return h, nil
}

func (h HardwareAddr) String() string {
	return net.HardwareAddr(h[:]).String()
}

// IPv4 is a packed address, first octet in the most significant byte.
type IPv4 uint32

// Unresolved marks a slot whose relay could not be found.
const Unresolved IPv4 = 0xFFFFFFFF

func IPv4FromOctets(a, b, c, d byte) IPv4 {
	return IPv4(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d))
}

func IPv4FromIP(ip net.IP) (IPv4, bool) {
	v4 := ip.To4()
	if v4 == nil {
		return Unresolved, false
	}
	return IPv4FromOctets(v4[0], v4[1], v4[2], v4[3]), true
}

func ParseIPv4(s string) (IPv4, error) {
	addr, ok := IPv4FromIP(net.ParseIP(s))
	if !ok {
		return Unresolved, fmt.Errorf("%q is not an IPv4 address", s)
	}
	return addr, nil
}

func (ip IPv4) Octets() [4]byte {
	return [4]byte{byte(ip >> 24), byte(ip >> 16), byte(ip >> 8), byte(ip)}
}

func (ip IPv4) IP() net.IP {
	o := ip.Octets()
	return net.IPv4(o[0], o[1], o[2], o[3])
}

func (ip IPv4) String() string {
	o := ip.Octets()
	return fmt.Sprintf("%d.%d.%d.%d", o[0], o[1], o[2], o[3])
}

func (ip IPv4) Resolved() bool {
	return ip != Unresolved
}

// WithHost keeps the /24 network of ip and replaces the host octet.
func (ip IPv4) WithHost(host byte) IPv4 {
	return ip&0xFFFFFF00 | IPv4(host)
}

// Slot is one of the two relay identities. Its value doubles as the
// persistent store key.
type Slot string

const (
	SlotA Slot = "ip1"
	SlotB Slot = "ip2"
)

var Slots = []Slot{SlotA, SlotB}

func (s Slot) Label() string {
	switch s {
	case SlotA:
		return "plug A"
	case SlotB:
		return "plug B"
	default:
		return string(s)
	}
}

type GPIOPin struct {
	Number     int
	ActiveHigh bool
}

// Plug ties a slot to the relay it controls and the button that drives it.
type Plug struct {
	Slot   Slot
	MAC    HardwareAddr
	Button GPIOPin
}

type AddressRecord struct {
	Slot      Slot
	Address   IPv4
	UpdatedAt time.Time
}
