// Package arp drives the kernel's address-resolution machinery: probes make
// the kernel ARP for a host, and the neighbour table exposes what it learned.
package arp

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/plug-remote/internal/model"
	"github.com/thatsimonsguy/plug-remote/internal/netinfo"
)

const (
	procNetARP = "/proc/net/arp"

	// discard service; the datagram only exists to make the kernel resolve the host
	probePort = 9

	flagComplete = 0x2
)

type Neighbor struct {
	IP     model.IPv4
	MAC    model.HardwareAddr
	Device string
}

// Table implements the resolver's network collaborator on Linux.
type Table struct {
	iface    string
	path     string
	dialer   net.Dialer
	localIP  func(string) (model.IPv4, error)
	openFile func(string) (io.ReadCloser, error)

	// neighbours read on the last Entry(0), shared by the rest of that scan
	snapshot []Neighbor
}

func NewTable(iface string) *Table {
	return &Table{
		iface:   iface,
		path:    procNetARP,
		dialer:  net.Dialer{Timeout: 100 * time.Millisecond},
		localIP: netinfo.LocalIPv4,
		openFile: func(p string) (io.ReadCloser, error) {
			return os.Open(p)
		},
	}
}

func (t *Table) LocalIPv4() (model.IPv4, error) {
	return t.localIP(t.iface)
}

// Probe sends a single empty datagram to ip. Whether anything answers is
// irrelevant; the send forces an ARP request for ip onto the wire.
func (t *Table) Probe(ip model.IPv4) error {
	conn, err := t.dialer.Dial("udp4", net.JoinHostPort(ip.String(), strconv.Itoa(probePort)))
	if err != nil {
		return fmt.Errorf("dial probe %s: %w", ip, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte{0}); err != nil {
		return fmt.Errorf("send probe %s: %w", ip, err)
	}
	return nil
}

// Entry returns the i-th complete neighbour on the table's interface. The
// table is read once at index 0 and later indices come from that read.
func (t *Table) Entry(i int) (model.HardwareAddr, model.IPv4, bool) {
	if i == 0 || t.snapshot == nil {
		neighbors, err := t.Neighbors()
		if err != nil {
			log.Debug().Err(err).Msg("Failed to read neighbour table")
			neighbors = []Neighbor{}
		}
		t.snapshot = neighbors
	}
	if i < 0 || i >= len(t.snapshot) {
		return model.HardwareAddr{}, model.Unresolved, false
	}
	n := t.snapshot[i]
	return n.MAC, n.IP, true
}

func (t *Table) Neighbors() ([]Neighbor, error) {
	f, err := t.openFile(t.path)
	if err != nil {
		return nil, fmt.Errorf("open neighbour table: %w", err)
	}
	defer f.Close()
	return parseTable(f, t.iface)
}

// parseTable reads /proc/net/arp, keeping complete entries on iface (any
// interface when iface is empty).
//
//	IP address       HW type     Flags       HW address            Mask     Device
//	192.168.1.1      0x1         0x2         8c:bf:ea:a4:a0:b0     *        wlan0
func parseTable(r io.Reader, iface string) ([]Neighbor, error) {
	var neighbors []Neighbor
	scanner := bufio.NewScanner(r)
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 {
			continue
		}

		flags, err := strconv.ParseUint(strings.TrimPrefix(fields[2], "0x"), 16, 32)
		if err != nil || flags&flagComplete == 0 {
			continue
		}
		if iface != "" && fields[5] != iface {
			continue
		}
		ip, err := model.ParseIPv4(fields[0])
		if err != nil {
			continue
		}
		mac, err := model.ParseHardwareAddr(fields[3])
		if err != nil {
			continue
		}
		neighbors = append(neighbors, Neighbor{IP: ip, MAC: mac, Device: fields[5]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan neighbour table: %w", err)
	}
	return neighbors, nil
}
