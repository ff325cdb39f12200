package netinfo

import (
	"fmt"
	"net"

	"github.com/jackpal/gateway"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/plug-remote/internal/model"
)

var (
	discoverInterface = gateway.DiscoverInterface
	interfaceAddrs    = func(name string) ([]net.Addr, error) {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return nil, err
		}
		return iface.Addrs()
	}
)

// LocalIPv4 returns the node's own address on the named interface, falling
// back to the interface that carries the default gateway.
func LocalIPv4(ifaceName string) (model.IPv4, error) {
	if ifaceName != "" {
		addrs, err := interfaceAddrs(ifaceName)
		if err != nil {
			log.Debug().Err(err).Str("interface", ifaceName).Msg("Could not list interface addresses, falling back to gateway discovery")
		}
		for _, a := range addrs {
			ip, _, err := net.ParseCIDR(a.String())
			if err != nil {
				continue
			}
			if addr, ok := model.IPv4FromIP(ip); ok && !ip.IsLoopback() {
				return addr, nil
			}
		}
	}

	ip, err := discoverInterface()
	if err != nil {
		return model.Unresolved, fmt.Errorf("discover local interface: %w", err)
	}
	addr, ok := model.IPv4FromIP(ip)
	if !ok {
		return model.Unresolved, fmt.Errorf("local interface address %s is not IPv4", ip)
	}
	return addr, nil
}
