package resolver

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/plug-remote/internal/datadog"
	"github.com/thatsimonsguy/plug-remote/internal/model"
)

const (
	FirstHost = 1
	LastHost  = 254

	// the neighbour table is checked every ScanEvery probes, and once more
	// just before the end of the range
	ScanEvery   = 10
	ScanEntries = 10
)

//go:generate mockgen -destination=mock_network.go -package=resolver github.com/thatsimonsguy/plug-remote/internal/resolver Network

// Network is the link-layer side of discovery. Probe is send-only; answers
// show up asynchronously in the neighbour table read through Entry.
type Network interface {
	LocalIPv4() (model.IPv4, error)
	Probe(ip model.IPv4) error
	Entry(i int) (model.HardwareAddr, model.IPv4, bool)
}

type Resolver struct {
	network    Network
	probeDelay time.Duration
	sleep      func(time.Duration)
}

func New(network Network, probeDelay time.Duration) *Resolver {
	return &Resolver{
		network:    network,
		probeDelay: probeDelay,
		sleep:      time.Sleep,
	}
}

// Resolve sweeps the local /24 looking for mac. It returns model.Unresolved
// when the relay never shows up; it never fails otherwise.
func (r *Resolver) Resolve(mac model.HardwareAddr) model.IPv4 {
	start := time.Now()

	own, err := r.network.LocalIPv4()
	if err != nil {
		log.Warn().Err(err).Str("mac", mac.String()).Msg("No local address, cannot probe for relay")
		datadog.Incr("resolver.unresolved", "reason:no_local_address")
		return model.Unresolved
	}

	log.Debug().Str("mac", mac.String()).Str("subnet", own.WithHost(0).String()+"/24").Msg("Probing subnet for relay")

	probes := 0
	for host := FirstHost; host <= LastHost; host++ {
		candidate := own.WithHost(byte(host))
		if err := r.network.Probe(candidate); err != nil {
			log.Debug().Err(err).Str("ip", candidate.String()).Msg("Probe failed")
		}
		probes++
		r.sleep(r.probeDelay)

		if host%ScanEvery != 0 && host != LastHost-1 {
			continue
		}
		if ip, ok := r.scan(mac); ok {
			log.Info().
				Str("mac", mac.String()).
				Str("ip", ip.String()).
				Int("probes", probes).
				Dur("elapsed", time.Since(start)).
				Msg("Resolved relay address")
			datadog.Count("resolver.probes", int64(probes))
			datadog.Timing("resolver.duration", time.Since(start), "result:found")
			return ip
		}
	}

	log.Warn().Str("mac", mac.String()).Int("probes", probes).Msg("Relay not found on local subnet")
	datadog.Count("resolver.probes", int64(probes))
	datadog.Timing("resolver.duration", time.Since(start), "result:not_found")
	datadog.Incr("resolver.unresolved", "reason:not_found")
	return model.Unresolved
}

func (r *Resolver) scan(mac model.HardwareAddr) (model.IPv4, bool) {
	for i := 0; i < ScanEntries; i++ {
		entryMAC, ip, ok := r.network.Entry(i)
		if ok && entryMAC == mac {
			return ip, true
		}
	}
	return model.Unresolved, false
}
