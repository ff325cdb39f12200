package datadog

import (
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/plug-remote/internal/config"
)

var dogstatsd *statsd.Client

func InitMetrics(cfg *config.Config) {
	if !cfg.EnableDatadog {
		log.Debug().Msg("Datadog metrics disabled")
		return
	}

	var err error
	dogstatsd, err = statsd.New(cfg.DDAgentAddr)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create DogStatsD client")
		return
	}

	dogstatsd.Namespace = cfg.DDNamespace
	dogstatsd.Tags = cfg.DDTags

	log.Info().
		Str("addr", cfg.DDAgentAddr).
		Str("namespace", cfg.DDNamespace).
		Strs("tags", cfg.DDTags).
		Msg("Datadog metrics initialized")
}

func Gauge(name string, value float64, tags ...string) {
	if dogstatsd != nil {
		err := dogstatsd.Gauge(name, value, tags, 1)
		warn(err, name)
	}
}

func Incr(name string, tags ...string) {
	if dogstatsd != nil {
		err := dogstatsd.Incr(name, tags, 1)
		warn(err, name)
	}
}

func Count(name string, value int64, tags ...string) {
	if dogstatsd != nil {
		err := dogstatsd.Count(name, value, tags, 1)
		warn(err, name)
	}
}

func Timing(name string, d time.Duration, tags ...string) {
	if dogstatsd != nil {
		err := dogstatsd.Timing(name, d, tags, 1)
		warn(err, name)
	}
}

// Flush pushes buffered metrics out before the network goes away.
func Flush() {
	if dogstatsd != nil {
		if err := dogstatsd.Flush(); err != nil {
			log.Debug().Err(err).Msg("Failed to flush metrics")
		}
	}
}

func warn(err error, name string) {
	if err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("Failed to emit metric")
	}
}
