package shutdown

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/plug-remote/internal/datadog"
)

// ExitFunc is swapped out by tests.
var ExitFunc = os.Exit

// Shutdown flushes metrics and exits non-zero. systemd restarts the node
// service, which gives boot another attempt.
func Shutdown() {
	datadog.Flush()
	log.Info().Msg("Plug remote stopping")
	ExitFunc(1)
}

func ShutdownWithError(err error, msg string) {
	log.Error().Err(err).Msg(msg)
	Shutdown()
}
