package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/plug-remote/internal/datadog"
	"github.com/thatsimonsguy/plug-remote/internal/model"
)

// Transport delivers one command to a relay and reports the HTTP status.
type Transport interface {
	SendCommand(ctx context.Context, addr model.IPv4, path string, body []byte) (int, error)
}

// ToggleRequest is the body of a Switch.Toggle RPC.
type ToggleRequest struct {
	ID int `json:"id"`
}

type HTTPTransport struct {
	client *http.Client
	port   int
}

func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{Timeout: timeout},
		port:   80,
	}
}

func (t *HTTPTransport) SendCommand(ctx context.Context, addr model.IPv4, path string, body []byte) (int, error) {
	host := addr.String()
	if t.port != 80 {
		host = net.JoinHostPort(host, strconv.Itoa(t.port))
	}
	url := fmt.Sprintf("http://%s%s", host, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send command: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// Dispatcher sends toggle commands. Outcomes are logged and never returned:
// a missed toggle is fixed by pressing again.
type Dispatcher struct {
	transport Transport
	path      string
	body      []byte
	settle    time.Duration
	sleep     func(time.Duration)
}

func New(transport Transport, path string, switchID int, settle time.Duration) *Dispatcher {
	body, _ := json.Marshal(ToggleRequest{ID: switchID})
	return &Dispatcher{
		transport: transport,
		path:      path,
		body:      body,
		settle:    settle,
		sleep:     time.Sleep,
	}
}

// Toggle flips the relay at addr, then waits out the settle delay. addr
// must be resolved; the sentinel is not rejected here.
func (d *Dispatcher) Toggle(addr model.IPv4) {
	start := time.Now()
	status, err := d.transport.SendCommand(context.Background(), addr, d.path, d.body)

	switch {
	case err != nil:
		log.Error().Err(err).Str("ip", addr.String()).Msg("Toggle request failed")
		datadog.Incr("dispatcher.toggle", "result:transport_error")
	case status < 200 || status >= 300:
		log.Error().Int("status", status).Str("ip", addr.String()).Msg("Relay rejected toggle")
		datadog.Incr("dispatcher.toggle", "result:rejected")
	default:
		log.Info().
			Int("status", status).
			Str("ip", addr.String()).
			Dur("elapsed", time.Since(start)).
			Msg("Toggled relay")
		datadog.Incr("dispatcher.toggle", "result:ok")
	}

	d.sleep(d.settle)
}
