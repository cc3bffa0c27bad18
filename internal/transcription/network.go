package transcription

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// NetworkMonitor caches the result of a periodic HTTP probe so that
// IsNetworkAvailable is a single atomic load
type NetworkMonitor struct {
	client    *resty.Client
	url       string
	interval  time.Duration
	available atomic.Bool
	logger    zerolog.Logger
}

// NewNetworkMonitor probes url every interval with the given per-request timeout
func NewNetworkMonitor(url string, interval, timeout time.Duration, logger zerolog.Logger) *NetworkMonitor {
	return &NetworkMonitor{
		client:   resty.New().SetTimeout(timeout),
		url:      url,
		interval: interval,
		logger:   logger,
	}
}

func (n *NetworkMonitor) IsNetworkAvailable() bool {
	return n.available.Load()
}

// Probe checks reachability once and updates the cached value. Any HTTP
// response below 500 counts as reachable.
func (n *NetworkMonitor) Probe(ctx context.Context) bool {
	up := false
	resp, err := n.client.R().SetContext(ctx).Head(n.url)
	if err == nil && resp.StatusCode() < 500 {
		up = true
	}

	if prev := n.available.Swap(up); prev != up {
		event := n.logger.Info().Bool("available", up).Str("url", n.url)
		if err != nil {
			event = event.Err(err)
		}
		event.Msg("network availability changed")
	}
	return up
}

// Run probes immediately and then on every tick until ctx is done
func (n *NetworkMonitor) Run(ctx context.Context) error {
	n.Probe(ctx)

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n.Probe(ctx)
		}
	}
}
