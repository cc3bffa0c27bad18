package transcription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNetworkMonitorProbe(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNoContent)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	m := NewNetworkMonitor(srv.URL, time.Hour, time.Second, zerolog.Nop())
	assert.False(t, m.IsNetworkAvailable())

	assert.True(t, m.Probe(context.Background()))
	assert.True(t, m.IsNetworkAvailable())

	status.Store(http.StatusBadGateway)
	assert.False(t, m.Probe(context.Background()))
	assert.False(t, m.IsNetworkAvailable())
}

func TestNetworkMonitorUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m := NewNetworkMonitor(url, time.Hour, 200*time.Millisecond, zerolog.Nop())
	assert.False(t, m.Probe(context.Background()))
}

func TestNetworkMonitorRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewNetworkMonitor(srv.URL, 10*time.Millisecond, time.Second, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	assert.Eventually(t, m.IsNetworkAvailable, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
