package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/emmett/voxnote/internal/app"
	"github.com/emmett/voxnote/internal/audio"
	"github.com/emmett/voxnote/internal/recording"
	"github.com/emmett/voxnote/internal/transcription"
)

type harness struct {
	client  *Client
	conn    *grpc.ClientConn
	orch    *app.Orchestrator
	capture *audio.FakeCapture
}

func newHarness(t *testing.T, capture *audio.FakeCapture) *harness {
	t.Helper()

	opts := app.DefaultOptions()
	opts.PollInterval = 5 * time.Millisecond
	opts.DurationInterval = 10 * time.Millisecond
	orch := app.New(app.Deps{
		Capture: capture,
		Storage: app.DirStorage{Dir: t.TempDir()},
		Logger:  zerolog.Nop(),
	}, opts)

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(Config{}, orch, zerolog.Nop())
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
		_ = orch.Close()
	})
	return &harness{client: NewClient(conn), conn: conn, orch: orch, capture: capture}
}

func ctxT(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestStartStatusStop(t *testing.T) {
	h := newHarness(t, &audio.FakeCapture{})
	ctx := ctxT(t)

	sess, err := h.client.Start(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)

	st, err := h.client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "recording", st.State)
	assert.Equal(t, sess.ID, st.SessionID)

	done, err := h.client.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, done.ID)
	assert.Equal(t, sess.OutputPath, done.OutputPath)
	assert.Equal(t, recording.Completed, h.orch.State().Kind)
}

func TestStateConflictIsFailedPrecondition(t *testing.T) {
	h := newHarness(t, &audio.FakeCapture{})
	ctx := ctxT(t)

	_, err := h.client.Stop(ctx)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = h.client.Start(ctx)
	require.NoError(t, err)
	err = h.client.Pause(ctx)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Equal(t, recording.Recording, h.orch.State().Kind)
}

func TestPauseResume(t *testing.T) {
	h := newHarness(t, &audio.FakeCapture{PauseSupported: true})
	ctx := ctxT(t)

	_, err := h.client.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, h.client.Pause(ctx))
	assert.Equal(t, recording.Paused, h.orch.State().Kind)
	require.NoError(t, h.client.Resume(ctx))
	assert.Equal(t, recording.Recording, h.orch.State().Kind)
}

func TestCaptureFailureIsUnavailable(t *testing.T) {
	h := newHarness(t, &audio.FakeCapture{OpenErr: errors.New("no microphone")})

	_, err := h.client.Start(ctxT(t))
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "no microphone")
}

func TestCancel(t *testing.T) {
	h := newHarness(t, &audio.FakeCapture{})
	ctx := ctxT(t)

	ok, err := h.client.Cancel(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.client.Start(ctx)
	require.NoError(t, err)
	ok, err = h.client.Cancel(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, recording.Idle, h.orch.State().Kind)
}

func TestTranscribeErrors(t *testing.T) {
	h := newHarness(t, &audio.FakeCapture{})
	ctx := ctxT(t)

	_, err := h.client.Transcribe(ctx, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.client.Transcribe(ctx, "/nowhere.wav")
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestWatchEvents(t *testing.T) {
	h := newHarness(t, &audio.FakeCapture{})
	ctx := ctxT(t)

	sess, err := h.client.Start(ctx)
	require.NoError(t, err)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	got := make(chan app.Event, 1)
	go func() {
		_ = h.client.WatchEvents(watchCtx, func(e app.Event) error {
			if e.Type == app.EventDuration {
				got <- e
				return errors.New("done")
			}
			return nil
		})
	}()

	select {
	case e := <-got:
		assert.Equal(t, sess.ID, e.SessionID)
	case <-ctx.Done():
		t.Fatal("no duration event received")
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t, &audio.FakeCapture{})

	resp, err := healthpb.NewHealthClient(h.conn).Check(ctxT(t), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{&recording.StateConflictError{Op: "stop", State: recording.Idle, Err: recording.ErrNothingToStop}, codes.FailedPrecondition},
		{&app.CaptureError{Op: "read", Err: errors.New("x")}, codes.Unavailable},
		{app.ErrClosed, codes.Unavailable},
		{&transcription.Error{Kind: transcription.KindAuth}, codes.Unauthenticated},
		{&transcription.Error{Kind: transcription.KindUnsupported}, codes.Unimplemented},
		{&transcription.Error{Kind: transcription.KindCancelled}, codes.Canceled},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(toStatus(tt.err)), tt.err.Error())
	}
	assert.NoError(t, toStatus(nil))
}
