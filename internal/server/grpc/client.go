package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/emmett/voxnote/internal/app"
	"github.com/emmett/voxnote/internal/output"
	"github.com/emmett/voxnote/internal/recording"
)

// Client calls a remote recorder
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) session(ctx context.Context, method string) (recording.Session, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), &emptypb.Empty{}, out); err != nil {
		return recording.Session{}, err
	}
	var s recording.Session
	err := fromStruct(out, &s)
	return s, err
}

// Start begins a remote session
func (c *Client) Start(ctx context.Context) (recording.Session, error) {
	return c.session(ctx, "Start")
}

// Stop finishes the remote session
func (c *Client) Stop(ctx context.Context) (recording.Session, error) {
	return c.session(ctx, "Stop")
}

// Pause suspends the remote session
func (c *Client) Pause(ctx context.Context) error {
	return c.cc.Invoke(ctx, fullMethod("Pause"), &emptypb.Empty{}, new(emptypb.Empty))
}

// Resume continues the remote session
func (c *Client) Resume(ctx context.Context) error {
	return c.cc.Invoke(ctx, fullMethod("Resume"), &emptypb.Empty{}, new(emptypb.Empty))
}

// Cancel abandons the remote session and reports whether one existed
func (c *Client) Cancel(ctx context.Context) (bool, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("Cancel"), &emptypb.Empty{}, out); err != nil {
		return false, err
	}
	return out.GetFields()["cancelled"].GetBoolValue(), nil
}

// Status returns the remote recorder status
func (c *Client) Status(ctx context.Context) (app.Status, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("Status"), &emptypb.Empty{}, out); err != nil {
		return app.Status{}, err
	}
	var st app.Status
	err := fromStruct(out, &st)
	return st, err
}

// Transcribe transcribes a file on the server's filesystem
func (c *Client) Transcribe(ctx context.Context, path string) (output.Note, error) {
	in, err := structpb.NewStruct(map[string]any{"path": path})
	if err != nil {
		return output.Note{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("Transcribe"), in, out); err != nil {
		return output.Note{}, err
	}
	var n output.Note
	err = fromStruct(out, &n)
	return n, err
}

// WatchEvents calls fn for each event until ctx is done, the server ends
// the stream or fn returns an error
func (c *Client) WatchEvents(ctx context.Context, fn func(app.Event) error) error {
	stream, err := c.cc.NewStream(ctx, &RecorderServiceDesc.Streams[0], fullMethod("WatchEvents"))
	if err != nil {
		return fmt.Errorf("failed to open event stream: %w", err)
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			return err
		}
		var e app.Event
		if err := fromStruct(msg, &e); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}
