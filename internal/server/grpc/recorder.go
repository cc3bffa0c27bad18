package grpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/emmett/voxnote/internal/app"
	"github.com/emmett/voxnote/internal/output"
	"github.com/emmett/voxnote/internal/recording"
)

// ServiceName is the fully qualified recorder service
const ServiceName = "voxnote.v1.Recorder"

// Recorder is the orchestrator surface exposed over gRPC
type Recorder interface {
	Start(ctx context.Context) (recording.Session, error)
	Stop() (recording.Session, error)
	Pause() error
	Resume() error
	Cancel() (recording.Session, bool)
	Status() app.Status
	Transcribe(ctx context.Context, path string) (output.Note, error)
	Bus() *app.Bus
}

// RecorderServer is implemented by RecorderService
type RecorderServer interface {
	Start(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Stop(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Pause(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Resume(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Cancel(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Transcribe(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchEvents(*emptypb.Empty, grpc.ServerStream) error
}

// RecorderService adapts a Recorder to RecorderServer. Requests and
// replies are google.protobuf.Struct documents carrying the JSON form of
// sessions, status and notes.
type RecorderService struct {
	rec Recorder
}

// NewRecorderService creates the service
func NewRecorderService(rec Recorder) *RecorderService {
	return &RecorderService{rec: rec}
}

func (s *RecorderService) Start(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	sess, err := s.rec.Start(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(sess)
}

func (s *RecorderService) Stop(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	sess, err := s.rec.Stop()
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(sess)
}

func (s *RecorderService) Pause(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.rec.Pause(); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *RecorderService) Resume(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.rec.Resume(); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *RecorderService) Cancel(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	sess, ok := s.rec.Cancel()
	return structpb.NewStruct(map[string]any{
		"cancelled":  ok,
		"session_id": sess.ID,
	})
}

func (s *RecorderService) Status(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.rec.Status())
}

// Transcribe expects {"path": "..."}
func (s *RecorderService) Transcribe(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path := req.GetFields()["path"].GetStringValue()
	if path == "" {
		return nil, invalidArgument("path is required")
	}
	note, err := s.rec.Transcribe(ctx, path)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(note)
}

// WatchEvents streams bus events until the client goes away or the
// recorder closes
func (s *RecorderService) WatchEvents(_ *emptypb.Empty, stream grpc.ServerStream) error {
	events, unsubscribe := s.rec.Bus().Subscribe(256)
	defer unsubscribe()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			msg, err := toStruct(e)
			if err != nil {
				return err
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

// toStruct converts v through its JSON form
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reply: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to encode reply: %w", err)
	}
	return out, nil
}

// fromStruct decodes a reply into v through its JSON form
func fromStruct(s *structpb.Struct, v any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to decode reply: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode reply: %w", err)
	}
	return nil
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unaryEmpty(name string, call func(RecorderServer, context.Context, *emptypb.Empty) (proto.Message, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(emptypb.Empty)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RecorderServer), ctx, req.(*emptypb.Empty))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}, handler)
		},
	}
}

func unaryStruct(name string, call func(RecorderServer, context.Context, *structpb.Struct) (proto.Message, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RecorderServer), ctx, req.(*structpb.Struct))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}, handler)
		},
	}
}

// reply keeps a typed nil from turning into a non-nil proto.Message
func reply[T proto.Message](m T, err error) (proto.Message, error) {
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecorderServiceDesc describes the recorder service without generated code
var RecorderServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecorderServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryEmpty("Start", func(s RecorderServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return reply(s.Start(ctx, in))
		}),
		unaryEmpty("Stop", func(s RecorderServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return reply(s.Stop(ctx, in))
		}),
		unaryEmpty("Pause", func(s RecorderServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return reply(s.Pause(ctx, in))
		}),
		unaryEmpty("Resume", func(s RecorderServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return reply(s.Resume(ctx, in))
		}),
		unaryEmpty("Cancel", func(s RecorderServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return reply(s.Cancel(ctx, in))
		}),
		unaryEmpty("Status", func(s RecorderServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return reply(s.Status(ctx, in))
		}),
		unaryStruct("Transcribe", func(s RecorderServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
			return reply(s.Transcribe(ctx, in))
		}),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName: "WatchEvents",
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(emptypb.Empty)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(RecorderServer).WatchEvents(in, stream)
			},
			ServerStreams: true,
		},
	},
	Metadata: "voxnote/v1/recorder.proto",
}

// RegisterRecorderServer registers srv on s
func RegisterRecorderServer(s grpc.ServiceRegistrar, srv RecorderServer) {
	s.RegisterService(&RecorderServiceDesc, srv)
}
