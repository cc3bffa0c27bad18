package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/emmett/voxnote/internal/app"
	"github.com/emmett/voxnote/internal/recording"
	"github.com/emmett/voxnote/internal/transcription"
)

var kindCodes = map[transcription.ErrorKind]codes.Code{
	transcription.KindNetwork:        codes.Unavailable,
	transcription.KindAuth:           codes.Unauthenticated,
	transcription.KindDecode:         codes.DataLoss,
	transcription.KindUnsupported:    codes.Unimplemented,
	transcription.KindNotInitialized: codes.FailedPrecondition,
	transcription.KindCancelled:      codes.Canceled,
	transcription.KindInvalidInput:   codes.InvalidArgument,
	transcription.KindInternal:       codes.Internal,
}

// toStatus maps domain errors to gRPC status codes
func toStatus(err error) error {
	if err == nil {
		return nil
	}

	var te *transcription.Error
	switch {
	case recording.IsStateConflict(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	case app.IsCaptureError(err), errors.Is(err, app.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.As(err, &te):
		code, ok := kindCodes[te.Kind]
		if !ok {
			code = codes.Internal
		}
		return status.Error(code, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func invalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}
