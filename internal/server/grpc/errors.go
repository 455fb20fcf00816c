package grpc

import (
	"context"
	"errors"
	"net/http"

	"github.com/anbuneel/zenote-sub001/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var httpCodes = map[int]codes.Code{
	http.StatusBadRequest:         codes.InvalidArgument,
	http.StatusUnauthorized:       codes.Unauthenticated,
	http.StatusForbidden:          codes.PermissionDenied,
	http.StatusNotFound:           codes.NotFound,
	http.StatusConflict:           codes.AlreadyExists,
	http.StatusPreconditionFailed: codes.FailedPrecondition,
	http.StatusTooManyRequests:    codes.ResourceExhausted,
}

// toStatus converts a store error into the status the client maps back
// into the error taxonomy. Unexpected errors are logged and hidden.
func (s *GRPCServer) toStatus(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}

	var (
		ve *common.ValidationError
		rl *common.RateLimitError
		ce *common.ClientError
	)
	switch {
	case errors.Is(err, common.ErrShareUnavailable):
		return status.Error(codes.NotFound, common.ErrShareUnavailable.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, ve.Error())
	case errors.As(err, &rl):
		return status.Error(codes.ResourceExhausted, message(rl.Message, rl))
	case errors.As(err, &ce):
		code, ok := httpCodes[ce.StatusCode]
		if !ok {
			code = codes.InvalidArgument
		}
		return status.Error(code, message(ce.Message, ce))
	}

	s.logger.Error(ctx, "request failed", "op", op, "error", err)
	return status.Error(codes.Internal, "internal error")
}

func message(msg string, err error) string {
	if msg != "" {
		return msg
	}
	return err.Error()
}
