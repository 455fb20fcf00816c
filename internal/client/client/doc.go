// Package client talks to the zenote remote store server.
//
// GRPCClient implements remote.Store over the zenote.v1.RemoteStore gRPC
// service. An interceptor attaches the access token to every call and
// every failure is mapped onto the error taxonomy of package common, so
// the retry policy can classify it:
//
//   - Unavailable, DeadlineExceeded and transport failures: NetworkError
//   - ResourceExhausted: RateLimitError
//   - InvalidArgument, NotFound, AlreadyExists, FailedPrecondition,
//     PermissionDenied, Unauthenticated: ClientError
//   - everything else: ServerError
//
// A share that cannot be resolved surfaces as common.ErrShareUnavailable.
package client
