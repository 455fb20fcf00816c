package client

import (
	"context"
	"sync"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/common"
	pb "github.com/anbuneel/zenote-sub001/internal/proto"
	"github.com/anbuneel/zenote-sub001/internal/remote"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// DefaultCallTimeout bounds calls whose context has no deadline.
const DefaultCallTimeout = 15 * time.Second

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.RemoteStoreClient
	timeout     time.Duration

	mu          sync.RWMutex
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *GRPCClient) SetAccessToken(token string) {
	s.mu.Lock()
	s.accessToken = token
	s.mu.Unlock()
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if token := s.token(); token != "" {
		ctx = withAccessToken(ctx, token)
	}
	if _, ok := ctx.Deadline(); !ok && s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient connects lazily to endpointURL. Extra dial options are
// appended after the defaults.
func NewGRPCClient(endpointURL, accessToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken, timeout: DefaultCallTimeout}
	dial := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)
	conn, err := grpc.NewClient(endpointURL, dial...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = pb.NewRemoteStoreClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

type rpc func(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)

func (s *GRPCClient) call(ctx context.Context, op string, fn rpc, req, resp any) error {
	in, err := pb.Encode(req)
	if err != nil {
		return &common.ValidationError{Field: "request", Reason: err.Error(), Err: err}
	}
	out, err := fn(ctx, in)
	if err != nil {
		return mapError(op, err)
	}
	if resp == nil {
		return nil
	}
	if err := pb.Decode(out, resp); err != nil {
		return &common.ServerError{StatusCode: 500, Message: "malformed response", Err: err}
	}
	return nil
}

func (s *GRPCClient) Insert(ctx context.Context, table string, rows []remote.Row, mutationID string) ([]remote.Row, error) {
	var resp pb.RowsResponse
	err := s.call(ctx, "insert", s.client.Insert, pb.InsertRequest{Table: table, Rows: rows, MutationID: mutationID}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

func (s *GRPCClient) Update(ctx context.Context, table, id string, patch remote.Row, mutationID string) (remote.Row, error) {
	var resp pb.RowResponse
	err := s.call(ctx, "update", s.client.Update, pb.UpdateRequest{Table: table, ID: id, Patch: patch, MutationID: mutationID}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Row, nil
}

func (s *GRPCClient) Delete(ctx context.Context, table, id, mutationID string) error {
	return s.call(ctx, "delete", s.client.Delete, pb.DeleteRequest{Table: table, ID: id, MutationID: mutationID}, nil)
}

func (s *GRPCClient) Select(ctx context.Context, table string, filter remote.Filter, order []remote.Order) ([]remote.Row, error) {
	var resp pb.RowsResponse
	err := s.call(ctx, "select", s.client.Select, pb.SelectRequest{Table: table, Filter: filter, Order: order}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

func (s *GRPCClient) ResolveShare(ctx context.Context, token string) (remote.Row, error) {
	var resp pb.RowResponse
	if err := s.call(ctx, "resolve share", s.client.ResolveShare, pb.ResolveShareRequest{Token: token}, &resp); err != nil {
		return nil, err
	}
	return resp.Row, nil
}

func (s *GRPCClient) PresignExport(ctx context.Context) (*PresignedExport, error) {
	var resp pb.PresignExportResponse
	if err := s.call(ctx, "presign export", s.client.PresignExport, pb.Empty{}, &resp); err != nil {
		return nil, err
	}
	return &PresignedExport{Key: resp.Key, UploadURL: resp.UploadURL, DownloadURL: resp.DownloadURL}, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	var resp pb.PingResponse
	if err := s.call(ctx, "ping", s.client.Ping, pb.Empty{}, &resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

// mapError turns a gRPC failure into the common error taxonomy.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return &common.NetworkError{Op: op, Err: err}
	}
	msg := st.Message()
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return &common.NetworkError{Op: op, Err: err}
	case codes.ResourceExhausted:
		return &common.RateLimitError{Message: msg}
	case codes.InvalidArgument:
		return &common.ClientError{StatusCode: 400, Message: msg, Err: err}
	case codes.NotFound:
		if msg == common.ErrShareUnavailable.Error() {
			return common.ErrShareUnavailable
		}
		return &common.ClientError{StatusCode: 404, Message: msg, Err: common.ErrorNotFound}
	case codes.AlreadyExists:
		return &common.ClientError{StatusCode: 409, Message: msg, Err: err}
	case codes.FailedPrecondition:
		return &common.ClientError{StatusCode: 412, Message: msg, Err: err}
	case codes.PermissionDenied:
		return &common.ClientError{StatusCode: 403, Message: msg, Err: common.ErrorUnauthorized}
	case codes.Unauthenticated:
		if msg == common.ErrTokenExpired.Error() {
			return &common.ClientError{StatusCode: 401, Message: msg, Err: common.ErrTokenExpired}
		}
		return &common.ClientError{StatusCode: 401, Message: msg, Err: common.ErrorUnauthorized}
	case codes.Unimplemented:
		return &common.ServerError{StatusCode: 501, Message: msg, Err: err}
	}
	return &common.ServerError{StatusCode: 500, Message: msg, Err: err}
}

var _ Client = (*GRPCClient)(nil)
