// Package grpc serves the zenote.v1.RemoteStore service over the Postgres
// remote store.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/logging"
	pb "github.com/anbuneel/zenote-sub001/internal/proto"
	"github.com/anbuneel/zenote-sub001/internal/remote"
	"github.com/anbuneel/zenote-sub001/internal/server/exports"
	"google.golang.org/grpc"
)

// Stores vends remote stores scoped to one user.
type Stores interface {
	ForUser(userID string) remote.Store
}

// ShareResolver answers public share lookups.
type ShareResolver interface {
	ResolveShare(ctx context.Context, token string) (remote.Row, error)
}

type ExportPresigner interface {
	PresignExport(ctx context.Context, userID string) (*exports.Export, error)
}

type GRPCServer struct {
	pb.UnimplementedRemoteStoreServer
	address   string
	stores    Stores
	shares    ShareResolver
	exports   ExportPresigner
	logger    logging.Logger
	jwtSecret []byte
	now       func() time.Time
}

func NewGRPCServer(a string, l logging.Logger, stores Stores, shares ShareResolver, ex ExportPresigner, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		stores:    stores,
		shares:    shares,
		exports:   ex,
		jwtSecret: []byte(secretKey),
		now:       time.Now,
	}
}

// NewServer builds a grpc.Server with the auth interceptor and the service
// registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(s.accessTokenInterceptor)}, opts...)
	srv := grpc.NewServer(opts...)
	pb.RegisterRemoteStoreServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
