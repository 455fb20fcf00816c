// Package proto defines the zenote.v1.RemoteStore gRPC service. Messages
// are google.protobuf.Struct values; messages.go gives them Go shapes.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "zenote.v1.RemoteStore"

const (
	MethodInsert        = "Insert"
	MethodUpdate        = "Update"
	MethodDelete        = "Delete"
	MethodSelect        = "Select"
	MethodResolveShare  = "ResolveShare"
	MethodPresignExport = "PresignExport"
	MethodPing          = "Ping"
)

// FullMethod returns the gRPC method path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type RemoteStoreServer interface {
	Insert(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Update(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Select(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveShare(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PresignExport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedRemoteStoreServer answers every method with Unimplemented.
type UnimplementedRemoteStoreServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedRemoteStoreServer) Insert(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodInsert)
}
func (UnimplementedRemoteStoreServer) Update(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodUpdate)
}
func (UnimplementedRemoteStoreServer) Delete(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodDelete)
}
func (UnimplementedRemoteStoreServer) Select(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodSelect)
}
func (UnimplementedRemoteStoreServer) ResolveShare(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodResolveShare)
}
func (UnimplementedRemoteStoreServer) PresignExport(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodPresignExport)
}
func (UnimplementedRemoteStoreServer) Ping(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodPing)
}

type unaryCall func(srv RemoteStoreServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func handler(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RemoteStoreServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(RemoteStoreServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var RemoteStore_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RemoteStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		handler(MethodInsert, RemoteStoreServer.Insert),
		handler(MethodUpdate, RemoteStoreServer.Update),
		handler(MethodDelete, RemoteStoreServer.Delete),
		handler(MethodSelect, RemoteStoreServer.Select),
		handler(MethodResolveShare, RemoteStoreServer.ResolveShare),
		handler(MethodPresignExport, RemoteStoreServer.PresignExport),
		handler(MethodPing, RemoteStoreServer.Ping),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "zenote/v1/remote_store.proto",
}

func RegisterRemoteStoreServer(s grpc.ServiceRegistrar, srv RemoteStoreServer) {
	s.RegisterService(&RemoteStore_ServiceDesc, srv)
}

type RemoteStoreClient interface {
	Insert(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Update(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Delete(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Select(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ResolveShare(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	PresignExport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type remoteStoreClient struct {
	cc grpc.ClientConnInterface
}

func NewRemoteStoreClient(cc grpc.ClientConnInterface) RemoteStoreClient {
	return &remoteStoreClient{cc: cc}
}

func (c *remoteStoreClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *remoteStoreClient) Insert(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodInsert, in, opts)
}
func (c *remoteStoreClient) Update(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodUpdate, in, opts)
}
func (c *remoteStoreClient) Delete(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodDelete, in, opts)
}
func (c *remoteStoreClient) Select(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSelect, in, opts)
}
func (c *remoteStoreClient) ResolveShare(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodResolveShare, in, opts)
}
func (c *remoteStoreClient) PresignExport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodPresignExport, in, opts)
}
func (c *remoteStoreClient) Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodPing, in, opts)
}
