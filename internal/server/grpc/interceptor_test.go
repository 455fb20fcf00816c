package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/auth"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	pb "github.com/anbuneel/zenote-sub001/internal/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newTestServer(secret string) *GRPCServer {
	return NewGRPCServer("", logging.Nop(), nil, nil, nil, secret)
}

func withToken(token string) context.Context {
	md := metadata.New(map[string]string{common.AccessTokenHeaderName: token})
	return metadata.NewIncomingContext(context.Background(), md)
}

func mustNotCall(t *testing.T) grpc.UnaryHandler {
	return func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called")
		return nil, nil
	}
}

func TestInterceptor_PublicMethodsSkipAuth(t *testing.T) {
	s := newTestServer("secret")

	for _, m := range []string{pb.MethodPing, pb.MethodResolveShare} {
		called := false
		info := &grpc.UnaryServerInfo{FullMethod: pb.FullMethod(m)}
		resp, err := s.accessTokenInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
			called = true
			_, ok := UserIDFromContext(ctx)
			assert.False(t, ok)
			return "ok", nil
		})
		require.NoError(t, err)
		assert.True(t, called, m)
		assert.Equal(t, "ok", resp)
	}
}

func TestInterceptor_MissingToken(t *testing.T) {
	s := newTestServer("secret")
	info := &grpc.UnaryServerInfo{FullMethod: pb.FullMethod(pb.MethodSelect)}

	_, err := s.accessTokenInterceptor(context.Background(), nil, info, mustNotCall(t))
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "missing token", status.Convert(err).Message())
}

func TestInterceptor_InvalidToken(t *testing.T) {
	s := newTestServer("secret")
	info := &grpc.UnaryServerInfo{FullMethod: pb.FullMethod(pb.MethodInsert)}

	_, err := s.accessTokenInterceptor(withToken("not-a-valid-jwt"), nil, info, mustNotCall(t))
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, common.ErrInvalidToken.Error(), status.Convert(err).Message())
}

func TestInterceptor_ExpiredToken(t *testing.T) {
	s := newTestServer("secret")
	token, err := auth.GenerateToken("u1", []byte("secret"), -time.Minute)
	require.NoError(t, err)
	info := &grpc.UnaryServerInfo{FullMethod: pb.FullMethod(pb.MethodUpdate)}

	_, err = s.accessTokenInterceptor(withToken(token), nil, info, mustNotCall(t))
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, common.ErrTokenExpired.Error(), status.Convert(err).Message())
}

func TestInterceptor_ValidTokenSetsUserID(t *testing.T) {
	s := newTestServer("super-secret")
	token, err := auth.GenerateToken("user-123", []byte("super-secret"), time.Hour)
	require.NoError(t, err)
	info := &grpc.UnaryServerInfo{FullMethod: pb.FullMethod(pb.MethodDelete)}

	var got string
	_, err = s.accessTokenInterceptor(withToken(token), nil, info, func(ctx context.Context, req any) (any, error) {
		got, _ = UserIDFromContext(ctx)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "user-123", got)
}
