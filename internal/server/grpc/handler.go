package grpc

import (
	"context"
	"time"

	pb "github.com/anbuneel/zenote-sub001/internal/proto"
	"github.com/anbuneel/zenote-sub001/internal/remote"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func decode(in *structpb.Struct, v any) error {
	if err := pb.Decode(in, v); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	out, err := pb.Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *GRPCServer) store(ctx context.Context) (remote.Store, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing user")
	}
	return s.stores.ForUser(userID), nil
}

func (s *GRPCServer) Insert(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pb.InsertRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	st, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := st.Insert(ctx, req.Table, req.Rows, req.MutationID)
	if err != nil {
		return nil, s.toStatus(ctx, "insert", err)
	}
	return encode(pb.RowsResponse{Rows: rows})
}

func (s *GRPCServer) Update(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pb.UpdateRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	st, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	row, err := st.Update(ctx, req.Table, req.ID, req.Patch, req.MutationID)
	if err != nil {
		return nil, s.toStatus(ctx, "update", err)
	}
	return encode(pb.RowResponse{Row: row})
}

func (s *GRPCServer) Delete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pb.DeleteRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	st, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Delete(ctx, req.Table, req.ID, req.MutationID); err != nil {
		return nil, s.toStatus(ctx, "delete", err)
	}
	return encode(pb.Empty{})
}

func (s *GRPCServer) Select(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pb.SelectRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	st, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := st.Select(ctx, req.Table, req.Filter, req.Order)
	if err != nil {
		return nil, s.toStatus(ctx, "select", err)
	}
	return encode(pb.RowsResponse{Rows: rows})
}

func (s *GRPCServer) ResolveShare(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pb.ResolveShareRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	row, err := s.shares.ResolveShare(ctx, req.Token)
	if err != nil {
		return nil, s.toStatus(ctx, "resolve share", err)
	}
	return encode(pb.RowResponse{Row: row})
}

func (s *GRPCServer) PresignExport(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing user")
	}
	if s.exports == nil {
		return nil, status.Error(codes.Unimplemented, "exports are not configured")
	}

	ex, err := s.exports.PresignExport(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, "presign export", err)
	}
	s.logger.Info(ctx, "export presigned", "user_id", userID, "key", ex.Key)
	return encode(pb.PresignExportResponse{Key: ex.Key, UploadURL: ex.UploadURL, DownloadURL: ex.DownloadURL})
}

func (s *GRPCServer) Ping(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return encode(pb.PingResponse{Status: "OK", ServerTime: s.now().UTC().Format(time.RFC3339Nano)})
}
