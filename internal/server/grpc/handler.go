package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	pb "github.com/dmitrijs2005/gophnotes/internal/proto"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	c, err := pb.CredentialsFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	u, err := s.users.Register(ctx, c.Username, c.Salt, c.Verifier)
	if err != nil {
		return nil, s.toStatus(ctx, "register", err)
	}

	s.logger.Info(ctx, "Registered", "username", u.UserName, "id", u.ID)
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) GetSalt(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	salt, err := s.users.GetSalt(ctx, req.GetValue())
	if err != nil {
		return nil, s.toStatus(ctx, "get salt", err)
	}
	return wrapperspb.Bytes(salt), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	c, err := pb.CredentialsFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	token, err := s.users.Login(ctx, c.Username, c.Verifier)
	if err != nil {
		return nil, s.toStatus(ctx, "login", err)
	}
	return wrapperspb.String(token), nil
}

func (s *GRPCServer) Info(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	clock, err := s.snapshots.Info(ctx, userID, req.GetValue())
	if err != nil {
		return nil, s.toStatus(ctx, "info", err)
	}
	return wrapperspb.Int64(clock), nil
}

func (s *GRPCServer) Pull(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	snap, err := s.snapshots.Pull(ctx, userID, req.GetValue())
	if err != nil {
		return nil, s.toStatus(ctx, "pull", err)
	}
	return pb.Snapshot{Scope: snap.Scope, Content: snap.Content, Clock: snap.Clock}.Struct(), nil
}

func (s *GRPCServer) Push(ctx context.Context, req *structpb.Struct) (*wrapperspb.Int64Value, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	snap, err := pb.SnapshotFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	clock, err := s.snapshots.Push(ctx, userID, snap.Scope, snap.Content)
	if err != nil {
		return nil, s.toStatus(ctx, "push", err)
	}
	return wrapperspb.Int64(clock), nil
}

func (s *GRPCServer) Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}

// toStatus maps service errors onto gRPC codes. Internal details are
// logged, not returned.
func (s *GRPCServer) toStatus(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "user already exists")
	case errors.Is(err, common.ErrInvalidField):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorTooLarge):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error(ctx, op+" failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
