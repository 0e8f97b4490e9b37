// Package grpc exposes the account and snapshot services over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophnotes/internal/logging"
	pb "github.com/dmitrijs2005/gophnotes/internal/proto"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"google.golang.org/grpc"
)

type userService interface {
	Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifier []byte) (string, error)
}

type snapshotService interface {
	Info(ctx context.Context, userID, scope string) (int64, error)
	Pull(ctx context.Context, userID, scope string) (*models.Snapshot, error)
	Push(ctx context.Context, userID, scope, content string) (int64, error)
}

type GRPCServer struct {
	pb.UnimplementedSnapshotServiceServer
	address   string
	users     userService
	snapshots snapshotService
	logger    logging.Logger
	metrics   *Metrics
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, us userService, ss snapshotService, m *Metrics, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		snapshots: ss,
		metrics:   m,
		jwtSecret: []byte(secretKey),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.metricsInterceptor, s.accessTokenInterceptor))
	pb.RegisterSnapshotServiceServer(srv, s)
	return srv
}

// Run serves until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	return srv.Serve(listen)
}
