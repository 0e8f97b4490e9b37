// Package grpc is the driver for the gophnotes snapshot server.
//
// The password never leaves the device: the driver fetches the account
// salt, derives the argon2 master key and logs in with its verifier. The
// access token rides in the access_token metadata header and is renewed by
// logging in again when the server reports it expired. With Encrypt set,
// snapshots are sealed with a key derived from the master key before upload.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/drivers"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/cryptox"
	pb "github.com/dmitrijs2005/gophnotes/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const TypeName = "grpc"

type Config struct {
	Address  string `json:"address" validate:"required,hostname_port"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	// Register creates the account on first connect when it does not exist.
	Register bool `json:"register,omitempty"`
	Encrypt  bool `json:"encrypt,omitempty"`
	// Timeout per call, in seconds.
	Timeout int `json:"timeout,omitempty" validate:"gte=0"`
}

// dial is replaced in tests.
var dial = func(address string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	return grpc.NewClient(address, opts...)
}

type Driver struct {
	cfg    Config
	conn   *grpc.ClientConn
	client pb.SnapshotServiceClient
	scope  string

	mu         sync.Mutex
	token      string
	contentKey []byte
}

func New() drivers.Driver {
	return &Driver{}
}

func (d *Driver) Configure(cfg map[string]any, _ drivers.Options) error {
	return drivers.DecodeConfig(cfg, &d.cfg)
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

// accessTokenInterceptor attaches the token and logs in again once when the
// server says it expired.
func (d *Driver) accessTokenInterceptor(ctx context.Context, method string, req, reply any,
	cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {

	if !needsToken(method) {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	d.mu.Lock()
	token := d.token
	d.mu.Unlock()

	err := invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
	st, ok := status.FromError(err)
	if err == nil || !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}

	if err := d.login(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	token = d.token
	d.mu.Unlock()
	return invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
}

func needsToken(method string) bool {
	switch method {
	case pb.SnapshotService_Info_FullMethodName, pb.SnapshotService_Pull_FullMethodName, pb.SnapshotService_Push_FullMethodName:
		return true
	}
	return false
}

func (d *Driver) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, time.Duration(d.cfg.Timeout)*time.Second)
	}
	return ctx, func() {}
}

func (d *Driver) Init(ctx context.Context, scopeID string) (drivers.State, error) {
	if scopeID == "" {
		return drivers.State{}, errors.New("grpc: empty scope")
	}
	conn, err := dial(d.cfg.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(d.accessTokenInterceptor))
	if err != nil {
		return drivers.State{}, drivers.Unavailable("init", err)
	}
	d.conn, d.client, d.scope = conn, pb.NewSnapshotServiceClient(conn), scopeID

	if err := d.login(ctx); err != nil {
		_ = d.Close()
		return drivers.State{}, err
	}

	cctx, cancel := d.callContext(ctx)
	defer cancel()
	info, err := d.client.Info(cctx, wrapperspb.String(scopeID))
	if err != nil {
		_ = d.Close()
		return drivers.State{}, mapError("info", err)
	}

	cfg := d.cfg
	cfg.Password = ""
	return drivers.State{
		Connected:        true,
		Config:           drivers.EncodeConfig(cfg),
		LastRemoteChange: info.GetValue(),
		Info:             d.cfg.Username + "@" + d.cfg.Address,
	}, nil
}

// login derives the verifier from the password and exchanges it for an
// access token. The server answers GetSalt for unknown users too, so a
// rejected login is the only sign that the account may not exist; with
// Register set the driver then tries to create it once.
func (d *Driver) login(ctx context.Context) error {
	cctx, cancel := d.callContext(ctx)
	defer cancel()

	salt, err := d.client.GetSalt(cctx, wrapperspb.String(d.cfg.Username))
	if err != nil {
		return mapError("get salt", err)
	}

	masterKey := cryptox.DeriveMasterKey([]byte(d.cfg.Password), salt.GetValue())
	defer common.WipeByteArray(masterKey)

	req := pb.Credentials{Username: d.cfg.Username, Verifier: cryptox.MakeVerifier(masterKey)}
	token, err := d.client.Login(cctx, req.Struct())
	if status.Code(err) == codes.Unauthenticated && d.cfg.Register {
		return d.register(ctx)
	}
	if err != nil {
		return mapError("login", err)
	}

	d.mu.Lock()
	d.token = token.GetValue()
	d.contentKey = cryptox.ContentKey(masterKey)
	d.mu.Unlock()
	return nil
}

func (d *Driver) register(ctx context.Context) error {
	cctx, cancel := d.callContext(ctx)
	defer cancel()

	salt := common.GenerateRandByteArray(16)
	masterKey := cryptox.DeriveMasterKey([]byte(d.cfg.Password), salt)
	defer common.WipeByteArray(masterKey)

	d.cfg.Register = false
	req := pb.Credentials{Username: d.cfg.Username, Salt: salt, Verifier: cryptox.MakeVerifier(masterKey)}
	_, err := d.client.Register(cctx, req.Struct())
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("login: %w", common.ErrorUnauthorized)
	}
	if err != nil {
		return mapError("register", err)
	}
	return d.login(ctx)
}

func (d *Driver) Push(ctx context.Context, content string) (int64, error) {
	if d.client == nil {
		return 0, drivers.Unavailable("push", errors.New("grpc: not initialized"))
	}
	if d.cfg.Encrypt {
		sealed, err := cryptox.Seal(content, d.key())
		if err != nil {
			return 0, fmt.Errorf("grpc: seal snapshot: %w", err)
		}
		content = sealed
	}

	cctx, cancel := d.callContext(ctx)
	defer cancel()
	req := pb.Snapshot{Scope: d.scope, Content: content}
	clock, err := d.client.Push(cctx, req.Struct())
	if err != nil {
		return 0, mapError("push", err)
	}
	return clock.GetValue(), nil
}

func (d *Driver) Pull(ctx context.Context) (drivers.Pulled, error) {
	if d.client == nil {
		return drivers.Pulled{}, drivers.Unavailable("pull", errors.New("grpc: not initialized"))
	}
	cctx, cancel := d.callContext(ctx)
	defer cancel()

	resp, err := d.client.Pull(cctx, wrapperspb.String(d.scope))
	if err != nil {
		return drivers.Pulled{}, mapError("pull", err)
	}
	snap, err := pb.SnapshotFromStruct(resp)
	if err != nil {
		return drivers.Pulled{}, fmt.Errorf("grpc: %w", err)
	}
	content, err := cryptox.Open(snap.Content, d.key())
	if err != nil {
		return drivers.Pulled{}, fmt.Errorf("grpc: open snapshot: %w", err)
	}
	return drivers.Pulled{Content: content, LastRemoteChange: snap.Clock}, nil
}

// Ping checks that the server answers.
func (d *Driver) Ping(ctx context.Context) error {
	if d.client == nil {
		return drivers.Unavailable("ping", errors.New("grpc: not initialized"))
	}
	_, err := d.client.Ping(ctx, &emptypb.Empty{})
	return mapError("ping", err)
}

func (d *Driver) key() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.contentKey
}

func (d *Driver) Close() error {
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn, d.client = nil, nil
	d.mu.Lock()
	common.WipeByteArray(d.contentKey)
	d.token, d.contentKey = "", nil
	d.mu.Unlock()
	return err
}

func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%s: %w", op, common.ErrorUnauthorized)
	case codes.Unavailable, codes.DeadlineExceeded:
		return drivers.Unavailable(op, err)
	default:
		return fmt.Errorf("rpc error: %s: %w", op, err)
	}
}
