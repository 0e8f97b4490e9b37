package grpc

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophnotes/internal/client/drivers"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	pb "github.com/dmitrijs2005/gophnotes/internal/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type account struct {
	salt, verifier []byte
}

type fakeServer struct {
	pb.UnimplementedSnapshotServiceServer

	mu       sync.Mutex
	accounts map[string]account
	tokens   map[string]bool
	issued   int
	logins   int
	content  map[string]string
	clock    map[string]int64
	down     bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		accounts: map[string]account{},
		tokens:   map[string]bool{},
		content:  map[string]string{},
		clock:    map[string]int64{},
	}
}

func (s *fakeServer) Register(_ context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	c, err := pb.CredentialsFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[c.Username]; ok {
		return nil, status.Error(codes.AlreadyExists, "user exists")
	}
	s.accounts[c.Username] = account{salt: c.Salt, verifier: c.Verifier}
	return &emptypb.Empty{}, nil
}

func (s *fakeServer) GetSalt(_ context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[in.GetValue()]
	if !ok {
		return wrapperspb.Bytes(common.GenerateRandByteArray(16)), nil
	}
	return wrapperspb.Bytes(a.salt), nil
}

func (s *fakeServer) Login(_ context.Context, in *structpb.Struct) (*wrapperspb.StringValue, error) {
	c, err := pb.CredentialsFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[c.Username]
	if !ok || !bytes.Equal(a.verifier, c.Verifier) {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	s.issued++
	s.logins++
	tok := fmt.Sprintf("tok-%d", s.issued)
	s.tokens[tok] = true
	return wrapperspb.String(tok), nil
}

func (s *fakeServer) check(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return status.Error(codes.Unavailable, "maintenance")
	}
	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get(common.AccessTokenHeaderName)
	if len(vals) == 0 {
		return status.Error(codes.Unauthenticated, "missing token")
	}
	valid, known := s.tokens[vals[0]]
	if !known {
		return status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}
	if !valid {
		return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	}
	return nil
}

func (s *fakeServer) expireAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.tokens {
		s.tokens[k] = false
	}
}

func (s *fakeServer) Info(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return wrapperspb.Int64(s.clock[in.GetValue()]), nil
}

func (s *fakeServer) Pull(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return pb.Snapshot{Content: s.content[in.GetValue()], Clock: s.clock[in.GetValue()]}.Struct(), nil
}

func (s *fakeServer) Push(ctx context.Context, in *structpb.Struct) (*wrapperspb.Int64Value, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	snap, err := pb.SnapshotFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[snap.Scope] = snap.Content
	s.clock[snap.Scope] = drivers.NextClock(s.clock[snap.Scope])
	return wrapperspb.Int64(s.clock[snap.Scope]), nil
}

func (s *fakeServer) Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}

func startServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := newFakeServer()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	pb.RegisterSnapshotServiceServer(srv, fs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	old := dial
	t.Cleanup(func() { dial = old })
	dial = func(_ string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
		opts = append(opts, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
		return grpc.NewClient("passthrough:///bufnet", opts...)
	}
	return fs
}

func config(extra map[string]any) map[string]any {
	cfg := map[string]any{"address": "bufnet:1", "username": "alice", "password": "pw", "register": true}
	for k, v := range extra {
		cfg[k] = v
	}
	return cfg
}

func connect(t *testing.T, cfg map[string]any) (*Driver, drivers.State) {
	t.Helper()
	d := New().(*Driver)
	require.NoError(t, d.Configure(cfg, drivers.Options{}))
	st, err := d.Init(context.Background(), "scope")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d, st
}

func TestConfigure(t *testing.T) {
	d := New()
	assert.Error(t, d.Configure(map[string]any{"address": "nohost"}, drivers.Options{}))
	assert.Error(t, d.Configure(map[string]any{"address": "h:1", "username": "u"}, drivers.Options{}))
	assert.NoError(t, d.Configure(config(nil), drivers.Options{}))
}

func TestRegisterLoginPushPull(t *testing.T) {
	fs := startServer(t)
	ctx := context.Background()

	d, st := connect(t, config(nil))
	assert.True(t, st.Connected)
	assert.Equal(t, "alice@bufnet:1", st.Info)
	assert.NotContains(t, st.Config, "password")
	require.Contains(t, fs.accounts, "alice")
	assert.NotEqual(t, []byte("pw"), fs.accounts["alice"].verifier)

	c1, err := d.Push(ctx, `{"v":1}`)
	require.NoError(t, err)
	p, err := d.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, p.Content)
	assert.Equal(t, c1, p.LastRemoteChange)

	// A second device logs in without registering and sees the clock.
	_, st = connect(t, config(map[string]any{"register": false}))
	assert.Equal(t, c1, st.LastRemoteChange)

	require.NoError(t, d.Ping(ctx))
}

func TestWrongPassword(t *testing.T) {
	startServer(t)
	connect(t, config(nil))

	d := New()
	require.NoError(t, d.Configure(config(map[string]any{"password": "nope"}), drivers.Options{}))
	_, err := d.Init(context.Background(), "scope")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestUnknownUserWithoutRegister(t *testing.T) {
	fs := startServer(t)
	d := New()
	require.NoError(t, d.Configure(config(map[string]any{"register": false}), drivers.Options{}))
	_, err := d.Init(context.Background(), "scope")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Empty(t, fs.accounts)
}

func TestExpiredTokenReLogin(t *testing.T) {
	fs := startServer(t)
	d, _ := connect(t, config(nil))
	logins := fs.logins

	fs.expireAll()
	_, err := d.Push(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, logins+1, fs.logins)
}

func TestEncryptedContent(t *testing.T) {
	fs := startServer(t)
	ctx := context.Background()
	d, _ := connect(t, config(map[string]any{"encrypt": true}))

	_, err := d.Push(ctx, `{"secret":true}`)
	require.NoError(t, err)
	assert.False(t, strings.Contains(fs.content["scope"], "secret"))

	p, err := d.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"secret":true}`, p.Content)
}

func TestUnavailable(t *testing.T) {
	fs := startServer(t)
	d, _ := connect(t, config(nil))

	fs.mu.Lock()
	fs.down = true
	fs.mu.Unlock()

	_, err := d.Pull(context.Background())
	assert.ErrorIs(t, err, common.ErrDriverUnavailable)
	_, err = d.Push(context.Background(), "x")
	assert.ErrorIs(t, err, common.ErrDriverUnavailable)

	require.NoError(t, d.Close())
	_, err = d.Pull(context.Background())
	assert.ErrorIs(t, err, common.ErrDriverUnavailable)
}
