// Package proto describes the gophnotes.SnapshotService gRPC service.
//
// The service moves opaque snapshot strings, so its messages are protobuf
// well-known types (wrapperspb, structpb, emptypb) instead of generated
// message code. The descriptor, client and server glue below follow the
// shape protoc-gen-go-grpc emits.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "gophnotes.SnapshotService"

const (
	SnapshotService_Register_FullMethodName = "/" + ServiceName + "/Register"
	SnapshotService_GetSalt_FullMethodName  = "/" + ServiceName + "/GetSalt"
	SnapshotService_Login_FullMethodName    = "/" + ServiceName + "/Login"
	SnapshotService_Info_FullMethodName     = "/" + ServiceName + "/Info"
	SnapshotService_Pull_FullMethodName     = "/" + ServiceName + "/Pull"
	SnapshotService_Push_FullMethodName     = "/" + ServiceName + "/Push"
	SnapshotService_Ping_FullMethodName     = "/" + ServiceName + "/Ping"
)

// SnapshotServiceClient is the client API for SnapshotService.
type SnapshotServiceClient interface {
	Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GetSalt(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Info(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.Int64Value, error)
	Pull(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Push(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.Int64Value, error)
	Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type snapshotServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSnapshotServiceClient(cc grpc.ClientConnInterface) SnapshotServiceClient {
	return &snapshotServiceClient{cc}
}

func (c *snapshotServiceClient) Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, SnapshotService_Register_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *snapshotServiceClient) GetSalt(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, SnapshotService_GetSalt_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *snapshotServiceClient) Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, SnapshotService_Login_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *snapshotServiceClient) Info(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.Int64Value, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, SnapshotService_Info_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *snapshotServiceClient) Pull(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SnapshotService_Pull_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *snapshotServiceClient) Push(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.Int64Value, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, SnapshotService_Push_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *snapshotServiceClient) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, SnapshotService_Ping_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// SnapshotServiceServer is the server API for SnapshotService.
type SnapshotServiceServer interface {
	Register(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	GetSalt(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	Login(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	Info(context.Context, *wrapperspb.StringValue) (*wrapperspb.Int64Value, error)
	Pull(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Push(context.Context, *structpb.Struct) (*wrapperspb.Int64Value, error)
	Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

// UnimplementedSnapshotServiceServer can be embedded for forward
// compatibility.
type UnimplementedSnapshotServiceServer struct{}

func (UnimplementedSnapshotServiceServer) Register(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Register not implemented")
}
func (UnimplementedSnapshotServiceServer) GetSalt(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSalt not implemented")
}
func (UnimplementedSnapshotServiceServer) Login(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}
func (UnimplementedSnapshotServiceServer) Info(context.Context, *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	return nil, status.Error(codes.Unimplemented, "method Info not implemented")
}
func (UnimplementedSnapshotServiceServer) Pull(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Pull not implemented")
}
func (UnimplementedSnapshotServiceServer) Push(context.Context, *structpb.Struct) (*wrapperspb.Int64Value, error) {
	return nil, status.Error(codes.Unimplemented, "method Push not implemented")
}
func (UnimplementedSnapshotServiceServer) Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}

func RegisterSnapshotServiceServer(s grpc.ServiceRegistrar, srv SnapshotServiceServer) {
	s.RegisterService(&SnapshotService_ServiceDesc, srv)
}

// unary builds a method handler for one request type.
func unary[Req any, Resp any](fullMethod string, call func(SnapshotServiceServer, context.Context, *Req) (Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SnapshotServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SnapshotServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var SnapshotService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SnapshotServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unary(SnapshotService_Register_FullMethodName, SnapshotServiceServer.Register)},
		{MethodName: "GetSalt", Handler: unary(SnapshotService_GetSalt_FullMethodName, SnapshotServiceServer.GetSalt)},
		{MethodName: "Login", Handler: unary(SnapshotService_Login_FullMethodName, SnapshotServiceServer.Login)},
		{MethodName: "Info", Handler: unary(SnapshotService_Info_FullMethodName, SnapshotServiceServer.Info)},
		{MethodName: "Pull", Handler: unary(SnapshotService_Pull_FullMethodName, SnapshotServiceServer.Pull)},
		{MethodName: "Push", Handler: unary(SnapshotService_Push_FullMethodName, SnapshotServiceServer.Push)},
		{MethodName: "Ping", Handler: unary(SnapshotService_Ping_FullMethodName, SnapshotServiceServer.Ping)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophnotes/snapshot.proto",
}
