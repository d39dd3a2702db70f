package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "realitycheck.v1.RealityCheck"

const (
	analyzeMethod    = "/" + ServiceName + "/Analyze"
	getHistoryMethod = "/" + ServiceName + "/GetHistory"
)

// RealityCheckServer is the server API of the RealityCheck service. Messages
// are google.protobuf.Struct documents shaped like the JSON models.
type RealityCheckServer interface {
	Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterRealityCheckServer attaches srv to a gRPC registrar.
func RegisterRealityCheckServer(s grpc.ServiceRegistrar, srv RealityCheckServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes the RealityCheck service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RealityCheckServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Analyze", Handler: analyzeHandler},
		{MethodName: "GetHistory", Handler: getHistoryHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "realitycheck/v1/realitycheck.proto",
}

func analyzeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RealityCheckServer).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: analyzeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RealityCheckServer).Analyze(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getHistoryHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RealityCheckServer).GetHistory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getHistoryMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RealityCheckServer).GetHistory(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls the RealityCheck service over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Analyze submits one update.
func (c *Client) Analyze(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, analyzeMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetHistory fetches the replayed snapshot log.
func (c *Client) GetHistory(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getHistoryMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
