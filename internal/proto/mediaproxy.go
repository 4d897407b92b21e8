package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName       = "mediaproxy.MediaProxy"
	FetchFullMethod   = "/mediaproxy.MediaProxy/Fetch"
	HeaderContentType = "x-content-type"
	HeaderLength      = "x-content-length"
)

// MediaProxyServer is the server API for the MediaProxy service.
type MediaProxyServer interface {
	// Fetch downloads the URL in the request and returns its bytes. Content
	// type and declared length travel as response header metadata.
	Fetch(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedMediaProxyServer can be embedded to have forward compatible implementations.
type UnimplementedMediaProxyServer struct{}

func (UnimplementedMediaProxyServer) Fetch(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Fetch not implemented")
}

func RegisterMediaProxyServer(s grpc.ServiceRegistrar, srv MediaProxyServer) {
	s.RegisterService(&_MediaProxy_serviceDesc, srv)
}

func _MediaProxy_Fetch_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MediaProxyServer).Fetch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: FetchFullMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MediaProxyServer).Fetch(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

var _MediaProxy_serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MediaProxyServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Fetch",
			Handler:    _MediaProxy_Fetch_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mediaproxy.proto",
}

// MediaProxyClient is the client API for the MediaProxy service.
type MediaProxyClient interface {
	Fetch(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type mediaProxyClient struct {
	cc grpc.ClientConnInterface
}

func NewMediaProxyClient(cc grpc.ClientConnInterface) MediaProxyClient {
	return &mediaProxyClient{cc}
}

func (c *mediaProxyClient) Fetch(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, FetchFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
