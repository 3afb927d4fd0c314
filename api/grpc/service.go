package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// OrderBookServer is the interface *Server implements; declared by hand in
// the shape protoc-gen-go-grpc would have generated from a .proto file, had
// one existed anywhere in the retrieved pack. Keeping this interface
// separate from *Server lets a test stand in a fake implementation without
// touching the ServiceDesc wiring below.
type OrderBookServer interface {
	Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CancelAll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Snapshot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Query(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ImpliedVolatility(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func _OrderBookServer_Submit_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(structpb.Struct)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderBookServer).Submit(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/lobengine.OrderBookService/Submit"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderBookServer).Submit(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, req, info, handler)
}

func _OrderBookServer_Cancel_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(structpb.Struct)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderBookServer).Cancel(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/lobengine.OrderBookService/Cancel"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderBookServer).Cancel(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, req, info, handler)
}

func _OrderBookServer_CancelAll_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(structpb.Struct)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderBookServer).CancelAll(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/lobengine.OrderBookService/CancelAll"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderBookServer).CancelAll(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, req, info, handler)
}

func _OrderBookServer_Snapshot_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(structpb.Struct)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderBookServer).Snapshot(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/lobengine.OrderBookService/Snapshot"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderBookServer).Snapshot(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, req, info, handler)
}

func _OrderBookServer_Query_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(structpb.Struct)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderBookServer).Query(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/lobengine.OrderBookService/Query"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderBookServer).Query(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, req, info, handler)
}

func _OrderBookServer_ImpliedVolatility_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(structpb.Struct)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderBookServer).ImpliedVolatility(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/lobengine.OrderBookService/ImpliedVolatility"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderBookServer).ImpliedVolatility(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, req, info, handler)
}

// OrderBookService_ServiceDesc is the grpc.ServiceDesc protoc-gen-go-grpc
// would have emitted from a order_book.proto defining the six RPCs of
// spec.md §6, written by hand since no .proto exists in the retrieved
// pack. RegisterOrderBookServer registers srv against this desc.
var OrderBookService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "lobengine.OrderBookService",
	HandlerType: (*OrderBookServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: _OrderBookServer_Submit_Handler},
		{MethodName: "Cancel", Handler: _OrderBookServer_Cancel_Handler},
		{MethodName: "CancelAll", Handler: _OrderBookServer_CancelAll_Handler},
		{MethodName: "Snapshot", Handler: _OrderBookServer_Snapshot_Handler},
		{MethodName: "Query", Handler: _OrderBookServer_Query_Handler},
		{MethodName: "ImpliedVolatility", Handler: _OrderBookServer_ImpliedVolatility_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lobengine/orderbook.proto",
}

// RegisterOrderBookServer registers srv on s against OrderBookService_ServiceDesc.
func RegisterOrderBookServer(s grpc.ServiceRegistrar, srv OrderBookServer) {
	s.RegisterService(&OrderBookService_ServiceDesc, srv)
}
