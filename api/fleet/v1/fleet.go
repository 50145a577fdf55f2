// Package v1 defines the fleetpeer.v1.FleetService gRPC contract. Vehicles
// travel as google.protobuf.Struct values holding the same JSON documents the
// HTTP API serves, so the service needs no generated message types.
package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	FleetService_ServiceName                 = "fleetpeer.v1.FleetService"
	FleetService_ListVehicles_FullMethodName = "/fleetpeer.v1.FleetService/ListVehicles"
	FleetService_GetVehicle_FullMethodName   = "/fleetpeer.v1.FleetService/GetVehicle"
)

// FleetServiceClient is the client API for FleetService.
type FleetServiceClient interface {
	// ListVehicles returns every tracked vehicle ordered by bus_id.
	ListVehicles(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error)
	// GetVehicle returns the live state of one vehicle.
	GetVehicle(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type fleetServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewFleetServiceClient(cc grpc.ClientConnInterface) FleetServiceClient {
	return &fleetServiceClient{cc}
}

func (c *fleetServiceClient) ListVehicles(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, FleetService_ListVehicles_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *fleetServiceClient) GetVehicle(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FleetService_GetVehicle_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// FleetServiceServer is the server API for FleetService.
type FleetServiceServer interface {
	ListVehicles(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	GetVehicle(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
}

// UnimplementedFleetServiceServer can be embedded for forward compatibility.
type UnimplementedFleetServiceServer struct{}

func (UnimplementedFleetServiceServer) ListVehicles(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ListVehicles not implemented")
}

func (UnimplementedFleetServiceServer) GetVehicle(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetVehicle not implemented")
}

func RegisterFleetServiceServer(s grpc.ServiceRegistrar, srv FleetServiceServer) {
	s.RegisterService(&FleetService_ServiceDesc, srv)
}

func _FleetService_ListVehicles_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FleetServiceServer).ListVehicles(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: FleetService_ListVehicles_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FleetServiceServer).ListVehicles(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _FleetService_GetVehicle_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FleetServiceServer).GetVehicle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: FleetService_GetVehicle_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FleetServiceServer).GetVehicle(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

// FleetService_ServiceDesc is the grpc.ServiceDesc for FleetService.
var FleetService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: FleetService_ServiceName,
	HandlerType: (*FleetServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListVehicles",
			Handler:    _FleetService_ListVehicles_Handler,
		},
		{
			MethodName: "GetVehicle",
			Handler:    _FleetService_GetVehicle_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fleetpeer/v1/fleet.proto",
}
