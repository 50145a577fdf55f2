package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	pb "github.com/autopeer-io/fleetpeer/api/fleet/v1"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/service"
	middleware "github.com/autopeer-io/fleetpeer/internal/pkg/middleware/grpc"
	"github.com/autopeer-io/fleetpeer/pkg/log"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

// FleetQuerier is the read side of the monitor served over gRPC.
type FleetQuerier interface {
	Vehicles() []model.VehicleState
	VehicleDetail(busID int64) service.VehicleDetail
	FeedConnected() bool
	Events() *service.Broker
}

type Server struct {
	server  *grpc.Server
	health  *health.Server
	svc     FleetQuerier
	options *options.GrpcOptions
	pb.UnimplementedFleetServiceServer
}

func NewServer(opts *options.GrpcOptions, svc FleetQuerier) (*Server, error) {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(middleware.UnaryServerTimeoutInterceptor(opts.Timeout)))
	srv := &Server{
		server:  s,
		health:  health.NewServer(),
		svc:     svc,
		options: opts,
	}
	pb.RegisterFleetServiceServer(s, srv)
	healthpb.RegisterHealthServer(s, srv.health)
	if opts.EnableReflection {
		reflection.Register(s) // Enable grpc_cli support
	}
	return srv, nil
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}

	log.Info("Starting gRPC Server", "addr", s.options.Addr)
	return s.Serve(ctx, lis)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go s.watchFeed(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.health.Shutdown()
		s.server.GracefulStop()
		return nil
	}
}

// watchFeed mirrors the telemetry feed connection into the health service.
func (s *Server) watchFeed(ctx context.Context) {
	sub := s.svc.Events().Subscribe(16)
	defer sub.Cancel()

	s.setServing(s.svc.FeedConnected())
	for {
		select {
		case evt, ok := <-sub.C:
			if !ok {
				return
			}
			if evt.Type == service.EventFeed && evt.Connected != nil {
				s.setServing(*evt.Connected)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) setServing(connected bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if connected {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(pb.FleetService_ServiceName, st)
}

// ListVehicles implements v1.FleetServiceServer.
func (s *Server) ListVehicles(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	vehicles := s.svc.Vehicles()
	items := make([]any, 0, len(vehicles))
	for _, v := range vehicles {
		m, err := toMap(v)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "encode vehicle %d: %v", v.BusID, err)
		}
		items = append(items, m)
	}

	list, err := structpb.NewList(items)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode vehicles: %v", err)
	}
	return list, nil
}

// GetVehicle implements v1.FleetServiceServer. A vehicle the feed never
// reported comes back inactive with tracked=false.
func (s *Server) GetVehicle(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if req.GetValue() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "bus_id must be positive")
	}

	m, err := toMap(s.svc.VehicleDetail(req.GetValue()))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode vehicle: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode vehicle: %v", err)
	}
	return out, nil
}

// toMap converts v to the JSON document the HTTP API would serve.
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %T: %w", v, err)
	}
	return m, nil
}
