package grpc

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"sms-gateway/pkg/logger"
)

// Server exposes grpc.health.v1.Health (plus reflection) so orchestrators
// can probe the gateway.
type Server struct {
	srv    *grpc.Server
	health *health.Server
}

func NewServer() *Server {
	s := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	reflection.Register(s)

	return &Server{srv: s, health: h}
}

// SetServing updates the status reported for service ("" is the whole server).
func (s *Server) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
}

func (s *Server) Serve(lis net.Listener) error {
	logger.Infof("gRPC server listening at %v", lis.Addr())
	return s.srv.Serve(lis)
}

// StartGRPCServer listens on port and serves in the background.
func (s *Server) StartGRPCServer(port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}
	go func() {
		if err := s.Serve(lis); err != nil {
			logger.Errorf("gRPC server stopped: %v", err)
		}
	}()
	return nil
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
