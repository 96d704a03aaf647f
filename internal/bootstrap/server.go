package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/carrental/config"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name reported by the gRPC health service.
const ServiceName = "carrental.Reservations"

const probeInterval = 15 * time.Second

// Probe reports whether a backing dependency (postgres, redis, kafka) is reachable.
type Probe func(ctx context.Context) error

type Servers struct {
	grpcServer *grpc.Server
	httpServer *http.Server
	health     *health.Server
}

// Run starts the HTTP API and the gRPC health endpoint and blocks until ctx is canceled or a server fails.
func Run(ctx context.Context, cfg *config.Config, handler http.Handler, probes ...Probe) error {
	s := newServers(cfg, handler)

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go s.watchHealth(ctx, probes)
	log.Printf("http listening on %s, grpc health on %s", cfg.HTTP.Address, cfg.GRPC.Address)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newServers(cfg *config.Config, handler http.Handler) *Servers {
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Servers{
		grpcServer: grpcSrv,
		httpServer: httpSrv,
		health:     healthSrv,
	}
}

func (s *Servers) watchHealth(ctx context.Context, probes []Probe) {
	updateHealth(ctx, s.health, probes)

	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateHealth(ctx, s.health, probes)
		}
	}
}

// updateHealth marks the service NOT_SERVING while any probe fails.
func updateHealth(ctx context.Context, hs *health.Server, probes []Probe) {
	status := healthpb.HealthCheckResponse_SERVING
	for _, probe := range probes {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := probe(probeCtx)
		cancel()
		if err != nil {
			log.Printf("health probe failed: %v", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
			break
		}
	}
	hs.SetServingStatus(ServiceName, status)
	hs.SetServingStatus("", status)
}
