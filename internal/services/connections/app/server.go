// Package server wires the connections runtime and gRPC lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shawnlauzon/belong-platform/internal/platform/config"
	"github.com/shawnlauzon/belong-platform/internal/services/connections/grant"
	connectionssqlite "github.com/shawnlauzon/belong-platform/internal/services/connections/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const defaultSweepInterval = time.Hour

// sweepBatchSize bounds how many requests one sweep pass retires.
const sweepBatchSize = 200

type serverEnv struct {
	DBPath        string        `env:"BELONG_CONNECTIONS_DB_PATH"`
	SweepInterval time.Duration `env:"BELONG_CONNECTIONS_SWEEP_INTERVAL"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "connections.db")
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	return cfg
}

// Server hosts the connections service and its lifecycle.
type Server struct {
	listener      net.Listener
	grpcServer    *grpc.Server
	health        *health.Server
	store         *connectionssqlite.Store
	service       *Service
	sweepInterval time.Duration
}

// New creates a configured connections server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured connections server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	srvEnv := loadServerEnv()
	store, err := openConnectionsStore(srvEnv.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	var serviceOpts []ServiceOption
	grantCfg, err := grant.LoadConfigFromEnv(nil)
	if err == nil {
		serviceOpts = append(serviceOpts, WithGrantConfig(grantCfg))
	} else {
		// Identity verification stays off unless fully configured.
		log.Printf("identity grants disabled: %v", err)
	}
	service := NewService(store, serviceOpts...)

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("belong.connections", grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:      listener,
		grpcServer:    grpcServer,
		health:        healthServer,
		store:         store,
		service:       service,
		sweepInterval: srvEnv.SweepInterval,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Service returns the business facade hosted by this server.
func (s *Server) Service() *Service {
	if s == nil {
		return nil
	}
	return s.service
}

// Run creates and serves a connections server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("connections server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()
	go s.sweepLoop(ctx)

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// sweepLoop periodically retires pending requests past their expiry.
func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := s.service.ExpireDueRequests(ctx, sweepBatchSize)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("expire due requests: %v", err)
				continue
			}
			if expired > 0 {
				log.Printf("expired %d connection requests", expired)
			}
		}
	}
}

// Close releases connections server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close connections store: %v", err)
		}
	}
}

func openConnectionsStore(path string) (*connectionssqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := connectionssqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open connections sqlite store: %w", err)
	}
	return store, nil
}
