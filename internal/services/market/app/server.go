// Package server wires the marketplace runtime: storage, the domain
// services, the stale-purchase sweeper, and the gRPC health lifecycle.
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

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ryanvernados/artmatch-ai/internal/platform/config"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/service"
	marketsqlite "github.com/ryanvernados/artmatch-ai/internal/services/market/storage/sqlite"
)

const healthServiceName = "artmatch.market.v1.MarketService"

type serverEnv struct {
	DBPath        string        `env:"ARTMATCH_MARKET_DB_PATH"`
	PendingExpiry time.Duration `env:"ARTMATCH_MARKET_PENDING_EXPIRY" envDefault:"24h"`
	SweepInterval time.Duration `env:"ARTMATCH_MARKET_SWEEP_INTERVAL" envDefault:"10m"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "market.db")
	}
	if cfg.PendingExpiry <= 0 {
		cfg.PendingExpiry = 24 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 10 * time.Minute
	}
	return cfg
}

// Server hosts the marketplace services and the gRPC health lifecycle.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      *marketsqlite.Store

	env serverEnv

	listings     *service.Listings
	transactions *service.Transactions
	reviews      *service.Reviews
	favorites    *service.Favorites
	verification *service.Verification
	provenance   *service.Provenance
	stats        *service.Stats
}

// New creates a configured marketplace server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured marketplace server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	env := loadServerEnv()
	store, err := openMarketStore(env.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	deps := service.Deps{Store: store}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(healthServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:     listener,
		grpcServer:   grpcServer,
		health:       healthServer,
		store:        store,
		env:          env,
		listings:     service.NewListings(deps),
		transactions: service.NewTransactions(deps),
		reviews:      service.NewReviews(deps),
		favorites:    service.NewFavorites(deps),
		verification: service.NewVerification(deps),
		provenance:   service.NewProvenance(deps),
		stats:        service.NewStats(deps),
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Listings returns the listing service.
func (s *Server) Listings() *service.Listings { return s.listings }

// Transactions returns the transaction service.
func (s *Server) Transactions() *service.Transactions { return s.transactions }

// Reviews returns the review service.
func (s *Server) Reviews() *service.Reviews { return s.reviews }

// Favorites returns the favorite service.
func (s *Server) Favorites() *service.Favorites { return s.favorites }

// Verification returns the verification service.
func (s *Server) Verification() *service.Verification { return s.verification }

// Provenance returns the provenance service.
func (s *Server) Provenance() *service.Provenance { return s.provenance }

// Stats returns the stats service.
func (s *Server) Stats() *service.Stats { return s.stats }

// Run creates and serves a marketplace server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the gRPC server and the stale-purchase sweeper until context
// cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sweepStalePending(sweepCtx)

	log.Printf("market server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

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

// sweepStalePending periodically cancels pending purchases that were never
// paid, releasing their listings.
func (s *Server) sweepStalePending(ctx context.Context) {
	ticker := time.NewTicker(s.env.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := s.transactions.ExpireStalePending(ctx, s.env.PendingExpiry)
			if err != nil {
				log.Printf("sweep stale pending: %v", err)
				continue
			}
			if expired > 0 {
				log.Printf("expired %d stale pending transactions", expired)
			}
		}
	}
}

// Close releases marketplace server resources.
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
			log.Printf("close market store: %v", err)
		}
	}
}

func openMarketStore(path string) (*marketsqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := marketsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open market sqlite store: %w", err)
	}
	return store, nil
}
