package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/nainya/codetree/internal/config"
	"github.com/nainya/codetree/internal/metrics"
	"github.com/nainya/codetree/internal/server"
	"github.com/nainya/codetree/pkg/provider"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the CodeTree gRPC service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	log := opts.newLogger(cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	p, closeProvider, err := openProvider(ctx, cfg.Provider, log, m)
	if err != nil {
		return fmt.Errorf("open provider: %w", err)
	}
	defer closeProvider()

	log.LogServerStart(cfg.Server.GrpcPort, cfg.Provider.Kind)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GrpcPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(server.GrpcMetricsInterceptor(m, log)),
		grpc.MaxRecvMsgSize(16*1024*1024),
		grpc.MaxSendMsgSize(16*1024*1024),
	)
	server.RegisterCodeTreeServer(grpcServer, server.NewServer(p, m, log, cfg.Hierarchy.Concurrency))

	// Register reflection service for grpcurl/grpcui
	reflection.Register(grpcServer)

	var obs *server.ObservabilityServer
	if cfg.Server.MetricsPort != 0 {
		obs = server.NewObservabilityServer(cfg.Server.MetricsPort, prometheus.DefaultGatherer, log)
		go func() {
			if err := obs.Start(); err != nil {
				log.Error().Err(err).Msg("Observability server stopped")
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(lis)
	}()

	log.LogServerReady(cfg.Server.GrpcPort)
	if obs != nil {
		obs.SetReady(true)
	}

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("failed to serve: %w", err)
	}

	log.LogServerShutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if obs != nil {
		if err := obs.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Observability server shutdown")
		}
	}
	gracefulStop(shutdownCtx, grpcServer)

	return nil
}

// gracefulStop drains in-flight calls until ctx expires, then forces a stop
func gracefulStop(ctx context.Context, s *grpc.Server) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.Stop()
	}
}

func newTermsCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "terms",
		Short: "Serve the configured provider over the HTTP terminology protocol",
		Long: `terms exposes GET /codes/{code}/parents, GET /codes/{code}/children
and POST /names, the protocol the http provider consumes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log := opts.newLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, closeProvider, err := openProvider(ctx, cfg.Provider, log, nil)
			if err != nil {
				return fmt.Errorf("open provider: %w", err)
			}
			defer closeProvider()

			srv := &http.Server{
				Addr:              addr,
				Handler:           provider.Handler(p),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()

			log.Info().Str("addr", addr).Str("provider", cfg.Provider.Kind).Msg("Terminology endpoint listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8081", "listen address")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a fixture into the SQL provider's tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Provider.Kind != config.ProviderMemory {
				return errors.New("import needs a fixture (--fixture or provider.kind: memory)")
			}
			if dsn == "" {
				dsn = cfg.Provider.DSN
			}
			if dsn == "" {
				return errors.New("import needs --dsn or provider.dsn")
			}
			log := opts.newLogger(cfg)

			mem, err := provider.LoadYAMLFile(cfg.Provider.Fixture)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := provider.OpenSQL(ctx, dsn, *log.ProviderLogger(config.ProviderSQL).GetZerolog())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.EnsureSchema(ctx); err != nil {
				return err
			}
			if err := db.Import(ctx, mem); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d codes and %d relationships\n", len(mem.Codes()), len(mem.Edges()))
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "Postgres DSN (defaults to provider.dsn)")
	return cmd
}
