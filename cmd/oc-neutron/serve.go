package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zinrai/oc-neutron-go/internal/config"
	"github.com/zinrai/oc-neutron-go/internal/domain"
	"github.com/zinrai/oc-neutron-go/internal/infrastructure/contrail"
	"github.com/zinrai/oc-neutron-go/internal/infrastructure/db"
	"github.com/zinrai/oc-neutron-go/internal/infrastructure/persistence"
	"github.com/zinrai/oc-neutron-go/internal/interface/api"
	"github.com/zinrai/oc-neutron-go/internal/logger"
	"github.com/zinrai/oc-neutron-go/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve Neutron subnet requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, cleanup := logger.New(cfg.Log)
	defer cleanup()

	store, closeStore, err := newStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	if err := api.RegisterMetrics(reg); err != nil {
		return errors.Wrap(err, "failed to register metrics")
	}

	subnets := usecase.NewSubnetUseCase(store, cfg.DefaultIpam, log.Named("subnet"))
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.NewSubnetHandler(subnets, log.Named("api")).Router(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Listen), zap.String("store", cfg.Store))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Wrap(srv.Shutdown(shutdownCtx), "failed to shut down server")
}

func newStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (domain.ObjectStore, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		conn, err := db.Open(cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		repo := persistence.NewObjectRepository(conn)
		if err := bootstrap(ctx, repo, cfg.DefaultIpam); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return repo, func() { conn.Close() }, nil
	case config.StoreContrail:
		client, err := contrail.New(cfg.Contrail.URL, cfg.Contrail.Timeout, log.Named("contrail"),
			contrail.WithAuthToken(cfg.Contrail.AuthToken))
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	default:
		return nil, nil, errors.Errorf("unknown store %q", cfg.Store)
	}
}
