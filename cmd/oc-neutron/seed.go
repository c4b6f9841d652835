package main

import (
	"context"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/zinrai/oc-neutron-go/internal/config"
	"github.com/zinrai/oc-neutron-go/internal/domain"
	"github.com/zinrai/oc-neutron-go/internal/infrastructure/db"
	"github.com/zinrai/oc-neutron-go/internal/infrastructure/persistence"
	"github.com/zinrai/oc-neutron-go/internal/logger"
)

type seedFile struct {
	Networks []struct {
		UUID   string   `yaml:"uuid"`
		FQName []string `yaml:"fq_name"`
	} `yaml:"networks"`
}

func newSeedCmd() *cobra.Command {
	var configPath, networksPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load virtual networks into the postgres store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Store != config.StorePostgres {
				return errors.Errorf("seed needs the %s store, config selects %q", config.StorePostgres, cfg.Store)
			}
			networks, err := loadSeedFile(networksPath)
			if err != nil {
				return err
			}

			log, cleanup := logger.New(cfg.Log)
			defer cleanup()

			conn, err := db.Open(cfg.Postgres.DSN)
			if err != nil {
				return err
			}
			defer conn.Close()

			repo := persistence.NewObjectRepository(conn)
			if err := bootstrap(cmd.Context(), repo, cfg.DefaultIpam); err != nil {
				return err
			}
			if err := seedNetworks(cmd.Context(), repo, networks); err != nil {
				return err
			}
			log.Info("seeded virtual networks", zap.Int("count", len(networks)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	cmd.Flags().StringVarP(&networksPath, "networks", "n", "", "path to the YAML file listing virtual networks")
	_ = cmd.MarkFlagRequired("networks")
	return cmd
}

// bootstrap creates the object table and the default IPAM. Both steps are
// idempotent so it runs on every start.
func bootstrap(ctx context.Context, repo *persistence.ObjectRepository, defaultIpam []string) error {
	if err := repo.Migrate(ctx); err != nil {
		return err
	}
	ipam := &domain.NetworkIpam{UUID: uuid.New().String(), FQName: defaultIpam}
	if err := repo.CreateNetworkIpam(ctx, ipam); err != nil {
		return errors.Wrapf(err, "failed to create default ipam %s", strings.Join(defaultIpam, ":"))
	}
	return nil
}

func loadSeedFile(path string) ([]*domain.VirtualNetwork, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read networks %s", path)
	}
	var f seedFile
	if err := yaml.UnmarshalStrict(b, &f); err != nil {
		return nil, errors.Wrapf(err, "failed to parse networks %s", path)
	}

	networks := make([]*domain.VirtualNetwork, 0, len(f.Networks))
	for i, n := range f.Networks {
		if len(n.FQName) == 0 {
			return nil, errors.Errorf("network %d in %s has no fq_name", i, path)
		}
		id := n.UUID
		if id == "" {
			id = uuid.New().String()
		}
		networks = append(networks, &domain.VirtualNetwork{UUID: id, FQName: n.FQName})
	}
	return networks, nil
}

func seedNetworks(ctx context.Context, repo *persistence.ObjectRepository, networks []*domain.VirtualNetwork) error {
	for _, vn := range networks {
		if err := repo.CreateVirtualNetwork(ctx, vn); err != nil {
			return errors.Wrapf(err, "failed to seed network %s", strings.Join(vn.FQName, ":"))
		}
	}
	return nil
}
