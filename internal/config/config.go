package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/zinrai/oc-neutron-go/internal/domain"
)

const (
	StoreContrail = "contrail"
	StorePostgres = "postgres"
)

type Config struct {
	Listen      string         `yaml:"listen"`
	Store       string         `yaml:"store"`
	DefaultIpam []string       `yaml:"default_ipam"`
	Contrail    ContrailConfig `yaml:"contrail"`
	Postgres    PostgresConfig `yaml:"postgres"`
	Log         LogConfig      `yaml:"log"`
}

type ContrailConfig struct {
	URL       string        `yaml:"url"`
	Timeout   time.Duration `yaml:"timeout"`
	AuthToken string        `yaml:"auth_token"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
}

func Default() *Config {
	return &Config{
		Listen:      ":8080",
		Store:       StoreContrail,
		DefaultIpam: domain.DefaultNetworkIpam,
		Contrail: ContrailConfig{
			URL:     "http://127.0.0.1:8082",
			Timeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 3,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	if err := yaml.UnmarshalStrict(b, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store {
	case StoreContrail:
		if c.Contrail.URL == "" {
			return errors.New("contrail.url is required for the contrail store")
		}
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for the postgres store")
		}
	default:
		return errors.Errorf("unknown store %q", c.Store)
	}
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if len(c.DefaultIpam) == 0 {
		return errors.New("default_ipam must not be empty")
	}
	return nil
}
