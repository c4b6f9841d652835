package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zinrai/oc-neutron-go/internal/domain"
	"github.com/zinrai/oc-neutron-go/internal/infrastructure/db"
)

// Schema creates the table ObjectRepository reads and writes.
const Schema = `CREATE TABLE IF NOT EXISTS contrail_objects (
	uuid    TEXT PRIMARY KEY,
	type    TEXT NOT NULL,
	fq_name TEXT NOT NULL,
	body    JSONB NOT NULL,
	UNIQUE (type, fq_name)
)`

// ObjectRepository keeps Contrail objects as JSON documents in Postgres.
type ObjectRepository struct {
	db *db.DB
}

var _ domain.ObjectStore = (*ObjectRepository)(nil)

func NewObjectRepository(db *db.DB) *ObjectRepository {
	return &ObjectRepository{db: db}
}

func (r *ObjectRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create contrail_objects table: %w", err)
	}
	return nil
}

func (r *ObjectRepository) FindVirtualNetwork(ctx context.Context, uuid string) (*domain.VirtualNetwork, error) {
	var vn domain.VirtualNetwork
	found, err := r.getObject(ctx, domain.KindVirtualNetwork, uuid, &vn)
	if err != nil || !found {
		return nil, err
	}
	return &vn, nil
}

func (r *ObjectRepository) FindNetworkIpam(ctx context.Context, uuid string) (*domain.NetworkIpam, error) {
	var ipam domain.NetworkIpam
	found, err := r.getObject(ctx, domain.KindNetworkIpam, uuid, &ipam)
	if err != nil || !found {
		return nil, err
	}
	return &ipam, nil
}

func (r *ObjectRepository) FindIDByName(ctx context.Context, kind string, fqName []string) (string, error) {
	query := `SELECT uuid FROM contrail_objects WHERE type = $1 AND fq_name = $2`
	var uuid string
	err := r.db.QueryRowContext(ctx, query, kind, strings.Join(fqName, ":")).Scan(&uuid)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("%s %s not found", kind, strings.Join(fqName, ":"))
		}
		return "", fmt.Errorf("failed to find %s by name: %w", kind, err)
	}
	return uuid, nil
}

func (r *ObjectRepository) UpdateVirtualNetwork(ctx context.Context, vn *domain.VirtualNetwork) (bool, error) {
	body, err := json.Marshal(vn)
	if err != nil {
		return false, fmt.Errorf("failed to encode virtual network: %w", err)
	}
	query := `UPDATE contrail_objects SET body = $1 WHERE type = $2 AND uuid = $3`
	result, err := r.db.ExecContext(ctx, query, body, domain.KindVirtualNetwork, vn.UUID)
	if err != nil {
		return false, fmt.Errorf("failed to update virtual network: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *ObjectRepository) CreateVirtualNetwork(ctx context.Context, vn *domain.VirtualNetwork) error {
	return r.createObject(ctx, domain.KindVirtualNetwork, vn.UUID, vn.FQName, vn)
}

func (r *ObjectRepository) CreateNetworkIpam(ctx context.Context, ipam *domain.NetworkIpam) error {
	return r.createObject(ctx, domain.KindNetworkIpam, ipam.UUID, ipam.FQName, ipam)
}

func (r *ObjectRepository) getObject(ctx context.Context, kind, uuid string, out interface{}) (bool, error) {
	query := `SELECT body FROM contrail_objects WHERE type = $1 AND uuid = $2`
	var body []byte
	err := r.db.QueryRowContext(ctx, query, kind, uuid).Scan(&body)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s: %w", kind, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("failed to decode %s %s: %w", kind, uuid, err)
	}
	return true, nil
}

func (r *ObjectRepository) createObject(ctx context.Context, kind, uuid string, fqName []string, obj interface{}) error {
	body, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", kind, err)
	}
	query := `
		INSERT INTO contrail_objects (uuid, type, fq_name, body)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, uuid, kind, strings.Join(fqName, ":"), body); err != nil {
		return fmt.Errorf("failed to create %s: %w", kind, err)
	}
	return nil
}
