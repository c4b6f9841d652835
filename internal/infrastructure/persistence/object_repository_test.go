package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/zinrai/oc-neutron-go/internal/domain"
	"github.com/zinrai/oc-neutron-go/internal/infrastructure/db"
)

const vnUUID = "6b9570f2-17b1-4fc399ec-1b7f7778a29b"

func TestFindVirtualNetwork(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer mockDB.Close()

	repo := NewObjectRepository(db.NewDB(mockDB))
	ctx := context.Background()

	t.Run("Network found", func(t *testing.T) {
		body := `{"uuid":"` + vnUUID + `","fq_name":["default-domain","demo","net1"],` +
			`"network_ipam_refs":[{"to":["default-domain","default-project","default-network-ipam"],` +
			`"attr":{"ipam_subnets":[{"subnet":{"ip_prefix":"10.0.1.0","ip_prefix_len":24}}]}}]}`
		mock.ExpectQuery("SELECT body FROM contrail_objects").
			WithArgs(domain.KindVirtualNetwork, vnUUID).
			WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(body))

		vn, err := repo.FindVirtualNetwork(ctx, vnUUID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if vn == nil || vn.UUID != vnUUID {
			t.Fatalf("expected network %s, got %+v", vnUUID, vn)
		}
		if len(vn.NetworkIpamRefs) != 1 || vn.NetworkIpamRefs[0].Attr.IpamSubnets[0].Subnet.IPPrefixLen != 24 {
			t.Errorf("unexpected ipam refs: %+v", vn.NetworkIpamRefs)
		}
	})

	t.Run("Network not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT body FROM contrail_objects").
			WithArgs(domain.KindVirtualNetwork, vnUUID).
			WillReturnError(sql.ErrNoRows)

		vn, err := repo.FindVirtualNetwork(ctx, vnUUID)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if vn != nil {
			t.Errorf("expected nil network, got %+v", vn)
		}
	})

	t.Run("Database error", func(t *testing.T) {
		dbErr := fmt.Errorf("database error")
		mock.ExpectQuery("SELECT body FROM contrail_objects").
			WithArgs(domain.KindVirtualNetwork, vnUUID).
			WillReturnError(dbErr)

		_, err := repo.FindVirtualNetwork(ctx, vnUUID)
		if !errors.Is(err, dbErr) {
			t.Errorf("expected error wrapping %v, got %v", dbErr, err)
		}
	})

	t.Run("Corrupt body", func(t *testing.T) {
		mock.ExpectQuery("SELECT body FROM contrail_objects").
			WithArgs(domain.KindVirtualNetwork, vnUUID).
			WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow("{not json"))

		_, err := repo.FindVirtualNetwork(ctx, vnUUID)
		if err == nil {
			t.Error("expected an error, got nil")
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFindIDByName(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer mockDB.Close()

	repo := NewObjectRepository(db.NewDB(mockDB))
	ctx := context.Background()

	t.Run("Default ipam found", func(t *testing.T) {
		mock.ExpectQuery("SELECT uuid FROM contrail_objects").
			WithArgs(domain.KindNetworkIpam, "default-domain:default-project:default-network-ipam").
			WillReturnRows(sqlmock.NewRows([]string{"uuid"}).AddRow("ipam-1"))
		mock.ExpectQuery("SELECT body FROM contrail_objects").
			WithArgs(domain.KindNetworkIpam, "ipam-1").
			WillReturnRows(sqlmock.NewRows([]string{"body"}).
				AddRow(`{"uuid":"ipam-1","fq_name":["default-domain","default-project","default-network-ipam"]}`))

		id, err := repo.FindIDByName(ctx, domain.KindNetworkIpam, domain.DefaultNetworkIpam)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ipam, err := repo.FindNetworkIpam(ctx, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ipam == nil || len(ipam.FQName) != 3 {
			t.Errorf("unexpected ipam: %+v", ipam)
		}
	})

	t.Run("Name not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT uuid FROM contrail_objects").
			WithArgs(domain.KindNetworkIpam, "default-domain:default-project:default-network-ipam").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindIDByName(ctx, domain.KindNetworkIpam, domain.DefaultNetworkIpam)
		if err == nil {
			t.Error("expected an error, got nil")
		}
	})
}

func TestUpdateVirtualNetwork(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer mockDB.Close()

	repo := NewObjectRepository(db.NewDB(mockDB))
	ctx := context.Background()
	vn := &domain.VirtualNetwork{UUID: vnUUID}

	t.Run("Update successfully", func(t *testing.T) {
		mock.ExpectExec("UPDATE contrail_objects").
			WithArgs(sqlmock.AnyArg(), domain.KindVirtualNetwork, vnUUID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.UpdateVirtualNetwork(ctx, vn)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !ok {
			t.Error("expected update to succeed")
		}
	})

	t.Run("Network vanished", func(t *testing.T) {
		mock.ExpectExec("UPDATE contrail_objects").
			WithArgs(sqlmock.AnyArg(), domain.KindVirtualNetwork, vnUUID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.UpdateVirtualNetwork(ctx, vn)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected update to report failure")
		}
	})

	t.Run("Database error when updating", func(t *testing.T) {
		dbErr := fmt.Errorf("database error")
		mock.ExpectExec("UPDATE contrail_objects").
			WithArgs(sqlmock.AnyArg(), domain.KindVirtualNetwork, vnUUID).
			WillReturnError(dbErr)

		_, err := repo.UpdateVirtualNetwork(ctx, vn)
		if !errors.Is(err, dbErr) {
			t.Errorf("expected error wrapping %v, got %v", dbErr, err)
		}
	})
}

func TestCreateObjects(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer mockDB.Close()

	repo := NewObjectRepository(db.NewDB(mockDB))
	ctx := context.Background()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS contrail_objects").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO contrail_objects").
		WithArgs("ipam-1", domain.KindNetworkIpam, "default-domain:default-project:default-network-ipam", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO contrail_objects").
		WithArgs(vnUUID, domain.KindVirtualNetwork, "default-domain:demo:net1", sqlmock.AnyArg()).
		WillReturnError(fmt.Errorf("database error"))

	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.CreateNetworkIpam(ctx, &domain.NetworkIpam{UUID: "ipam-1", FQName: domain.DefaultNetworkIpam}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err = repo.CreateVirtualNetwork(ctx, &domain.VirtualNetwork{UUID: vnUUID, FQName: []string{"default-domain", "demo", "net1"}})
	if err == nil {
		t.Error("expected an error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
