package usecase

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/zinrai/oc-neutron-go/internal/domain"
)

// maxPrefixLen covers IPv6; IPv4 lengths are not narrowed further.
const maxPrefixLen = 128

type SubnetUseCase struct {
	store       domain.ObjectStore
	defaultIpam []string
	logger      *zap.Logger
}

var _ domain.SubnetAware = (*SubnetUseCase)(nil)

// NewSubnetUseCase builds the handler. A nil store is accepted and makes
// every create check answer 503.
func NewSubnetUseCase(store domain.ObjectStore, defaultIpam []string, logger *zap.Logger) *SubnetUseCase {
	if len(defaultIpam) == 0 {
		defaultIpam = domain.DefaultNetworkIpam
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubnetUseCase{store: store, defaultIpam: defaultIpam, logger: logger}
}

func (uc *SubnetUseCase) CanCreateSubnet(ctx context.Context, subnet *domain.Subnet) int {
	if subnet == nil {
		uc.logger.Error("neutron subnet can't be nil")
		return http.StatusBadRequest
	}
	if uc.store == nil {
		uc.logger.Error("object store can't be nil")
		return http.StatusServiceUnavailable
	}

	vn, err := uc.store.FindVirtualNetwork(ctx, subnet.NetworkUUID)
	if err != nil {
		uc.logger.Error("failed to get virtual network",
			zap.String("network", subnet.NetworkUUID),
			zap.Error(err),
		)
		return http.StatusInternalServerError
	}
	if vn == nil {
		uc.logger.Error("no network exists for the specified uuid",
			zap.String("network", subnet.NetworkUUID),
		)
		return http.StatusForbidden
	}

	return uc.createSubnet(ctx, subnet, vn)
}

func (uc *SubnetUseCase) createSubnet(ctx context.Context, subnet *domain.Subnet, vn *domain.VirtualNetwork) int {
	if err := uc.mapSubnetProperties(ctx, subnet, vn); err != nil {
		uc.logger.Error("failed to map subnet onto virtual network",
			zap.String("cidr", subnet.CIDR),
			zap.String("network", vn.UUID),
			zap.Error(err),
		)
		if errors.Is(err, domain.ErrInvalidCIDR) {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}

	ok, err := uc.store.UpdateVirtualNetwork(ctx, vn)
	if err != nil {
		uc.logger.Error("failed to update virtual network",
			zap.String("network", vn.UUID),
			zap.Error(err),
		)
		return http.StatusInternalServerError
	}
	if !ok {
		uc.logger.Warn("subnet creation failed",
			zap.String("cidr", subnet.CIDR),
			zap.String("network", vn.UUID),
		)
		return http.StatusInternalServerError
	}

	uc.logger.Info("subnet added to network",
		zap.String("cidr", subnet.CIDR),
		zap.String("network", vn.UUID),
	)
	return http.StatusOK
}

// mapSubnetProperties appends the subnet to the attribute of the network's
// last IPAM reference and points the network at the default IPAM.
func (uc *SubnetUseCase) mapSubnetProperties(ctx context.Context, subnet *domain.Subnet, vn *domain.VirtualNetwork) error {
	prefix, prefixLen, err := ParseIPPrefix(subnet.CIDR)
	if err != nil {
		return err
	}

	ipamID, err := uc.store.FindIDByName(ctx, domain.KindNetworkIpam, uc.defaultIpam)
	if err != nil {
		return errors.Wrapf(err, "failed to find %s", strings.Join(uc.defaultIpam, ":"))
	}
	ipam, err := uc.store.FindNetworkIpam(ctx, ipamID)
	if err != nil {
		return errors.Wrapf(err, "failed to get network ipam %s", ipamID)
	}
	if ipam == nil {
		return errors.Errorf("network ipam %s not found", ipamID)
	}

	attr := &domain.VnSubnets{}
	for _, ref := range vn.NetworkIpamRefs {
		attr = ref.Attr
	}
	if attr == nil {
		attr = &domain.VnSubnets{}
	}

	// Duplicates are reported, not rejected.
	for _, existing := range attr.IpamSubnets {
		if existing.Subnet.IPPrefix == prefix {
			uc.logger.Warn("subnet prefix already present on network",
				zap.String("prefix", prefix),
				zap.Int("existingLen", existing.Subnet.IPPrefixLen),
				zap.String("network", vn.UUID),
			)
		}
	}

	// The generated id is written back so the caller can report it.
	if subnet.SubnetUUID == "" {
		subnet.SubnetUUID = uuid.New().String()
	}
	attr.AddIpamSubnet(domain.SubnetType{IPPrefix: prefix, IPPrefixLen: prefixLen}, subnet.GatewayIP, subnet.SubnetUUID)
	vn.SetNetworkIpam(ipam, attr)
	return nil
}

func (uc *SubnetUseCase) SubnetCreated(ctx context.Context, subnet *domain.Subnet) {
	if subnet == nil || uc.store == nil {
		return
	}
	vn, err := uc.store.FindVirtualNetwork(ctx, subnet.NetworkUUID)
	if err != nil {
		uc.logger.Error("failed to get virtual network", zap.String("network", subnet.NetworkUUID), zap.Error(err))
		return
	}
	if vn == nil {
		uc.logger.Error("no network exists for the specified uuid", zap.String("network", subnet.NetworkUUID))
		return
	}
	prefix, _, err := ParseIPPrefix(subnet.CIDR)
	if err != nil {
		uc.logger.Error("failed to parse subnet cidr", zap.String("cidr", subnet.CIDR), zap.Error(err))
		return
	}
	for _, ref := range vn.NetworkIpamRefs {
		if ref.Attr == nil {
			continue
		}
		for _, s := range ref.Attr.IpamSubnets {
			if s.Subnet.IPPrefix == prefix {
				uc.logger.Info("subnet creation verified",
					zap.String("cidr", subnet.CIDR),
					zap.String("network", vn.UUID),
				)
			}
		}
	}
}

func (uc *SubnetUseCase) CanUpdateSubnet(ctx context.Context, delta, original *domain.Subnet) int {
	uc.logger.Debug("subnet update requested", zap.Error(domain.ErrNotImplemented))
	return http.StatusNotImplemented
}

func (uc *SubnetUseCase) SubnetUpdated(ctx context.Context, subnet *domain.Subnet) {
	uc.logger.Debug("subnet updated notification ignored", zap.Error(domain.ErrNotImplemented))
}

func (uc *SubnetUseCase) CanDeleteSubnet(ctx context.Context, subnet *domain.Subnet) int {
	uc.logger.Debug("subnet delete requested", zap.Error(domain.ErrNotImplemented))
	return http.StatusNotImplemented
}

func (uc *SubnetUseCase) SubnetDeleted(ctx context.Context, subnet *domain.Subnet) {
	uc.logger.Debug("subnet deleted notification ignored", zap.Error(domain.ErrNotImplemented))
}

// ParseIPPrefix splits "10.0.0.0/24" into "10.0.0.0" and 24.
func ParseIPPrefix(cidr string) (string, int, error) {
	prefix, length, found := strings.Cut(cidr, "/")
	if !found {
		return "", 0, errors.Wrapf(domain.ErrInvalidCIDR, "string %q", cidr)
	}
	if prefix == "" {
		return "", 0, errors.Wrapf(domain.ErrInvalidCIDR, "string %q has no prefix", cidr)
	}
	prefixLen, err := strconv.Atoi(length)
	if err != nil {
		return "", 0, errors.Wrapf(domain.ErrInvalidCIDR, "string %q: %v", cidr, err)
	}
	if prefixLen < 0 || prefixLen > maxPrefixLen {
		return "", 0, errors.Wrapf(domain.ErrInvalidCIDR, "string %q: length out of range", cidr)
	}
	return prefix, prefixLen, nil
}
