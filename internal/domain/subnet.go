package domain

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrInvalidCIDR    = errors.New("cidr not in prefix/length format")
	ErrNotImplemented = errors.New("not implemented")
)

type AllocationPool struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Subnet is a Neutron subnet as handed over by the orchestration layer.
// CanCreateSubnet fills in SubnetUUID when the request leaves it empty.
type Subnet struct {
	NetworkUUID     string           `json:"network_id"`
	SubnetUUID      string           `json:"id,omitempty"`
	CIDR            string           `json:"cidr"`
	GatewayIP       string           `json:"gateway_ip,omitempty"`
	AllocationPools []AllocationPool `json:"allocation_pools,omitempty"`
}

// SubnetAware receives subnet lifecycle events. The Can* checks return an
// HTTP status code; the notifications are fire and forget.
type SubnetAware interface {
	CanCreateSubnet(ctx context.Context, subnet *Subnet) int
	SubnetCreated(ctx context.Context, subnet *Subnet)
	CanUpdateSubnet(ctx context.Context, delta, original *Subnet) int
	SubnetUpdated(ctx context.Context, subnet *Subnet)
	CanDeleteSubnet(ctx context.Context, subnet *Subnet) int
	SubnetDeleted(ctx context.Context, subnet *Subnet)
}
