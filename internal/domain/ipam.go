package domain

import (
	"context"
)

const (
	KindVirtualNetwork = "virtual-network"
	KindNetworkIpam    = "network-ipam"
)

// DefaultNetworkIpam is the fq-name of the IPAM every project gets at creation.
var DefaultNetworkIpam = []string{"default-domain", "default-project", "default-network-ipam"}

type SubnetType struct {
	IPPrefix    string `json:"ip_prefix"`
	IPPrefixLen int    `json:"ip_prefix_len"`
}

type IpamSubnet struct {
	Subnet         SubnetType `json:"subnet"`
	DefaultGateway string     `json:"default_gateway,omitempty"`
	SubnetUUID     string     `json:"subnet_uuid,omitempty"`
}

type VnSubnets struct {
	IpamSubnets []IpamSubnet `json:"ipam_subnets"`
}

func (s *VnSubnets) AddIpamSubnet(subnet SubnetType, gateway, subnetUUID string) {
	s.IpamSubnets = append(s.IpamSubnets, IpamSubnet{
		Subnet:         subnet,
		DefaultGateway: gateway,
		SubnetUUID:     subnetUUID,
	})
}

type ObjectReference struct {
	To   []string   `json:"to"`
	UUID string     `json:"uuid,omitempty"`
	Attr *VnSubnets `json:"attr,omitempty"`
}

type NetworkIpam struct {
	UUID   string   `json:"uuid"`
	FQName []string `json:"fq_name"`
}

type VirtualNetwork struct {
	UUID            string            `json:"uuid"`
	FQName          []string          `json:"fq_name,omitempty"`
	NetworkIpamRefs []ObjectReference `json:"network_ipam_refs,omitempty"`
}

// SetNetworkIpam replaces every IPAM reference with a single one to ipam.
func (vn *VirtualNetwork) SetNetworkIpam(ipam *NetworkIpam, attr *VnSubnets) {
	ref := ObjectReference{Attr: attr}
	if ipam != nil {
		ref.To = ipam.FQName
		ref.UUID = ipam.UUID
	}
	vn.NetworkIpamRefs = []ObjectReference{ref}
}

// ObjectStore is the subset of the Contrail API the subnet handler needs.
// Find methods return nil, nil when the object does not exist.
type ObjectStore interface {
	FindVirtualNetwork(ctx context.Context, uuid string) (*VirtualNetwork, error)
	FindNetworkIpam(ctx context.Context, uuid string) (*NetworkIpam, error)
	FindIDByName(ctx context.Context, kind string, fqName []string) (string, error)
	UpdateVirtualNetwork(ctx context.Context, vn *VirtualNetwork) (bool, error)
}
