package contrail

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/zinrai/oc-neutron-go/internal/domain"
)

const authTokenHeader = "X-Auth-Token"

type do interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to the Contrail API server REST interface.
type Client struct {
	baseURL    *url.URL
	authToken  string
	httpClient do
	logger     *zap.Logger
}

var _ domain.ObjectStore = (*Client)(nil)

type Option func(*Client)

func WithAuthToken(token string) Option {
	return func(c *Client) { c.authToken = token }
}

func WithHTTPClient(d do) Option {
	return func(c *Client) { c.httpClient = d }
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse contrail url %q", baseURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("contrail url %q must be absolute", baseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) FindVirtualNetwork(ctx context.Context, uuid string) (*domain.VirtualNetwork, error) {
	var envelope struct {
		VirtualNetwork *domain.VirtualNetwork `json:"virtual-network"`
	}
	found, err := c.get(ctx, domain.KindVirtualNetwork, uuid, &envelope)
	if err != nil || !found {
		return nil, err
	}
	return envelope.VirtualNetwork, nil
}

func (c *Client) FindNetworkIpam(ctx context.Context, uuid string) (*domain.NetworkIpam, error) {
	var envelope struct {
		NetworkIpam *domain.NetworkIpam `json:"network-ipam"`
	}
	found, err := c.get(ctx, domain.KindNetworkIpam, uuid, &envelope)
	if err != nil || !found {
		return nil, err
	}
	return envelope.NetworkIpam, nil
}

func (c *Client) FindIDByName(ctx context.Context, kind string, fqName []string) (string, error) {
	reqBody := struct {
		Type   string   `json:"type"`
		FQName []string `json:"fq_name"`
	}{Type: kind, FQName: fqName}

	resp, err := c.do(ctx, http.MethodPost, "/fqname-to-id", reqBody)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("fqname-to-id for %s %s returned %s", kind, strings.Join(fqName, ":"), resp.Status)
	}
	var res struct {
		UUID string `json:"uuid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", errors.Wrap(err, "failed to decode fqname-to-id response")
	}
	return res.UUID, nil
}

// UpdateVirtualNetwork reports false when the API server rejects the write.
func (c *Client) UpdateVirtualNetwork(ctx context.Context, vn *domain.VirtualNetwork) (bool, error) {
	reqBody := struct {
		VirtualNetwork *domain.VirtualNetwork `json:"virtual-network"`
	}{VirtualNetwork: vn}

	resp, err := c.do(ctx, http.MethodPut, "/"+domain.KindVirtualNetwork+"/"+vn.UUID, reqBody)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		c.logger.Warn("contrail rejected virtual network update",
			zap.String("uuid", vn.UUID),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", b),
		)
		return false, nil
	}
	return true, nil
}

func (c *Client) get(ctx context.Context, kind, uuid string, out interface{}) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/"+kind+"/"+uuid, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, errors.Errorf("get %s %s returned %s", kind, uuid, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, errors.Wrapf(err, "failed to decode %s %s", kind, uuid)
	}
	return true, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	u := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimSuffix(c.baseURL.Path, "/") + path})

	var r io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request body")
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to construct request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set(authTokenHeader, c.authToken)
	}

	c.logger.Debug("contrail request", zap.String("method", method), zap.String("url", u.String()))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to execute %s %s", method, path)
	}
	return resp, nil
}
