package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/channelsync/backend/internal/application/syncengine"
	"github.com/channelsync/backend/internal/domain/integration"
)

// maxResponseSize caps how much of a channel response is read (10MB)
const maxResponseSize = 10 * 1024 * 1024

var (
	ErrChannelUnavailable   = errors.New("channel: remote API unreachable")
	ErrChannelRequestFailed = errors.New("channel: remote API rejected the request")
)

// RESTClient implements ChannelClient against a JSON REST API rooted at the
// integration's hostname. Channels with richer protocols get their own
// client; this one covers the common object CRUD surface.
type RESTClient struct {
	baseURL    string
	apiKey     string
	resource   string
	httpClient *http.Client
}

// RESTClientConfig holds per-integration connection settings
type RESTClientConfig struct {
	APIKey         string
	Resource       string
	TimeoutSeconds int
}

// NewRESTClient creates a client for one integration
func NewRESTClient(inst *integration.Integration, cfg RESTClientConfig) (*RESTClient, error) {
	if inst.Hostname == "" {
		return nil, fmt.Errorf("channel: integration %s has no hostname", inst.ID)
	}
	resource := cfg.Resource
	if resource == "" {
		resource = "objects"
	}
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	return &RESTClient{
		baseURL:  "https://" + inst.Hostname,
		apiKey:   cfg.APIKey,
		resource: resource,
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}, nil
}

// CreateObject creates a remote object and returns its remote ID
func (c *RESTClient) CreateObject(ctx context.Context, payload syncengine.Payload) (*syncengine.Response, error) {
	return c.doJSON(ctx, http.MethodPost, c.resourceURL(""), payload)
}

// UpdateObject updates an existing remote object
func (c *RESTClient) UpdateObject(ctx context.Context, remoteID string, payload syncengine.Payload) (*syncengine.Response, error) {
	return c.doJSON(ctx, http.MethodPut, c.resourceURL(remoteID), payload)
}

// DeleteObject removes a remote object
func (c *RESTClient) DeleteObject(ctx context.Context, remoteID string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, c.resourceURL(remoteID), nil)
	return err
}

func (c *RESTClient) resourceURL(remoteID string) string {
	u := c.baseURL + "/api/" + c.resource
	if remoteID != "" {
		u += "/" + url.PathEscape(remoteID)
	}
	return u
}

func (c *RESTClient) doJSON(ctx context.Context, method, requestURL string, payload syncengine.Payload) (*syncengine.Response, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("channel: failed to encode payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("channel: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("channel: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrChannelRequestFailed, resp.StatusCode, truncate(raw, 512))
	}

	result := &syncengine.Response{}
	if len(raw) > 0 {
		var data map[string]any
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("channel: failed to decode response: %w", err)
		}
		result.Data = data
		if id, ok := data["id"].(string); ok {
			result.RemoteID = id
		}
	}
	return result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Ensure RESTClient implements ChannelClient
var _ syncengine.ChannelClient = (*RESTClient)(nil)
