package channel

import (
	"context"
	"fmt"
	"sync"

	"github.com/channelsync/backend/internal/application/syncengine"
	"github.com/google/uuid"
)

// FakeClient implements ChannelClient in memory, for development setups
// without real channel credentials and for exercising the factory lifecycle
// end to end.
type FakeClient struct {
	mu      sync.Mutex
	objects map[string]syncengine.Payload

	// FailNext makes the next call return an error, for failure-path tests.
	FailNext error
}

// NewFakeClient creates an empty fake channel
func NewFakeClient() *FakeClient {
	return &FakeClient{objects: make(map[string]syncengine.Payload)}
}

// CreateObject stores the payload under a generated remote ID
func (c *FakeClient) CreateObject(ctx context.Context, payload syncengine.Payload) (*syncengine.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return nil, err
	}

	remoteID := uuid.NewString()
	c.objects[remoteID] = payload
	return &syncengine.Response{
		RemoteID: remoteID,
		Data:     map[string]any{"id": remoteID},
	}, nil
}

// UpdateObject replaces the stored payload for a remote ID
func (c *FakeClient) UpdateObject(ctx context.Context, remoteID string, payload syncengine.Payload) (*syncengine.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return nil, err
	}

	if _, ok := c.objects[remoteID]; !ok {
		return nil, fmt.Errorf("%w: unknown remote ID %s", ErrChannelRequestFailed, remoteID)
	}
	c.objects[remoteID] = payload
	return &syncengine.Response{RemoteID: remoteID}, nil
}

// DeleteObject removes a stored object
func (c *FakeClient) DeleteObject(ctx context.Context, remoteID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return err
	}

	delete(c.objects, remoteID)
	return nil
}

// Object returns the stored payload for a remote ID
func (c *FakeClient) Object(remoteID string) (syncengine.Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.objects[remoteID]
	return payload, ok
}

// Len returns the number of stored objects
func (c *FakeClient) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.objects)
}

func (c *FakeClient) takeFailure() error {
	err := c.FailNext
	c.FailNext = nil
	return err
}

// Ensure FakeClient implements ChannelClient
var _ syncengine.ChannelClient = (*FakeClient)(nil)
