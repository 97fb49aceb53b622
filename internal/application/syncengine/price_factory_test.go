package syncengine

import (
	"context"
	"errors"
	"testing"

	"github.com/channelsync/backend/internal/domain/catalog"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubPriceRepo serves a fixed price list per product
type stubPriceRepo struct {
	prices []*catalog.ProductPrice
}

func (r *stubPriceRepo) FindByProduct(ctx context.Context, productID uuid.UUID) ([]*catalog.ProductPrice, error) {
	return r.prices, nil
}

func (r *stubPriceRepo) Save(ctx context.Context, price *catalog.ProductPrice) error {
	return nil
}

func newPricedMirror(t *testing.T) (*sync.RemoteProduct, *stubPriceRepo) {
	t.Helper()
	tenantID := uuid.New()
	mirror := sync.NewRemoteProduct(tenantID, uuid.New(), uuid.New())
	mirror.SetRemoteID("rem-1")
	mirror.MarkCreated()

	eur, err := catalog.NewProductPrice(tenantID, mirror.LocalInstanceID, "EUR", decimal.NewFromInt(100), decimal.NewFromInt(90))
	require.NoError(t, err)
	usd, err := catalog.NewProductPrice(tenantID, mirror.LocalInstanceID, "USD", decimal.NewFromInt(110), decimal.NewFromInt(99))
	require.NoError(t, err)

	return mirror, &stubPriceRepo{prices: []*catalog.ProductPrice{eur, usd}}
}

func TestPriceUpdateFactory_Run_PushesChangedCurrencies(t *testing.T) {
	mirror, prices := newPricedMirror(t)
	client := newStubClient()
	mirrors := &stubMirrorStore{}
	logs := &stubLogRepo{}

	factory := NewPriceUpdateFactory(prices, client, mirrors, logs, []string{"EUR", "USD"}, zap.NewNop())
	result, err := factory.Run(context.Background(), mirror)

	require.NoError(t, err)
	assert.False(t, result.Aborted)
	assert.Contains(t, client.updated, "rem-1")
	assert.NotEmpty(t, mirror.PriceData)

	require.Len(t, logs.entries, 1)
	assert.Equal(t, sync.LogOutcomeSuccess, logs.entries[0].Outcome)
}

func TestPriceUpdateFactory_Run_SecondRunIsNoop(t *testing.T) {
	mirror, prices := newPricedMirror(t)
	client := newStubClient()
	mirrors := &stubMirrorStore{}

	factory := NewPriceUpdateFactory(prices, client, mirrors, nil, []string{"EUR", "USD"}, zap.NewNop())

	first, err := factory.Run(context.Background(), mirror)
	require.NoError(t, err)
	assert.False(t, first.Aborted)

	// Unchanged local prices make the second run abort before any call.
	second, err := factory.Run(context.Background(), mirror)
	require.NoError(t, err)
	assert.True(t, second.Aborted)
	assert.Len(t, client.updated, 1)
}

func TestPriceUpdateFactory_Run_PushesOnlyChangedCurrency(t *testing.T) {
	mirror, prices := newPricedMirror(t)
	client := newStubClient()
	factory := NewPriceUpdateFactory(prices, client, &stubMirrorStore{}, nil, []string{"EUR", "USD"}, zap.NewNop())

	_, err := factory.Run(context.Background(), mirror)
	require.NoError(t, err)

	prices.prices[0].Price = decimal.NewFromInt(105)

	toUpdate, err := factory.ToUpdateCurrencies(context.Background(), mirror)
	require.NoError(t, err)
	require.Len(t, toUpdate, 1)
	assert.Equal(t, "EUR", toUpdate[0].Currency)
	assert.True(t, toUpdate[0].Price.Equal(decimal.NewFromInt(105)))
}

func TestPriceUpdateFactory_Run_IgnoresUnmirroredCurrencies(t *testing.T) {
	mirror, prices := newPricedMirror(t)
	client := newStubClient()
	factory := NewPriceUpdateFactory(prices, client, &stubMirrorStore{}, nil, []string{"EUR"}, zap.NewNop())

	toUpdate, err := factory.ToUpdateCurrencies(context.Background(), mirror)
	require.NoError(t, err)
	require.Len(t, toUpdate, 1)
	assert.Equal(t, "EUR", toUpdate[0].Currency)
}

func TestPriceUpdateFactory_Run_AbortsForUncreatedMirror(t *testing.T) {
	mirror, prices := newPricedMirror(t)
	mirror.MarkCreateFailed()
	client := newStubClient()

	factory := NewPriceUpdateFactory(prices, client, &stubMirrorStore{}, nil, []string{"EUR"}, zap.NewNop())
	result, err := factory.Run(context.Background(), mirror)

	require.NoError(t, err)
	assert.True(t, result.Aborted)
	assert.Empty(t, client.updated)
}

func TestPriceUpdateFactory_Run_FailureKeepsCacheStale(t *testing.T) {
	mirror, prices := newPricedMirror(t)
	client := newStubClient()
	client.failWith = errors.New("429 too many requests")
	mirrors := &stubMirrorStore{}
	logs := &stubLogRepo{}

	factory := NewPriceUpdateFactory(prices, client, mirrors, logs, []string{"EUR"}, zap.NewNop())
	_, err := factory.Run(context.Background(), mirror)

	assert.Error(t, err)
	assert.True(t, mirror.IsOutdated())
	assert.Empty(t, mirror.PriceData)

	// The failure gates further pricing until the product resyncs.
	client.failWith = nil
	gated, err := factory.Run(context.Background(), mirror)
	require.NoError(t, err)
	assert.True(t, gated.Aborted)

	// Once the product resync restores the mirror, the same currency is
	// retried because the cache was never refreshed.
	mirror.MarkCreated()
	result, err := factory.Run(context.Background(), mirror)
	require.NoError(t, err)
	assert.False(t, result.Aborted)
	assert.Contains(t, client.updated, "rem-1")
}
