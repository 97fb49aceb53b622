package syncengine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/channelsync/backend/internal/domain/catalog"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CurrencyPrice is the (full, discounted) pair pushed for one currency
type CurrencyPrice struct {
	Currency        string          `json:"currency"`
	Price           decimal.Decimal `json:"price"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
}

// PriceUpdateFactory pushes price changes for one product mirror. For every
// currency the channel mirrors it computes the local price pair, diffs it
// against the cache of last pushed prices on the mirror row, and only sends
// currencies whose prices actually changed. Remote price APIs are rate
// limited and often billed per call, so a no-change update never leaves the
// process.
type PriceUpdateFactory struct {
	prices   catalog.ProductPriceRepository
	client   ChannelClient
	mirrors  MirrorStore
	logs     sync.SyncLogRepository
	logger   *zap.Logger
	// RemoteCurrencies is the set of currencies mirrored on the channel
	RemoteCurrencies []string
}

// NewPriceUpdateFactory creates a price update factory for one channel
func NewPriceUpdateFactory(
	prices catalog.ProductPriceRepository,
	client ChannelClient,
	mirrors MirrorStore,
	logs sync.SyncLogRepository,
	remoteCurrencies []string,
	logger *zap.Logger,
) *PriceUpdateFactory {
	return &PriceUpdateFactory{
		prices:           prices,
		client:           client,
		mirrors:          mirrors,
		logs:             logs,
		RemoteCurrencies: remoteCurrencies,
		logger:           logger,
	}
}

// ToUpdateCurrencies computes which currencies need a remote write for the
// given mirror, by diffing local price pairs against the mirror's cache.
func (f *PriceUpdateFactory) ToUpdateCurrencies(ctx context.Context, mirror *sync.RemoteProduct) ([]CurrencyPrice, error) {
	local, err := f.prices.FindByProduct(ctx, mirror.LocalInstanceID)
	if err != nil {
		return nil, fmt.Errorf("syncengine: loading local prices: %w", err)
	}
	byCurrency := make(map[string]*catalog.ProductPrice, len(local))
	for _, p := range local {
		byCurrency[p.Currency] = p
	}

	cached := decodePriceCache(mirror.PriceData)

	var toUpdate []CurrencyPrice
	for _, currency := range f.RemoteCurrencies {
		pair, ok := byCurrency[currency]
		if !ok {
			continue
		}
		current := CurrencyPrice{
			Currency:        currency,
			Price:           pair.Price,
			DiscountedPrice: pair.DiscountedPrice,
		}
		if prev, ok := cached[currency]; ok &&
			prev.Price.Equal(current.Price) &&
			prev.DiscountedPrice.Equal(current.DiscountedPrice) {
			continue
		}
		toUpdate = append(toUpdate, current)
	}
	return toUpdate, nil
}

// NeedsUpdate reports whether any mirrored currency changed price
func (f *PriceUpdateFactory) NeedsUpdate(ctx context.Context, mirror *sync.RemoteProduct) (bool, error) {
	toUpdate, err := f.ToUpdateCurrencies(ctx, mirror)
	if err != nil {
		return false, err
	}
	return len(toUpdate) > 0, nil
}

// Run pushes the changed currencies, refreshes the mirror's price cache and
// logs the outcome. A fully unchanged price set aborts without any remote
// call, mirroring the preflight-abort semantics of the generic factory.
func (f *PriceUpdateFactory) Run(ctx context.Context, mirror *sync.RemoteProduct) (*Result, error) {
	if !mirror.IsSuccessfullyCreated() {
		// Pricing depends on the product existing remotely.
		return &Result{Aborted: true}, nil
	}

	toUpdate, err := f.ToUpdateCurrencies(ctx, mirror)
	if err != nil {
		return nil, err
	}
	if len(toUpdate) == 0 {
		f.logger.Debug("price sync skipped, nothing changed",
			zap.String("mirror_id", mirror.ID.String()),
		)
		return &Result{Aborted: true}, nil
	}

	payload := Payload{"prices": toUpdate}
	response, err := f.client.UpdateObject(ctx, mirror.RemoteID, payload)
	if err != nil {
		mirror.MarkCreateFailed()
		mirror.MarkOutdated()
		if persistErr := f.mirrors.Persist(ctx, mirror); persistErr != nil {
			f.logger.Error("failed to persist mirror after price failure", zap.Error(persistErr))
		}
		f.writeLog(ctx, mirror, sync.LogOutcomeFailed, err.Error())
		return nil, err
	}

	cached := decodePriceCache(mirror.PriceData)
	for _, cp := range toUpdate {
		cached[cp.Currency] = cp
	}
	mirror.PriceData = encodePriceCache(cached)
	mirror.MarkCreated()
	mirror.ClearOutdated()
	if err := f.mirrors.Persist(ctx, mirror); err != nil {
		return nil, fmt.Errorf("syncengine: persisting price cache: %w", err)
	}

	f.writeLog(ctx, mirror, sync.LogOutcomeSuccess, "")
	return &Result{Payload: payload, Response: response}, nil
}

func (f *PriceUpdateFactory) writeLog(ctx context.Context, mirror *sync.RemoteProduct, outcome sync.LogOutcome, message string) {
	if f.logs == nil {
		return
	}
	entry := sync.NewSyncLog(mirror.TenantID, mirror.IntegrationID, mirror.ID, "price_update", outcome, message)
	if err := f.logs.Save(ctx, entry); err != nil {
		f.logger.Error("failed to write sync log", zap.Error(err))
	}
}

func decodePriceCache(data []byte) map[string]CurrencyPrice {
	cache := make(map[string]CurrencyPrice)
	if len(data) == 0 {
		return cache
	}
	// A corrupt cache only causes a redundant push, so decode errors
	// reset it rather than fail the sync.
	_ = json.Unmarshal(data, &cache)
	return cache
}

func encodePriceCache(cache map[string]CurrencyPrice) []byte {
	data, err := json.Marshal(cache)
	if err != nil {
		return nil
	}
	return data
}
