// Package catalog normalizes the fulfillment provider's nested product and
// variant data into display-ready catalog entries.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"goflare.io/printshop/gateway"
	"goflare.io/printshop/metrics"
	"goflare.io/printshop/models"
)

const DefaultConcurrency = 8

var ErrNotFound = errors.New("product not found")

// FetchError is a failed detail fetch for a single product.
type FetchError struct {
	ProductID string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch product %s: %v", e.ProductID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Option func(*Aggregator)

func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithCallTimeout bounds each provider call made by the aggregator.
func WithCallTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		a.callTimeout = d
	}
}

func WithDescriptions(d Descriptions) Option {
	return func(a *Aggregator) {
		a.descriptions = d
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

type Aggregator struct {
	provider     gateway.FulfillmentGateway
	descriptions Descriptions
	concurrency  int
	callTimeout  time.Duration
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

func NewAggregator(provider gateway.FulfillmentGateway, logger *zap.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		provider:     provider,
		descriptions: DefaultDescriptions(),
		concurrency:  DefaultConcurrency,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ListProducts fetches the product index once and every product's detail
// concurrently. A failed or empty detail degrades that entry only; output
// order follows the index.
func (a *Aggregator) ListProducts(ctx context.Context) ([]models.CatalogEntry, error) {
	indexCtx, cancel := a.callContext(ctx)
	index, err := a.provider.ListProducts(indexCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product index: %w", err)
	}

	entries := make([]models.CatalogEntry, len(index))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i := range index {
		g.Go(func() error {
			entries[i] = a.listEntry(ctx, index[i])
			return nil
		})
	}
	// 單一商品失敗不會回傳錯誤
	_ = g.Wait()

	return entries, nil
}

func (a *Aggregator) listEntry(ctx context.Context, product gateway.RawProduct) models.CatalogEntry {
	id := strconv.FormatInt(product.ID, 10)
	description := a.descriptions.Lookup(id)

	callCtx, cancel := a.callContext(ctx)
	defer cancel()

	detail, err := a.provider.GetProductDetail(callCtx, id)
	if err != nil {
		fetchErr := &FetchError{ProductID: id, Err: err}
		a.logger.Warn("Degrading catalog entry", zap.String("product_id", id), zap.Error(fetchErr))
		a.metrics.ObserveDegradedEntry("fetch_error")
		return models.NewDegradedEntry(id, product.Name, categoryType(product), description)
	}

	if len(detail.Variants) == 0 {
		a.logger.Warn("Product has no variants", zap.String("product_id", id))
		a.metrics.ObserveDegradedEntry("no_variants")
		return models.NewDegradedEntry(id, product.Name, categoryType(product), description)
	}

	first := detail.Variants[0]
	return models.NewAvailableEntry(id, product.Name, first.Product.Type, description,
		first.RetailPrice, first.Currency, toVariants(detail.Variants))
}

// GetProductDetail returns one entry with its long-form description.
// Unknown products yield ErrNotFound; other provider failures a *FetchError.
func (a *Aggregator) GetProductDetail(ctx context.Context, id string) (models.CatalogEntry, error) {
	callCtx, cancel := a.callContext(ctx)
	defer cancel()

	detail, err := a.provider.GetProductDetail(callCtx, id)
	if errors.Is(err, gateway.ErrNotFound) {
		return models.CatalogEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		a.logger.Error("Failed to fetch product", zap.String("product_id", id), zap.Error(err))
		return models.CatalogEntry{}, &FetchError{ProductID: id, Err: err}
	}

	entryID := id
	if detail.Product.ID != 0 {
		entryID = strconv.FormatInt(detail.Product.ID, 10)
	}
	description := a.descriptions.Lookup(id)

	if len(detail.Variants) == 0 {
		a.logger.Warn("Product has no variants", zap.String("product_id", id))
		a.metrics.ObserveDegradedEntry("no_variants")
		return models.NewDegradedEntry(entryID, detail.Product.Name, "", description), nil
	}

	first := detail.Variants[0]
	entry := models.NewAvailableEntry(entryID, detail.Product.Name, first.Product.Type, description,
		first.RetailPrice, first.Currency, toVariants(detail.Variants))
	entry.Brand = first.Product.Brand
	entry.Model = first.Product.Model

	return entry, nil
}

func (a *Aggregator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.callTimeout)
}

func toVariants(raw []gateway.RawVariant) []models.Variant {
	variants := make([]models.Variant, len(raw))
	for i, v := range raw {
		variants[i] = models.Variant{
			ID:        strconv.FormatInt(v.ID, 10),
			Name:      v.Name,
			Size:      v.Size,
			Color:     v.Color,
			ColorCode: v.ColorCode,
			InStock:   v.InStock(),
		}
	}
	return variants
}

func categoryType(product gateway.RawProduct) string {
	if product.MainCategoryID == 0 {
		return ""
	}
	return strconv.FormatInt(product.MainCategoryID, 10)
}
