package printshop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"goflare.io/printshop/cart"
	"goflare.io/printshop/checkout"
	"goflare.io/printshop/models"
	"goflare.io/printshop/models/enum"
)

var (
	ErrInvalidCartItem = errors.New("invalid cart item")
	ErrCartItemMissing = errors.New("cart item not found")
)

type Service interface {
	ListProducts(ctx context.Context) ([]models.CatalogEntry, error)
	GetProduct(ctx context.Context, id string) (models.CatalogEntry, error)

	GetCart(ctx context.Context, sessionID string) (*models.Cart, error)
	AddCartItem(ctx context.Context, sessionID string, item models.CartLineItem) (*models.Cart, error)
	UpdateCartItem(ctx context.Context, sessionID, productID, variantID string, quantity int64) (*models.Cart, error)
	RemoveCartItem(ctx context.Context, sessionID, productID, variantID string) (*models.Cart, error)
	ClearCart(ctx context.Context, sessionID string) error

	Checkout(ctx context.Context, req checkout.Request) (models.CheckoutResult, error)

	ListReconciliations(ctx context.Context, status enum.ReconciliationStatus, limit int) ([]*models.Reconciliation, error)
	VoidReconciliation(ctx context.Context, id int64) (*models.Reconciliation, error)
	ResolveReconciliation(ctx context.Context, id int64) (*models.Reconciliation, error)
}

type Catalog interface {
	ListProducts(ctx context.Context) ([]models.CatalogEntry, error)
	GetProductDetail(ctx context.Context, id string) (models.CatalogEntry, error)
}

type Checkouter interface {
	Checkout(ctx context.Context, req checkout.Request) (models.CheckoutResult, error)
}

type Reconciler interface {
	List(ctx context.Context, status enum.ReconciliationStatus, limit int) ([]*models.Reconciliation, error)
	Void(ctx context.Context, id int64) (*models.Reconciliation, error)
	Resolve(ctx context.Context, id int64) (*models.Reconciliation, error)
}

// IdempotencyGuard holds a key for the lifetime of the work it protects.
type IdempotencyGuard interface {
	Key(scope, key string) string
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type service struct {
	catalog    Catalog
	carts      cart.Repository
	checkout   Checkouter
	reconciler Reconciler
	guard      IdempotencyGuard

	logger *zap.Logger
}

func NewService(
	catalog Catalog, carts cart.Repository, checkouter Checkouter, reconciler Reconciler, guard IdempotencyGuard,
	logger *zap.Logger) Service {
	return &service{
		catalog:    catalog,
		carts:      carts,
		checkout:   checkouter,
		reconciler: reconciler,
		guard:      guard,
		logger:     logger,
	}
}

func (s *service) ListProducts(ctx context.Context) ([]models.CatalogEntry, error) {
	return s.catalog.ListProducts(ctx)
}

func (s *service) GetProduct(ctx context.Context, id string) (models.CatalogEntry, error) {
	return s.catalog.GetProductDetail(ctx, id)
}

func (s *service) GetCart(ctx context.Context, sessionID string) (*models.Cart, error) {
	return s.carts.Load(ctx, sessionID)
}

func (s *service) AddCartItem(ctx context.Context, sessionID string, item models.CartLineItem) (*models.Cart, error) {
	if strings.TrimSpace(item.ProductID) == "" || strings.TrimSpace(item.VariantID) == "" {
		return nil, fmt.Errorf("%w: productId and variantId are required", ErrInvalidCartItem)
	}
	if item.Quantity <= 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCartItem, cart.ErrInvalidQuantity)
	}
	if item.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCartItem, cart.ErrInvalidPrice)
	}

	cartModel, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cartModel.Add(item)
	if err = s.carts.Save(ctx, sessionID, cartModel); err != nil {
		return nil, err
	}
	return cartModel, nil
}

// UpdateCartItem sets a line's quantity; zero or less removes the line.
func (s *service) UpdateCartItem(ctx context.Context, sessionID, productID, variantID string, quantity int64) (*models.Cart, error) {
	cartModel, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !cartModel.UpdateQuantity(productID, variantID, quantity) {
		return nil, fmt.Errorf("%w: product %s variant %s", ErrCartItemMissing, productID, variantID)
	}
	if err = s.carts.Save(ctx, sessionID, cartModel); err != nil {
		return nil, err
	}
	return cartModel, nil
}

func (s *service) RemoveCartItem(ctx context.Context, sessionID, productID, variantID string) (*models.Cart, error) {
	cartModel, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cartModel.Remove(productID, variantID)
	if err = s.carts.Save(ctx, sessionID, cartModel); err != nil {
		return nil, err
	}
	return cartModel, nil
}

func (s *service) ClearCart(ctx context.Context, sessionID string) error {
	return s.carts.Clear(ctx, sessionID)
}

// Checkout rejects a request whose idempotency key is held by another run.
// The key is kept after any run that may have authorized a payment.
func (s *service) Checkout(ctx context.Context, req checkout.Request) (models.CheckoutResult, error) {
	if req.IdempotencyKey == "" || s.guard == nil {
		return s.checkout.Checkout(ctx, req)
	}

	key := s.guard.Key("checkout", req.IdempotencyKey)
	claimed, err := s.guard.Claim(ctx, key)
	if err != nil {
		// 付款端仍有 idempotency key 保護
		s.logger.Warn("Idempotency guard unavailable", zap.String("idempotency_key", req.IdempotencyKey), zap.Error(err))
		return s.checkout.Checkout(ctx, req)
	}
	if !claimed {
		checkoutErr := checkout.NewValidationError(checkout.ReasonDuplicateSubmission,
			fmt.Errorf("checkout with idempotency key %s already submitted", req.IdempotencyKey))
		return models.CheckoutResult{
			State:         checkoutErr.State,
			FailureReason: checkoutErr.Error(),
		}, checkoutErr
	}

	result, err := s.checkout.Checkout(ctx, req)
	if result.State == enum.CheckoutStateFailed {
		if releaseErr := s.guard.Release(context.WithoutCancel(ctx), key); releaseErr != nil {
			s.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(releaseErr))
		}
	}
	return result, err
}

func (s *service) ListReconciliations(ctx context.Context, status enum.ReconciliationStatus, limit int) ([]*models.Reconciliation, error) {
	return s.reconciler.List(ctx, status, limit)
}

func (s *service) VoidReconciliation(ctx context.Context, id int64) (*models.Reconciliation, error) {
	return s.reconciler.Void(ctx, id)
}

func (s *service) ResolveReconciliation(ctx context.Context, id int64) (*models.Reconciliation, error) {
	return s.reconciler.Resolve(ctx, id)
}
