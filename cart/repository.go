package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"goflare.io/printshop/models"
)

// DefaultTTL matches the lifetime of a storefront cart session.
const DefaultTTL = 7 * 24 * time.Hour

var _ Repository = (*repository)(nil)

// Repository persists the session cart. Checkout only ever loads a snapshot
// and asks for it to be cleared.
type Repository interface {
	Load(ctx context.Context, sessionID string) (*models.Cart, error)
	Save(ctx context.Context, sessionID string, cart *models.Cart) error
	Clear(ctx context.Context, sessionID string) error
}

type repository struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewRepository(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) Repository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &repository{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}

// Load returns an empty cart when the session has none.
func (r *repository) Load(ctx context.Context, sessionID string) (*models.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.NewCart(), nil
	}
	if err != nil {
		r.logger.Error("Failed to load cart", zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	cartModel := models.NewCart()
	if err = json.Unmarshal(data, cartModel); err != nil {
		// 壞掉的資料視同空購物車
		r.logger.Warn("Discarding unreadable cart", zap.String("session_id", sessionID), zap.Error(err))
		return models.NewCart(), nil
	}

	return cartModel, nil
}

func (r *repository) Save(ctx context.Context, sessionID string, cartModel *models.Cart) error {
	if cartModel.Len() == 0 {
		return r.Clear(ctx, sessionID)
	}

	data, err := json.Marshal(cartModel)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	if err = r.client.Set(ctx, cartKey(sessionID), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save cart", zap.String("session_id", sessionID), zap.Error(err))
		return fmt.Errorf("failed to save cart: %w", err)
	}

	return nil
}

func (r *repository) Clear(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		r.logger.Error("Failed to clear cart", zap.String("session_id", sessionID), zap.Error(err))
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
