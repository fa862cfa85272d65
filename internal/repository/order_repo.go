package repository

import (
	"context"
	"errors"

	"pesagate/internal/domain"
	"pesagate/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Preload("Notes").First(&o, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) Update(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Save(o).Error
}

// Claim locks the single non-cancelled order matching the checkout request
// id and runs fn against it inside one transaction; fn's mutations are
// persisted on success. The row lock makes duplicate concurrent webhook
// deliveries serialize, so the terminal-state check inside fn sees a
// committed view. fn returning an error rolls everything back.
func (r *OrderRepository) Claim(ctx context.Context, checkoutRequestID string, fn func(*models.Order) error) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("checkout_request_id = ? AND status <> ?", checkoutRequestID, domain.OrderStatusCancelled).
			First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrOrderNotFound
			}
			return err
		}
		if err := fn(&order); err != nil {
			return err
		}
		return tx.Save(&order).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyProcessed) {
			return &order, err
		}
		return nil, err
	}
	return &order, nil
}
