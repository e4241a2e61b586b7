package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velvethaus/storefront-backend/pkg/db/models"
)

// Repository exposes the account reads checkout needs plus the best-effort
// write-back of the processor customer reference.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SaveStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a users repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) SaveStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("stripe_customer_id", customerID).
		Error
}
