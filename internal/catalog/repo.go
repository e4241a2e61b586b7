package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velvethaus/storefront-backend/pkg/db/models"
)

// Repository loads catalog records for checkout revalidation.
type Repository interface {
	FindProduct(ctx context.Context, ref string) (*models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// FindProduct resolves a product reference. Clients send either the record id
// or the slug, so the lookup tries id first and falls back to slug.
func (r *repository) FindProduct(ctx context.Context, ref string) (*models.Product, error) {
	query := r.db.WithContext(ctx).Preload("Variants")

	if id, err := uuid.Parse(ref); err == nil {
		var product models.Product
		err := query.First(&product, "id = ?", id).Error
		if err == nil {
			return &product, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		query = r.db.WithContext(ctx).Preload("Variants")
	}

	var product models.Product
	if err := query.First(&product, "slug = ?", ref).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
