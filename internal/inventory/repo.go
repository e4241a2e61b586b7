package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velvethaus/storefront-backend/pkg/db/models"
	"github.com/velvethaus/storefront-backend/pkg/enums"
)

// UnitKind selects which stock-bearing record a deduction targets.
type UnitKind string

const (
	UnitProduct UnitKind = "product"
	UnitVariant UnitKind = "variant"
)

// Unit is a point-in-time read of a stock-bearing record. UpdatedAt is the
// optimistic-concurrency fencing token for the subsequent write.
type Unit struct {
	ID            uuid.UUID
	Kind          UnitKind
	StockQuantity int
	UpdatedAt     time.Time
}

// Repository exposes the fetch/compare-and-deduct pair the engine runs on.
type Repository interface {
	Fetch(ctx context.Context, kind UnitKind, id uuid.UUID) (Unit, error)
	CompareAndDeduct(ctx context.Context, unit Unit, qty int, status enums.StockStatus) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Fetch(ctx context.Context, kind UnitKind, id uuid.UUID) (Unit, error) {
	unit := Unit{ID: id, Kind: kind}
	switch kind {
	case UnitProduct:
		var product models.Product
		if err := r.db.WithContext(ctx).
			Select("id", "stock_quantity", "updated_at").
			First(&product, "id = ?", id).Error; err != nil {
			return Unit{}, err
		}
		unit.StockQuantity = product.StockQuantity
		unit.UpdatedAt = product.UpdatedAt
	case UnitVariant:
		var variant models.ProductVariant
		if err := r.db.WithContext(ctx).
			Select("id", "stock_quantity", "updated_at").
			First(&variant, "id = ?", id).Error; err != nil {
			return Unit{}, err
		}
		unit.StockQuantity = variant.StockQuantity
		unit.UpdatedAt = variant.UpdatedAt
	default:
		return Unit{}, fmt.Errorf("unknown inventory unit kind %q", kind)
	}
	return unit, nil
}

// CompareAndDeduct performs the conditional write. The updated_at fence plus
// the stock guard make this safe across instances: zero rows affected means
// another writer moved the record since the fetch.
func (r *repository) CompareAndDeduct(ctx context.Context, unit Unit, qty int, status enums.StockStatus) (bool, error) {
	var model any
	switch unit.Kind {
	case UnitProduct:
		model = &models.Product{}
	case UnitVariant:
		model = &models.ProductVariant{}
	default:
		return false, fmt.Errorf("unknown inventory unit kind %q", unit.Kind)
	}

	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND updated_at = ? AND stock_quantity >= ?", unit.ID, unit.UpdatedAt, qty).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity - ?", qty),
			"stock_status":   status,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
