package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/velvethaus/storefront-backend/pkg/config"
	"github.com/velvethaus/storefront-backend/pkg/db/models"
	pkgerrors "github.com/velvethaus/storefront-backend/pkg/errors"
	"github.com/velvethaus/storefront-backend/pkg/logger"
	"github.com/velvethaus/storefront-backend/pkg/types"
)

// CartLine is a single client-submitted cart entry. Prices sent by the client
// are ignored; the resolver re-derives everything from the catalog.
type CartLine struct {
	ProductRef string `json:"productId" validate:"required"`
	VariantID  string `json:"variantId"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

// ResolvedLine carries the server-derived pricing and snapshot for one line.
type ResolvedLine struct {
	Product        *models.Product
	Variant        *models.ProductVariant
	UnitPriceCents int64
	Quantity       int
	Item           types.OrderItem
}

// SubtotalCents sums price*quantity across resolved lines.
func SubtotalCents(lines []ResolvedLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.UnitPriceCents * int64(line.Quantity)
	}
	return total
}

// Resolver revalidates client cart lines against the catalog.
type Resolver struct {
	repo Repository
	cfg  config.CheckoutConfig
	dev  bool
	logg *logger.Logger
}

// NewResolver builds a cart resolver.
func NewResolver(repo Repository, cfg config.CheckoutConfig, dev bool, logg *logger.Logger) (*Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Resolver{repo: repo, cfg: cfg, dev: dev, logg: logg}, nil
}

// ResolveLines validates every line and re-derives unit prices from the
// catalog. The first failing line aborts the whole resolution; errors name
// the offending product so the client can surface it.
func (r *Resolver) ResolveLines(ctx context.Context, lines []CartLine) ([]ResolvedLine, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}

	resolved := make([]ResolvedLine, 0, len(lines))
	for _, line := range lines {
		out, err := r.resolveLine(ctx, line)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, out)
	}
	return resolved, nil
}

func (r *Resolver) resolveLine(ctx context.Context, line CartLine) (ResolvedLine, error) {
	if line.Quantity <= 0 {
		return ResolvedLine{}, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("invalid quantity for product %s", line.ProductRef))
	}

	product, err := r.repo.FindProduct(ctx, line.ProductRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ResolvedLine{}, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %s not found", line.ProductRef))
		}
		return ResolvedLine{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return ResolvedLine{}, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("product %s is not available", line.ProductRef))
	}

	var variant *models.ProductVariant
	if product.HasVariants {
		if line.VariantID == "" {
			return ResolvedLine{}, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %s requires a variant selection", line.ProductRef))
		}
		for i := range product.Variants {
			if product.Variants[i].ID.String() == line.VariantID {
				variant = &product.Variants[i]
				break
			}
		}
		if variant == nil {
			return ResolvedLine{}, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("variant %s does not belong to product %s", line.VariantID, line.ProductRef))
		}
	}

	price := product.PriceCents
	if variant != nil && variant.PriceCents != nil && *variant.PriceCents > 0 {
		price = *variant.PriceCents
	}
	if price <= 0 {
		if !r.dev {
			return ResolvedLine{}, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %s has no price", line.ProductRef))
		}
		ctx := r.logg.WithField(ctx, "product", line.ProductRef)
		r.logg.Warn(ctx, "product has no price, using dev fallback")
		price = r.cfg.DevFallbackPriceCents
	}

	available := product.StockQuantity
	if variant != nil {
		available = variant.StockQuantity
	}
	if available < line.Quantity {
		return ResolvedLine{}, pkgerrors.New(pkgerrors.CodeOutOfStock,
			fmt.Sprintf("insufficient stock for product %s", line.ProductRef)).
			WithDetails(map[string]any{
				"productId": product.ID.String(),
				"requested": line.Quantity,
				"available": available,
			})
	}

	return ResolvedLine{
		Product:        product,
		Variant:        variant,
		UnitPriceCents: price,
		Quantity:       line.Quantity,
		Item:           buildItemSnapshot(product, variant, price, line.Quantity),
	}, nil
}

func buildItemSnapshot(product *models.Product, variant *models.ProductVariant, price int64, qty int) types.OrderItem {
	item := types.OrderItem{
		ProductID:  product.ID.String(),
		Title:      product.Title,
		PriceCents: price,
		Quantity:   qty,
	}
	if product.SKU != nil {
		item.SKU = *product.SKU
	}
	if product.ImageURL != nil {
		item.Image = *product.ImageURL
	}
	if variant != nil {
		item.VariantID = variant.ID.String()
		if variant.SKU != nil {
			item.SKU = *variant.SKU
		}
		if variant.Color != nil {
			item.Color = *variant.Color
		}
		if variant.Size != nil {
			item.Size = *variant.Size
		}
		if variant.ImageURL != nil {
			item.Image = *variant.ImageURL
		}
	}
	return item
}
