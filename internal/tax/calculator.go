package tax

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	calculation "github.com/stripe/stripe-go/v84/tax/calculation"

	"github.com/velvethaus/storefront-backend/pkg/logger"
	pkgstripe "github.com/velvethaus/storefront-backend/pkg/stripe"
	"github.com/velvethaus/storefront-backend/pkg/types"
)

// Generic tangible-goods tax code. Every storefront line uses it.
const tangibleGoodsTaxCode = "txcd_99999999"

// Line is one priced line item submitted to the tax engine.
type Line struct {
	Reference   string
	AmountCents int64
	Quantity    int64
}

type calculationFunc func(*stripe.TaxCalculationParams) (*stripe.TaxCalculation, error)

// Calculator delegates tax computation to the payment processor. Tax is a
// best-effort enrichment of the total: a missing address or a failed
// calculation degrades to zero tax rather than blocking checkout.
type Calculator struct {
	create calculationFunc
	logg   *logger.Logger
}

// NewCalculator builds a calculator backed by the Stripe tax engine.
func NewCalculator(client *pkgstripe.Client, logg *logger.Logger) (*Calculator, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Calculator{create: calculation.New, logg: logg}, nil
}

// Calculate returns the exclusive tax amount in cents for the given lines
// shipped to the given address. Amounts are the resolved line totals; no
// per-line discount allocation is attempted.
func (c *Calculator) Calculate(ctx context.Context, lines []Line, addr types.ShippingAddress, currency string, shippingCents int64) int64 {
	if len(lines) == 0 || !addr.HasCountry() {
		return 0
	}

	params := &stripe.TaxCalculationParams{
		Currency: stripe.String(currency),
		CustomerDetails: &stripe.TaxCalculationCustomerDetailsParams{
			Address: &stripe.AddressParams{
				Line1:      stripe.String(addr.Line1),
				Line2:      stripe.String(addr.Line2),
				City:       stripe.String(addr.City),
				State:      stripe.String(addr.State),
				PostalCode: stripe.String(addr.PostalCode),
				Country:    stripe.String(addr.Country),
			},
			AddressSource: stripe.String(string(stripe.TaxCalculationCustomerDetailsAddressSourceShipping)),
		},
	}
	for _, line := range lines {
		params.LineItems = append(params.LineItems, &stripe.TaxCalculationLineItemParams{
			Amount:      stripe.Int64(line.AmountCents),
			Quantity:    stripe.Int64(line.Quantity),
			Reference:   stripe.String(line.Reference),
			TaxBehavior: stripe.String(string(stripe.TaxCalculationLineItemTaxBehaviorExclusive)),
			TaxCode:     stripe.String(tangibleGoodsTaxCode),
		})
	}
	if shippingCents > 0 {
		params.ShippingCost = &stripe.TaxCalculationShippingCostParams{
			Amount: stripe.Int64(shippingCents),
		}
	}
	params.Context = ctx

	calc, err := c.create(params)
	if err != nil {
		c.logg.Warn(ctx, fmt.Sprintf("tax calculation failed, defaulting to zero tax: %v", err))
		return 0
	}
	return calc.TaxAmountExclusive
}
