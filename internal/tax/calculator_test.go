package tax

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stripe/stripe-go/v84"

	"github.com/velvethaus/storefront-backend/pkg/logger"
	"github.com/velvethaus/storefront-backend/pkg/types"
)

func testCalculator(create calculationFunc) *Calculator {
	return &Calculator{
		create: create,
		logg:   logger.New(logger.Options{ServiceName: "test", Output: &strings.Builder{}}),
	}
}

func usAddress() types.ShippingAddress {
	return types.ShippingAddress{Line1: "1 Main St", City: "Portland", State: "OR", PostalCode: "97201", Country: "US"}
}

func TestCalculateBuildsExclusiveLineItems(t *testing.T) {
	var captured *stripe.TaxCalculationParams
	calc := testCalculator(func(params *stripe.TaxCalculationParams) (*stripe.TaxCalculation, error) {
		captured = params
		return &stripe.TaxCalculation{TaxAmountExclusive: 342}, nil
	})

	lines := []Line{
		{Reference: "p1", AmountCents: 2000, Quantity: 2},
		{Reference: "p2", AmountCents: 1500, Quantity: 1},
	}
	got := calc.Calculate(context.Background(), lines, usAddress(), "usd", 2500)
	if got != 342 {
		t.Fatalf("expected 342, got %d", got)
	}

	if captured == nil {
		t.Fatal("expected calculation call")
	}
	if len(captured.LineItems) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(captured.LineItems))
	}
	if *captured.LineItems[0].TaxBehavior != string(stripe.TaxCalculationLineItemTaxBehaviorExclusive) {
		t.Fatalf("expected exclusive behavior, got %q", *captured.LineItems[0].TaxBehavior)
	}
	if *captured.LineItems[0].TaxCode != tangibleGoodsTaxCode {
		t.Fatalf("expected tangible goods tax code, got %q", *captured.LineItems[0].TaxCode)
	}
	if captured.ShippingCost == nil || *captured.ShippingCost.Amount != 2500 {
		t.Fatal("expected shipping cost on calculation")
	}
}

func TestCalculateZeroWithoutAddress(t *testing.T) {
	calc := testCalculator(func(*stripe.TaxCalculationParams) (*stripe.TaxCalculation, error) {
		t.Fatal("calculation must not be called without an address")
		return nil, nil
	})

	got := calc.Calculate(context.Background(), []Line{{Reference: "p1", AmountCents: 100, Quantity: 1}}, types.ShippingAddress{}, "usd", 0)
	if got != 0 {
		t.Fatalf("expected zero tax, got %d", got)
	}
}

func TestCalculateDegradesToZeroOnFailure(t *testing.T) {
	calc := testCalculator(func(*stripe.TaxCalculationParams) (*stripe.TaxCalculation, error) {
		return nil, errors.New("engine unavailable")
	})

	got := calc.Calculate(context.Background(), []Line{{Reference: "p1", AmountCents: 100, Quantity: 1}}, usAddress(), "usd", 0)
	if got != 0 {
		t.Fatalf("expected zero tax on failure, got %d", got)
	}
}
