package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/velvethaus/storefront-backend/pkg/types"
)

// IntentInput carries everything needed to create a processor payment
// intent. Amount is always the server-computed total.
type IntentInput struct {
	AmountCents  int64
	Currency     string
	CustomerID   string
	ReceiptEmail string
	Description  string
	Metadata     map[string]string
}

// Intent is the minimal creation result the client needs.
type Intent struct {
	ID           string
	ClientSecret string
}

// Processor abstracts the payment-processor calls the orchestrator makes.
type Processor interface {
	SearchCustomerByEmail(ctx context.Context, email string) (string, error)
	CreateCustomer(ctx context.Context, email, name string, addr types.ShippingAddress) (string, error)
	CreateIntent(ctx context.Context, input IntentInput) (Intent, error)
}

// StripeProcessor implements Processor on the Stripe API.
type StripeProcessor struct{}

// NewStripeProcessor returns the production processor adapter.
func NewStripeProcessor() *StripeProcessor {
	return &StripeProcessor{}
}

// SearchCustomerByEmail returns the first customer id matching the email, or
// empty when none exists.
func (p *StripeProcessor) SearchCustomerByEmail(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerSearchParams{}
	params.Query = fmt.Sprintf("email:'%s'", strings.ReplaceAll(email, "'", ""))
	params.Limit = stripe.Int64(1)
	params.Context = ctx

	iter := customer.Search(params)
	for iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("search customers: %w", err)
	}
	return "", nil
}

// CreateCustomer creates a processor customer carrying the shipping address.
func (p *StripeProcessor) CreateCustomer(ctx context.Context, email, name string, addr types.ShippingAddress) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	if name != "" {
		params.Name = stripe.String(name)
	}
	if !addr.IsZero() {
		params.Address = &stripe.AddressParams{
			Line1:      stripe.String(addr.Line1),
			Line2:      stripe.String(addr.Line2),
			City:       stripe.String(addr.City),
			State:      stripe.String(addr.State),
			PostalCode: stripe.String(addr.PostalCode),
			Country:    stripe.String(addr.Country),
		}
	}
	params.Context = ctx

	created, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return created.ID, nil
}

// CreateIntent creates the payment intent with automatic payment methods.
func (p *StripeProcessor) CreateIntent(ctx context.Context, input IntentInput) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(input.AmountCents),
		Currency: stripe.String(strings.ToLower(input.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if input.CustomerID != "" {
		params.Customer = stripe.String(input.CustomerID)
	}
	if input.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(input.ReceiptEmail)
	}
	if input.Description != "" {
		params.Description = stripe.String(input.Description)
	}
	for key, value := range input.Metadata {
		params.AddMetadata(key, value)
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("create payment intent: %w", err)
	}
	return Intent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}
