package enums

// ShippingOption selects the flat-rate shipping tier applied at checkout.
type ShippingOption string

const (
	ShippingOptionStandard ShippingOption = "standard"
	ShippingOptionExpress  ShippingOption = "express"
)

// NormalizeShippingOption maps unknown input to the standard tier.
func NormalizeShippingOption(value string) ShippingOption {
	if ShippingOption(value) == ShippingOptionExpress {
		return ShippingOptionExpress
	}
	return ShippingOptionStandard
}
