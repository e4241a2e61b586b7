package types

// OrderItem is the immutable snapshot of a purchased line denormalized onto
// the order. Snapshotting is deliberate: later catalog edits must not alter
// historical orders.
type OrderItem struct {
	ProductID  string `json:"productId"`
	VariantID  string `json:"variantId,omitempty"`
	Title      string `json:"title"`
	PriceCents int64  `json:"price"`
	Quantity   int    `json:"quantity"`
	SKU        string `json:"skuSnap,omitempty"`
	Color      string `json:"color,omitempty"`
	Size       string `json:"size,omitempty"`
	Image      string `json:"image,omitempty"`
}
