package checkout

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/velvethaus/storefront-backend/pkg/types"
)

func TestChunkOrderDataRoundTrip(t *testing.T) {
	payload := strings.Repeat("a", 1234)
	metadata := ChunkOrderData(payload, 500)

	if metadata[metadataPartsKey] != "3" {
		t.Fatalf("expected 3 parts, got %q", metadata[metadataPartsKey])
	}
	got, err := ReassembleOrderData(metadata)
	if err != nil {
		t.Fatalf("ReassembleOrderData: %v", err)
	}
	if got != payload {
		t.Fatal("round trip mismatch")
	}
}

func TestChunkOrderDataTwoPartPayload(t *testing.T) {
	payload := OrderPayload{
		CustomerEmail:  "buyer@example.com",
		CustomerName:   "Buyer",
		AmountSubtotal: 2000,
		AmountTotal:    2000,
		Currency:       "usd",
		Items: []types.OrderItem{
			{ProductID: "p1", Title: strings.Repeat("Very Long Product Title ", 20), PriceCents: 1000, Quantity: 2},
		},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(raw) <= 500 || len(raw) > 1000 {
		t.Fatalf("fixture must serialize into exactly 2 chunks, got %d bytes", len(raw))
	}

	metadata := ChunkOrderData(string(raw), 500)
	if metadata[metadataPartsKey] != "2" {
		t.Fatalf("expected 2 parts, got %q", metadata[metadataPartsKey])
	}

	reassembled, err := ReassembleOrderData(metadata)
	if err != nil {
		t.Fatalf("ReassembleOrderData: %v", err)
	}
	var decoded OrderPayload
	if err := json.Unmarshal([]byte(reassembled), &decoded); err != nil {
		t.Fatalf("unmarshal reassembled payload: %v", err)
	}
	if decoded.AmountTotal != 2000 || len(decoded.Items) != 1 || decoded.Items[0].Quantity != 2 {
		t.Fatalf("decoded payload mismatch: %+v", decoded)
	}
}

func TestReassembleOrderDataMissingPart(t *testing.T) {
	metadata := ChunkOrderData(strings.Repeat("x", 900), 500)
	delete(metadata, metadataPartPrefix+"1")

	if _, err := ReassembleOrderData(metadata); err == nil {
		t.Fatal("expected error for missing part")
	}
}

func TestReassembleOrderDataMissingHeader(t *testing.T) {
	if _, err := ReassembleOrderData(map[string]string{}); err == nil {
		t.Fatal("expected error for missing header")
	}
	if HasOrderData(map[string]string{}) {
		t.Fatal("expected HasOrderData to be false")
	}
}

func TestChunkOrderDataEmptyPayload(t *testing.T) {
	metadata := ChunkOrderData("", 500)
	if metadata[metadataPartsKey] != "0" {
		t.Fatalf("expected 0 parts, got %q", metadata[metadataPartsKey])
	}
	got, err := ReassembleOrderData(metadata)
	if err != nil || got != "" {
		t.Fatalf("expected empty round trip, got %q err %v", got, err)
	}
}
