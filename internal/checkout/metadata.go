package checkout

import (
	"fmt"
	"strconv"
	"strings"
)

// Processor metadata values are length-limited, so the order payload is
// split into fixed-size string parts plus a part-count header. The
// reconciler reassembles the parts strictly by index.
const (
	metadataPartsKey   = "order_data_parts"
	metadataPartPrefix = "order_data_part_"
)

// ChunkOrderData splits the serialized payload into metadata fields.
func ChunkOrderData(payload string, chunkSize int) map[string]string {
	if chunkSize <= 0 {
		chunkSize = 500
	}

	out := map[string]string{}
	var parts int
	for start := 0; start < len(payload); start += chunkSize {
		end := start + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		out[fmt.Sprintf("%s%d", metadataPartPrefix, parts)] = payload[start:end]
		parts++
	}
	out[metadataPartsKey] = strconv.Itoa(parts)
	return out
}

// ReassembleOrderData reverses ChunkOrderData. Every declared part must be
// present; a gap means the metadata was truncated and the payload cannot be
// trusted.
func ReassembleOrderData(metadata map[string]string) (string, error) {
	raw, ok := metadata[metadataPartsKey]
	if !ok {
		return "", fmt.Errorf("metadata missing %s", metadataPartsKey)
	}
	parts, err := strconv.Atoi(raw)
	if err != nil || parts < 0 {
		return "", fmt.Errorf("invalid %s value %q", metadataPartsKey, raw)
	}

	var builder strings.Builder
	for i := 0; i < parts; i++ {
		key := fmt.Sprintf("%s%d", metadataPartPrefix, i)
		chunk, ok := metadata[key]
		if !ok {
			return "", fmt.Errorf("metadata missing %s", key)
		}
		builder.WriteString(chunk)
	}
	return builder.String(), nil
}

// HasOrderData reports whether the metadata carries a chunked payload.
func HasOrderData(metadata map[string]string) bool {
	_, ok := metadata[metadataPartsKey]
	return ok
}
