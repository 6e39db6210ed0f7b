package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/orderlens/order-analyzer/internal/store"
)

// ChecklistTotal is the sum of price times quantity.
func ChecklistTotal(items []store.ChecklistItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

// SummarizeChecklist renders the assistant message shown after an extraction.
func SummarizeChecklist(items []store.ChecklistItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d items:\n\n", len(items))
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s - Quantity: %d, Price: $%s", i+1, it.Name, it.Quantity, formatPrice(it.Price))
	}
	return b.String()
}

// ChecklistText is the plain-text download format of a checklist.
func ChecklistText(items []store.ChecklistItem) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s - Quantity: %d, Price: Rs.%s", i+1, it.Name, it.Quantity, formatPrice(it.Price))
	}
	return b.String()
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
