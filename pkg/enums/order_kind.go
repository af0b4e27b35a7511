package enums

import "fmt"

// OrderKind distinguishes full production orders from sample requests.
type OrderKind string

const (
	OrderKindOrder  OrderKind = "order"
	OrderKindSample OrderKind = "sample"
)

var validOrderKinds = []OrderKind{
	OrderKindOrder,
	OrderKindSample,
}

// IsValid reports whether the value matches the canonical order kind enum.
func (k OrderKind) IsValid() bool {
	for _, candidate := range validOrderKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseOrderKind converts the raw string to OrderKind.
func ParseOrderKind(value string) (OrderKind, error) {
	for _, candidate := range validOrderKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order kind %q", value)
}
