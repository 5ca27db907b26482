package enums

import "fmt"

// StockStatus tracks whether a profile or remnant still has usable length.
type StockStatus string

const (
	StockStatusAvailable StockStatus = "available"
	StockStatusExhausted StockStatus = "exhausted"
)

var validStockStatuses = []StockStatus{
	StockStatusAvailable,
	StockStatusExhausted,
}

// String implements fmt.Stringer.
func (s StockStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockStatus.
func (s StockStatus) IsValid() bool {
	for _, candidate := range validStockStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockStatus converts raw input into a StockStatus.
func ParseStockStatus(value string) (StockStatus, error) {
	for _, candidate := range validStockStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock status %q", value)
}

// StockUnit defines the units a receipt quantity can be expressed in.
type StockUnit string

const (
	StockUnitPiece StockUnit = "pcs"
	StockUnitKG    StockUnit = "kg"
	StockUnitMeter StockUnit = "m"
)

var validStockUnits = []StockUnit{
	StockUnitPiece,
	StockUnitKG,
	StockUnitMeter,
}

// String implements fmt.Stringer.
func (u StockUnit) String() string {
	return string(u)
}

// IsValid reports whether the value is a known StockUnit.
func (u StockUnit) IsValid() bool {
	for _, candidate := range validStockUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseStockUnit converts raw input into a StockUnit.
func ParseStockUnit(value string) (StockUnit, error) {
	for _, candidate := range validStockUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock unit %q", value)
}
