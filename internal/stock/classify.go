// Package stock holds the stock classification used by inventory listings,
// alerts and sale post-processing. It is the only place where the low/out
// thresholds are decided.
package stock

// Status is the classification of an inventory record.
type Status string

const (
	OutOfStock Status = "out_of_stock"
	LowStock   Status = "low_stock"
	Normal     Status = "normal"
)

// Classify maps the current and minimum stock of a record to its Status.
//
//	current <= 0            -> OutOfStock
//	0 < current <= minimum  -> LowStock
//	otherwise               -> Normal
func Classify(current, minimum int) Status {
	switch {
	case current <= 0:
		return OutOfStock
	case current <= minimum:
		return LowStock
	default:
		return Normal
	}
}

// NeedsAttention reports whether the status should raise an alert.
func (s Status) NeedsAttention() bool {
	return s == OutOfStock || s == LowStock
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case OutOfStock, LowStock, Normal:
		return true
	}
	return false
}
