package domain

import "time"

// UnclassifiedSupplier is the fallback group for products without a supplier.
const UnclassifiedSupplier = "unclassified"

// Product is one catalog entry for a (code, supplier) pair. All trade
// fields are free-form strings as entered by the operator; parsing to
// numbers happens only where reports need arithmetic.
type Product struct {
	Code      string    `json:"code"`
	Supplier  string    `json:"supplier"`
	Name      string    `json:"name,omitempty"`
	Cost      string    `json:"cost,omitempty"`
	Price     string    `json:"price,omitempty"`
	Size      string    `json:"size,omitempty"`
	Remark    string    `json:"remark,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (p Product) Key() ItemKey {
	return ItemKey{Code: p.Code, Supplier: p.Supplier}
}

// SupplierGroup returns the grouping label for the supplier view.
func (p Product) SupplierGroup() string {
	if p.Supplier == "" {
		return UnclassifiedSupplier
	}
	return p.Supplier
}
