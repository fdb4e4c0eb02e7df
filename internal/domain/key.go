package domain

import "strings"

// KeySeparator joins code and supplier into the canonical storage key.
// It matches the layout of previously persisted data, so a code or
// supplier containing '_' can alias another pair; ParseItemKey splits on
// the first separator only to keep round-trips stable for such keys.
const KeySeparator = "_"

// ItemKey identifies a product variant by its (code, supplier) pair.
// The struct form is used everywhere inside the service; the canonical
// string form exists only at the storage boundary.
type ItemKey struct {
	Code     string
	Supplier string
}

func NewItemKey(code, supplier string) ItemKey {
	return ItemKey{Code: code, Supplier: supplier}
}

// String returns the canonical storage form "code_supplier".
func (k ItemKey) String() string {
	return k.Code + KeySeparator + k.Supplier
}

func (k ItemKey) IsZero() bool {
	return k.Code == "" && k.Supplier == ""
}

// ParseItemKey splits a canonical storage key back into its parts.
func ParseItemKey(s string) ItemKey {
	code, supplier, found := strings.Cut(s, KeySeparator)
	if !found {
		return ItemKey{Code: s}
	}
	return ItemKey{Code: code, Supplier: supplier}
}
