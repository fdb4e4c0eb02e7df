package domain

import "time"

// ImageBlob is a compressed product image. A blob may exist without a
// matching Product (pre-staged upload) and a Product may exist with only
// the placeholder image; the catalog join tolerates either side missing.
type ImageBlob struct {
	Code      string    `json:"code"`
	Supplier  string    `json:"supplier"`
	Format    string    `json:"format"`
	Payload   []byte    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

func (b ImageBlob) Key() ItemKey {
	return ItemKey{Code: b.Code, Supplier: b.Supplier}
}
