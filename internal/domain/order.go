package domain

import "time"

// Order is a single sale line. ID is a snowflake token for new orders, or
// the id of the order being edited in place.
type Order struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name,omitempty"`
	Supplier  string    `json:"supplier,omitempty"`
	Cost      string    `json:"cost,omitempty"`
	Price     string    `json:"price,omitempty"`
	Customer  string    `json:"customer,omitempty"`
	Size      string    `json:"size,omitempty"`
	Quantity  int       `json:"quantity"`
	Remark    string    `json:"remark,omitempty"`
	Username  string    `json:"username,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Normalize applies field defaults; quantity is always at least one.
func (o *Order) Normalize() {
	if o.Quantity <= 0 {
		o.Quantity = 1
	}
}

// OnDay reports whether the order falls within the calendar day starting
// at dayStart (local time).
func (o Order) OnDay(dayStart time.Time) bool {
	dayEnd := dayStart.AddDate(0, 0, 1)
	return !o.Timestamp.Before(dayStart) && o.Timestamp.Before(dayEnd)
}
