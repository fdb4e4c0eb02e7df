package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/talkincode/stockpilot/internal/domain"
	"github.com/talkincode/stockpilot/internal/store"
)

// Grid layout bounds for the operator view.
const (
	DefaultGridColumns = 6
	minGridColumns     = 1
	maxGridColumns     = 12
)

// SaveOrder persists one order line. An empty ID means a new order and
// gets a snowflake token; a non-empty ID edits that order in place.
func (s *Service) SaveOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return order, err
	}
	orders, err := s.records.LoadOrders()
	if err != nil {
		return order, err
	}
	if order.ID == "" {
		order.ID = s.node.Generate().String()
	}
	if order.Timestamp.IsZero() {
		order.Timestamp = time.Now()
	}
	order.Normalize()
	orders[order.ID] = order
	if err := s.records.SaveOrders(orders); err != nil {
		return order, err
	}
	s.publishChanged(store.CollectionOrders)
	return order, nil
}

// DeleteOrder removes one order by id; absent ids are a no-op.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	orders, err := s.records.LoadOrders()
	if err != nil {
		return err
	}
	if _, ok := orders[id]; !ok {
		return nil
	}
	delete(orders, id)
	if err := s.records.SaveOrders(orders); err != nil {
		return err
	}
	s.publishChanged(store.CollectionOrders)
	return nil
}

// ListOrders returns every order, newest first.
func (s *Service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	orders, err := s.records.LoadOrders()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// parseDay resolves a free-form date string to the start of its local
// calendar day. Empty input means today.
func parseDay(day string) (time.Time, error) {
	now := time.Now()
	if day == "" {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}
	t, err := dateparse.ParseIn(day, now.Location())
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse day %q", day)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location()), nil
}

// OrdersForDay returns the orders of one calendar day, newest first.
func (s *Service) OrdersForDay(ctx context.Context, day string) ([]domain.Order, error) {
	dayStart, err := parseDay(day)
	if err != nil {
		return nil, err
	}
	all, err := s.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Order
	for _, o := range all {
		if o.OnDay(dayStart) {
			out = append(out, o)
		}
	}
	return out, nil
}

// ClearOrdersForDay removes every order of one calendar day and reports
// how many were dropped.
func (s *Service) ClearOrdersForDay(ctx context.Context, day string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	dayStart, err := parseDay(day)
	if err != nil {
		return 0, err
	}
	orders, err := s.records.LoadOrders()
	if err != nil {
		return 0, err
	}
	removed := 0
	for id, o := range orders {
		if o.OnDay(dayStart) {
			delete(orders, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.records.SaveOrders(orders); err != nil {
		return 0, err
	}
	s.publishChanged(store.CollectionOrders)
	return removed, nil
}

// UpdateOrderField patches a single field of one order. Quantity goes
// through numeric coercion and re-normalization; every other field is
// stored verbatim.
func (s *Service) UpdateOrderField(ctx context.Context, id, field, value string) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}
	orders, err := s.records.LoadOrders()
	if err != nil {
		return domain.Order{}, err
	}
	order, ok := orders[id]
	if !ok {
		return domain.Order{}, errors.Wrapf(domain.ErrNotFound, "order %s", id)
	}
	switch field {
	case "quantity":
		order.Quantity = cast.ToInt(value)
		order.Normalize()
	case "customer":
		order.Customer = value
	case "code":
		order.Code = value
	case "name":
		order.Name = value
	case "size":
		order.Size = value
	case "price":
		order.Price = value
	case "cost":
		order.Cost = value
	case "supplier":
		order.Supplier = value
	case "remark":
		order.Remark = value
	default:
		return domain.Order{}, errors.Errorf("unknown order field %q", field)
	}
	orders[id] = order
	if err := s.records.SaveOrders(orders); err != nil {
		return domain.Order{}, err
	}
	s.publishChanged(store.CollectionOrders)
	return order, nil
}

// GridColumns returns the persisted grid width, falling back to the
// default when unset or out of range.
func (s *Service) GridColumns() int {
	cols := 0
	if err := s.records.LoadAux(store.AuxGridColumns, &cols); err != nil {
		return DefaultGridColumns
	}
	if cols < minGridColumns || cols > maxGridColumns {
		return DefaultGridColumns
	}
	return cols
}

// SetGridColumns persists the grid width, clamped to the valid range.
func (s *Service) SetGridColumns(cols int) error {
	if cols < minGridColumns {
		cols = minGridColumns
	}
	if cols > maxGridColumns {
		cols = maxGridColumns
	}
	return s.records.SaveAux(store.AuxGridColumns, cols)
}

// HidePriceCustomers returns the customer names whose orders render
// without prices.
func (s *Service) HidePriceCustomers() []string {
	var names []string
	if err := s.records.LoadAux(store.AuxHidePriceCustomers, &names); err != nil {
		return nil
	}
	return names
}

func (s *Service) SetHidePriceCustomers(names []string) error {
	return s.records.SaveAux(store.AuxHidePriceCustomers, names)
}
