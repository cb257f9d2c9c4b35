package domain

import "strings"

// OrderStatus wire values are lowercase; ParseOrderStatus also accepts the
// uppercase literals used by dashboards and filters.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:       {OrderStatusProcessing, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusRefunded},
	OrderStatusDelivered:  {OrderStatusRefunded, OrderStatusCompleted},
	OrderStatusCompleted:  nil,
	OrderStatusCancelled:  nil,
	OrderStatusRefunded:   nil,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := orderTransitions[st]; !ok {
		return "", Invalid("status", "unknown order status "+strings.TrimSpace(s))
	}
	return st, nil
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransition reports whether from -> to is in the transition table.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports statuses with no forward business flow. Delivered is
// terminal for fulfillment but still allows refund and completion.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

var fulfillmentStage = map[OrderStatus]int{
	OrderStatusPaid:       1,
	OrderStatusProcessing: 2,
	OrderStatusShipped:    3,
	OrderStatusDelivered:  4,
}

// Advances reports whether to lies further along paid -> processing ->
// shipped -> delivered than s. Unpaid and closed orders never advance.
func (s OrderStatus) Advances(to OrderStatus) bool {
	from, ok := fulfillmentStage[s]
	next, ok2 := fulfillmentStage[to]
	return ok && ok2 && next > from
}

// Upper is the administrative casing used by reports.
func (s OrderStatus) Upper() string { return strings.ToUpper(string(s)) }

func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending, OrderStatusPaid, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded,
	}
}
