package domain

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:  {OrderStatusApproved, OrderStatusCancelled},
	OrderStatusApproved: {OrderStatusFulfilled, OrderStatusCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusFulfilled, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusCancelled
}

// CanTransition reports whether the order lifecycle allows moving from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition returns a *TransitionError when the move is illegal.
func (s OrderStatus) Transition(next OrderStatus) error {
	if !s.CanTransition(next) {
		return &TransitionError{From: s, To: next}
	}
	return nil
}

// InitialOrderStatus is the status a freshly created order starts in.
func InitialOrderStatus(requiresApproval bool) OrderStatus {
	if requiresApproval {
		return OrderStatusPending
	}
	return OrderStatusApproved
}
