package orders

import "github.com/storefront-labs/storefront-backend/pkg/enums"

// transitions enumerates every allowed lifecycle move. Anything absent
// here is rejected; cancelled and returned have no outgoing edges.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusConfirmed,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusConfirmed: {
		enums.OrderStatusShipped,
		enums.OrderStatusCancelled,
		enums.OrderStatusReturned,
	},
	enums.OrderStatusShipped: {
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusReturned,
	},
	enums.OrderStatusOutForDelivery: {
		enums.OrderStatusDelivered,
		enums.OrderStatusReturned,
	},
	enums.OrderStatusDelivered: {
		enums.OrderStatusReturned,
	},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// restoresStock reports whether entering the status returns the order's
// deducted quantities to inventory.
func restoresStock(status enums.OrderStatus) bool {
	return status == enums.OrderStatusCancelled || status == enums.OrderStatusReturned
}
