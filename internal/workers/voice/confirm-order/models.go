// internal/workers/voice/confirm-order/models.go
package confirmorder

import (
	"sync"
	"time"
)

type Input struct {
	Details string `json:"details"`
}

type Output struct {
	Message string `json:"message"`
}

// OrderToolState is the per-session record of the confirmation. It starts
// unconfirmed and only the confirm_order tool mutates it.
type OrderToolState struct {
	mu               sync.Mutex
	confirmationDone bool
	orderDetails     string
	confirmedAt      time.Time
}

// OrderSnapshot is a copy of the state at one point in time.
type OrderSnapshot struct {
	ConfirmationDone bool
	OrderDetails     string
	ConfirmedAt      time.Time
}

func (s *OrderToolState) confirm(details string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmationDone = true
	s.orderDetails = details
	s.confirmedAt = at
}

func (s *OrderToolState) Snapshot() OrderSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return OrderSnapshot{
		ConfirmationDone: s.confirmationDone,
		OrderDetails:     s.orderDetails,
		ConfirmedAt:      s.confirmedAt,
	}
}
