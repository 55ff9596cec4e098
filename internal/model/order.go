package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"starledger/internal/errs"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusRejected  OrderStatus = "rejected"
)

func (s OrderStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusRejected
}

func (s OrderStatus) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// Transition validates a status change. The only legal moves are from
// pending to one of the terminal statuses.
func Transition(from, to OrderStatus) error {
	if from != StatusPending {
		return errs.New(errs.CodeInvalidTransition, fmt.Sprintf("order is %s", from))
	}
	if !to.Terminal() {
		return errs.New(errs.CodeInvalidTransition, fmt.Sprintf("target %q is not terminal", to))
	}
	return nil
}

type Order struct {
	ID        string          `json:"order_id"`
	UserID    int64           `json:"user_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Price     decimal.Decimal `json:"price"`
	Status    OrderStatus     `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	DecidedAt *time.Time      `json:"decided_at,omitempty"`
	DecidedBy *int64          `json:"decided_by,omitempty"`
	ProofAt   *time.Time      `json:"proof_at,omitempty"`
}
