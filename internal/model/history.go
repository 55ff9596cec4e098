package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type HistoryKind string

const (
	HistoryOrderCreated    HistoryKind = "order_created"
	HistoryOrderConfirmed  HistoryKind = "order_confirmed"
	HistoryOrderRejected   HistoryKind = "order_rejected"
	HistoryReferralBonus   HistoryKind = "referral_bonus"
	HistoryAdminAdjustment HistoryKind = "admin_adjustment"
)

// HistoryEntry is an append-only audit record owned by a user.
type HistoryEntry struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"user_id"`
	Kind      HistoryKind     `json:"kind"`
	OrderID   string          `json:"order_id,omitempty"`
	Quantity  int64           `json:"quantity,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Status    OrderStatus     `json:"status,omitempty"`
	Amount    int64           `json:"amount,omitempty"`
	Text      string          `json:"text"`
	CreatedAt time.Time       `json:"created_at"`
}

// HistoryKindFor returns the history kind recorded for a terminal status.
func HistoryKindFor(status OrderStatus) HistoryKind {
	if status == StatusConfirmed {
		return HistoryOrderConfirmed
	}
	return HistoryOrderRejected
}
