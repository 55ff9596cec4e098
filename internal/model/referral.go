package model

import "time"

// ReferralCredit records a bonus granted to an inviter for one confirmed
// order of an invitee.
type ReferralCredit struct {
	OrderID   string    `json:"order_id"`
	InviterID int64     `json:"inviter_id"`
	InviteeID int64     `json:"invitee_id"`
	Amount    int64     `json:"amount"`
	PairKey   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
