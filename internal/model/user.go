package model

import "time"

type User struct {
	ID             int64     `json:"id"`
	DisplayName    string    `json:"display_name"`
	Balance        int64     `json:"balance"`
	ReferralEarned int64     `json:"referral_earned"`
	InvitedBy      *int64    `json:"invited_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
