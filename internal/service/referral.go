package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"starledger/internal/model"
)

const (
	PolicyPercentage    = "percentage"
	PolicyFirstPurchase = "first-purchase-fixed"
)

// ReferralPolicy decides the bonus an inviter earns for one confirmed
// order of an invitee.
type ReferralPolicy interface {
	Name() string
	// Credit returns the credit for order, or false when none is due.
	Credit(order model.Order, inviterID int64) (model.ReferralCredit, bool)
}

// PercentagePolicy grants floor(quantity x rate) on every confirmed order
// of an invitee.
type PercentagePolicy struct {
	Rate decimal.Decimal
}

func (p PercentagePolicy) Name() string { return PolicyPercentage }

func (p PercentagePolicy) Credit(order model.Order, inviterID int64) (model.ReferralCredit, bool) {
	amount := decimal.NewFromInt(order.Quantity).Mul(p.Rate).Floor().IntPart()
	if amount <= 0 {
		return model.ReferralCredit{}, false
	}
	return model.ReferralCredit{
		OrderID:   order.ID,
		InviterID: inviterID,
		InviteeID: order.UserID,
		Amount:    amount,
	}, true
}

// FirstPurchasePolicy grants a flat bonus once per inviter and invitee.
type FirstPurchasePolicy struct {
	Bonus int64
}

func (p FirstPurchasePolicy) Name() string { return PolicyFirstPurchase }

func (p FirstPurchasePolicy) Credit(order model.Order, inviterID int64) (model.ReferralCredit, bool) {
	if p.Bonus <= 0 {
		return model.ReferralCredit{}, false
	}
	return model.ReferralCredit{
		OrderID:   order.ID,
		InviterID: inviterID,
		InviteeID: order.UserID,
		Amount:    p.Bonus,
		PairKey:   fmt.Sprintf("%d:%d", inviterID, order.UserID),
	}, true
}

func NewReferralPolicy(name string, rate decimal.Decimal, fixedBonus int64) (ReferralPolicy, error) {
	switch name {
	case PolicyPercentage:
		if rate.IsNegative() {
			return nil, fmt.Errorf("referral rate %s is negative", rate)
		}
		return PercentagePolicy{Rate: rate}, nil
	case PolicyFirstPurchase:
		if fixedBonus < 0 {
			return nil, fmt.Errorf("referral bonus %d is negative", fixedBonus)
		}
		return FirstPurchasePolicy{Bonus: fixedBonus}, nil
	default:
		return nil, fmt.Errorf("unknown referral policy %q", name)
	}
}
