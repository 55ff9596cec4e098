package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"starledger/internal/database"
	"starledger/internal/errs"
	"starledger/internal/metrics"
	"starledger/internal/model"
)

// Decision is an admin verdict on a pending order.
type Decision int

const (
	Confirm Decision = iota + 1
	Reject
)

func (d Decision) String() string {
	switch d {
	case Confirm:
		return "confirm"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

func (d Decision) Valid() bool {
	return d == Confirm || d == Reject
}

func (d Decision) Target() model.OrderStatus {
	if d == Confirm {
		return model.StatusConfirmed
	}
	return model.StatusRejected
}

func ParseDecision(s string) (Decision, error) {
	switch s {
	case "confirm":
		return Confirm, nil
	case "reject":
		return Reject, nil
	default:
		return 0, errs.New(errs.CodeInvalidAction, fmt.Sprintf("unknown decision %q", s))
	}
}

// Notifier delivers outcome messages. Calls must not block and their
// failures are never reported back.
type Notifier interface {
	NotifyUser(userID int64, text string)
	// NotifyAdmin sends text to the admin. A non-empty orderID attaches the
	// confirm and reject actions for that order.
	NotifyAdmin(text string, orderID string)
}

type ReferralBonus struct {
	InviterID int64 `json:"inviter_id"`
	Amount    int64 `json:"amount"`
}

type DecisionResult struct {
	Order    model.Order    `json:"order"`
	Decision Decision       `json:"-"`
	Bonus    *ReferralBonus `json:"bonus,omitempty"`
}

// Coordinator applies admin decisions, one transaction per decision.
type Coordinator struct {
	store    *database.Store
	orders   *OrderService
	policy   ReferralPolicy
	notifier Notifier
	adminID  int64
	now      func() time.Time
}

func NewCoordinator(store *database.Store, orders *OrderService, policy ReferralPolicy, notifier Notifier, adminID int64) *Coordinator {
	return &Coordinator{
		store:    store,
		orders:   orders,
		policy:   policy,
		notifier: notifier,
		adminID:  adminID,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (c *Coordinator) authorize(actorID int64, op string) error {
	if actorID == c.adminID {
		return nil
	}
	slog.Warn("unauthorized admin action", "actor_id", actorID, "op", op)
	return errs.New(errs.CodeUnauthorized, fmt.Sprintf("%s: actor %d is not the admin", op, actorID))
}

// Decide confirms or rejects a pending order on behalf of actorID. Only the
// first decision on an order succeeds; later ones get AlreadyDecided.
func (c *Coordinator) Decide(ctx context.Context, actorID int64, orderID string, decision Decision) (DecisionResult, error) {
	res, err := c.decide(ctx, actorID, orderID, decision)
	metrics.Decision(decision.String(), resultLabel(err))
	if err != nil {
		return DecisionResult{}, err
	}

	slog.Info("order decided",
		"order_id", res.Order.ID,
		"decision", decision.String(),
		"user_id", res.Order.UserID,
		"bonus", res.Bonus != nil,
	)
	c.notifyDecision(res)
	return res, nil
}

func (c *Coordinator) decide(ctx context.Context, actorID int64, orderID string, decision Decision) (DecisionResult, error) {
	if err := c.authorize(actorID, "decide order"); err != nil {
		return DecisionResult{}, err
	}
	if !decision.Valid() {
		return DecisionResult{}, errs.New(errs.CodeInvalidAction, fmt.Sprintf("unknown decision %d", int(decision)))
	}
	ctx = context.WithoutCancel(ctx)

	res := DecisionResult{Decision: decision}
	err := c.store.InTx(ctx, func(tx *database.Tx) error {
		order, err := c.orders.Transition(ctx, tx, orderID, decision.Target(), actorID)
		if errors.Is(err, errs.ErrInvalidTransition) {
			return errs.Wrap(errs.CodeAlreadyDecided, fmt.Sprintf("order %s", orderID), err)
		}
		if err != nil {
			return err
		}
		res.Order = order

		if decision != Confirm {
			return nil
		}
		if err := tx.AddBalance(ctx, order.UserID, order.Quantity); err != nil {
			return err
		}
		res.Bonus, err = c.creditReferral(ctx, tx, order)
		return err
	})
	if err != nil {
		return DecisionResult{}, errs.Unavailable("decide order failed", err)
	}
	return res, nil
}

func (c *Coordinator) creditReferral(ctx context.Context, tx *database.Tx, order model.Order) (*ReferralBonus, error) {
	owner, err := tx.GetUser(ctx, order.UserID)
	if err != nil {
		return nil, err
	}
	if owner.InvitedBy == nil {
		return nil, nil
	}

	credit, ok := c.policy.Credit(order, *owner.InvitedBy)
	if !ok {
		return nil, nil
	}
	credit.CreatedAt = c.now().Truncate(time.Millisecond)

	inserted, err := tx.InsertReferralCredit(ctx, credit)
	if err != nil || !inserted {
		return nil, err
	}
	if err := tx.AddReferralEarned(ctx, credit.InviterID, credit.Amount); err != nil {
		return nil, err
	}
	err = tx.AppendHistory(ctx, &model.HistoryEntry{
		UserID:    credit.InviterID,
		Kind:      model.HistoryReferralBonus,
		OrderID:   order.ID,
		Amount:    credit.Amount,
		Text:      fmt.Sprintf("Referral bonus %d for an order of user %d", credit.Amount, order.UserID),
		CreatedAt: credit.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	metrics.ReferralCredited(c.policy.Name())
	return &ReferralBonus{InviterID: credit.InviterID, Amount: credit.Amount}, nil
}

func (c *Coordinator) notifyDecision(res DecisionResult) {
	if c.notifier == nil {
		return
	}
	o := res.Order
	switch res.Decision {
	case Confirm:
		c.notifier.NotifyUser(o.UserID, fmt.Sprintf("Your order %s is confirmed: %d units credited.", o.ID, o.Quantity))
		c.notifier.NotifyAdmin(fmt.Sprintf("Order %s confirmed (%d units, %s).", o.ID, o.Quantity, o.Price), "")
	case Reject:
		c.notifier.NotifyUser(o.UserID, fmt.Sprintf("Your order %s was rejected.", o.ID))
		c.notifier.NotifyAdmin(fmt.Sprintf("Order %s rejected.", o.ID), "")
	}
	if res.Bonus != nil {
		c.notifier.NotifyUser(res.Bonus.InviterID, fmt.Sprintf("You earned a referral bonus of %d.", res.Bonus.Amount))
	}
}

func (c *Coordinator) Adjust(ctx context.Context, actorID, userID, balanceDelta, referralDelta int64, note string) (model.User, error) {
	if err := c.authorize(actorID, "adjust user"); err != nil {
		return model.User{}, err
	}
	if balanceDelta == 0 && referralDelta == 0 {
		return model.User{}, errs.New(errs.CodeInvalidAction, "adjustment changes nothing")
	}
	ctx = context.WithoutCancel(ctx)

	var user model.User
	err := c.store.InTx(ctx, func(tx *database.Tx) error {
		if balanceDelta != 0 {
			if err := tx.AddBalance(ctx, userID, balanceDelta); err != nil {
				return err
			}
		}
		if referralDelta != 0 {
			if err := tx.AddReferralEarned(ctx, userID, referralDelta); err != nil {
				return err
			}
		}
		text := fmt.Sprintf("Admin adjustment: balance %+d, referral %+d", balanceDelta, referralDelta)
		if note != "" {
			text += " (" + note + ")"
		}
		if err := tx.AppendHistory(ctx, &model.HistoryEntry{
			UserID:    userID,
			Kind:      model.HistoryAdminAdjustment,
			Amount:    balanceDelta,
			Text:      text,
			CreatedAt: c.now().Truncate(time.Millisecond),
		}); err != nil {
			return err
		}
		var err error
		user, err = tx.GetUser(ctx, userID)
		return err
	})
	if err != nil {
		return model.User{}, errs.Unavailable("adjust user failed", err)
	}

	slog.Info("user adjusted", "user_id", userID, "balance_delta", balanceDelta, "referral_delta", referralDelta)
	if c.notifier != nil && balanceDelta != 0 {
		c.notifier.NotifyUser(userID, fmt.Sprintf("Your balance was adjusted by %+d.", balanceDelta))
	}
	return user, nil
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if code := errs.CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}
