package service

import (
	"context"
	"encoding/base32"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"starledger/internal/database"
	"starledger/internal/errs"
	"starledger/internal/metrics"
	"starledger/internal/model"
)

const (
	maxIDAttempts = 5
	listLimit     = 50
)

type Limiter interface {
	Allow(key string) bool
}

type OrderOptions struct {
	UnitPrice   decimal.Decimal
	MinQuantity int64
	MaxQuantity int64
	// Limiter throttles order creation per user. Nil disables throttling.
	Limiter Limiter
}

type OrderService struct {
	store *database.Store
	opts  OrderOptions
	now   func() time.Time
	newID func() (string, error)
}

func NewOrderService(store *database.Store, opts OrderOptions) *OrderService {
	return &OrderService{
		store: store,
		opts:  opts,
		now:   func() time.Time { return time.Now().UTC() },
		newID: newOrderID,
	}
}

func newOrderID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate order id: %w", err)
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(u[:])
	return strings.ToLower(enc), nil
}

func (s *OrderService) Price(quantity int64) decimal.Decimal {
	return s.opts.UnitPrice.Mul(decimal.NewFromInt(quantity))
}

// CreateOrder persists a new pending order priced at the current unit price.
func (s *OrderService) CreateOrder(ctx context.Context, userID, quantity int64) (model.Order, error) {
	if quantity < s.opts.MinQuantity || quantity > s.opts.MaxQuantity {
		return model.Order{}, errs.New(errs.CodeInvalidQuantity,
			fmt.Sprintf("quantity %d outside [%d, %d]", quantity, s.opts.MinQuantity, s.opts.MaxQuantity))
	}
	if s.opts.Limiter != nil && !s.opts.Limiter.Allow(strconv.FormatInt(userID, 10)) {
		return model.Order{}, errs.New(errs.CodeRateLimited, fmt.Sprintf("user %d creates orders too fast", userID))
	}
	ctx = context.WithoutCancel(ctx)

	order := model.Order{
		UserID:    userID,
		Quantity:  quantity,
		UnitPrice: s.opts.UnitPrice,
		Price:     s.Price(quantity),
		Status:    model.StatusPending,
		CreatedAt: s.now().Truncate(time.Millisecond),
	}

	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return model.Order{}, errs.Unavailable("create order failed", err)
		}
		order.ID = id

		var inserted bool
		err = s.store.InTx(ctx, func(tx *database.Tx) error {
			if _, err := tx.GetUser(ctx, userID); err != nil {
				return err
			}
			inserted, err = tx.InsertOrder(ctx, order)
			if err != nil || !inserted {
				return err
			}
			return tx.AppendHistory(ctx, &model.HistoryEntry{
				UserID:    userID,
				Kind:      model.HistoryOrderCreated,
				OrderID:   order.ID,
				Quantity:  order.Quantity,
				Price:     order.Price,
				Status:    order.Status,
				Text:      fmt.Sprintf("Order %s: %d units for %s", order.ID, order.Quantity, order.Price),
				CreatedAt: order.CreatedAt,
			})
		})
		if err != nil {
			return model.Order{}, errs.Unavailable("create order failed", err)
		}
		if inserted {
			metrics.OrderCreated()
			slog.Info("order created", "order_id", order.ID, "user_id", userID, "quantity", quantity, "price", order.Price.String())
			return order, nil
		}
		slog.Warn("order id collision", "order_id", id, "attempt", attempt)
	}

	return model.Order{}, errs.New(errs.CodeStoreUnavailable,
		fmt.Sprintf("create order failed: no free order id after %d attempts", maxIDAttempts))
}

// Transition moves a pending order to target inside the caller's transaction.
func (s *OrderService) Transition(ctx context.Context, tx *database.Tx, orderID string, target model.OrderStatus, actorID int64) (model.Order, error) {
	order, err := tx.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if err := model.Transition(order.Status, target); err != nil {
		return model.Order{}, fmt.Errorf("order %s: %w", orderID, err)
	}

	now := s.now().Truncate(time.Millisecond)
	ok, err := tx.DecideOrder(ctx, orderID, target, actorID, now)
	if err != nil {
		return model.Order{}, err
	}
	if !ok {
		return model.Order{}, errs.New(errs.CodeInvalidTransition, fmt.Sprintf("order %s was decided concurrently", orderID))
	}

	order.Status = target
	order.DecidedAt = &now
	order.DecidedBy = &actorID

	err = tx.AppendHistory(ctx, &model.HistoryEntry{
		UserID:    order.UserID,
		Kind:      model.HistoryKindFor(target),
		OrderID:   order.ID,
		Quantity:  order.Quantity,
		Price:     order.Price,
		Status:    target,
		Text:      fmt.Sprintf("Order %s %s", order.ID, target),
		CreatedAt: now,
	})
	if err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func (s *OrderService) AttachProof(ctx context.Context, userID int64) (model.Order, error) {
	ctx = context.WithoutCancel(ctx)
	var order model.Order
	err := s.store.InTx(ctx, func(tx *database.Tx) error {
		var err error
		order, err = tx.MarkProof(ctx, userID, s.now().Truncate(time.Millisecond))
		return err
	})
	if err != nil {
		return model.Order{}, errs.Unavailable("attach proof failed", err)
	}
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, orderID string) (model.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, errs.Unavailable("get order failed", err)
	}
	return order, nil
}

func (s *OrderService) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	orders, err := s.store.ListOrdersByUser(ctx, userID, listLimit)
	if err != nil {
		return nil, errs.Unavailable("list orders failed", err)
	}
	return orders, nil
}

func (s *OrderService) ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	if !status.Valid() {
		return nil, errs.New(errs.CodeInvalidAction, fmt.Sprintf("unknown status %q", status))
	}
	orders, err := s.store.ListOrdersByStatus(ctx, status, listLimit)
	if err != nil {
		return nil, errs.Unavailable("list orders failed", err)
	}
	return orders, nil
}

func (s *OrderService) ListPending(ctx context.Context) ([]model.Order, error) {
	return s.ListByStatus(ctx, model.StatusPending)
}
