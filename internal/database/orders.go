package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"starledger/internal/errs"
	"starledger/internal/model"
)

const orderColumns = `order_id, user_id, quantity, unit_price, price, status, created_at, decided_at, decided_by, proof_at`

type orderRow struct {
	ID        string          `db:"order_id"`
	UserID    int64           `db:"user_id"`
	Quantity  int64           `db:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price"`
	Price     decimal.Decimal `db:"price"`
	Status    string          `db:"status"`
	CreatedAt int64           `db:"created_at"`
	DecidedAt sql.NullInt64   `db:"decided_at"`
	DecidedBy sql.NullInt64   `db:"decided_by"`
	ProofAt   sql.NullInt64   `db:"proof_at"`
}

func (r orderRow) toModel() model.Order {
	return model.Order{
		ID:        r.ID,
		UserID:    r.UserID,
		Quantity:  r.Quantity,
		UnitPrice: r.UnitPrice,
		Price:     r.Price,
		Status:    model.OrderStatus(r.Status),
		CreatedAt: fromMillis(r.CreatedAt),
		DecidedAt: fromNullMillis(r.DecidedAt),
		DecidedBy: fromNullInt(r.DecidedBy),
		ProofAt:   fromNullMillis(r.ProofAt),
	}
}

func getOrder(ctx context.Context, q sqlx.ExtContext, id, lock string) (model.Order, error) {
	var row orderRow
	err := sqlx.GetContext(ctx, q, &row, q.Rebind(`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`+lock), id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, fmt.Errorf("order %s: %w", id, errs.ErrOrderNotFound)
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("get order: %w", err)
	}
	return row.toModel(), nil
}

func selectOrders(ctx context.Context, q sqlx.ExtContext, query string, args ...any) ([]model.Order, error) {
	var rows []orderRow
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	orders := make([]model.Order, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, r.toModel())
	}
	return orders, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (model.Order, error) {
	return getOrder(ctx, s.db, id, "")
}

// GetOrderForUpdate reads an order and, where the driver supports it, locks
// the row until the transaction ends.
func (tx *Tx) GetOrderForUpdate(ctx context.Context, id string) (model.Order, error) {
	return getOrder(ctx, tx.tx, id, tx.lock)
}

// InsertOrder persists a new order. It reports false without error when the
// order id is already taken.
func (tx *Tx) InsertOrder(ctx context.Context, o model.Order) (bool, error) {
	res, err := tx.tx.ExecContext(ctx, tx.tx.Rebind(`
		INSERT INTO orders (order_id, user_id, quantity, unit_price, price, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_id) DO NOTHING`),
		o.ID, o.UserID, o.Quantity, o.UnitPrice, o.Price, string(o.Status), toMillis(o.CreatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert order: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DecideOrder moves a pending order to a terminal status. It reports false
// when the order was no longer pending.
func (tx *Tx) DecideOrder(ctx context.Context, id string, status model.OrderStatus, decidedBy int64, at time.Time) (bool, error) {
	res, err := tx.tx.ExecContext(ctx, tx.tx.Rebind(`
		UPDATE orders SET status = ?, decided_at = ?, decided_by = ?
		WHERE order_id = ? AND status = ?`),
		string(status), toMillis(at), decidedBy, id, string(model.StatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkProof stamps the user's newest pending order without proof.
func (tx *Tx) MarkProof(ctx context.Context, userID int64, at time.Time) (model.Order, error) {
	var row orderRow
	err := sqlx.GetContext(ctx, tx.tx, &row, tx.tx.Rebind(`
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = ? AND status = ? AND proof_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`+tx.lock),
		userID, string(model.StatusPending),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, fmt.Errorf("user %d: %w", userID, errs.ErrNoPendingOrder)
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("find pending order: %w", err)
	}

	_, err = tx.tx.ExecContext(ctx, tx.tx.Rebind(`UPDATE orders SET proof_at = ? WHERE order_id = ?`), toMillis(at), row.ID)
	if err != nil {
		return model.Order{}, fmt.Errorf("update proof: %w", err)
	}

	order := row.toModel()
	order.ProofAt = &at
	return order, nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID int64, limit int) ([]model.Order, error) {
	return selectOrders(ctx, s.db, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, userID, limit)
}

func (s *Store) ListOrdersByStatus(ctx context.Context, status model.OrderStatus, limit int) ([]model.Order, error) {
	return selectOrders(ctx, s.db, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = ?
		ORDER BY created_at ASC
		LIMIT ?`, string(status), limit)
}

// ListUnremindedPending returns pending orders whose proof arrived at or
// before the cutoff and that were never reminded about.
func (s *Store) ListUnremindedPending(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	return selectOrders(ctx, s.db, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = ? AND proof_at IS NOT NULL AND proof_at <= ? AND reminded_at IS NULL
		ORDER BY proof_at ASC
		LIMIT ?`, string(model.StatusPending), toMillis(cutoff), limit)
}

func (s *Store) MarkReminded(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE orders SET reminded_at = ?
		WHERE order_id = ? AND reminded_at IS NULL`), toMillis(at), id)
	if err != nil {
		return false, fmt.Errorf("mark reminded: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
