package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"starledger/internal/model"
)

type historyRow struct {
	ID        string          `db:"id"`
	UserID    int64           `db:"user_id"`
	Kind      string          `db:"kind"`
	OrderID   sql.NullString  `db:"order_id"`
	Quantity  int64           `db:"quantity"`
	Price     decimal.Decimal `db:"price"`
	Status    string          `db:"status"`
	Amount    int64           `db:"amount"`
	Text      string          `db:"text"`
	CreatedAt int64           `db:"created_at"`
}

func (tx *Tx) AppendHistory(ctx context.Context, e *model.HistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	var orderID sql.NullString
	if e.OrderID != "" {
		orderID = sql.NullString{String: e.OrderID, Valid: true}
	}

	_, err := tx.tx.ExecContext(ctx, tx.tx.Rebind(`
		INSERT INTO history (id, user_id, kind, order_id, quantity, price, status, amount, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.UserID, string(e.Kind), orderID, e.Quantity, e.Price, string(e.Status), e.Amount, e.Text, toMillis(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, userID int64, limit int) ([]model.HistoryEntry, error) {
	var rows []historyRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, user_id, kind, order_id, quantity, price, status, amount, text, created_at
		FROM history
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	entries := make([]model.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, model.HistoryEntry{
			ID:        r.ID,
			UserID:    r.UserID,
			Kind:      model.HistoryKind(r.Kind),
			OrderID:   r.OrderID.String,
			Quantity:  r.Quantity,
			Price:     r.Price,
			Status:    model.OrderStatus(r.Status),
			Amount:    r.Amount,
			Text:      r.Text,
			CreatedAt: fromMillis(r.CreatedAt),
		})
	}
	return entries, nil
}
