package database

import (
	"context"
	"database/sql"
	"fmt"

	"starledger/internal/model"
)

type referralRow struct {
	OrderID   string         `db:"order_id"`
	InviterID int64          `db:"inviter_id"`
	InviteeID int64          `db:"invitee_id"`
	Amount    int64          `db:"amount"`
	PairKey   sql.NullString `db:"pair_key"`
	CreatedAt int64          `db:"created_at"`
}

// InsertReferralCredit reports false when the order or pair was already credited.
func (tx *Tx) InsertReferralCredit(ctx context.Context, c model.ReferralCredit) (bool, error) {
	var pairKey sql.NullString
	if c.PairKey != "" {
		pairKey = sql.NullString{String: c.PairKey, Valid: true}
	}

	res, err := tx.tx.ExecContext(ctx, tx.tx.Rebind(`
		INSERT INTO referral_credits (order_id, inviter_id, invitee_id, amount, pair_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`),
		c.OrderID, c.InviterID, c.InviteeID, c.Amount, pairKey, toMillis(c.CreatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert referral credit: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) ListReferralCredits(ctx context.Context, inviterID int64) ([]model.ReferralCredit, error) {
	var rows []referralRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT order_id, inviter_id, invitee_id, amount, pair_key, created_at
		FROM referral_credits
		WHERE inviter_id = ?
		ORDER BY created_at DESC`), inviterID)
	if err != nil {
		return nil, fmt.Errorf("query referral credits: %w", err)
	}

	credits := make([]model.ReferralCredit, 0, len(rows))
	for _, r := range rows {
		credits = append(credits, model.ReferralCredit{
			OrderID:   r.OrderID,
			InviterID: r.InviterID,
			InviteeID: r.InviteeID,
			Amount:    r.Amount,
			PairKey:   r.PairKey.String,
			CreatedAt: fromMillis(r.CreatedAt),
		})
	}
	return credits, nil
}
