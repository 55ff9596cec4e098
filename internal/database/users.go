package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"starledger/internal/errs"
	"starledger/internal/model"
)

const userColumns = `id, display_name, balance, referral_earned, invited_by, created_at`

type userRow struct {
	ID             int64         `db:"id"`
	DisplayName    string        `db:"display_name"`
	Balance        int64         `db:"balance"`
	ReferralEarned int64         `db:"referral_earned"`
	InvitedBy      sql.NullInt64 `db:"invited_by"`
	CreatedAt      int64         `db:"created_at"`
}

func (r userRow) toModel() model.User {
	return model.User{
		ID:             r.ID,
		DisplayName:    r.DisplayName,
		Balance:        r.Balance,
		ReferralEarned: r.ReferralEarned,
		InvitedBy:      fromNullInt(r.InvitedBy),
		CreatedAt:      fromMillis(r.CreatedAt),
	}
}

func getUser(ctx context.Context, q sqlx.ExtContext, id int64) (model.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, q, &row, q.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("user %d: %w", id, errs.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return row.toModel(), nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (model.User, error) {
	return getUser(ctx, s.db, id)
}

func (tx *Tx) GetUser(ctx context.Context, id int64) (model.User, error) {
	return getUser(ctx, tx.tx, id)
}

// UpsertUser inserts the user on first contact and otherwise only refreshes
// the display name. An inviter that equals id or does not exist is dropped.
func (tx *Tx) UpsertUser(ctx context.Context, id int64, displayName string, invitedBy *int64, at time.Time) (model.User, bool, error) {
	var inviter sql.NullInt64
	if invitedBy != nil && *invitedBy != id {
		if _, err := tx.GetUser(ctx, *invitedBy); err == nil {
			inviter = sql.NullInt64{Int64: *invitedBy, Valid: true}
		} else if !errors.Is(err, errs.ErrUserNotFound) {
			return model.User{}, false, err
		}
	}

	res, err := tx.tx.ExecContext(ctx, tx.tx.Rebind(`
		INSERT INTO users (id, display_name, balance, referral_earned, invited_by, created_at)
		VALUES (?, ?, 0, 0, ?, ?)
		ON CONFLICT (id) DO NOTHING`),
		id, displayName, inviter, toMillis(at),
	)
	if err != nil {
		return model.User{}, false, fmt.Errorf("insert user: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return model.User{}, false, err
	}

	created := n == 1
	if !created {
		_, err = tx.tx.ExecContext(ctx, tx.tx.Rebind(`UPDATE users SET display_name = ? WHERE id = ?`), displayName, id)
		if err != nil {
			return model.User{}, false, fmt.Errorf("update display name: %w", err)
		}
	}

	user, err := tx.GetUser(ctx, id)
	if err != nil {
		return model.User{}, false, err
	}
	return user, created, nil
}

// AddBalance fails with NegativeBalance instead of going below zero.
func (tx *Tx) AddBalance(ctx context.Context, userID, delta int64) error {
	return tx.addToColumn(ctx, "balance", userID, delta)
}

func (tx *Tx) AddReferralEarned(ctx context.Context, userID, delta int64) error {
	return tx.addToColumn(ctx, "referral_earned", userID, delta)
}

func (tx *Tx) addToColumn(ctx context.Context, column string, userID, delta int64) error {
	query := fmt.Sprintf(`UPDATE users SET %[1]s = %[1]s + ? WHERE id = ? AND %[1]s + ? >= 0`, column)
	res, err := tx.tx.ExecContext(ctx, tx.tx.Rebind(query), delta, userID, delta)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	if _, err := tx.GetUser(ctx, userID); err != nil {
		return err
	}
	return fmt.Errorf("user %d %s: %w", userID, column, errs.ErrNegativeBalance)
}
