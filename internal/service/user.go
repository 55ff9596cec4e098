package service

import (
	"context"
	"time"

	"starledger/internal/database"
	"starledger/internal/errs"
	"starledger/internal/model"
)

const historyLimit = 20

type UserService struct {
	store *database.Store
	now   func() time.Time
}

func NewUserService(store *database.Store) *UserService {
	return &UserService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Touch creates the user on first contact and refreshes the display name after.
func (s *UserService) Touch(ctx context.Context, userID int64, displayName string, invitedBy *int64) (model.User, bool, error) {
	ctx = context.WithoutCancel(ctx)
	var (
		user    model.User
		created bool
	)
	err := s.store.InTx(ctx, func(tx *database.Tx) error {
		var err error
		user, created, err = tx.UpsertUser(ctx, userID, displayName, invitedBy, s.now().Truncate(time.Millisecond))
		return err
	})
	if err != nil {
		return model.User{}, false, errs.Unavailable("register user failed", err)
	}
	return user, created, nil
}

func (s *UserService) Get(ctx context.Context, userID int64) (model.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return model.User{}, errs.Unavailable("get user failed", err)
	}
	return user, nil
}

func (s *UserService) History(ctx context.Context, userID int64) ([]model.HistoryEntry, error) {
	entries, err := s.store.ListHistory(ctx, userID, historyLimit)
	if err != nil {
		return nil, errs.Unavailable("list history failed", err)
	}
	return entries, nil
}

type ReferralStats struct {
	Credits []model.ReferralCredit `json:"credits"`
	Earned  int64                  `json:"earned"`
}

func (s *UserService) Referrals(ctx context.Context, userID int64) (ReferralStats, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return ReferralStats{}, err
	}
	credits, err := s.store.ListReferralCredits(ctx, userID)
	if err != nil {
		return ReferralStats{}, errs.Unavailable("list referrals failed", err)
	}
	return ReferralStats{Credits: credits, Earned: user.ReferralEarned}, nil
}
