package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starledger/internal/errs"
	"starledger/internal/model"
)

type denyLimiter struct{ keys []string }

func (l *denyLimiter) Allow(key string) bool {
	l.keys = append(l.keys, key)
	return false
}

func TestCreateOrderPriceIsExact(t *testing.T) {
	f := newFixture(t, FirstPurchasePolicy{Bonus: 10})
	f.user(t, 1, nil)

	o := f.order(t, 1, 100)

	assert.True(t, o.Price.Equal(decimal.RequireFromString("0.475")), "price %s", o.Price)
	assert.Equal(t, model.StatusPending, o.Status)
	assert.Len(t, o.ID, 26)
	assert.Regexp(t, `^[a-z2-7]{26}$`, o.ID)

	stored, err := f.orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, stored.Price.Equal(o.Price))
	assert.True(t, stored.UnitPrice.Equal(decimal.RequireFromString("0.00475")))
}

func TestCreateOrderPriceSurvivesUnitPriceChange(t *testing.T) {
	f := newFixture(t, FirstPurchasePolicy{Bonus: 10})
	f.user(t, 1, nil)
	o := f.order(t, 1, 100)

	opts := testOrderOptions()
	opts.UnitPrice = decimal.RequireFromString("0.01")
	repriced := NewOrderService(f.store, opts)

	stored, err := repriced.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, stored.Price.Equal(decimal.RequireFromString("0.475")), "price %s", stored.Price)

	fresh, err := repriced.CreateOrder(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.True(t, fresh.Price.Equal(decimal.NewFromInt(1)))
}

func TestCreateOrderQuantityBounds(t *testing.T) {
	f := newFixture(t, FirstPurchasePolicy{Bonus: 10})
	f.user(t, 1, nil)
	opts := testOrderOptions()

	tests := []struct {
		name     string
		quantity int64
		wantErr  bool
	}{
		{"below min", opts.MinQuantity - 1, true},
		{"min", opts.MinQuantity, false},
		{"max", opts.MaxQuantity, false},
		{"above max", opts.MaxQuantity + 1, true},
		{"zero", 0, true},
		{"negative", -5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.CreateOrder(context.Background(), 1, tt.quantity)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, errs.ErrInvalidQuantity)
		})
	}
}

func TestCreateOrderRequiresKnownUser(t *testing.T) {
	f := newFixture(t, FirstPurchasePolicy{Bonus: 10})

	_, err := f.orders.CreateOrder(context.Background(), 42, 100)
	assert.ErrorIs(t, err, errs.ErrUserNotFound)
}

func TestCreateOrderRateLimited(t *testing.T) {
	store := newTestStore(t)
	limiter := &denyLimiter{}
	opts := testOrderOptions()
	opts.Limiter = limiter
	orders := NewOrderService(store, opts)

	_, err := orders.CreateOrder(context.Background(), 7, 100)
	assert.ErrorIs(t, err, errs.ErrRateLimited)
	assert.Equal(t, []string{"7"}, limiter.keys)
}

func TestCreateOrderRetriesIDCollision(t *testing.T) {
	f := newFixture(t, FirstPurchasePolicy{Bonus: 10})
	f.user(t, 1, nil)

	ids := []string{"taken", "taken", "fresh"}
	f.orders.newID = func() (string, error) {
		id := ids[0]
		if len(ids) > 1 {
			ids = ids[1:]
		}
		return id, nil
	}

	first := f.order(t, 1, 100)
	assert.Equal(t, "taken", first.ID)

	second := f.order(t, 1, 100)
	assert.Equal(t, "fresh", second.ID)
}

func TestCreateOrderGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture(t, FirstPurchasePolicy{Bonus: 10})
	f.user(t, 1, nil)
	f.orders.newID = func() (string, error) { return "same", nil }

	f.order(t, 1, 100)
	_, err := f.orders.CreateOrder(context.Background(), 1, 100)
	assert.ErrorIs(t, err, errs.ErrStoreUnavailable)
	assert.True(t, errs.Retryable(err))
}

func TestCreateOrderAppendsHistory(t *testing.T) {
	f := newFixture(t, FirstPurchasePolicy{Bonus: 10})
	f.user(t, 1, nil)
	o := f.order(t, 1, 100)

	entries, err := f.users.History(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.HistoryOrderCreated, entries[0].Kind)
	assert.Equal(t, o.ID, entries[0].OrderID)
	assert.Equal(t, int64(100), entries[0].Quantity)
}

func TestAttachProof(t *testing.T) {
	f := newFixture(t, FirstPurchasePolicy{Bonus: 10})
	f.user(t, 1, nil)

	_, err := f.orders.AttachProof(context.Background(), 1)
	assert.ErrorIs(t, err, errs.ErrNoPendingOrder)

	o := f.order(t, 1, 100)
	got, err := f.orders.AttachProof(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.NotNil(t, got.ProofAt)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t, FirstPurchasePolicy{Bonus: 10})
	f.user(t, 1, nil)
	a := f.order(t, 1, 100)
	f.order(t, 1, 200)

	_, err := f.coord.Decide(context.Background(), testAdminID, a.ID, Reject)
	require.NoError(t, err)

	mine, err := f.orders.ListByUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	pending, err := f.orders.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(200), pending[0].Quantity)

	_, err = f.orders.ListByStatus(context.Background(), model.OrderStatus("lost"))
	assert.ErrorIs(t, err, errs.ErrInvalidAction)
}
