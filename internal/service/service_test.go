package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"starledger/internal/database"
	"starledger/internal/model"
)

const testAdminID int64 = 999

type sentMessage struct {
	UserID  int64
	Text    string
	OrderID string
}

type fakeNotifier struct {
	mu    sync.Mutex
	user  []sentMessage
	admin []sentMessage
}

func (n *fakeNotifier) NotifyUser(userID int64, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.user = append(n.user, sentMessage{UserID: userID, Text: text})
}

func (n *fakeNotifier) NotifyAdmin(text string, orderID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.admin = append(n.admin, sentMessage{Text: text, OrderID: orderID})
}

type fixture struct {
	store    *database.Store
	users    *UserService
	orders   *OrderService
	coord    *Coordinator
	notifier *fakeNotifier
}

func newTestStore(t *testing.T) *database.Store {
	t.Helper()
	db, err := database.NewDB(database.DriverSQLite, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	require.NoError(t, database.InitSchema(db))
	return database.NewStore(db)
}

func testOrderOptions() OrderOptions {
	return OrderOptions{
		UnitPrice:   decimal.RequireFromString("0.00475"),
		MinQuantity: 50,
		MaxQuantity: 10000,
	}
}

func newFixture(t *testing.T, policy ReferralPolicy) *fixture {
	t.Helper()
	store := newTestStore(t)
	orders := NewOrderService(store, testOrderOptions())
	notifier := &fakeNotifier{}
	return &fixture{
		store:    store,
		users:    NewUserService(store),
		orders:   orders,
		coord:    NewCoordinator(store, orders, policy, notifier, testAdminID),
		notifier: notifier,
	}
}

func (f *fixture) user(t *testing.T, id int64, invitedBy *int64) model.User {
	t.Helper()
	u, _, err := f.users.Touch(context.Background(), id, "user", invitedBy)
	require.NoError(t, err)
	return u
}

func (f *fixture) order(t *testing.T, userID, quantity int64) model.Order {
	t.Helper()
	o, err := f.orders.CreateOrder(context.Background(), userID, quantity)
	require.NoError(t, err)
	return o
}

func (f *fixture) get(t *testing.T, id int64) model.User {
	t.Helper()
	u, err := f.users.Get(context.Background(), id)
	require.NoError(t, err)
	return u
}

func ptr(v int64) *int64 { return &v }
