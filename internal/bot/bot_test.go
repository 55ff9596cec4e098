package bot

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starledger/internal/database"
	"starledger/internal/errs"
	"starledger/internal/model"
	"starledger/internal/service"
)

const (
	adminID = int64(900)
	wallet  = "UQ-test-wallet"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// lastText returns the text of the last plain message sent to chatID.
func (f *fakeAPI) lastText(chatID int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if m, ok := f.sent[i].(tgbotapi.MessageConfig); ok && m.ChatID == chatID {
			return m.Text
		}
	}
	return ""
}

func (f *fakeAPI) callbackAnswers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.requests {
		if cb, ok := r.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb.Text)
		}
	}
	return out
}

type nopNotifier struct{}

func (nopNotifier) NotifyUser(int64, string)   {}
func (nopNotifier) NotifyAdmin(string, string) {}

type env struct {
	bot    *Bot
	api    *fakeAPI
	users  *service.UserService
	orders *service.OrderService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.NewDB(database.DriverSQLite, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	require.NoError(t, database.InitSchema(db))
	store := database.NewStore(db)

	users := service.NewUserService(store)
	orders := service.NewOrderService(store, service.OrderOptions{
		UnitPrice:   decimal.RequireFromString("0.00475"),
		MinQuantity: 50,
		MaxQuantity: 1000,
	})
	coord := service.NewCoordinator(store, orders, service.FirstPurchasePolicy{Bonus: 10}, nopNotifier{}, adminID)
	api := &fakeAPI{}

	b := New(api, users, orders, coord, nopNotifier{}, Options{
		AdminID:     adminID,
		Wallet:      wallet,
		BotName:     "starledger_bot",
		MinQuantity: 50,
		MaxQuantity: 1000,
	})
	return &env{bot: b, api: api, users: users, orders: orders}
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, UserName: "buyer"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func photoUpdate(userID int64) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 2,
		From:      &tgbotapi.User{ID: userID, FirstName: "Ann"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Photo:     []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
	}}
}

func callbackUpdate(fromID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: fromID},
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: fromID}},
	}}
}

func TestParseAdminAction(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    AdminAction
		wantErr bool
	}{
		{"confirm", "c:abc234", AdminAction{Decision: service.Confirm, OrderID: "abc234"}, false},
		{"reject", "r:abc234", AdminAction{Decision: service.Reject, OrderID: "abc234"}, false},
		{"unknown tag", "x:abc234", AdminAction{}, true},
		{"no separator", "cabc234", AdminAction{}, true},
		{"empty id", "c:", AdminAction{}, true},
		{"legacy user id payload", "confirm_12345_100", AdminAction{}, true},
		{"id with separator", "c:abc:def", AdminAction{}, true},
		{"uppercase id", "c:ABC", AdminAction{}, true},
		{"too long", "c:" + strings.Repeat("a", 65), AdminAction{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAdminAction(tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, errs.ErrInvalidAction)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeAdminActionRoundTrip(t *testing.T) {
	data := EncodeAdminAction(service.Reject, "q2hx7")
	assert.Equal(t, "r:q2hx7", data)

	got, err := ParseAdminAction(data)
	require.NoError(t, err)
	assert.Equal(t, AdminAction{Decision: service.Reject, OrderID: "q2hx7"}, got)
}

func TestStartWithReferral(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.bot.Handle(ctx, textUpdate(1, "/start"))
	assert.Contains(t, e.api.lastText(1), wallet)

	e.bot.Handle(ctx, textUpdate(2, "/start ref_1"))
	u, err := e.users.Get(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, u.InvitedBy)
	assert.Equal(t, int64(1), *u.InvitedBy)

	e.bot.Handle(ctx, textUpdate(3, "/start ref_3"))
	u, err = e.users.Get(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, u.InvitedBy)
}

func TestQuantityCreatesOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.bot.Handle(ctx, textUpdate(1, "100"))
	reply := e.api.lastText(1)
	assert.Contains(t, reply, "0.475")
	assert.Contains(t, reply, wallet)

	orders, err := e.orders.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Contains(t, reply, orders[0].ID)

	e.bot.Handle(ctx, textUpdate(1, "5000"))
	assert.Equal(t, errorTexts[errs.CodeInvalidQuantity], e.api.lastText(1))
}

func TestOtherTextReprompts(t *testing.T) {
	e := newEnv(t)

	e.bot.Handle(context.Background(), textUpdate(1, "hello?"))
	assert.Equal(t, repromptText, e.api.lastText(1))
}

func TestPhotoForwardsProofToAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.bot.Handle(ctx, photoUpdate(1))
	assert.Equal(t, errorTexts[errs.CodeNoPendingOrder], e.api.lastText(1))

	e.bot.Handle(ctx, textUpdate(1, "100"))
	e.bot.Handle(ctx, photoUpdate(1))

	var photo *tgbotapi.PhotoConfig
	e.api.mu.Lock()
	for _, c := range e.api.sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok {
			photo = &p
		}
	}
	e.api.mu.Unlock()
	require.NotNil(t, photo)
	assert.Equal(t, adminID, photo.ChatID)
	assert.Contains(t, photo.Caption, "Ann")

	markup, ok := photo.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 2)

	orders, err := e.orders.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, orders[0].ProofAt)
	assert.Equal(t, "c:"+orders[0].ID, *markup.InlineKeyboard[0][0].CallbackData)
}

func TestCallbackDecides(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.bot.Handle(ctx, textUpdate(1, "100"))
	orders, err := e.orders.ListByUser(ctx, 1)
	require.NoError(t, err)
	id := orders[0].ID

	e.bot.Handle(ctx, callbackUpdate(1, "c:"+id))
	e.bot.Handle(ctx, callbackUpdate(adminID, "c:"+id))
	e.bot.Handle(ctx, callbackUpdate(adminID, "r:"+id))
	e.bot.Handle(ctx, callbackUpdate(adminID, "bogus"))

	assert.Equal(t, []string{
		errorTexts[errs.CodeUnauthorized],
		"✅ Confirmed",
		errorTexts[errs.CodeAlreadyDecided],
		errorTexts[errs.CodeInvalidAction],
	}, e.api.callbackAnswers())

	order, err := e.orders.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, order.Status)

	u, err := e.users.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), u.Balance)
}

func TestCommands(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.bot.Handle(ctx, textUpdate(1, "100"))

	e.bot.Handle(ctx, textUpdate(1, "/balance"))
	assert.Contains(t, e.api.lastText(1), "Balance: 0")

	e.bot.Handle(ctx, textUpdate(1, "/orders"))
	assert.Contains(t, e.api.lastText(1), "pending")

	e.bot.Handle(ctx, textUpdate(1, "/history"))
	assert.Contains(t, e.api.lastText(1), "100 units")

	e.bot.Handle(ctx, textUpdate(1, "/ref"))
	assert.Contains(t, e.api.lastText(1), "start=ref_1")
}

func TestSender(t *testing.T) {
	api := &fakeAPI{}
	s := NewSender(api, adminID)

	require.NoError(t, s.SendUser(context.Background(), 5, "hi"))
	require.NoError(t, s.SendAdmin(context.Background(), "remind", "abc"))

	require.Len(t, api.sent, 2)
	admin := api.sent[1].(tgbotapi.MessageConfig)
	assert.Equal(t, adminID, admin.ChatID)
	_, ok := admin.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.True(t, ok)
}
