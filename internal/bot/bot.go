// Package bot is the Telegram transport in front of the ledger services.
// It decodes updates into service calls and renders the results; it holds
// no ledger state of its own.
package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"starledger/internal/errs"
	"starledger/internal/service"
)

// API is the subset of *tgbotapi.BotAPI the bot needs.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Options struct {
	AdminID     int64
	Wallet      string
	BotName     string
	MinQuantity int64
	MaxQuantity int64
}

type Bot struct {
	api      API
	users    *service.UserService
	orders   *service.OrderService
	coord    *service.Coordinator
	notifier service.Notifier
	opts     Options
}

func New(api API, users *service.UserService, orders *service.OrderService, coord *service.Coordinator, notifier service.Notifier, opts Options) *Bot {
	return &Bot{
		api:      api,
		users:    users,
		orders:   orders,
		coord:    coord,
		notifier: notifier,
		opts:     opts,
	}
}

// Run handles updates one at a time until ctx is done or the channel
// closes.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	slog.Info("bot started", "name", b.opts.BotName)
	for {
		select {
		case <-ctx.Done():
			slog.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.Handle(ctx, update)
		}
	}
}

func (b *Bot) Handle(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	from := msg.From
	name := displayName(from.UserName, from.FirstName, from.ID)

	var inviter *int64
	if msg.IsCommand() && msg.Command() == "start" {
		inviter = parseReferral(msg.CommandArguments())
	}

	user, created, err := b.users.Touch(ctx, from.ID, name, inviter)
	if err != nil {
		slog.Error("touch user failed", "user_id", from.ID, "error", err)
		b.reply(msg.Chat.ID, errorText("Registration", err))
		return
	}
	if created && user.InvitedBy != nil {
		b.notifier.NotifyUser(*user.InvitedBy, "🎉 "+name+" joined with your referral link.")
	}

	switch {
	case len(msg.Photo) > 0:
		b.handlePhoto(ctx, msg, name)
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	default:
		text := strings.TrimSpace(msg.Text)
		if quantity, err := strconv.ParseInt(text, 10, 64); err == nil {
			b.handleQuantity(ctx, msg, quantity)
			return
		}
		b.reply(msg.Chat.ID, repromptText)
	}
}

func parseReferral(arg string) *int64 {
	raw, ok := strings.CutPrefix(strings.TrimSpace(arg), "ref_")
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start", "help":
		b.reply(chatID, welcomeText(b.opts.MinQuantity, b.opts.MaxQuantity, b.opts.Wallet))
	case "balance":
		user, err := b.users.Get(ctx, userID)
		if err != nil {
			b.reply(chatID, errorText("Balance", err))
			return
		}
		b.reply(chatID, balanceText(user))
	case "history":
		entries, err := b.users.History(ctx, userID)
		if err != nil {
			b.reply(chatID, errorText("History", err))
			return
		}
		b.reply(chatID, historyText(entries))
	case "orders":
		orders, err := b.orders.ListByUser(ctx, userID)
		if err != nil {
			b.reply(chatID, errorText("Orders", err))
			return
		}
		b.reply(chatID, ordersText(orders))
	case "ref":
		stats, err := b.users.Referrals(ctx, userID)
		if err != nil {
			b.reply(chatID, errorText("Referrals", err))
			return
		}
		b.reply(chatID, referralText(b.opts.BotName, userID, len(stats.Credits), stats.Earned))
	default:
		b.reply(chatID, repromptText)
	}
}

func (b *Bot) handleQuantity(ctx context.Context, msg *tgbotapi.Message, quantity int64) {
	order, err := b.orders.CreateOrder(ctx, msg.From.ID, quantity)
	if err != nil {
		slog.Warn("create order failed", "user_id", msg.From.ID, "quantity", quantity, "error", err)
		b.reply(msg.Chat.ID, errorText("Order", err))
		return
	}
	b.reply(msg.Chat.ID, orderCreatedText(order, b.opts.Wallet))
}

// handlePhoto attaches the screenshot to the newest pending order and
// forwards it to the admin with the decision buttons.
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message, from string) {
	order, err := b.orders.AttachProof(ctx, msg.From.ID)
	if err != nil {
		b.reply(msg.Chat.ID, errorText("Screenshot", err))
		return
	}

	best := msg.Photo[len(msg.Photo)-1]
	photo := tgbotapi.NewPhoto(b.opts.AdminID, tgbotapi.FileID(best.FileID))
	photo.Caption = proofCaption(from, order)
	photo.ReplyMarkup = decisionKeyboard(order.ID)
	if _, err := b.api.Send(photo); err != nil {
		slog.Warn("forward proof to admin failed", "order_id", order.ID, "error", err)
	}

	b.reply(msg.Chat.ID, "✅ Screenshot received, wait for confirmation.")
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil {
		b.answer(cq.ID, errorText("Action", errs.ErrInvalidAction))
		return
	}
	action, err := ParseAdminAction(cq.Data)
	if err != nil {
		b.answer(cq.ID, errorText("Action", err))
		return
	}

	res, err := b.coord.Decide(ctx, cq.From.ID, action.OrderID, action.Decision)
	if err != nil {
		b.answer(cq.ID, errorText("Decision", err))
		return
	}

	text := "✅ Confirmed"
	if res.Decision == service.Reject {
		text = "❌ Rejected"
	}
	b.answer(cq.ID, text)

	if cq.Message != nil && cq.Message.Chat != nil {
		strip := tgbotapi.NewEditMessageReplyMarkup(cq.Message.Chat.ID, cq.Message.MessageID,
			tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
		if _, err := b.api.Request(strip); err != nil {
			slog.Warn("remove decision buttons failed", "order_id", action.OrderID, "error", err)
		}
	}
}

func decisionKeyboard(orderID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", EncodeAdminAction(service.Confirm, orderID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", EncodeAdminAction(service.Reject, orderID)),
		),
	)
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		slog.Warn("send reply failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		slog.Warn("answer callback failed", "error", err)
	}
}
