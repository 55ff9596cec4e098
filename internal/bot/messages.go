package bot

import (
	"fmt"
	"strings"

	"starledger/internal/errs"
	"starledger/internal/model"
)

var errorTexts = map[errs.Code]string{
	errs.CodeInvalidQuantity:   "❌ That amount is outside the allowed range.",
	errs.CodeOrderNotFound:     "❌ Order not found.",
	errs.CodeInvalidTransition: "⚠️ This order can no longer change.",
	errs.CodeAlreadyDecided:    "⚠️ This order was already decided.",
	errs.CodeUnauthorized:      "🚫 Unauthorized.",
	errs.CodeStoreUnavailable:  "⏳ Service is temporarily unavailable, please try again.",
	errs.CodeUserNotFound:      "❌ Unknown user. Send /start first.",
	errs.CodeNoPendingOrder:    "❌ You have no order waiting for payment. Send the amount you want to buy first.",
	errs.CodeNegativeBalance:   "❌ Balance cannot become negative.",
	errs.CodeRateLimited:       "⏳ Too many orders, please wait a minute.",
	errs.CodeInvalidAction:     "❌ Unknown action.",
}

// errorText maps an error to the text shown in chat. Errors without a
// domain code name only the failed operation.
func errorText(op string, err error) string {
	if text, ok := errorTexts[errs.CodeOf(err)]; ok {
		return text
	}
	return fmt.Sprintf("❌ %s failed, please try again later.", op)
}

func displayName(userName, firstName string, id int64) string {
	switch {
	case userName != "":
		return "@" + userName
	case firstName != "":
		return firstName
	default:
		return fmt.Sprintf("%d", id)
	}
}

func welcomeText(minQty, maxQty int64, wallet string) string {
	return fmt.Sprintf("👋 Hi! Send the number of units you want to buy (%d to %d).\n\n"+
		"Then pay to the wallet below and send a screenshot of the transfer:\n\n%s", minQty, maxQty, wallet)
}

func orderCreatedText(o model.Order, wallet string) string {
	return fmt.Sprintf("🧾 Order %s\n%d units, price %s TON.\n\nSend %s TON to\n%s\nand reply with a screenshot of the payment.",
		o.ID, o.Quantity, o.Price, o.Price, wallet)
}

func proofCaption(from string, o model.Order) string {
	return fmt.Sprintf("📸 Payment screenshot from %s\nOrder %s: %d units, %s TON", from, o.ID, o.Quantity, o.Price)
}

func balanceText(u model.User) string {
	return fmt.Sprintf("💰 Balance: %d\n🎁 Referral bonus earned: %d", u.Balance, u.ReferralEarned)
}

func historyText(entries []model.HistoryEntry) string {
	if len(entries) == 0 {
		return "No history yet."
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  %s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.Text)
	}
	return b.String()
}

func ordersText(orders []model.Order) string {
	if len(orders) == 0 {
		return "No orders yet."
	}
	var b strings.Builder
	for _, o := range orders {
		fmt.Fprintf(&b, "%s  %d units  %s TON  %s\n", o.ID, o.Quantity, o.Price, o.Status)
	}
	return b.String()
}

func referralText(botName string, userID int64, invited int, earned int64) string {
	return fmt.Sprintf("🔗 Your link: https://t.me/%s?start=ref_%d\nBonuses received: %d\nEarned: %d",
		botName, userID, invited, earned)
}

const repromptText = "❌ Please send a screenshot of the payment, or the number of units you want to buy."
