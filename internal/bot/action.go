package bot

import (
	"fmt"
	"strings"

	"starledger/internal/errs"
	"starledger/internal/service"
)

const (
	tagConfirm = "c"
	tagReject  = "r"
	maxIDLen   = 64
)

// AdminAction is a decoded admin button press.
type AdminAction struct {
	Decision service.Decision
	OrderID  string
}

// EncodeAdminAction renders the callback payload for a decision button.
func EncodeAdminAction(decision service.Decision, orderID string) string {
	tag := tagReject
	if decision == service.Confirm {
		tag = tagConfirm
	}
	return tag + ":" + orderID
}

// ParseAdminAction decodes a callback payload of the form "<tag>:<orderId>".
// The order id is opaque and is only checked for shape.
func ParseAdminAction(data string) (AdminAction, error) {
	tag, orderID, ok := strings.Cut(data, ":")
	if !ok {
		return AdminAction{}, errs.New(errs.CodeInvalidAction, fmt.Sprintf("malformed action %q", data))
	}

	var action AdminAction
	switch tag {
	case tagConfirm:
		action.Decision = service.Confirm
	case tagReject:
		action.Decision = service.Reject
	default:
		return AdminAction{}, errs.New(errs.CodeInvalidAction, fmt.Sprintf("unknown action tag %q", tag))
	}

	if orderID == "" || len(orderID) > maxIDLen || strings.IndexFunc(orderID, invalidIDRune) >= 0 {
		return AdminAction{}, errs.New(errs.CodeInvalidAction, fmt.Sprintf("malformed order id %q", orderID))
	}
	action.OrderID = orderID
	return action, nil
}

func invalidIDRune(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
}
