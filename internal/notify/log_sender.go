package notify

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the log instead of delivering them. It
// backs the dispatcher when the process runs without a chat transport.
type LogSender struct{}

func (LogSender) SendUser(_ context.Context, userID int64, text string) error {
	slog.Info("notify user", "user_id", userID, "text", text)
	return nil
}

func (LogSender) SendAdmin(_ context.Context, text string, orderID string) error {
	slog.Info("notify admin", "order_id", orderID, "text", text)
	return nil
}
