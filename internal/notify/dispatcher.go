// Package notify delivers outbound messages without ever blocking the
// ledger. Delivery is best effort: a message that cannot be queued or sent
// is logged and dropped, and is never retried.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"starledger/internal/metrics"
)

const (
	DefaultQueueSize = 256
	sendTimeout      = 10 * time.Second
)

var errQueueFull = errors.New("notification queue full")

// Sender is the transport that actually delivers messages.
type Sender interface {
	SendUser(ctx context.Context, userID int64, text string) error
	// SendAdmin delivers text to the admin. A non-empty orderID asks the
	// transport to attach confirm and reject actions for that order.
	SendAdmin(ctx context.Context, text string, orderID string) error
}

type message struct {
	admin   bool
	userID  int64
	text    string
	orderID string
}

// Dispatcher queues messages and hands them to a Sender from a single
// goroutine started by Run.
type Dispatcher struct {
	sender Sender
	queue  chan message
}

func NewDispatcher(sender Sender, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		sender: sender,
		queue:  make(chan message, queueSize),
	}
}

func (d *Dispatcher) NotifyUser(userID int64, text string) {
	d.enqueue(message{userID: userID, text: text})
}

func (d *Dispatcher) NotifyAdmin(text string, orderID string) {
	d.enqueue(message{admin: true, text: text, orderID: orderID})
}

func (d *Dispatcher) enqueue(m message) {
	select {
	case d.queue <- m:
	default:
		slog.Warn("notification dropped, queue full", "target", m.target(), "user_id", m.userID)
		metrics.Notification(m.target(), errQueueFull)
	}
}

// Run delivers queued messages until ctx is done. Messages still queued at
// that point are sent before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	slog.Info("notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.drain()
			slog.Info("notification dispatcher stopped")
			return nil
		case m := <-d.queue:
			d.send(m)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case m := <-d.queue:
			d.send(m)
		default:
			return
		}
	}
}

func (d *Dispatcher) send(m message) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	var err error
	if m.admin {
		err = d.sender.SendAdmin(ctx, m.text, m.orderID)
	} else {
		err = d.sender.SendUser(ctx, m.userID, m.text)
	}
	metrics.Notification(m.target(), err)
	if err != nil {
		slog.Warn("notification failed", "target", m.target(), "user_id", m.userID, "error", err)
	}
}

func (m message) target() string {
	if m.admin {
		return "admin"
	}
	return "user"
}
