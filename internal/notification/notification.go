package notification

import (
	"context"
	"log/slog"
)

// Kind labels the event a message announces.
type Kind string

const (
	KindCashInRequested   Kind = "cashin_requested"
	KindCashInConfirmed   Kind = "cashin_confirmed"
	KindPurchaseConfirmed Kind = "purchase_confirmed"
)

// Message is a user-facing notification. Destination is a phone number or a
// user identifier depending on the delivery channel.
type Message struct {
	Kind        Kind
	Destination string
	Body        string
}

// Notifier delivers messages to users. Delivery is best effort; callers must
// not fail their own operation on a notification error.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LoggerNotifier writes notifications to the structured log. It stands in for
// an SMS or push gateway in dev and test environments.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a log-backed notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

func (n *LoggerNotifier) Send(_ context.Context, msg Message) error {
	n.logger.Info("notification",
		slog.String("kind", string(msg.Kind)),
		slog.String("destination", msg.Destination),
		slog.String("body", msg.Body),
	)
	return nil
}
