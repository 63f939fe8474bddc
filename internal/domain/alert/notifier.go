package alert

import "context"

// Notifier delivers operational alerts to a human. Used for the fatal
// reconciliation outcomes where money has moved but the submission could not
// be recorded.
type Notifier interface {
	Alert(ctx context.Context, text string) error
}
