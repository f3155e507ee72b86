package core

import (
	"context"
)

// MLBackend defines the interface to the remote phishing classifier. Any
// failure means "ML unavailable" to the pipeline, never a fatal error.
type MLBackend interface {
	// Predict returns a risk score in [0,100] for the given message text.
	Predict(ctx context.Context, text string) (float64, error)
}

// MailProvider abstracts the mail API the engine fetches headers through.
type MailProvider interface {
	// FindMessageID resolves a message id from sender/subject hints.
	FindMessageID(ctx context.Context, senderHint, subjectHint string) (string, error)

	// FetchHeaders returns the header map for a message id.
	FetchHeaders(ctx context.Context, messageID string) (map[string]string, error)
}

// InboxMessage is the summary of one inbox message as listed by an
// InboxSource.
type InboxMessage struct {
	ID      string
	Sender  string
	Subject string
	Snippet string
}

// InboxSource lists recent inbox messages for the background monitor. A
// MailProvider may optionally implement it.
type InboxSource interface {
	ListRecent(ctx context.Context, query string, maxResults int64) ([]InboxMessage, error)
}

// PersistentStore is a durable key/value capability backing the trust
// ledger and the feedback log across restarts.
type PersistentStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// TrustLedger accumulates user-confirmed safe-sender domains and converts
// them into a bounded trust boost.
type TrustLedger interface {
	RecordSafe(ctx context.Context, domain string)
	BoostFor(domain string) int
}

// FeedbackSink forwards user feedback to an external collector,
// best-effort. Failures are logged by the caller and never propagated.
type FeedbackSink interface {
	Submit(ctx context.Context, label FeedbackLabel, detail map[string]string) error
}

// Alerter delivers a high-risk notification. Implementations own their own
// cooldown and dedupe policy.
type Alerter interface {
	Notify(ctx context.Context, alert Alert) error
}
