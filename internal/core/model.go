package core

import (
	"github.com/phishspector/phishspector/internal/authheader"
	"github.com/phishspector/phishspector/internal/ensemble"
)

// ScoreRequest carries the raw text fields of a webmail message row as the
// UI layer sees them.
type ScoreRequest struct {
	MessageID string
	Sender    string
	Subject   string
	Snippet   string
	Row       string
	Links     []string
}

// ScoreBundle is the transient result of one scoring pass. It is recomputed
// per request and never persisted.
type ScoreBundle struct {
	Local       int
	ML          int
	MLAvailable bool
	HeaderTrust int
	Final       int
	Verdict     ensemble.Verdict
}

// HeaderInfo is the unit the header cache holds: one fetched header snapshot
// with its parsed verdicts and trust computation.
type HeaderInfo struct {
	MessageID        string
	Headers          map[string]string
	Parsed           authheader.AuthResult
	Trust            int
	TrustBoost       int
	EnvelopeMismatch bool
	RelayDetected    bool
}

// LinkVerdict is the gate outcome for a clicked link.
type LinkVerdict struct {
	Risk        int
	Final       int
	PatternVeto bool
	Reasons     []string
	Verdict     ensemble.Verdict
}

// Alert describes a high-risk finding handed to the Alerter.
type Alert struct {
	MessageID string
	Sender    string
	Subject   string
	TopLink   string
	Score     int
}

// FeedbackLabel is the user's judgement on a message.
type FeedbackLabel string

const (
	FeedbackSafe   FeedbackLabel = "safe"
	FeedbackUnsafe FeedbackLabel = "unsafe"
)
