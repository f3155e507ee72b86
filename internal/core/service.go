package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/authheader"
	"github.com/phishspector/phishspector/internal/cache"
	"github.com/phishspector/phishspector/internal/ensemble"
	"github.com/phishspector/phishspector/internal/lexical"
	"github.com/phishspector/phishspector/internal/linkrisk"
)

const (
	feedbackLogKey = "feedback_log"
	scanLogKey     = "scan_log"

	// scanLogLimit bounds the persisted scan history.
	scanLogLimit = 200
)

// ServiceOptions groups the tunables of the scoring service.
type ServiceOptions struct {
	// HeaderTTL bounds the header cache. Header data for a fixed message
	// is immutable once fetched, so this is long.
	HeaderTTL time.Duration

	// QueryTTL bounds the query cache, a best-effort dedup of repeated
	// lookups for the same visually-identical row.
	QueryTTL time.Duration

	// AlertThreshold is the final score at which the alerter fires.
	AlertThreshold int

	// RemoteTimeout bounds every remote ML or header call.
	RemoteTimeout time.Duration
}

// ScoringService fuses the lexical scorer, header trust, the remote ML
// classifier and the trust ledger into one bounded score and a gate
// decision. The pipeline is total: any combination of collaborator failures
// still yields a verdict.
type ScoringService struct {
	lexical     *lexical.Scorer
	ml          MLBackend
	mail        MailProvider
	ledger      TrustLedger
	store       PersistentStore
	sink        FeedbackSink
	alerter     Alerter
	headerCache *cache.TimedCache[HeaderInfo]
	queryCache  *cache.TimedCache[ScoreBundle]
	logger      *zap.Logger
	opts        ServiceOptions
}

// NewScoringService creates the service. ml, mail, sink and alerter may be
// nil; each missing collaborator degrades to its neutral behavior.
func NewScoringService(
	lexicalScorer *lexical.Scorer,
	ml MLBackend,
	mail MailProvider,
	ledger TrustLedger,
	store PersistentStore,
	sink FeedbackSink,
	alerter Alerter,
	logger *zap.Logger,
	opts ServiceOptions,
) *ScoringService {
	return &ScoringService{
		lexical:     lexicalScorer,
		ml:          ml,
		mail:        mail,
		ledger:      ledger,
		store:       store,
		sink:        sink,
		alerter:     alerter,
		headerCache: cache.New[HeaderInfo](),
		queryCache:  cache.New[ScoreBundle](),
		logger:      logger,
		opts:        opts,
	}
}

// ScoreMessage runs the full scoring pipeline for one message row. It never
// fails: unavailable signals are substituted with neutral defaults.
func (s *ScoringService) ScoreMessage(ctx context.Context, req ScoreRequest) ScoreBundle {
	fp := queryFingerprint(req)
	if bundle, ok := s.queryCache.Get(fp); ok {
		s.logger.Debug("Query cache hit", zap.String("fingerprint", fp))
		return bundle
	}

	local := s.lexical.Score(lexical.Input{
		Sender:  req.Sender,
		Subject: req.Subject,
		Snippet: req.Snippet,
		Row:     req.Row,
	})

	var headerTrust *int
	info, err := s.LookupHeaders(ctx, req)
	if err != nil {
		s.logger.Debug("Header trust unavailable, using neutral default",
			zap.String("reason", FailureTag(err)))
	} else {
		headerTrust = &info.Trust
	}

	ml := s.predictML(ctx, req)

	bundle := ScoreBundle{
		Local:       local,
		ML:          local,
		MLAvailable: ml != nil,
		HeaderTrust: 50,
		Final:       ensemble.Combine(local, ml, headerTrust),
	}
	if ml != nil {
		bundle.ML = *ml
	}
	if headerTrust != nil {
		bundle.HeaderTrust = *headerTrust
	}
	bundle.Verdict = ensemble.Decide(bundle.Final, false)

	s.queryCache.Set(fp, bundle, s.opts.QueryTTL)
	s.appendScanLog(ctx, req, bundle)
	s.maybeAlert(ctx, req, bundle)

	s.logger.Info("Message scored",
		zap.Int("local", bundle.Local),
		zap.Int("ml", bundle.ML),
		zap.Bool("ml_available", bundle.MLAvailable),
		zap.Int("header_trust", bundle.HeaderTrust),
		zap.Int("final", bundle.Final),
		zap.String("verdict", bundle.Verdict.String()))
	return bundle
}

// predictML asks the remote classifier for a score, bounded by the remote
// timeout. Any failure means the signal is simply absent.
func (s *ScoringService) predictML(ctx context.Context, req ScoreRequest) *int {
	if s.ml == nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, s.opts.RemoteTimeout)
	defer cancel()

	text := req.Subject + "\n" + req.Snippet
	score, err := s.ml.Predict(callCtx, text)
	if err != nil {
		s.logger.Warn("ML backend unavailable, falling back to local proxy", zap.Error(err))
		return nil
	}
	v := clampInt(int(math.Round(score)))
	return &v
}

// LookupHeaders resolves, fetches, parses and trust-scores the headers for
// a message. Results are cached by message id. Authorization failures and
// missing messages are returned as typed errors for the UI layer; callers
// in the scoring path treat any error as "signal unavailable".
func (s *ScoringService) LookupHeaders(ctx context.Context, req ScoreRequest) (HeaderInfo, error) {
	if s.mail == nil {
		return HeaderInfo{}, ErrNoCredentials
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.RemoteTimeout)
	defer cancel()

	id := req.MessageID
	if id == "" {
		var err error
		id, err = s.mail.FindMessageID(callCtx, req.Sender, req.Subject)
		if err != nil {
			return HeaderInfo{}, err
		}
	}

	if info, ok := s.headerCache.Get(id); ok {
		s.logger.Debug("Header cache hit", zap.String("message_id", id))
		return info, nil
	}

	headers, err := s.mail.FetchHeaders(callCtx, id)
	if err != nil {
		return HeaderInfo{}, err
	}

	parsed := authheader.Parse(headerValue(headers, "Authentication-Results"))

	displayFrom := headerValue(headers, "From")
	if displayFrom == "" {
		displayFrom = req.Sender
	}
	envelopeFrom := headerValue(headers, "Return-Path")

	trust := authheader.ComputeTrust(parsed, headers, displayFrom, envelopeFrom, s.ledger)

	boost := 0
	if domain := senderDomain(displayFrom, envelopeFrom); domain != "" && s.ledger != nil {
		boost = s.ledger.BoostFor(domain)
	}

	info := HeaderInfo{
		MessageID:        id,
		Headers:          headers,
		Parsed:           parsed,
		Trust:            trust.Trust,
		TrustBoost:       boost,
		EnvelopeMismatch: trust.EnvelopeMismatch,
		RelayDetected:    trust.RelayDetected,
	}
	s.headerCache.Set(id, info, s.opts.HeaderTTL)
	return info, nil
}

// CheckLink estimates the risk of following a URL. When the owning message
// resolves, its header trust is blended in through the ensemble; without
// one the raw estimate gates directly rather than being diluted by a
// neutral trust term. A hard structural pattern floors the verdict at warn.
func (s *ScoringService) CheckLink(ctx context.Context, rawURL string, owner *ScoreRequest) LinkVerdict {
	est := linkrisk.Estimate(rawURL)

	var trust *int
	if owner != nil {
		if info, err := s.LookupHeaders(ctx, *owner); err == nil {
			trust = &info.Trust
		}
	}

	final := est.Score
	if trust != nil {
		final = ensemble.Combine(est.Score, nil, trust)
	}
	return LinkVerdict{
		Risk:        est.Score,
		Final:       final,
		PatternVeto: est.HardPattern,
		Reasons:     est.Reasons,
		Verdict:     ensemble.Decide(final, est.HardPattern),
	}
}

type feedbackEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Label     FeedbackLabel     `json:"label"`
	Detail    map[string]string `json:"detail"`
}

// SubmitFeedback records user feedback. A "safe" label strengthens the
// trust ledger for the sender's domain. Storage and sink failures are
// logged, never propagated.
func (s *ScoringService) SubmitFeedback(ctx context.Context, label FeedbackLabel, detail map[string]string) {
	if label == FeedbackSafe && s.ledger != nil {
		s.ledger.RecordSafe(ctx, authheader.DomainOf(detail["senderText"]))
	}

	s.appendFeedbackLog(ctx, label, detail)

	if s.sink != nil {
		if err := s.sink.Submit(ctx, label, detail); err != nil {
			s.logger.Warn("Feedback sink submission failed", zap.Error(err))
		}
	}
}

func (s *ScoringService) appendFeedbackLog(ctx context.Context, label FeedbackLabel, detail map[string]string) {
	if s.store == nil {
		return
	}

	var entries []feedbackEntry
	if raw, err := s.store.Get(ctx, feedbackLogKey); err == nil {
		if err := json.Unmarshal(raw, &entries); err != nil {
			s.logger.Warn("Discarding unreadable feedback log", zap.Error(err))
			entries = nil
		}
	}

	entries = append(entries, feedbackEntry{
		Timestamp: time.Now().UTC(),
		Label:     label,
		Detail:    detail,
	})

	raw, err := json.Marshal(entries)
	if err != nil {
		s.logger.Error("Failed to encode feedback log", zap.Error(err))
		return
	}
	if err := s.store.Set(ctx, feedbackLogKey, raw); err != nil {
		s.logger.Warn("Failed to persist feedback log", zap.Error(err))
	}
}

type scanEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
	Final     int       `json:"final"`
	Verdict   string    `json:"verdict"`
}

// appendScanLog persists a bounded history of scoring outcomes. Failures
// are logged and never affect the verdict.
func (s *ScoringService) appendScanLog(ctx context.Context, req ScoreRequest, bundle ScoreBundle) {
	if s.store == nil {
		return
	}

	var entries []scanEntry
	if raw, err := s.store.Get(ctx, scanLogKey); err == nil {
		if err := json.Unmarshal(raw, &entries); err != nil {
			s.logger.Warn("Discarding unreadable scan log", zap.Error(err))
			entries = nil
		}
	}

	entries = append(entries, scanEntry{
		Timestamp: time.Now().UTC(),
		Sender:    req.Sender,
		Subject:   req.Subject,
		Final:     bundle.Final,
		Verdict:   bundle.Verdict.String(),
	})
	if len(entries) > scanLogLimit {
		entries = entries[len(entries)-scanLogLimit:]
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		s.logger.Error("Failed to encode scan log", zap.Error(err))
		return
	}
	if err := s.store.Set(ctx, scanLogKey, raw); err != nil {
		s.logger.Warn("Failed to persist scan log", zap.Error(err))
	}
}

func (s *ScoringService) maybeAlert(ctx context.Context, req ScoreRequest, bundle ScoreBundle) {
	if s.alerter == nil || bundle.Final < s.opts.AlertThreshold {
		return
	}

	topLink := ""
	if len(req.Links) > 0 {
		topLink = req.Links[0]
	}
	alert := Alert{
		MessageID: req.MessageID,
		Sender:    req.Sender,
		Subject:   req.Subject,
		TopLink:   topLink,
		Score:     bundle.Final,
	}
	if err := s.alerter.Notify(ctx, alert); err != nil {
		s.logger.Warn("Alert delivery failed", zap.Error(err))
	}
}

// queryFingerprint hashes the visually identifying fields of a row into a
// stable cache key.
func queryFingerprint(req ScoreRequest) string {
	h := sha256.Sum256([]byte(req.Sender + "|" + req.Subject + "|" + req.Snippet))
	return hex.EncodeToString(h[:])
}

// headerValue looks up a header by name, case-insensitively.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func senderDomain(displayFrom, envelopeFrom string) string {
	if d := authheader.DomainOf(displayFrom); d != "" {
		return d
	}
	return authheader.DomainOf(envelopeFrom)
}

func clampInt(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
