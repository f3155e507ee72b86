package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/ensemble"
	"github.com/phishspector/phishspector/internal/lexical"
)

type fakeML struct {
	score float64
	err   error
	calls int
}

func (f *fakeML) Predict(_ context.Context, _ string) (float64, error) {
	f.calls++
	return f.score, f.err
}

type fakeMail struct {
	id         string
	headers    map[string]string
	findErr    error
	fetchErr   error
	findCalls  int
	fetchCalls int
}

func (f *fakeMail) FindMessageID(_ context.Context, _, _ string) (string, error) {
	f.findCalls++
	return f.id, f.findErr
}

func (f *fakeMail) FetchHeaders(_ context.Context, _ string) (map[string]string, error) {
	f.fetchCalls++
	return f.headers, f.fetchErr
}

type fakeLedger struct {
	boosts   map[string]int
	recorded []string
}

func (f *fakeLedger) RecordSafe(_ context.Context, domain string) {
	f.recorded = append(f.recorded, domain)
}

func (f *fakeLedger) BoostFor(domain string) int {
	return f.boosts[domain]
}

type mapStore struct {
	m map[string][]byte
}

func newMapStore() *mapStore { return &mapStore{m: make(map[string][]byte)} }

func (s *mapStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.m[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

func (s *mapStore) Set(_ context.Context, key string, value []byte) error {
	s.m[key] = value
	return nil
}

type fakeAlerter struct {
	alerts []Alert
}

func (f *fakeAlerter) Notify(_ context.Context, alert Alert) error {
	f.alerts = append(f.alerts, alert)
	return nil
}

func testOptions() ServiceOptions {
	return ServiceOptions{
		HeaderTTL:      time.Hour,
		QueryTTL:       time.Minute,
		AlertThreshold: 70,
		RemoteTimeout:  time.Second,
	}
}

func newService(ml MLBackend, mail MailProvider, ledger TrustLedger, store PersistentStore, alerter Alerter) *ScoringService {
	return NewScoringService(
		lexical.NewScorer(nil), ml, mail, ledger, store, nil, alerter,
		zap.NewNop(), testOptions())
}

func passHeaders(from string) map[string]string {
	return map[string]string{
		"Authentication-Results": "mx.example.com; spf=pass; dkim=pass; dmarc=pass",
		"From":                   from,
		"Return-Path":            "<" + from + ">",
	}
}

func failHeaders(from string) map[string]string {
	return map[string]string{
		"Authentication-Results": "mx.example.com; spf=fail; dkim=fail; dmarc=fail",
		"From":                   from,
		"Return-Path":            "<" + from + ">",
	}
}

func TestScoreMessageBenignWithAllSignals(t *testing.T) {
	ml := &fakeML{score: 5}
	mail := &fakeMail{id: "m1", headers: passHeaders("alice@partner.example")}
	svc := newService(ml, mail, &fakeLedger{}, newMapStore(), nil)

	bundle := svc.ScoreMessage(context.Background(), ScoreRequest{
		MessageID: "m1",
		Sender:    "alice@partner.example",
		Subject:   "Quarterly report",
		Snippet:   "Please see attached for the Q3 numbers",
	})

	assert.Equal(t, 10, bundle.Local)
	assert.Equal(t, 5, bundle.ML)
	assert.True(t, bundle.MLAvailable)
	assert.Equal(t, 100, bundle.HeaderTrust)
	assert.Equal(t, 5, bundle.Final)
	assert.Equal(t, ensemble.Allow, bundle.Verdict)
}

func TestScoreMessagePhishingBlocks(t *testing.T) {
	ml := &fakeML{score: 90}
	mail := &fakeMail{id: "m2", headers: failHeaders("alert@secure-help.xyz")}
	alerter := &fakeAlerter{}
	svc := newService(ml, mail, &fakeLedger{}, newMapStore(), alerter)

	bundle := svc.ScoreMessage(context.Background(), ScoreRequest{
		MessageID: "m2",
		Sender:    "alert@secure-help.xyz",
		Subject:   "URGENT!!! Verify your account now",
		Snippet:   "Click here http://secure-login.xyz/verify to verify your account immediately",
		Links:     []string{"http://secure-login.xyz/verify"},
	})

	assert.Equal(t, 100, bundle.Local)
	assert.Equal(t, 0, bundle.HeaderTrust)
	assert.Equal(t, 90, bundle.Final)
	assert.Equal(t, ensemble.Block, bundle.Verdict)

	require.Len(t, alerter.alerts, 1)
	assert.Equal(t, "m2", alerter.alerts[0].MessageID)
	assert.Equal(t, "http://secure-login.xyz/verify", alerter.alerts[0].TopLink)
	assert.Equal(t, 90, alerter.alerts[0].Score)
}

func TestScoreMessageMLUnavailableFallsBackToLocalProxy(t *testing.T) {
	ml := &fakeML{err: errors.New("upstream down")}
	mail := &fakeMail{id: "m3", headers: passHeaders("bob@corp.example")}
	svc := newService(ml, mail, &fakeLedger{}, newMapStore(), nil)

	bundle := svc.ScoreMessage(context.Background(), ScoreRequest{
		MessageID: "m3",
		Sender:    "bob@corp.example",
		Subject:   "Lunch",
		Snippet:   "Sandwiches at noon?",
	})

	assert.False(t, bundle.MLAvailable)
	assert.Equal(t, bundle.Local, bundle.ML)
}

func TestScoreMessageNoMailProviderUsesNeutralTrust(t *testing.T) {
	svc := newService(&fakeML{score: 10}, nil, &fakeLedger{}, newMapStore(), nil)

	bundle := svc.ScoreMessage(context.Background(), ScoreRequest{
		Sender:  "bob@corp.example",
		Subject: "Lunch",
		Snippet: "Sandwiches at noon?",
	})

	assert.Equal(t, 50, bundle.HeaderTrust)
}

func TestScoreMessageAllSignalsDownStillDecides(t *testing.T) {
	svc := newService(nil, nil, &fakeLedger{}, newMapStore(), nil)

	bundle := svc.ScoreMessage(context.Background(), ScoreRequest{
		Sender:  "alice@partner.example",
		Subject: "Quarterly report",
		Snippet: "Please see attached for the Q3 numbers",
	})

	// local 10; absent ML proxies local, absent trust is neutral 50
	assert.Equal(t, 10, bundle.Local)
	assert.False(t, bundle.MLAvailable)
	assert.Equal(t, 18, bundle.Final)
	assert.Equal(t, ensemble.Allow, bundle.Verdict)
}

func TestScoreMessageQueryCacheSkipsRemoteCalls(t *testing.T) {
	ml := &fakeML{score: 5}
	mail := &fakeMail{id: "m4", headers: passHeaders("alice@partner.example")}
	svc := newService(ml, mail, &fakeLedger{}, newMapStore(), nil)

	req := ScoreRequest{
		MessageID: "m4",
		Sender:    "alice@partner.example",
		Subject:   "Quarterly report",
		Snippet:   "Please see attached",
	}
	first := svc.ScoreMessage(context.Background(), req)
	second := svc.ScoreMessage(context.Background(), req)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, ml.calls)
	assert.Equal(t, 1, mail.fetchCalls)
}

func TestLookupHeadersNoProvider(t *testing.T) {
	svc := newService(nil, nil, &fakeLedger{}, newMapStore(), nil)

	_, err := svc.LookupHeaders(context.Background(), ScoreRequest{Sender: "a@b.example"})
	require.ErrorIs(t, err, ErrNoCredentials)
	assert.Equal(t, "no_token", FailureTag(err))
}

func TestLookupHeadersResolvesMessageID(t *testing.T) {
	mail := &fakeMail{id: "resolved-id", headers: passHeaders("alice@partner.example")}
	svc := newService(nil, mail, &fakeLedger{}, newMapStore(), nil)

	info, err := svc.LookupHeaders(context.Background(), ScoreRequest{
		Sender:  "alice@partner.example",
		Subject: "Quarterly report",
	})
	require.NoError(t, err)
	assert.Equal(t, "resolved-id", info.MessageID)
	assert.Equal(t, 1, mail.findCalls)
}

func TestLookupHeadersCachedByMessageID(t *testing.T) {
	mail := &fakeMail{id: "m5", headers: passHeaders("alice@partner.example")}
	svc := newService(nil, mail, &fakeLedger{}, newMapStore(), nil)

	req := ScoreRequest{MessageID: "m5", Sender: "alice@partner.example"}
	_, err := svc.LookupHeaders(context.Background(), req)
	require.NoError(t, err)
	_, err = svc.LookupHeaders(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, mail.fetchCalls)
}

func TestLookupHeadersMissingMessage(t *testing.T) {
	mail := &fakeMail{findErr: ErrMessageNotFound}
	svc := newService(nil, mail, &fakeLedger{}, newMapStore(), nil)

	_, err := svc.LookupHeaders(context.Background(), ScoreRequest{Sender: "a@b.example"})
	require.ErrorIs(t, err, ErrMessageNotFound)
	assert.Equal(t, "no_message", FailureTag(err))
}

func TestLookupHeadersSurfacesLedgerBoost(t *testing.T) {
	mail := &fakeMail{id: "m6", headers: passHeaders("alice@partner.example")}
	ledger := &fakeLedger{boosts: map[string]int{"partner.example": 15}}
	svc := newService(nil, mail, ledger, newMapStore(), nil)

	info, err := svc.LookupHeaders(context.Background(), ScoreRequest{MessageID: "m6", Sender: "alice@partner.example"})
	require.NoError(t, err)
	assert.Equal(t, 15, info.TrustBoost)
}

func TestCheckLinkHardPatternBlocks(t *testing.T) {
	svc := newService(nil, nil, &fakeLedger{}, newMapStore(), nil)

	verdict := svc.CheckLink(context.Background(), "http://192.168.1.5/login", nil)

	assert.Equal(t, 100, verdict.Risk)
	assert.True(t, verdict.PatternVeto)
	assert.Equal(t, ensemble.Block, verdict.Verdict)
}

func TestCheckLinkBenignURLAllows(t *testing.T) {
	svc := newService(nil, nil, &fakeLedger{}, newMapStore(), nil)

	verdict := svc.CheckLink(context.Background(), "https://docs.example.com/handbook", nil)

	assert.Equal(t, 0, verdict.Risk)
	assert.False(t, verdict.PatternVeto)
	assert.Equal(t, ensemble.Allow, verdict.Verdict)
}

func TestCheckLinkWithoutOwnerGatesRawRisk(t *testing.T) {
	svc := newService(nil, nil, &fakeLedger{}, newMapStore(), nil)

	// plaintext scheme plus credential keyword, no hard pattern; with no
	// owner the estimate must gate undiluted
	verdict := svc.CheckLink(context.Background(), "http://site.example/login", nil)

	assert.Equal(t, 80, verdict.Risk)
	assert.Equal(t, 80, verdict.Final)
	assert.False(t, verdict.PatternVeto)
	assert.Equal(t, ensemble.Block, verdict.Verdict)
}

func TestCheckLinkBlendsOwnerTrust(t *testing.T) {
	mail := &fakeMail{id: "m7", headers: passHeaders("alice@partner.example")}
	svc := newService(nil, mail, &fakeLedger{}, newMapStore(), nil)

	owner := &ScoreRequest{MessageID: "m7", Sender: "alice@partner.example"}
	withTrust := svc.CheckLink(context.Background(), "http://uneventful.example/page", owner)
	without := svc.CheckLink(context.Background(), "http://uneventful.example/page", nil)

	// trusted sender (100) contributes zero suspicion, unknown sender
	// contributes the neutral 50
	assert.Less(t, withTrust.Final, without.Final)
}

func TestSubmitFeedbackSafeStrengthensLedger(t *testing.T) {
	ledger := &fakeLedger{}
	store := newMapStore()
	svc := newService(nil, nil, ledger, store, nil)

	svc.SubmitFeedback(context.Background(), FeedbackSafe, map[string]string{
		"senderText": "Alice <alice@Partner.Example>",
	})

	require.Len(t, ledger.recorded, 1)
	assert.Equal(t, "partner.example", ledger.recorded[0])

	raw, err := store.Get(context.Background(), "feedback_log")
	require.NoError(t, err)
	var entries []feedbackEntry
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, FeedbackSafe, entries[0].Label)
}

func TestSubmitFeedbackUnsafeDoesNotTouchLedger(t *testing.T) {
	ledger := &fakeLedger{}
	svc := newService(nil, nil, ledger, newMapStore(), nil)

	svc.SubmitFeedback(context.Background(), FeedbackUnsafe, map[string]string{
		"senderText": "mallory@evil.example",
	})

	assert.Empty(t, ledger.recorded)
}

func TestSubmitFeedbackAppendsToExistingLog(t *testing.T) {
	store := newMapStore()
	svc := newService(nil, nil, &fakeLedger{}, store, nil)

	svc.SubmitFeedback(context.Background(), FeedbackUnsafe, map[string]string{"id": "1"})
	svc.SubmitFeedback(context.Background(), FeedbackSafe, map[string]string{"id": "2"})

	raw, err := store.Get(context.Background(), "feedback_log")
	require.NoError(t, err)
	var entries []feedbackEntry
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, FeedbackUnsafe, entries[0].Label)
	assert.Equal(t, FeedbackSafe, entries[1].Label)
}

func TestAlertNotFiredBelowThreshold(t *testing.T) {
	alerter := &fakeAlerter{}
	svc := newService(nil, nil, &fakeLedger{}, newMapStore(), alerter)

	svc.ScoreMessage(context.Background(), ScoreRequest{
		Sender:  "bob@corp.example",
		Subject: "Lunch",
		Snippet: "Sandwiches at noon?",
	})

	assert.Empty(t, alerter.alerts)
}
