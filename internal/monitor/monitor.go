// Package monitor polls an inbox and runs the scoring pipeline over every
// message it has not seen yet. Alerting and the scan log ride along for
// free through the scoring service.
package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/core"
)

// seenLimit bounds the processed-id set. A reset risks rescoring recent
// messages, which the query cache absorbs.
const seenLimit = 10000

// Scorer is the slice of the scoring service the monitor needs.
type Scorer interface {
	ScoreMessage(ctx context.Context, req core.ScoreRequest) core.ScoreBundle
}

// Options are the monitor tunables.
type Options struct {
	// Query is the inbox search the poll runs, e.g. "in:inbox is:unread".
	Query string

	// Interval is the poll period.
	Interval time.Duration

	// MaxResults caps how many messages one poll lists.
	MaxResults int64
}

// Monitor drives the scoring pipeline over new inbox messages.
type Monitor struct {
	source  core.InboxSource
	scorer  Scorer
	logger  *zap.Logger
	opts    Options
	seen    map[string]struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

// New creates a monitor. Zero options get sensible defaults.
func New(source core.InboxSource, scorer Scorer, logger *zap.Logger, opts Options) *Monitor {
	if opts.Query == "" {
		opts.Query = "in:inbox is:unread"
	}
	if opts.Interval <= 0 {
		opts.Interval = 20 * time.Second
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 50
	}
	return &Monitor{
		source: source,
		scorer: scorer,
		logger: logger,
		opts:   opts,
		seen:   make(map[string]struct{}),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins polling in the background.
func (m *Monitor) Start() error {
	m.started = true
	m.logger.Info("Inbox monitor starting",
		zap.String("query", m.opts.Query),
		zap.Duration("interval", m.opts.Interval),
		zap.Int64("max_results", m.opts.MaxResults))

	go func() {
		defer close(m.doneCh)
		ticker := time.NewTicker(m.opts.Interval)
		defer ticker.Stop()

		m.scanOnce(context.Background())
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.scanOnce(context.Background())
			}
		}
	}()
	return nil
}

// Stop halts polling and waits for the current scan to finish.
func (m *Monitor) Stop() error {
	if !m.started {
		return nil
	}
	close(m.stopCh)
	<-m.doneCh
	m.logger.Info("Inbox monitor stopped")
	return nil
}

// scanOnce lists the inbox and scores every message not yet processed. A
// listing failure skips the cycle; the next tick retries.
func (m *Monitor) scanOnce(ctx context.Context) {
	msgs, err := m.source.ListRecent(ctx, m.opts.Query, m.opts.MaxResults)
	if err != nil {
		m.logger.Error("Inbox listing failed", zap.Error(err))
		return
	}

	for _, msg := range msgs {
		if _, ok := m.seen[msg.ID]; ok {
			continue
		}

		bundle := m.scorer.ScoreMessage(ctx, core.ScoreRequest{
			MessageID: msg.ID,
			Sender:    msg.Sender,
			Subject:   msg.Subject,
			Snippet:   msg.Snippet,
			Row:       msg.Sender + " " + msg.Subject + " " + msg.Snippet,
		})

		m.logger.Info("Inbox message scored",
			zap.String("message_id", msg.ID),
			zap.String("sender", msg.Sender),
			zap.Int("final", bundle.Final),
			zap.String("risk_level", bundle.Verdict.RiskLabel()))

		if len(m.seen) >= seenLimit {
			m.seen = make(map[string]struct{})
		}
		m.seen[msg.ID] = struct{}{}
	}
}
