// Package smtpgate runs an SMTP policy gate. An MTA hands each inbound
// message to the gate over SMTP; the gate scores it and either accepts it
// or rejects it with a 550 when the verdict is block.
package smtpgate

import (
	"bytes"
	"context"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/core"
	"github.com/phishspector/phishspector/internal/ensemble"
	"github.com/phishspector/phishspector/internal/textutil"
)

const snippetLimit = 500

// Gateway is an SMTP server that scores inbound mail.
type Gateway struct {
	service       *core.ScoringService
	logger        *zap.Logger
	listenAddr    string
	blockHighRisk bool
	server        *smtp.Server
}

// NewGateway creates an SMTP gate on the given listen address. When
// blockHighRisk is false the gate only logs verdicts and accepts
// everything.
func NewGateway(service *core.ScoringService, logger *zap.Logger, listenAddr string, blockHighRisk bool) *Gateway {
	return &Gateway{
		service:       service,
		logger:        logger,
		listenAddr:    listenAddr,
		blockHighRisk: blockHighRisk,
	}
}

// Start begins listening for SMTP connections.
func (g *Gateway) Start() error {
	g.server = smtp.NewServer(&smtpBackend{gateway: g})
	g.server.Addr = g.listenAddr
	g.server.Domain = "localhost"
	g.server.ReadTimeout = 30 * time.Second
	g.server.WriteTimeout = 30 * time.Second
	g.server.MaxMessageBytes = 30 * 1024 * 1024
	g.server.MaxRecipients = 50
	g.server.AllowInsecureAuth = true

	g.logger.Info("SMTP gate starting", zap.String("address", g.listenAddr))

	go func() {
		if err := g.server.ListenAndServe(); err != nil && err != smtp.ErrServerClosed {
			g.logger.Error("SMTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the gate down.
func (g *Gateway) Stop() error {
	if g.server != nil {
		return g.server.Close()
	}
	return nil
}

type smtpBackend struct {
	gateway *Gateway
}

func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{gateway: b.gateway}, nil
}

type smtpSession struct {
	gateway    *Gateway
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data reads the message, scores it and decides whether to accept it.
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.gateway.logger.Error("failed to read message data", zap.Error(err))
		return err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		s.gateway.logger.Error("failed to parse message", zap.Error(err))
		return err
	}

	body := extractText(msg)
	subject := msg.Header.Get("Subject")
	from := msg.Header.Get("From")
	if from == "" {
		from = s.sender
	}

	snippet := textutil.Truncate(textutil.Sanitize(body), snippetLimit)
	row := from + " " + subject + " " + snippet

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	bundle := s.gateway.service.ScoreMessage(ctx, core.ScoreRequest{
		MessageID: strings.Trim(msg.Header.Get("Message-ID"), "<>"),
		Sender:    from,
		Subject:   subject,
		Snippet:   snippet,
		Row:       row,
	})

	s.gateway.logger.Info("scored inbound message",
		zap.String("from", from),
		zap.Strings("recipients", s.recipients),
		zap.Int("final", bundle.Final),
		zap.String("verdict", bundle.Verdict.String()))

	if bundle.Verdict == ensemble.Block && s.gateway.blockHighRisk {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      "Message rejected as likely phishing",
		}
	}
	return nil
}

func (s *smtpSession) Logout() error {
	return nil
}
