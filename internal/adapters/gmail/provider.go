// Package gmail implements the MailProvider port against the Gmail API.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/phishspector/phishspector/internal/core"
)

// Provider fetches message ids and header snapshots through the Gmail API.
type Provider struct {
	svc    *gmail.Service
	user   string
	logger *zap.Logger
}

// NewProvider builds a provider from a service-account or OAuth credentials
// file. An empty path means no credential is configured, which is the
// authorization failure the UI must be able to surface.
func NewProvider(ctx context.Context, credentialsFile, user string, logger *zap.Logger) (*Provider, error) {
	if credentialsFile == "" {
		return nil, core.ErrNoCredentials
	}

	svc, err := gmail.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	if user == "" {
		user = "me"
	}
	return &Provider{svc: svc, user: user, logger: logger}, nil
}

// FindMessageID resolves the newest message matching the sender/subject
// hints.
func (p *Provider) FindMessageID(ctx context.Context, senderHint, subjectHint string) (string, error) {
	query := buildQuery(senderHint, subjectHint)

	resp, err := p.svc.Users.Messages.List(p.user).Q(query).MaxResults(1).Context(ctx).Do()
	if err != nil {
		return "", translateAPIError(err)
	}
	if len(resp.Messages) == 0 {
		return "", core.ErrMessageNotFound
	}

	id := resp.Messages[0].Id
	p.logger.Debug("Resolved message id", zap.String("query", query), zap.String("message_id", id))
	return id, nil
}

// FetchHeaders returns the full header map of a message.
func (p *Provider) FetchHeaders(ctx context.Context, messageID string) (map[string]string, error) {
	msg, err := p.svc.Users.Messages.Get(p.user, messageID).Format("metadata").Context(ctx).Do()
	if err != nil {
		return nil, translateAPIError(err)
	}
	if msg.Payload == nil {
		return nil, core.ErrMessageNotFound
	}

	headers := make(map[string]string, len(msg.Payload.Headers))
	for _, h := range msg.Payload.Headers {
		// first occurrence wins; later Received lines add no signal here
		if _, ok := headers[h.Name]; !ok {
			headers[h.Name] = h.Value
		}
	}
	return headers, nil
}

// ListRecent returns summaries of the newest messages matching a Gmail
// search query. A message whose metadata cannot be fetched is skipped,
// never fatal for the whole listing.
func (p *Provider) ListRecent(ctx context.Context, query string, maxResults int64) ([]core.InboxMessage, error) {
	resp, err := p.svc.Users.Messages.List(p.user).Q(query).MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		return nil, translateAPIError(err)
	}

	out := make([]core.InboxMessage, 0, len(resp.Messages))
	for _, ref := range resp.Messages {
		msg, err := p.svc.Users.Messages.Get(p.user, ref.Id).
			Format("metadata").
			MetadataHeaders("From", "Subject").
			Context(ctx).Do()
		if err != nil {
			p.logger.Warn("Skipping unreadable inbox message",
				zap.String("message_id", ref.Id), zap.Error(err))
			continue
		}

		summary := core.InboxMessage{ID: ref.Id, Snippet: msg.Snippet}
		if msg.Payload != nil {
			for _, h := range msg.Payload.Headers {
				switch {
				case strings.EqualFold(h.Name, "From"):
					summary.Sender = h.Value
				case strings.EqualFold(h.Name, "Subject"):
					summary.Subject = h.Value
				}
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

// buildQuery assembles a Gmail search query from the row hints. The sender
// hint may be a full display string; only the address part is usable.
func buildQuery(senderHint, subjectHint string) string {
	var parts []string
	if addr, err := mail.ParseAddress(senderHint); err == nil {
		parts = append(parts, "from:"+addr.Address)
	} else if fields := strings.Fields(senderHint); len(fields) > 0 {
		parts = append(parts, "from:"+fields[0])
	}
	if subjectHint != "" {
		parts = append(parts, fmt.Sprintf("subject:%q", subjectHint))
	}
	return strings.Join(parts, " ")
}

func translateAPIError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return core.ErrNoCredentials
		case 404:
			return core.ErrMessageNotFound
		}
	}
	return fmt.Errorf("gmail API call failed: %w", err)
}
