package gmail

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/calendar-mcp/internal/instrumentation"
)

var metadataHeaders = []string{"Subject", "From", "Date", "To"}

// Client wraps the Gmail Users service of one account.
type Client struct {
	svc     *gmail.UsersService
	metrics *instrumentation.Metrics
}

// NewClient creates a Client on an already authorized HTTP client.
// Extra options are mainly used to point the client at a test server.
func NewClient(ctx context.Context, httpClient *http.Client, metrics *instrumentation.Metrics, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Client{svc: svc.Users, metrics: metrics}, nil
}

// CheckInbox lists up to maxResults messages matching query, newest first as
// returned by Gmail, and fetches the metadata of each one in turn.
func (c *Client) CheckInbox(ctx context.Context, query string, maxResults int) (*InboxResult, error) {
	if query == "" {
		query = DefaultQuery
	}

	refs, err := c.list(ctx, query, ClampMaxResults(maxResults))
	if err != nil {
		return nil, err
	}

	result := &InboxResult{Emails: make([]EmailSummary, 0, len(refs)), Query: query}
	for _, ref := range refs {
		msg, err := c.metadata(ctx, ref.Id)
		if err != nil {
			return nil, err
		}
		result.Emails = append(result.Emails, summarize(ref.Id, msg))
	}
	result.Total = len(result.Emails)
	return result, nil
}

func (c *Client) list(ctx context.Context, query string, max int64) ([]*gmail.Message, error) {
	start := time.Now()
	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ProviderGmail, instrumentation.OperationList)

	res, err := c.svc.Messages.List("me").Q(query).MaxResults(max).Context(ctx).Do()
	instrumentation.EndSpan(span, err)
	c.metrics.RecordProviderCall(ctx, instrumentation.ProviderGmail, instrumentation.OperationList, status(err), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return res.Messages, nil
}

func (c *Client) metadata(ctx context.Context, id string) (*gmail.Message, error) {
	start := time.Now()
	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ProviderGmail, instrumentation.OperationGet)

	msg, err := c.svc.Messages.Get("me", id).
		Format("metadata").
		MetadataHeaders(metadataHeaders...).
		Context(ctx).
		Do()
	instrumentation.EndSpan(span, err)
	c.metrics.RecordProviderCall(ctx, instrumentation.ProviderGmail, instrumentation.OperationGet, status(err), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return msg, nil
}

func summarize(id string, msg *gmail.Message) EmailSummary {
	headers := map[string]string{}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			headers[h.Name] = h.Value
		}
	}

	s := EmailSummary{
		ID:      id,
		Subject: noSubject,
		From:    unknownSender,
		To:      headers["To"],
		Date:    headers["Date"],
		Snippet: msg.Snippet,
	}
	if v, ok := headers["Subject"]; ok {
		s.Subject = v
	}
	if v, ok := headers["From"]; ok {
		s.From = v
	}
	for _, l := range msg.LabelIds {
		if l == labelUnread {
			s.IsUnread = true
			break
		}
	}
	return s
}

func status(err error) string {
	if err != nil {
		return instrumentation.StatusError
	}
	return instrumentation.StatusSuccess
}
