package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"net/mail"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/inboxagent/internal/google"
	"github.com/teemow/inboxagent/internal/instrumentation"
	"github.com/teemow/inboxagent/internal/tools/batch"
)

// metadataConcurrency bounds parallel message metadata requests.
const metadataConcurrency = 5

// Client wraps the Gmail Users service
type Client struct {
	svc     *gmail.UsersService
	metrics *instrumentation.Metrics
}

// NewClientFromProvider creates a Gmail client authorized by the given token provider.
func NewClientFromProvider(ctx context.Context, p google.TokenProvider, metrics *instrumentation.Metrics) (*Client, error) {
	httpClient, err := google.HTTPClient(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found: %w. Run the auth command first", err)
	}
	return NewClient(ctx, httpClient, metrics)
}

// NewClient creates a Gmail client using httpClient for all requests.
// Extra options are passed to the Gmail service (tests use option.WithEndpoint).
func NewClient(ctx context.Context, httpClient *http.Client, metrics *instrumentation.Metrics, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc.Users, metrics: metrics}, nil
}

// ListInboxSummaries returns the newest maxResults messages in the inbox
// with their sender, subject and snippet, newest first.
func (c *Client) ListInboxSummaries(ctx context.Context, maxResults int) ([]MessageSummary, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationList)
	start := time.Now()

	summaries, err := c.listInboxSummaries(ctx, maxResults)

	status := instrumentation.EndSpan(span, err)
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, instrumentation.OperationList, status, time.Since(start))
	return summaries, err
}

func (c *Client) listInboxSummaries(ctx context.Context, maxResults int) ([]MessageSummary, error) {
	res, err := c.svc.Messages.List("me").
		LabelIds("INBOX").
		MaxResults(int64(maxResults)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox messages: %w", err)
	}
	if len(res.Messages) == 0 {
		return nil, nil
	}

	ids := make([]string, len(res.Messages))
	for i, m := range res.Messages {
		ids[i] = m.Id
	}

	summaries := make([]MessageSummary, len(ids))
	results, err := batch.Process(ctx, ids, metadataConcurrency, func(ctx context.Context, i int) (string, error) {
		msg, err := c.svc.Messages.Get("me", ids[i]).
			Format("metadata").
			MetadataHeaders("Subject", "From", "Date").
			Context(ctx).
			Do()
		if err != nil {
			return "", err
		}
		summaries[i] = toMessageSummary(msg)
		return msg.Id, nil
	})
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.Failed() {
			return nil, fmt.Errorf("failed to get message %s: %w", r.ID, r.Err)
		}
	}
	return summaries, nil
}

// EmailMessage represents an email to be sent
type EmailMessage struct {
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string
	IsHTML  bool
}

// encodeRFC2047 encodes a string for use in email headers according to RFC 2047
// This is necessary for non-ASCII characters (like German umlauts) in subjects
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

// checkHeaders rejects header values that would break out of their header
// line in the raw message.
func checkHeaders(msg *EmailMessage) error {
	if strings.ContainsAny(msg.Subject, "\r\n") {
		return fmt.Errorf("subject must not contain line breaks")
	}
	for _, list := range [][]string{msg.To, msg.Cc, msg.Bcc} {
		for _, addr := range list {
			if strings.ContainsAny(addr, "\r\n") {
				return fmt.Errorf("invalid recipient %q: contains line breaks", addr)
			}
			if _, err := mail.ParseAddress(addr); err != nil {
				return fmt.Errorf("invalid recipient %q: %w", addr, err)
			}
		}
	}
	return nil
}

// buildRawMessage renders msg in RFC 2822 format. Headers must have passed
// checkHeaders.
func buildRawMessage(msg *EmailMessage) string {
	var b strings.Builder

	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	if len(msg.Cc) > 0 {
		b.WriteString("Cc: " + strings.Join(msg.Cc, ", ") + "\r\n")
	}
	if len(msg.Bcc) > 0 {
		b.WriteString("Bcc: " + strings.Join(msg.Bcc, ", ") + "\r\n")
	}
	b.WriteString("Subject: " + encodeRFC2047(msg.Subject) + "\r\n")
	if msg.IsHTML {
		b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	} else {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	return b.String()
}

// SendEmail sends an email through Gmail API and returns the new message id.
func (c *Client) SendEmail(ctx context.Context, msg *EmailMessage) (string, error) {
	if len(msg.To) == 0 {
		return "", fmt.Errorf("at least one recipient is required")
	}
	if msg.Subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	if msg.Body == "" {
		return "", fmt.Errorf("body is required")
	}
	if err := checkHeaders(msg); err != nil {
		return "", err
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationSend)
	start := time.Now()

	gmailMsg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(buildRawMessage(msg))),
	}

	sent, err := c.svc.Messages.Send("me", gmailMsg).Context(ctx).Do()
	status := instrumentation.EndSpan(span, err)
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, instrumentation.OperationSend, status, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("gmail send: %w", err)
	}

	return sent.Id, nil
}
