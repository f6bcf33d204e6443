package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// ResendSender sends mail through the Resend API.
type ResendSender struct {
	client  *resend.Client
	from    string
	replyTo string
}

// NewResendSender creates a sender using apiKey, with default from and reply-to addresses.
func NewResendSender(apiKey, from, replyTo string) *ResendSender {
	return &ResendSender{
		client:  resend.NewClient(apiKey),
		from:    from,
		replyTo: replyTo,
	}
}

// Send queues req for delivery.
// PRE: req has at least one recipient and a subject
// POST: Returns the Resend message ID
func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
		ReplyTo: s.replyTo,
	}
	if req.ReplyTo != "" {
		params.ReplyTo = req.ReplyTo
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		slog.Error("email_send_failed", "error", err, "subject", req.Subject)
		return SendResult{}, fmt.Errorf("resend send: %w", err)
	}

	slog.Info("email_sent", "message_id", sent.Id, "subject", req.Subject)
	return SendResult{MessageID: sent.Id, SentAt: time.Now()}, nil
}
