package mail

import (
	"context"
	"encoding/base64"

	apperrors "github.com/jrsteele09/home-logistic/internal/errors"
	"github.com/jrsteele09/home-logistic/internal/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Sender delivers a message using the caller's access token.
type Sender interface {
	Send(ctx context.Context, accessToken string, msg Message) (string, error)
}

// GmailSender sends through the Gmail API with the gmail.send scope.
type GmailSender struct {
	options []option.ClientOption
}

var _ Sender = (*GmailSender)(nil)

// NewGmailSender creates a sender. Extra client options are applied to every
// Gmail service it creates.
func NewGmailSender(options ...option.ClientOption) *GmailSender {
	return &GmailSender{options: options}
}

// Send delivers msg from the authenticated user's mailbox and returns the
// Gmail message id.
func (g *GmailSender) Send(ctx context.Context, accessToken string, msg Message) (string, error) {
	if accessToken == "" {
		return "", apperrors.Wrapf(apperrors.ErrUnauthorized, "[GmailSender Send] no access token")
	}

	raw, err := msg.Bytes()
	if err != nil {
		return "", err
	}

	opts := append([]option.ClientOption{google.AccessTokenOption(accessToken)}, g.options...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return "", google.ClassifyError("create gmail service", err)
	}

	sent, err := svc.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return "", google.ClassifyError("send message", err)
	}
	return sent.Id, nil
}
