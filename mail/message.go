// Package mail sends plain-text messages from the signed-in user's mailbox.
package mail

import (
	"bytes"
	"fmt"
	"mime"
	"mime/quotedprintable"
	netmail "net/mail"
	"strings"

	apperrors "github.com/jrsteele09/home-logistic/internal/errors"
	"github.com/jrsteele09/home-logistic/sessions"
)

// Message is a plain-text email. The sender is always the authenticated user.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	Body    string
}

// Validate checks the addresses and that subject and body are present.
func (m Message) Validate() error {
	if _, err := netmail.ParseAddress(m.To); err != nil {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "invalid recipient %q: %v", m.To, err)
	}
	if m.ReplyTo != "" {
		if _, err := netmail.ParseAddress(m.ReplyTo); err != nil {
			return apperrors.Wrapf(apperrors.ErrInvalidRequest, "invalid reply-to %q: %v", m.ReplyTo, err)
		}
	}
	if strings.TrimSpace(m.Subject) == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "subject is required")
	}
	if strings.TrimSpace(m.Body) == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "body is required")
	}
	return nil
}

// Bytes renders the message in RFC 2822 form with a quoted-printable UTF-8
// body.
func (m Message) Bytes() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writeHeader(&buf, "To", m.To)
	if m.ReplyTo != "" {
		writeHeader(&buf, "Reply-To", m.ReplyTo)
	}
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Content-Type", `text/plain; charset="UTF-8"`)
	writeHeader(&buf, "Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(m.Body)); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

// FileRequest builds the message asking another user to share their data
// file with the requester.
func FileRequest(to string, requester sessions.Identity, folderName, sheetName string) Message {
	who := requester.Email
	if requester.Name != "" && requester.Email != "" {
		who = fmt.Sprintf("%s (%s)", requester.Name, requester.Email)
	} else if requester.Name != "" {
		who = requester.Name
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Hello,\n\n%s would like access to your Home Logistic data file.\n\n", who)
	fmt.Fprintf(&body, "Please share the spreadsheet %q in the folder %q", sheetName, folderName)
	if requester.Email != "" {
		fmt.Fprintf(&body, " with %s", requester.Email)
	}
	body.WriteString(" from Google Drive.\n\nThanks.\n")

	return Message{
		To:      to,
		ReplyTo: requester.Email,
		Subject: "Home Logistic: data file request",
		Body:    body.String(),
	}
}
