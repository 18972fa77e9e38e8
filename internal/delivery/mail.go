package delivery

import (
	"bytes"
	"context"
	"errors"
	"net/textproto"
	"time"

	mail "github.com/wneessen/go-mail"
)

// SMTPMailer sends report mail over SMTP with STARTTLS and plain auth.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Send dials, authenticates, sends and closes the connection in one
// scoped operation.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	client, err := mail.NewClient(m.Host,
		mail.WithPort(m.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.Username),
		mail.WithPassword(m.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(30*time.Second),
	)
	if err != nil {
		return &DeliveryError{Reason: ReasonConnection, Err: err}
	}

	message := mail.NewMsg()
	if err := message.From(msg.From); err != nil {
		return &DeliveryError{Reason: ReasonRejected, Err: err}
	}
	if err := message.To(msg.To); err != nil {
		return &DeliveryError{Reason: ReasonRejected, Err: err}
	}
	message.Subject(msg.Subject)
	message.SetBodyString(mail.TypeTextPlain, msg.Body)
	if len(msg.Attachment) > 0 {
		if err := message.AttachReader(msg.AttachmentName, bytes.NewReader(msg.Attachment)); err != nil {
			return &DeliveryError{Reason: ReasonRejected, Err: err}
		}
	}

	// DialAndSend tears the connection down on every exit path.
	if err := client.DialAndSendWithContext(ctx, message); err != nil {
		return &DeliveryError{Reason: classifySendErr(err), Err: err}
	}
	return nil
}

// classifySendErr maps the transport error chain onto a reason. An
// AUTH rejection surfaces as an SMTP auth status code in the dial
// error chain; send-stage failures after a successful handshake carry
// a SendError; everything else is a connection problem.
func classifySendErr(err error) Reason {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch protoErr.Code {
		case 530, 534, 535, 538:
			return ReasonAuth
		}
		return ReasonRejected
	}
	var sendErr *mail.SendError
	if errors.As(err, &sendErr) {
		return ReasonRejected
	}
	return ReasonConnection
}
