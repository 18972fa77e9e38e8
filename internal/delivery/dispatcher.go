package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Config carries the delivery channel settings.
type Config struct {
	OutputDir      string
	SMTPHost       string
	SMTPPort       int
	SenderEmail    string
	SenderPassword string
	Recipient      string
}

// MailConfigured reports whether the minimal mail settings are present.
func (c Config) MailConfigured() bool {
	return c.SMTPHost != "" && c.SenderEmail != "" && c.SenderPassword != "" && c.Recipient != ""
}

// Reason classifies a failed email delivery.
type Reason string

const (
	ReasonAuth       Reason = "auth_failure"
	ReasonConnection Reason = "connection_failure"
	ReasonRejected   Reason = "rejected"
)

// PersistenceError indicates the document could not be written locally.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("delivery: persist %s: %v", e.Path, e.Err)
}
func (e *PersistenceError) Unwrap() error { return e.Err }

// DeliveryError indicates the email channel failed.
type DeliveryError struct {
	Reason Reason
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery: email %s: %v", e.Reason, e.Err)
}
func (e *DeliveryError) Unwrap() error { return e.Err }

// Outcome reports what happened on each channel for one run.
type Outcome struct {
	Persisted    bool
	Path         string
	Emailed      bool
	EmailSkipped bool // mail not configured
	Errors       []error
}

// Message is one outbound report email.
type Message struct {
	From           string
	To             string
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}

// Mailer sends a single message. Implementations must release their
// transport connection on every exit path.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher writes the rendered document locally and emails it when
// mail settings are configured.
type Dispatcher struct {
	cfg    Config
	mailer Mailer
	logger *log.Logger
}

// NewDispatcher constructs a dispatcher. A nil mailer defaults to SMTP.
func NewDispatcher(cfg Config, mailer Mailer, logger *log.Logger) (*Dispatcher, error) {
	if cfg.OutputDir == "" {
		return nil, errors.New("delivery: empty output dir")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if mailer == nil {
		mailer = &SMTPMailer{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SenderEmail,
			Password: cfg.SenderPassword,
		}
	}
	return &Dispatcher{cfg: cfg, mailer: mailer, logger: logger}, nil
}

// Deliver persists the document and attempts email delivery. Channel
// failures are recorded in the outcome, never returned: one failed
// channel must not take down the other. Exactly one email attempt is
// made per run.
func (d *Dispatcher) Deliver(ctx context.Context, doc []byte, filename, subject, body string) Outcome {
	var outcome Outcome

	path := filepath.Join(d.cfg.OutputDir, filename)
	if err := d.persist(path, doc); err != nil {
		outcome.Errors = append(outcome.Errors, err)
		d.logger.Printf("delivery: persistence failed: %v", err)
	} else {
		outcome.Persisted = true
		outcome.Path = path
		d.logger.Printf("delivery: wrote %s", path)
	}

	if !d.cfg.MailConfigured() {
		outcome.EmailSkipped = true
		d.logger.Printf("delivery: mail not configured, skipping email")
		return outcome
	}

	msg := Message{
		From:           d.cfg.SenderEmail,
		To:             d.cfg.Recipient,
		Subject:        subject,
		Body:           body,
		AttachmentName: filename,
		Attachment:     doc,
	}
	if err := d.mailer.Send(ctx, msg); err != nil {
		derr := classify(err)
		outcome.Errors = append(outcome.Errors, derr)
		d.logger.Printf("delivery: email failed: %v", derr)
		return outcome
	}
	outcome.Emailed = true
	d.logger.Printf("delivery: emailed %s to %s", filename, d.cfg.Recipient)
	return outcome
}

// PersistOnly writes an additional artifact without touching the email
// channel (used for the optional XLSX variant).
func (d *Dispatcher) PersistOnly(filename string, doc []byte) (string, error) {
	path := filepath.Join(d.cfg.OutputDir, filename)
	if err := d.persist(path, doc); err != nil {
		return "", err
	}
	d.logger.Printf("delivery: wrote %s", path)
	return path, nil
}

// persist overwrites any document from an earlier run for the same
// period; reruns never accumulate duplicates.
func (d *Dispatcher) persist(path string, doc []byte) error {
	if err := os.MkdirAll(d.cfg.OutputDir, 0o755); err != nil {
		return &PersistenceError{Path: d.cfg.OutputDir, Err: err}
	}
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	return nil
}

func classify(err error) *DeliveryError {
	var derr *DeliveryError
	if errors.As(err, &derr) {
		return derr
	}
	return &DeliveryError{Reason: ReasonRejected, Err: err}
}
