// Package notify delivers candidate submission links over email and SMS.
// Each channel is attempted independently and failures never escape Notify:
// the case assignment has already committed by the time it runs.
package notify

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"
)

// Status of a single channel attempt.
type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result is the outcome of one channel.
type Result struct {
	Status    Status `json:"status"`
	Recipient string `json:"recipient,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Outcome holds the per-channel results.
type Outcome struct {
	Email Result `json:"email"`
	SMS   Result `json:"sms"`
}

// Channels selects which channels to attempt.
type Channels struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
}

// Contact is who receives the link.
type Contact struct {
	Name   string
	Email  string
	Mobile string
}

// CaseContext is what the message talks about.
type CaseContext struct {
	ReferenceNumber string
	CaseNumber      string
	Link            string
	ShortLink       string
	ExpiresIn       string
}

// Message is a rendered notification.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers one message on one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config toggles channels process-wide.
type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
}

// Dispatcher fans a link out to the configured senders.
type Dispatcher struct {
	cfg   Config
	email Sender
	sms   Sender
}

// NewDispatcher wires the senders. A nil sender falls back to the logging
// placeholder for that channel.
func NewDispatcher(cfg Config, email, sms Sender) *Dispatcher {
	if email == nil {
		email = LogSender{Channel: "email"}
	}
	if sms == nil {
		sms = LogSender{Channel: "sms"}
	}
	return &Dispatcher{cfg: cfg, email: email, sms: sms}
}

// Notify attempts every requested channel and reports each result.
func (d *Dispatcher) Notify(ctx context.Context, c Contact, cc CaseContext, ch Channels) Outcome {
	var out Outcome
	out.Email = d.attempt(ctx, "email", ch.Email, d.cfg.EmailEnabled, c.Email, d.email, func() Message {
		return emailMessage(c, cc)
	})
	out.SMS = d.attempt(ctx, "sms", ch.SMS, d.cfg.SMSEnabled, c.Mobile, d.sms, func() Message {
		return smsMessage(c, cc)
	})
	return out
}

func (d *Dispatcher) attempt(ctx context.Context, channel string, requested, enabled bool, to string, s Sender, build func() Message) (res Result) {
	res.Recipient = to
	switch {
	case !requested:
		res.Status, res.Detail = StatusSkipped, "not requested"
		return res
	case !enabled:
		res.Status, res.Detail = StatusSkipped, channel+" channel disabled"
		return res
	case strings.TrimSpace(to) == "":
		res.Status, res.Detail = StatusSkipped, "no "+channel+" recipient"
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			zap.S().Errorw("panic while sending notification", "channel", channel, "recipient", to, "panic", r)
			res.Status, res.Detail = StatusFailed, fmt.Sprintf("panic: %v", r)
		}
	}()

	if err := s.Send(ctx, build()); err != nil {
		zap.S().Warnw("notification delivery failed", "channel", channel, "recipient", to, "error", err)
		return Result{Status: StatusFailed, Recipient: to, Detail: err.Error()}
	}
	zap.S().Infow("notification sent", "channel", channel, "recipient", to)
	return Result{Status: StatusSent, Recipient: to}
}

var emailHTML = template.Must(template.New("email").Parse(
	`<p>Dear {{.Name}},</p><p>Please complete your address verification (reference <strong>{{.Reference}}</strong>).</p>` +
		`<p><a href="{{.Link}}">Start verification</a></p><p>This link expires in {{.ExpiresIn}} and can be used once.</p>`))

func emailMessage(c Contact, cc CaseContext) Message {
	text := fmt.Sprintf("Dear %s,\n\nPlease complete your address verification (reference %s) using the link below.\n%s\n\nThis link expires in %s and can be used once.",
		c.Name, cc.ReferenceNumber, cc.Link, cc.ExpiresIn)
	var body strings.Builder
	err := emailHTML.Execute(&body, struct {
		Name, Reference, Link, ExpiresIn string
	}{c.Name, cc.ReferenceNumber, cc.Link, cc.ExpiresIn})
	msg := Message{To: c.Email, ToName: c.Name, Subject: "Address verification " + cc.ReferenceNumber, Text: text}
	if err != nil {
		zap.S().Warnw("email html rendering failed, sending text only", "error", err)
		return msg
	}
	msg.HTML = body.String()
	return msg
}

func smsMessage(c Contact, cc CaseContext) Message {
	link := cc.ShortLink
	if link == "" {
		link = cc.Link
	}
	return Message{To: c.Mobile, ToName: c.Name, Text: fmt.Sprintf("Complete your address verification %s: %s (valid %s)", cc.ReferenceNumber, link, cc.ExpiresIn)}
}

// LogSender is the placeholder transport: it logs the content and succeeds.
type LogSender struct {
	Channel string
}

func (l LogSender) Send(ctx context.Context, msg Message) error {
	zap.S().Infow("notification placeholder", "channel", l.Channel, "to", msg.To, "subject", msg.Subject, "text", msg.Text)
	return nil
}
