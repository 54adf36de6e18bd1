// Package notify tells people about changes to the slides being shown.
package notify

//go:generate mockery -name Notifier

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"

	"github.com/sidkik/pishow/pkg/config"
	"github.com/sidkik/pishow/pkg/errors"
)

// Notifier is told about every change to the set of slides.
type Notifier interface {
	Notify(added, removed []string) error
}

// These will be overridden in mock tests.
var (
	hostname = os.Hostname
	sendMail = (*mail.Client).DialAndSend
)

// New returns the Notifier for the given config. Changes are emailed if there
// are any recipients, and logged otherwise.
func New(cfg config.SMTP) Notifier {
	if len(cfg.Recipients) == 0 {
		return Log{}
	}
	return NewSMTP(cfg)
}

// SMTP emails a summary of each change.
type SMTP struct {
	config config.SMTP
}

// NewSMTP creates a Notifier that sends email using `cfg`.
func NewSMTP(cfg config.SMTP) SMTP {
	return SMTP{cfg}
}

// Notify sends an email that lists the added and removed files.
func (s SMTP) Notify(added, removed []string) error {
	host := getHostname()
	msg, err := s.message(host, added, removed)
	if err != nil {
		return errors.WithContext(err, "build message")
	}

	client, err := s.client()
	if err != nil {
		return errors.WithContext(err, "create smtp client")
	}

	if err := sendMail(client, msg); err != nil {
		return errors.WithContext(err, "send mail")
	}

	log.WithFields(log.Fields{
		"recipients": s.config.Recipients,
		"added":      len(added),
		"removed":    len(removed),
	}).Info("Sent change notification")
	return nil
}

// client connects with STARTTLS if the server supports it, and in plaintext
// otherwise. Relays on port 25 often don't support TLS, so credentials are
// sent over plaintext connections as well.
func (s SMTP) client() (*mail.Client, error) {
	opts := []mail.Option{mail.WithTLSPortPolicy(mail.TLSOpportunistic)}
	if s.config.Port != 0 {
		opts = append(opts, mail.WithPort(s.config.Port))
	}
	if authType, ok := s.auth(); ok {
		opts = append(opts,
			mail.WithSMTPAuth(authType),
			mail.WithUsername(s.config.User),
			mail.WithPassword(s.config.Password))
	}
	return mail.NewClient(s.config.Server, opts...)
}

// auth returns the authentication mechanism to use. The client only logs in
// if both a user and a password are configured.
func (s SMTP) auth() (mail.SMTPAuthType, bool) {
	if s.config.User == "" || s.config.Password == "" {
		return "", false
	}
	return mail.SMTPAuthPlainNoEnc, true
}

func (s SMTP) message(host string, added, removed []string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.config.From); err != nil {
		return nil, errors.WithContext(err, "set sender")
	}
	if err := msg.To(s.config.Recipients...); err != nil {
		return nil, errors.WithContext(err, "set recipients")
	}
	msg.Subject(fmt.Sprintf("Slides changed on %s", host))
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, Summary(host, added, removed))
	return msg, nil
}

// Summary returns a plain text description of a change.
func Summary(host string, added, removed []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following files were ADDED to %s:\n", host)
	for _, name := range added {
		fmt.Fprintf(&b, " - %s\n", name)
	}
	fmt.Fprintf(&b, "The following files were REMOVED from %s:\n", host)
	for _, name := range removed {
		fmt.Fprintf(&b, " - %s\n", name)
	}
	return b.String()
}

// Log logs each change instead of sending it anywhere.
type Log struct{}

// Notify logs the added and removed files.
func (Log) Notify(added, removed []string) error {
	log.WithFields(log.Fields{
		"added":   added,
		"removed": removed,
	}).Info("Slides changed")
	return nil
}

func getHostname() string {
	host, err := hostname()
	if err != nil {
		log.WithError(err).Debug("Failed to get hostname")
		return "unknown host"
	}
	return host
}
