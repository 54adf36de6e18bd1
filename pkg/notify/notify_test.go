package notify

import (
	"bytes"
	"io/ioutil"
	"mime/quotedprintable"
	netmail "net/mail"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/sidkik/pishow/pkg/config"
	"github.com/sidkik/pishow/pkg/errors"
)

type sentMail struct {
	client *mail.Client
	msgs   []*mail.Msg
}

func mockSendMail(err error) *[]sentMail {
	var sent []sentMail
	sendMail = func(client *mail.Client, msgs ...*mail.Msg) error {
		sent = append(sent, sentMail{client, msgs})
		return err
	}
	hostname = func() (string, error) { return "pi", nil }
	return &sent
}

func TestNew(t *testing.T) {
	assert.Equal(t, Log{}, New(config.SMTP{Server: "smtp.example.com"}))

	cfg := config.SMTP{Server: "smtp.example.com", Recipients: []string{"a@example.com"}}
	assert.Equal(t, NewSMTP(cfg), New(cfg))
}

func TestSMTPNotify(t *testing.T) {
	sent := mockSendMail(nil)

	cfg := config.SMTP{
		Server:     "smtp.example.com",
		Port:       25,
		From:       "pishow@localhost",
		Recipients: []string{"a@example.com", "b@example.com"},
	}
	require.NoError(t, NewSMTP(cfg).Notify([]string{"c.jpg", "d.jpg"}, []string{"a.jpg"}))
	require.Len(t, *sent, 1)

	email := (*sent)[0]
	assert.Equal(t, "smtp.example.com:25", email.client.ServerAddr())
	assert.Equal(t, mail.TLSOpportunistic.String(), email.client.TLSPolicy())
	require.Len(t, email.msgs, 1)

	var raw bytes.Buffer
	_, err := email.msgs[0].WriteTo(&raw)
	require.NoError(t, err)

	msg, err := netmail.ReadMessage(&raw)
	require.NoError(t, err)
	assert.Equal(t, "Slides changed on pi", msg.Header.Get("Subject"))
	assert.NotEmpty(t, msg.Header.Get("Date"))
	assert.NotEmpty(t, msg.Header.Get("Message-ID"))

	from, err := msg.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "pishow@localhost", from[0].Address)

	to, err := msg.Header.AddressList("To")
	require.NoError(t, err)
	var toAddrs []string
	for _, addr := range to {
		toAddrs = append(toAddrs, addr.Address)
	}
	assert.Equal(t, cfg.Recipients, toAddrs)

	assert.Contains(t, msg.Header.Get("Content-Type"), "text/plain")
	bodyReader := msg.Body
	if msg.Header.Get("Content-Transfer-Encoding") == "quoted-printable" {
		bodyReader = quotedprintable.NewReader(msg.Body)
	}
	body, err := ioutil.ReadAll(bodyReader)
	require.NoError(t, err)
	assert.Contains(t, strings.ReplaceAll(string(body), "\r\n", "\n"),
		"The following files were ADDED to pi:\n"+
			" - c.jpg\n"+
			" - d.jpg\n"+
			"The following files were REMOVED from pi:\n"+
			" - a.jpg\n")
}

func TestSMTPAuth(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		password string
		expAuth  bool
	}{
		{name: "NoCredentials"},
		{name: "UserOnly", user: "pi"},
		{name: "PasswordOnly", password: "raspberry"},
		{name: "UserAndPassword", user: "pi", password: "raspberry", expAuth: true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			s := NewSMTP(config.SMTP{
				Server:     "smtp.example.com",
				Port:       25,
				User:       test.user,
				Password:   test.password,
				Recipients: []string{"a@example.com"},
			})

			authType, ok := s.auth()
			assert.Equal(t, test.expAuth, ok)
			if test.expAuth {
				// Port 25 relays often don't support STARTTLS, so the login
				// mustn't require an encrypted connection.
				assert.Equal(t, mail.SMTPAuthPlainNoEnc, authType)
			}

			sent := mockSendMail(nil)
			require.NoError(t, s.Notify([]string{"a.jpg"}, nil))
			require.Len(t, *sent, 1)
			assert.Equal(t, "smtp.example.com:25", (*sent)[0].client.ServerAddr())
		})
	}
}

func TestSMTPNotifyError(t *testing.T) {
	mockSendMail(errors.New("connection refused"))

	err := NewSMTP(config.SMTP{Server: "smtp.example.com", Port: 25, From: "pishow@localhost",
		Recipients: []string{"a@example.com"}}).Notify([]string{"a.jpg"}, nil)
	assert.EqualError(t, err, "send mail: connection refused")
}

func TestSMTPNotifyInvalidRecipient(t *testing.T) {
	sent := mockSendMail(nil)

	err := NewSMTP(config.SMTP{Server: "smtp.example.com", Port: 25, From: "pishow@localhost",
		Recipients: []string{"not an address"}}).Notify([]string{"a.jpg"}, nil)
	assert.Error(t, err)
	assert.Empty(t, *sent)
}

func TestSummaryEmpty(t *testing.T) {
	assert.Equal(t, "The following files were ADDED to pi:\n"+
		"The following files were REMOVED from pi:\n", Summary("pi", nil, nil))
}

func TestLogNotify(t *testing.T) {
	hook := logrusTest.NewGlobal()
	defer hook.Reset()

	require.NoError(t, Log{}.Notify([]string{"b.jpg"}, []string{"a.jpg"}))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.InfoLevel, entry.Level)
	assert.Equal(t, []string{"b.jpg"}, entry.Data["added"])
	assert.Equal(t, []string{"a.jpg"}, entry.Data["removed"])
}
