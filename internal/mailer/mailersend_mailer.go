package mailer

import (
	"context"
	"errors"
	"time"

	"github.com/mailersend/mailersend-go"
)

var ErrMailerSendNotConfigured = errors.New("mailersend api key and sender address are required")

// MailerSendClient sends notices through the MailerSend HTTP API.
type MailerSendClient struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSend(apiKey, fromName, fromEmail string) (*MailerSendClient, error) {
	if apiKey == "" || fromEmail == "" {
		return nil, ErrMailerSendNotConfigured
	}
	return &MailerSendClient{
		client: mailersend.NewMailersend(apiKey),
		from:   mailersend.From{Name: fromName, Email: fromEmail},
	}, nil
}

func (m *MailerSendClient) SendArrivalNotice(ctx context.Context, to string, notice ArrivalNotice) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: "Front desk", Email: to}})
	msg.SetSubject(notice.subject())
	msg.SetText(notice.text())
	msg.SetHTML(notice.html())

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
