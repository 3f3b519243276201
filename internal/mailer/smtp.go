package mailer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	mail "github.com/wneessen/go-mail"

	"github.com/mailpilot/backend/internal/apperr"
	"github.com/mailpilot/backend/internal/models"
)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// SMTPTransport sends messages over SMTP using the account's server settings.
type SMTPTransport struct{}

// NewSMTPTransport creates an SMTP transport.
func NewSMTPTransport() *SMTPTransport {
	return &SMTPTransport{}
}

// Send delivers msg through the account's SMTP server. HTML bodies are sent
// as multipart/alternative with a tag-stripped plain part.
func (t *SMTPTransport) Send(ctx context.Context, account *models.EmailAccount, password string, msg *models.OutgoingMessage) error {
	m := mail.NewMsg()
	if err := m.FromFormat(account.AccountName, account.EmailAddress); err != nil {
		return apperr.Validation("invalid from address %q: %v", account.EmailAddress, err)
	}
	if err := m.To(msg.To...); err != nil {
		return apperr.Validation("invalid to address: %v", err)
	}
	if len(msg.CC) > 0 {
		if err := m.Cc(msg.CC...); err != nil {
			return apperr.Validation("invalid cc address: %v", err)
		}
	}
	if len(msg.BCC) > 0 {
		if err := m.Bcc(msg.BCC...); err != nil {
			return apperr.Validation("invalid bcc address: %v", err)
		}
	}
	m.Subject(msg.Subject)

	if isHTML(msg.Body) {
		m.SetBodyString(mail.TypeTextPlain, htmlToText(msg.Body))
		m.AddAlternativeString(mail.TypeTextHTML, msg.Body)
	} else {
		m.SetBodyString(mail.TypeTextPlain, msg.Body)
	}

	client, err := t.newClient(account, password)
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return apperr.Transport("send", err)
	}
	return nil
}

// TestConnection dials the account's SMTP server without sending.
func (t *SMTPTransport) TestConnection(ctx context.Context, account *models.EmailAccount, password string) ConnectionTest {
	client, err := t.newClient(account, password)
	if err != nil {
		return ConnectionTest{Success: false, Message: err.Error()}
	}
	if err := client.DialWithContext(ctx); err != nil {
		return ConnectionTest{Success: false, Message: fmt.Sprintf("smtp connection error: %v", err)}
	}
	defer client.Close()
	return ConnectionTest{Success: true, Message: "smtp connection successful"}
}

func (t *SMTPTransport) newClient(account *models.EmailAccount, password string) (*mail.Client, error) {
	if account.SMTPServer == "" {
		return nil, apperr.Config("smtp server not configured", nil)
	}
	port := account.SMTPPort
	if port == 0 {
		port = 587
	}
	client, err := mail.NewClient(account.SMTPServer,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(account.Username),
		mail.WithPassword(password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, apperr.Config("create smtp client", err)
	}
	return client, nil
}

func isHTML(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "<html>")
}

func htmlToText(html string) string {
	return htmlTagPattern.ReplaceAllString(html, "")
}
