// Package inbox watches IMAP accounts for unseen mail and feeds it through
// the automation rule engine.
package inbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/mailpilot/backend/internal/apperr"
	"github.com/mailpilot/backend/internal/mailer"
	"github.com/mailpilot/backend/internal/models"
)

// Client performs IMAP operations against a user account's mail server.
// Each operation dials a fresh connection; the watcher's sweep cadence is
// slow enough that pooling is not worth the session bookkeeping.
type Client struct{}

// NewClient creates an IMAP client.
func NewClient() *Client {
	return &Client{}
}

func (c *Client) connect(account *models.EmailAccount, password string) (*imapclient.Client, error) {
	if account.IMAPServer == "" {
		return nil, apperr.Config("imap server not configured", nil)
	}
	port := account.IMAPPort
	if port == 0 {
		port = 993
	}
	addr := fmt.Sprintf("%s:%d", account.IMAPServer, port)
	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, apperr.Transport("imap dial "+addr, err)
	}
	if err := client.Login(account.Username, password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, apperr.Transport("imap login", err)
	}
	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, apperr.Transport("imap select inbox", err)
	}
	return client, nil
}

// TestConnection dials and authenticates against the account's IMAP server
// without touching any messages.
func (c *Client) TestConnection(_ context.Context, account *models.EmailAccount, password string) mailer.ConnectionTest {
	client, err := c.connect(account, password)
	if err != nil {
		return mailer.ConnectionTest{Success: false, Message: fmt.Sprintf("imap connection error: %v", err)}
	}
	_ = client.Logout().Wait()
	return mailer.ConnectionTest{Success: true, Message: "imap connection successful"}
}

// FetchUnseen returns up to limit of the most recent unseen messages.
// Messages are fetched with peek so reading them here does not mark them seen.
func (c *Client) FetchUnseen(_ context.Context, account *models.EmailAccount, password string, limit int) ([]*models.InboxMessage, error) {
	client, err := c.connect(account, password)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, apperr.Transport("imap search", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), fetchOpts)
	defer fetchCmd.Close()

	var messages []*models.InboxMessage
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		messages = append(messages, messageFromBuffer(buf, bodySection))
	}
	if err := fetchCmd.Close(); err != nil {
		return messages, apperr.Transport("imap fetch", err)
	}
	return messages, nil
}

// MarkRead adds the Seen flag to a message.
func (c *Client) MarkRead(_ context.Context, account *models.EmailAccount, password string, uid uint32) error {
	client, err := c.connect(account, password)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	storeCmd := client.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return apperr.Transport("imap store", err)
	}
	return nil
}

// MoveToFolder moves a message out of the inbox into folder.
func (c *Client) MoveToFolder(_ context.Context, account *models.EmailAccount, password string, uid uint32, folder string) error {
	client, err := c.connect(account, password)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Move(imap.UIDSetNum(imap.UID(uid)), folder).Wait(); err != nil {
		return apperr.Transport("imap move to "+folder, err)
	}
	return nil
}

func messageFromBuffer(buf *imapclient.FetchMessageBuffer, bodySection *imap.FetchItemBodySection) *models.InboxMessage {
	msg := &models.InboxMessage{UID: uint32(buf.UID)}
	if buf.Envelope != nil {
		msg.Subject = buf.Envelope.Subject
		msg.ReceivedAt = buf.Envelope.Date
		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				msg.Sender = fmt.Sprintf("%s <%s>", from.Name, from.Addr())
			} else {
				msg.Sender = from.Addr()
			}
		}
	}
	if raw := buf.FindBodySection(bodySection); raw != nil {
		msg.Body = extractTextBody(raw)
	}
	return msg
}

// extractTextBody pulls the text/plain part out of a MIME message, falling
// back to text/html and finally to the raw bytes.
func extractTextBody(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}
	defer mr.Close()

	var htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}
		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			return string(body)
		case strings.HasPrefix(contentType, "text/html"):
			htmlBody = string(body)
		}
	}
	if htmlBody != "" {
		return htmlBody
	}
	return string(raw)
}
