package models

import "time"

// OutgoingMessage is one message handed to the mail transport.
type OutgoingMessage struct {
	To      []string `json:"to"`
	CC      []string `json:"cc,omitempty"`
	BCC     []string `json:"bcc,omitempty"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// Recipient is one personalized target of a campaign dispatch.
type Recipient struct {
	Email     string            `json:"email"`
	Variables map[string]string `json:"variables,omitempty"`
}

// InboxMessage is one fetched inbox email, evaluated read-only by the rule engine.
type InboxMessage struct {
	UID        uint32    `json:"uid"`
	Subject    string    `json:"subject"`
	Sender     string    `json:"sender"` // "Name <addr>" or bare address
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
	IsRead     bool      `json:"is_read"`
}
