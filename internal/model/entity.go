package model

import "time"

// Entity is a reconciled contact/organization record keyed by sender email.
// Phone, Position, and Category are append-once: once populated they are
// never overwritten by a later message from the same sender.
type Entity struct {
	ID        string
	Email     string
	Name      string
	Company   string
	Phone     string
	Position  string
	Category  string
	CreatedAt time.Time
}

// NewEntity builds a first-seen entity for a sender. Name defaults to the
// display name when present, else the local part of the address; Company
// defaults to the domain.
func NewEntity(sender Sender) Entity {
	name := sender.Name
	if name == "" {
		name = sender.LocalPart()
	}
	return Entity{
		Email:   sender.Email,
		Name:    name,
		Company: sender.Domain(),
	}
}

// MailRecord is one row of processed mail history. MessageID carries the
// transport's message id so reprocessing the same message is a no-op.
type MailRecord struct {
	ID                string
	MessageID         string
	Title             string
	OriginalContent   string
	SummarizedContent string
	ReceivedDate      *time.Time
	EntityID          string
	ReceiverMail      string
	CreatedAt         time.Time
}
