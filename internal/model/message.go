// Package model defines the core types shared by the mail ingestion pipeline.
package model

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrInvalidSender marks a From header that does not contain a syntactically
// valid email address. Messages with such senders are rejected before any
// extraction work happens.
var ErrInvalidSender = eris.New("model: invalid sender address")

// DecodedMessage is the plain-text view of one raw mail message. It is
// derived once by the decoder and consumed read-only by every later stage.
type DecodedMessage struct {
	Subject string
	From    string
	Date    string
	Body    string
}

// Sender is the normalized identity of a message author.
type Sender struct {
	Email string // lowercase, validated
	Name  string // display name, may be empty
}

// ParseSender parses and validates a From header. The address is lowercased;
// a header without a valid addr-spec fails with ErrInvalidSender.
func ParseSender(fromHeader string) (Sender, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(fromHeader))
	if err != nil {
		return Sender{}, eris.Wrapf(ErrInvalidSender, "%q", fromHeader)
	}

	email := strings.ToLower(addr.Address)
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return Sender{}, eris.Wrapf(ErrInvalidSender, "%q", fromHeader)
	}

	return Sender{
		Email: email,
		Name:  strings.TrimSpace(addr.Name),
	}, nil
}

// LocalPart returns the part of the address before the @.
func (s Sender) LocalPart() string {
	local, _, _ := strings.Cut(s.Email, "@")
	return local
}

// Domain returns the part of the address after the @.
func (s Sender) Domain() string {
	_, domain, _ := strings.Cut(s.Email, "@")
	return domain
}

// String renders the sender the way it appears in a From header.
func (s Sender) String() string {
	if s.Name == "" {
		return s.Email
	}
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}

// Extraction is the merged structured signal derived from one message.
// Empty slices/strings mean "nothing found"; downstream reconciliation only
// fills entity fields from non-empty values.
type Extraction struct {
	Phones     []string
	Position   string
	Categories []string
}

// Phone returns the representative phone number, the first found.
func (e Extraction) Phone() string {
	if len(e.Phones) == 0 {
		return ""
	}
	return e.Phones[0]
}

// Category returns the stored representation of the category set.
func (e Extraction) Category() string {
	return strings.Join(e.Categories, ",")
}

// ParseReceivedDate parses an RFC 5322 Date header. Returns nil when the
// header is absent or unparseable; a missing date never fails a message.
func ParseReceivedDate(header string) *time.Time {
	if header == "" {
		return nil
	}
	t, err := mail.ParseDate(header)
	if err != nil {
		return nil
	}
	return &t
}
